// Package sanity is a small client for the structured document store's HTTP
// API: slug lookups through the query endpoint and batched transactions
// through the mutate endpoint.
package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/models"
)

// Defaults for Config fields left empty.
const (
	DefaultProjectID     = "ow7iqhbw"
	DefaultDataset       = "production"
	DefaultAPIVersion    = "v2023-08-01"
	DefaultQueryTimeout  = 15 * time.Second
	DefaultMutateTimeout = 30 * time.Second
)

// Config holds the store settings. APIHost overrides the project-derived
// host (https://<project>.api.sanity.io).
type Config struct {
	ProjectID     string
	Dataset       string
	APIVersion    string
	APIHost       string
	Token         string
	QueryTimeout  time.Duration
	MutateTimeout time.Duration
}

// Client performs store reads and writes. It is safe for concurrent use.
type Client struct {
	queryURL      string
	mutateURL     string
	token         string
	queryTimeout  time.Duration
	mutateTimeout time.Duration
	httpClient    *http.Client
}

// New creates a client. An empty token is a ConfigError. httpClient may be
// nil.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, &apperr.ConfigError{Setting: "SANITY_WRITE_TOKEN", Reason: "is required"}
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = DefaultProjectID
	}
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.MutateTimeout <= 0 {
		cfg.MutateTimeout = DefaultMutateTimeout
	}
	host := cfg.APIHost
	if host == "" {
		host = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}
	base := strings.TrimRight(host, "/") + "/" + cfg.APIVersion + "/data"
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		queryURL:      base + "/query/" + url.PathEscape(cfg.Dataset),
		mutateURL:     base + "/mutate/" + url.PathEscape(cfg.Dataset) + "?returnIds=true",
		token:         cfg.Token,
		queryTimeout:  cfg.QueryTimeout,
		mutateTimeout: cfg.MutateTimeout,
		httpClient:    httpClient,
	}, nil
}

// Query runs a GROQ query and decodes its result field into out.
func (c *Client) Query(ctx context.Context, groq string, out any) error {
	ctx, cancel := withTimeout(ctx, c.queryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL+"?"+url.Values{"query": {groq}}.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("sanity: create query request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	status, raw, err := c.do(req)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return &apperr.QueryError{StatusCode: status, Body: string(raw)}
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &apperr.ParseError{Field: "query response", Err: err}
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return &apperr.ParseError{Field: "query result", Err: err}
	}
	return nil
}

// Mutate submits ops as one transaction. The store applies all of them or
// none; a non-success status is returned as a WriteError.
func (c *Client) Mutate(ctx context.Context, ops []models.Mutation) (*models.TransactionResult, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: no mutations", apperr.ErrInvalidInput)
	}
	ctx, cancel := withTimeout(ctx, c.mutateTimeout)
	defer cancel()

	body, err := json.Marshal(struct {
		Mutations []models.Mutation `json:"mutations"`
	}{Mutations: ops})
	if err != nil {
		return nil, fmt.Errorf("sanity: marshal mutations: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.mutateURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sanity: create mutate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	status, raw, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &apperr.WriteError{StatusCode: status, Body: string(raw)}
	}

	var res models.TransactionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, &apperr.ParseError{Field: "mutate response", Err: err}
	}
	return &res, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sanity: request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("sanity: read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= d {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
