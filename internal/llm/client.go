// Package llm talks to an OpenAI-compatible chat completion service and turns
// its JSON-mode answers into guide drafts and topic ideas.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/models"
	"github.com/starford/guidesmith/internal/prompt"
)

// Sampling temperatures per task.
const (
	GuideTemperature  = 0.7
	TopicsTemperature = 0.8
)

// Defaults for Config fields left empty.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4-turbo-preview"
	DefaultTimeout = 120 * time.Second
)

// Config holds the generation service settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls the chat completion endpoint. It is safe for concurrent use.
type Client struct {
	apiKey     string
	endpoint   string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a client. An empty API key is a ConfigError. httpClient may be
// nil, in which case a default client is used.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &apperr.ConfigError{Setting: "LLM_API_KEY", Reason: "is required"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
	}, nil
}

// Model returns the model identifier sent with every request.
func (c *Client) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete sends one system+user exchange in JSON mode and returns the first
// choice's message content. It is attempted exactly once.
func (c *Client) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &apperr.UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var envelope chatResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", &apperr.ParseError{Field: "response", Err: err}
	}
	if len(envelope.Choices) == 0 {
		return "", &apperr.ParseError{Field: "choices", Err: errors.New("no completion returned")}
	}
	return envelope.Choices[0].Message.Content, nil
}

// GenerateGuide asks for a guide about topic, optionally steering it towards
// the hinted entities.
func (c *Client) GenerateGuide(ctx context.Context, topic string, hints []string) (*models.GuideDraft, error) {
	userPrompt, err := prompt.Guide(topic, hints)
	if err != nil {
		return nil, err
	}
	content, err := c.complete(ctx, prompt.GuideSystem, userPrompt, GuideTemperature)
	if err != nil {
		return nil, err
	}
	return ParseGuide(content)
}

// GenerateTopicIdeas asks for topic candidates matching f. A payload without
// a topics array yields an empty slice.
func (c *Client) GenerateTopicIdeas(ctx context.Context, f prompt.TopicFilter) ([]models.Topic, error) {
	userPrompt, err := prompt.TopicIdeas(f)
	if err != nil {
		return nil, err
	}
	content, err := c.complete(ctx, prompt.TopicsSystem, userPrompt, TopicsTemperature)
	if err != nil {
		return nil, err
	}
	return ParseTopics(content)
}
