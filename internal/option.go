package internal

import (
	"io"
	"net/http"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	logOutput  io.Writer
	httpClient *http.Client
	needLLM    bool
	needStore  bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects the JSON log stream. Defaults to stdout; commands
// that print results or speak a protocol on stdout pass stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithHTTPClient sets the client used for the generation service and the
// document store.
func WithHTTPClient(c *http.Client) Option {
	return func(a *application) {
		a.httpClient = c
	}
}

// NeedGenerator makes a missing generation API key fatal.
func NeedGenerator() Option {
	return func(a *application) {
		a.needLLM = true
	}
}

// NeedStore makes a missing store write token fatal.
func NeedStore() Option {
	return func(a *application) {
		a.needStore = true
	}
}
