package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/guidesmith/internal/guideservice"
	"github.com/starford/guidesmith/internal/journal"
	"github.com/starford/guidesmith/internal/llm"
	"github.com/starford/guidesmith/internal/portabletext"
	"github.com/starford/guidesmith/internal/sanity"
	"github.com/starford/guidesmith/internal/seed"
)

// Stack is the wired pipeline shared by the server and the one-shot
// commands.
type Stack struct {
	Config  *Config
	Logger  *slog.Logger
	Service *guideservice.Service
	Journal *journal.DB
}

// Open validates the configuration and builds the pipeline. Clients whose
// credentials are absent are left out unless the matching Need option was
// given, in which case the absence is a ConfigError. notifier may be nil.
func Open(notifier guideservice.Notifier, opts ...Option) (*Stack, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if app.needLLM {
		if err := cfg.RequireLLM(); err != nil {
			return nil, err
		}
	}
	if app.needStore {
		if err := cfg.RequireStore(); err != nil {
			return nil, err
		}
	}

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	var gen guideservice.Generator
	if strings.TrimSpace(cfg.LLM.APIKey) != "" {
		c, err := llm.New(cfg.LLM.Client(), app.httpClient)
		if err != nil {
			return nil, err
		}
		gen = c
	}

	var store guideservice.Store
	if strings.TrimSpace(cfg.Sanity.Token) != "" {
		c, err := sanity.New(cfg.Sanity.Client(), app.httpClient)
		if err != nil {
			return nil, err
		}
		store = c
	}

	normalizer, err := portabletext.ForStrategy(cfg.Content.Strategy)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Journal.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}

	svcOpts := []guideservice.Option{
		guideservice.WithJournal(db),
		guideservice.WithNormalizer(normalizer),
		guideservice.WithLogger(logger),
	}
	if notifier != nil {
		svcOpts = append(svcOpts, guideservice.WithNotifier(notifier))
	}

	logger.Debug("pipeline configured",
		slog.Bool("generator", gen != nil),
		slog.Bool("store", store != nil),
		slog.String("dataset", cfg.Sanity.Dataset),
		slog.String("content_strategy", cfg.Content.Strategy),
		slog.String("journal_path", cfg.Journal.Path))

	return &Stack{
		Config:  cfg,
		Logger:  logger,
		Service: guideservice.New(gen, store, svcOpts...),
		Journal: db,
	}, nil
}

// Catalog returns the configured seed catalog, or the built-in one when no
// path is set.
func (s *Stack) Catalog() (*seed.Catalog, error) {
	return LoadCatalog(s.Config.Seed.Catalog)
}

// Close releases the journal.
func (s *Stack) Close() error {
	return s.Journal.Close()
}

// LoadCatalog reads the catalog at path. An empty path selects the built-in
// catalog.
func LoadCatalog(path string) (*seed.Catalog, error) {
	if path == "" {
		return seed.DefaultCatalog()
	}
	return seed.LoadCatalog(path)
}
