// Package guideservice composes generation, normalization, reference
// resolution and persistence into the guide pipeline used by every surface
// (CLI, HTTP API, MCP, inbox).
package guideservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/journal"
	"github.com/starford/guidesmith/internal/models"
	"github.com/starford/guidesmith/internal/portabletext"
	"github.com/starford/guidesmith/internal/prompt"
	"github.com/starford/guidesmith/internal/sanity"
	"github.com/starford/guidesmith/internal/seed"
	"github.com/starford/guidesmith/internal/sse"
)

// Generator produces guide drafts and topic ideas.
type Generator interface {
	GenerateGuide(ctx context.Context, topic string, hints []string) (*models.GuideDraft, error)
	GenerateTopicIdeas(ctx context.Context, f prompt.TopicFilter) ([]models.Topic, error)
}

// Store resolves references and writes documents.
type Store interface {
	seed.Writer
	CreateGuide(ctx context.Context, p models.GuidePayload) (*sanity.CreatedGuide, error)
	Resolve(ctx context.Context, kind string, slugs []string) (*sanity.Resolution, error)
}

// Notifier receives pipeline activity events.
type Notifier interface {
	Notify(eventType string, data any)
}

// Result is the outcome of one guide request.
type Result struct {
	Guide    *sanity.CreatedGuide `json:"guide"`
	Checksum string               `json:"checksum"`
}

// GuideCreatedEvent is the payload of a guide.created event.
type GuideCreatedEvent struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Service runs the guide pipeline.
type Service struct {
	gen        Generator
	store      Store
	normalizer portabletext.Normalizer
	journal    journal.Journal
	notifier   Notifier
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithJournal records created guides and seed runs.
func WithJournal(j journal.Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithNormalizer replaces the default plain-paragraph normalizer.
func WithNormalizer(n portabletext.Normalizer) Option {
	return func(s *Service) { s.normalizer = n }
}

// WithNotifier publishes activity events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a service. gen may be nil for store-only use (seeding,
// resolution); generation calls then fail with a ConfigError.
func New(gen Generator, store Store, opts ...Option) *Service {
	s := &Service{
		gen:        gen,
		store:      store,
		normalizer: portabletext.Plain{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) generator() (Generator, error) {
	if s.gen == nil {
		return nil, &apperr.ConfigError{Setting: "LLM_API_KEY", Reason: "is required for generation"}
	}
	return s.gen, nil
}

func (s *Service) backend() (Store, error) {
	if s.store == nil {
		return nil, &apperr.ConfigError{Setting: "SANITY_WRITE_TOKEN", Reason: "is required for store access"}
	}
	return s.store, nil
}

// CreateFromTopic generates a guide for req, normalizes its content, resolves
// the hinted references and persists it as a new document.
func (s *Service) CreateFromTopic(ctx context.Context, req Request) (*Result, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	gen, err := s.generator()
	if err != nil {
		return nil, err
	}
	store, err := s.backend()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	draft, err := gen.GenerateGuide(ctx, req.Topic, req.hints())
	if err != nil {
		return nil, fmt.Errorf("generate guide: %w", err)
	}

	created, err := store.CreateGuide(ctx, models.GuidePayload{
		Title:             draft.Title,
		Slug:              models.NewSlug(draft.Slug),
		Summary:           draft.Summary,
		Content:           s.normalizer.Normalize(draft.Content),
		GuideType:         draft.GuideType,
		PlaceSlugs:        req.Places,
		NeighborhoodSlugs: req.Neighborhoods,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Guide: created, Checksum: req.Checksum()}
	s.record(req, res)

	s.logger.Info("guide created",
		slog.String("id", created.ID),
		slog.String("slug", created.Slug.Current),
		slog.String("source", req.Source),
		slog.Int("places", len(created.Places)),
		slog.Int("neighborhoods", len(created.Neighborhoods)),
		slog.Duration("elapsed", time.Since(start)),
	)
	s.notify(sse.EventGuideCreated, GuideCreatedEvent{
		ID:     created.ID,
		Slug:   created.Slug.Current,
		Title:  created.Title,
		Source: req.Source,
	})
	return res, nil
}

// record writes the journal row for a persisted guide. The guide already
// exists in the store, so a journal failure is logged and not returned.
func (s *Service) record(req Request, res *Result) {
	if s.journal == nil {
		return
	}
	g := res.Guide
	err := s.journal.RecordGuide(journal.GuideRow{
		ID:            g.ID,
		TransactionID: g.TransactionID,
		Title:         g.Title,
		Slug:          g.Slug.Current,
		Summary:       g.Summary,
		GuideType:     g.GuideType,
		Topic:         req.Topic,
		TopicChecksum: res.Checksum,
		Source:        req.Source,
		Places:        refIDs(g.Places),
		Neighborhoods: refIDs(g.Neighborhoods),
	})
	if err != nil {
		s.logger.Warn("journal: record guide failed", slog.String("id", g.ID), slog.String("error", err.Error()))
	}
}

// CreateBatch runs CreateFromTopic for every request with at most
// concurrency requests in flight. The first failure cancels the rest; guides
// persisted before it stay persisted. Results keep the request order.
func (s *Service) CreateBatch(ctx context.Context, reqs []Request, concurrency int) ([]*Result, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no topics", apperr.ErrInvalidInput)
	}
	for i, r := range reqs {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: topic %d: %v", apperr.ErrInvalidInput, i, err)
		}
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, r := range reqs {
		if r.Source == "" {
			r.Source = journal.SourceBatch
		}
		g.Go(func() error {
			res, err := s.CreateFromTopic(gctx, r)
			if err != nil {
				return fmt.Errorf("topic %q: %w", r.Topic, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// AlreadyCreated reports whether the journal holds a guide for an identical
// request. Without a journal it always reports false.
func (s *Service) AlreadyCreated(req Request) (bool, error) {
	if s.journal == nil {
		return false, nil
	}
	return s.journal.HasTopic(req.Checksum())
}

// TopicIdeas asks the generator for topic candidates. Nothing is persisted.
func (s *Service) TopicIdeas(ctx context.Context, f prompt.TopicFilter) ([]models.Topic, error) {
	gen, err := s.generator()
	if err != nil {
		return nil, err
	}
	topics, err := gen.GenerateTopicIdeas(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("generate topics: %w", err)
	}
	return topics, nil
}

// Resolve maps slugs of kind to references and reports the missing ones.
func (s *Service) Resolve(ctx context.Context, kind string, slugs []string) (*sanity.Resolution, error) {
	store, err := s.backend()
	if err != nil {
		return nil, err
	}
	return store.Resolve(ctx, kind, slugs)
}

// Seed writes the catalog's reference entities and records the run.
func (s *Service) Seed(ctx context.Context, c *seed.Catalog, dryRun bool) (*seed.Report, error) {
	store, err := s.backend()
	if err != nil {
		return nil, err
	}
	started := time.Now().UTC()
	rep, runErr := seed.Run(ctx, store, c, seed.Options{DryRun: dryRun, Logger: s.logger})

	if s.journal != nil && rep != nil {
		row := journal.SeedRunRow{
			Neighborhoods: rep.Neighborhoods,
			Places:        rep.Places,
			Created:       rep.Created,
			Existing:      rep.Existing,
			DryRun:        rep.DryRun,
			StartedAt:     started,
			FinishedAt:    time.Now().UTC(),
		}
		if runErr != nil {
			row.Error = runErr.Error()
		}
		if _, err := s.journal.RecordSeedRun(row); err != nil {
			s.logger.Warn("journal: record seed run failed", slog.String("error", err.Error()))
		}
	}
	if runErr != nil {
		return rep, runErr
	}
	s.notify(sse.EventSeedCompleted, rep)
	return rep, nil
}

// History lists journaled guides newest first. A non-empty query searches
// title, summary and topic instead; total is then the number of hits.
func (s *Service) History(query string, limit, offset int) ([]journal.GuideRow, int, error) {
	if s.journal == nil {
		return []journal.GuideRow{}, 0, nil
	}
	if q := strings.TrimSpace(query); q != "" {
		rows, err := s.journal.Search(q, limit)
		if err != nil {
			return nil, 0, err
		}
		return rows, len(rows), nil
	}
	return s.journal.ListGuides(limit, offset)
}

// Guide returns a journaled guide by store identifier.
func (s *Service) Guide(id string) (*journal.GuideRow, error) {
	if s.journal == nil {
		return nil, apperr.ErrNotFound
	}
	return s.journal.GetGuide(id)
}

// SeedRuns lists recent seed runs.
func (s *Service) SeedRuns(limit int) ([]journal.SeedRunRow, error) {
	if s.journal == nil {
		return []journal.SeedRunRow{}, nil
	}
	return s.journal.ListSeedRuns(limit)
}

// Notify forwards an activity event to the configured notifier.
func (s *Service) Notify(eventType string, data any) {
	s.notify(eventType, data)
}

func (s *Service) notify(eventType string, data any) {
	if s.notifier != nil {
		s.notifier.Notify(eventType, data)
	}
}

func refIDs(refs []models.Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Ref
	}
	return out
}
