// Package inbox turns topic request files dropped into a directory into
// guides. Each file is handled once and then moved to processed/ or failed/.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/starford/guidesmith/internal/guideservice"
	"github.com/starford/guidesmith/internal/journal"
	"github.com/starford/guidesmith/internal/slug"
	"github.com/starford/guidesmith/internal/sse"
)

// DefaultDebounce is how long a file must stay quiet before it is read.
const DefaultDebounce = 200 * time.Millisecond

// Handler runs guide requests.
type Handler interface {
	CreateFromTopic(ctx context.Context, req guideservice.Request) (*guideservice.Result, error)
	AlreadyCreated(req guideservice.Request) (bool, error)
	Notify(eventType string, data any)
}

// Outcome describes how a request file was handled.
type Outcome struct {
	File    string `json:"file"`
	MovedTo string `json:"movedTo"`
	Status  string `json:"status"`
	GuideID string `json:"guideId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Outcome statuses.
const (
	StatusCreated   = "created"
	StatusDuplicate = "duplicate"
	StatusFailed    = "failed"
)

// FailedEvent is the payload of an inbox.failed event.
type FailedEvent struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Processor handles request files of one inbox directory.
type Processor struct {
	dir      *Dir
	handler  Handler
	logger   *slog.Logger
	debounce time.Duration
}

// NewProcessor creates a processor for dir.
func NewProcessor(dir *Dir, h Handler, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{dir: dir, handler: h, logger: logger, debounce: DefaultDebounce}
}

// ParseRequest decodes a YAML request file.
func ParseRequest(data []byte) (guideservice.Request, error) {
	var req guideservice.Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

// Enqueue writes req as a new request file and returns its name.
func (p *Processor) Enqueue(req guideservice.Request) (string, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("invalid request: %w", err)
	}
	data, err := yaml.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("inbox: encode request: %w", err)
	}
	name := fmt.Sprintf("%d-%s.yaml", time.Now().UnixNano(), slug.FromTitle(req.Topic))
	if err := p.dir.Write(name, data); err != nil {
		return "", err
	}
	return name, nil
}

// Process handles one request file in the inbox root. The file always ends
// up in processed/ or failed/; a failed file gets a .error sidecar.
func (p *Processor) Process(ctx context.Context, name string) (*Outcome, error) {
	data, err := p.dir.Read(name)
	if err != nil {
		return nil, err
	}

	out := &Outcome{File: name}
	req, err := ParseRequest(data)
	if err == nil {
		req.Source = journal.SourceInbox
		out.Status, out.GuideID, err = p.run(ctx, req)
	}
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// Interrupted by shutdown; leave the file for the next sweep.
			return nil, err
		}
		return p.fail(name, out, err)
	}

	moved, mvErr := p.dir.Move(name, ProcessedDir)
	if mvErr != nil {
		return nil, mvErr
	}
	out.MovedTo = moved
	p.logger.Info("inbox: processed",
		slog.String("file", name),
		slog.String("status", out.Status),
		slog.String("guide_id", out.GuideID))
	return out, nil
}

func (p *Processor) run(ctx context.Context, req guideservice.Request) (status, id string, err error) {
	dup, err := p.handler.AlreadyCreated(req)
	if err != nil {
		return "", "", err
	}
	if dup {
		return StatusDuplicate, "", nil
	}
	res, err := p.handler.CreateFromTopic(ctx, req)
	if err != nil {
		return "", "", err
	}
	return StatusCreated, res.Guide.ID, nil
}

func (p *Processor) fail(name string, out *Outcome, cause error) (*Outcome, error) {
	out.Status = StatusFailed
	out.Error = cause.Error()

	moved, err := p.dir.Move(name, FailedDir)
	if err != nil {
		return nil, err
	}
	out.MovedTo = moved
	if err := p.dir.Write(moved+".error", []byte(out.Error+"\n")); err != nil {
		p.logger.Warn("inbox: write error sidecar failed", slog.String("file", moved), slog.String("error", err.Error()))
	}

	p.logger.Warn("inbox: failed", slog.String("file", name), slog.String("error", out.Error))
	p.handler.Notify(sse.EventInboxFailed, FailedEvent{File: name, Error: out.Error})
	return out, nil
}

// Sweep processes every request file currently waiting in the inbox.
func (p *Processor) Sweep(ctx context.Context) ([]*Outcome, error) {
	names, err := p.dir.Pending()
	if err != nil {
		return nil, err
	}
	var outcomes []*Outcome
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		o, err := p.Process(ctx, name)
		if err != nil {
			p.logger.Warn("inbox: process failed", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// Watch sweeps the inbox, then handles new request files as they appear
// until ctx is cancelled. Events for one file are debounced so a file is
// read only after writes to it have settled.
func (p *Processor) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(p.dir.Root()); err != nil {
		return err
	}
	p.logger.Info("inbox: watching", slog.String("root", p.dir.Root()))

	if _, err := p.Sweep(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("inbox: initial sweep failed", slog.String("error", err.Error()))
	}

	timers := make(map[string]*time.Timer)
	ready := make(chan string, 64)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("inbox: stopped")
			return nil

		case name := <-ready:
			delete(timers, name)
			if _, err := p.Process(ctx, name); err != nil && ctx.Err() == nil && !errors.Is(err, fs.ErrNotExist) {
				p.logger.Warn("inbox: process failed", slog.String("file", name), slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !IsRequest(ev.Name) {
				continue
			}
			if filepath.Dir(ev.Name) != p.dir.Root() {
				continue
			}
			name := filepath.Base(ev.Name)
			if t, ok := timers[name]; ok {
				t.Reset(p.debounce)
				continue
			}
			timers[name] = time.AfterFunc(p.debounce, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			p.logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
