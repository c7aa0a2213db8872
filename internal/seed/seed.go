// Package seed writes the reference neighborhoods and places to the document
// store under deterministic identifiers, so runs can be repeated safely.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/guidesmith/internal/models"
	"github.com/starford/guidesmith/internal/portabletext"
	"github.com/starford/guidesmith/internal/sanity"
)

// Writer creates a document unless one with the same identifier exists.
type Writer interface {
	CreateIfNotExists(ctx context.Context, doc sanity.Document) (*models.TransactionResult, error)
}

// Report summarises a seed run. Existing counts documents that were already
// present and left untouched.
type Report struct {
	Neighborhoods int  `json:"neighborhoods"`
	Places        int  `json:"places"`
	Created       int  `json:"created"`
	Existing      int  `json:"existing"`
	DryRun        bool `json:"dryRun"`
}

// Options tune a seed run.
type Options struct {
	DryRun bool
	Logger *slog.Logger
}

// NeighborhoodDocument builds the store document for e.
func NeighborhoodDocument(e NeighborhoodEntry) models.Neighborhood {
	doc := models.Neighborhood{
		ID:   models.DocumentID(models.KindNeighborhood, e.Slug),
		Type: models.KindNeighborhood,
		Name: e.Name,
		Slug: models.NewSlug(e.Slug),
	}
	if e.Description != "" {
		doc.Description = []models.Block{portabletext.Paragraph(0, e.Description)}
	}
	return doc
}

// PlaceDocument builds the store document for e. The neighborhood link is
// derived from the deterministic neighborhood identifier, not looked up.
func PlaceDocument(e PlaceEntry) models.Place {
	doc := models.Place{
		ID:               models.DocumentID(models.KindPlace, e.Slug),
		Type:             models.KindPlace,
		Name:             e.Name,
		Slug:             models.NewSlug(e.Slug),
		PlaceType:        e.Type,
		ShortDescription: e.ShortDescription,
		Address:          e.Address,
		Website:          e.Website,
		Instagram:        e.Instagram,
		GoogleMapsURL:    e.GoogleMapsURL,
	}
	if e.NeighborhoodSlug != "" {
		ref := models.NewReference(models.DocumentID(models.KindNeighborhood, e.NeighborhoodSlug))
		doc.Neighborhood = &ref
	}
	return doc
}

// Run seeds every neighborhood, then every place, one write per entity. It
// stops at the first failure; entities written before it stay written.
func Run(ctx context.Context, w Writer, c *Catalog, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rep := &Report{DryRun: opts.DryRun}

	write := func(doc sanity.Document, name string) error {
		if opts.DryRun {
			logger.Info("seed: would write", slog.String("id", doc.DocumentID()), slog.String("name", name))
			return nil
		}
		res, err := w.CreateIfNotExists(ctx, doc)
		if err != nil {
			return err
		}
		if res.Created() > 0 {
			rep.Created++
			logger.Info("seed: created", slog.String("id", doc.DocumentID()), slog.String("name", name))
		} else {
			rep.Existing++
			logger.Debug("seed: exists", slog.String("id", doc.DocumentID()))
		}
		return nil
	}

	logger.Info("seed: neighborhoods", slog.Int("count", len(c.Neighborhoods)))
	for _, e := range c.Neighborhoods {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := write(NeighborhoodDocument(e), e.Name); err != nil {
			return rep, fmt.Errorf("seed neighborhood %s: %w", e.Slug, err)
		}
		rep.Neighborhoods++
	}

	logger.Info("seed: places", slog.Int("count", len(c.Places)))
	for _, e := range c.Places {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := write(PlaceDocument(e), e.Name); err != nil {
			return rep, fmt.Errorf("seed place %s: %w", e.Slug, err)
		}
		rep.Places++
	}

	logger.Info("seed: complete",
		slog.Int("neighborhoods", rep.Neighborhoods),
		slog.Int("places", rep.Places),
		slog.Int("created", rep.Created),
		slog.Int("existing", rep.Existing),
		slog.Bool("dry_run", rep.DryRun),
	)
	return rep, nil
}
