package sanity

import (
	"context"
	"fmt"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/models"
	"github.com/starford/guidesmith/internal/slug"
)

// CreatedGuide is a persisted guide together with the transaction that wrote it.
type CreatedGuide struct {
	models.Guide
	TransactionID string `json:"transactionId"`
}

// Document is a store document with a caller-chosen identifier.
type Document interface {
	DocumentID() string
}

// BuildGuide assembles the guide document for p with the given references.
// Empty reference lists are left out of the document rather than stored as
// empty arrays.
func BuildGuide(p models.GuidePayload, places, neighborhoods []models.Reference) models.Guide {
	s := p.Slug
	if s.Current == "" {
		s.Current = slug.FromTitle(p.Title)
	}
	if s.Type == "" {
		s.Type = "slug"
	}
	content := p.Content
	if content == nil {
		content = []models.Block{}
	}
	g := models.Guide{
		Type:      models.KindGuide,
		Title:     p.Title,
		Slug:      s,
		Summary:   p.Summary,
		Content:   content,
		GuideType: p.GuideType,
	}
	if len(places) > 0 {
		g.Places = places
	}
	if len(neighborhoods) > 0 {
		g.Neighborhoods = neighborhoods
	}
	return g
}

// guideDocument resolves p's slug lists, unless pre-resolved references were
// supplied, and builds the document.
func (c *Client) guideDocument(ctx context.Context, p models.GuidePayload) (models.Guide, error) {
	places := p.Places
	if places == nil {
		refs, err := c.ResolveSlugs(ctx, models.KindPlace, p.PlaceSlugs)
		if err != nil {
			return models.Guide{}, fmt.Errorf("resolve places: %w", err)
		}
		places = refs
	}
	neighborhoods := p.Neighborhoods
	if neighborhoods == nil {
		refs, err := c.ResolveSlugs(ctx, models.KindNeighborhood, p.NeighborhoodSlugs)
		if err != nil {
			return models.Guide{}, fmt.Errorf("resolve neighborhoods: %w", err)
		}
		neighborhoods = refs
	}
	return BuildGuide(p, places, neighborhoods), nil
}

// CreateGuide resolves references, submits a single create mutation and
// returns the document with the identifier assigned by the store. When the
// store returns no document id the transaction id is used instead.
func (c *Client) CreateGuide(ctx context.Context, p models.GuidePayload) (*CreatedGuide, error) {
	if p.Title == "" {
		return nil, fmt.Errorf("%w: guide title is required", apperr.ErrInvalidInput)
	}
	doc, err := c.guideDocument(ctx, p)
	if err != nil {
		return nil, err
	}

	res, err := c.Mutate(ctx, []models.Mutation{models.Create(doc)})
	if err != nil {
		return nil, fmt.Errorf("create guide %s: %w", doc.Slug.Current, err)
	}

	doc.ID = res.TransactionID
	if len(res.Results) > 0 && res.Results[0].ID != "" {
		doc.ID = res.Results[0].ID
	}
	return &CreatedGuide{Guide: doc, TransactionID: res.TransactionID}, nil
}

// MutateGuides creates every guide in one transaction. Either all guides are
// written or the whole batch fails with one error.
func (c *Client) MutateGuides(ctx context.Context, payloads []models.GuidePayload) (*models.TransactionResult, error) {
	if len(payloads) == 0 {
		return nil, fmt.Errorf("%w: no guides", apperr.ErrInvalidInput)
	}
	ops := make([]models.Mutation, 0, len(payloads))
	for i, p := range payloads {
		if p.Title == "" {
			return nil, fmt.Errorf("%w: guide %d has no title", apperr.ErrInvalidInput, i)
		}
		doc, err := c.guideDocument(ctx, p)
		if err != nil {
			return nil, err
		}
		ops = append(ops, models.Create(doc))
	}
	res, err := c.Mutate(ctx, ops)
	if err != nil {
		return nil, fmt.Errorf("create %d guides: %w", len(ops), err)
	}
	return res, nil
}

// CreateIfNotExists writes doc keyed by its identifier. An existing document
// with the same identifier is left unchanged and the call succeeds.
func (c *Client) CreateIfNotExists(ctx context.Context, doc Document) (*models.TransactionResult, error) {
	id := doc.DocumentID()
	if id == "" {
		return nil, fmt.Errorf("%w: document identifier is required", apperr.ErrInvalidInput)
	}
	res, err := c.Mutate(ctx, []models.Mutation{models.CreateIfNotExists(doc)})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", id, err)
	}
	return res, nil
}
