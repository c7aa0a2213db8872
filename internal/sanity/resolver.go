package sanity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/models"
)

// Resolution reports the outcome of resolving a slug list. Missing lists the
// requested slugs that matched no document.
type Resolution struct {
	Kind       string             `json:"kind"`
	Requested  []string           `json:"requested"`
	References []models.Reference `json:"references"`
	Missing    []string           `json:"missing"`
}

type slugDoc struct {
	ID   string      `json:"_id"`
	Slug models.Slug `json:"slug"`
}

// SlugQuery returns the GROQ filter selecting documents of kind whose slug is
// one of slugs, projected to identifier and slug. Slugs are JSON-quoted.
func SlugQuery(kind string, slugs []string) string {
	list, _ := json.Marshal(slugs)
	return fmt.Sprintf(`*[_type == %q && slug.current in %s]{_id, slug}`, kind, list)
}

// ResolveSlugs maps slugs of kind (place or neighborhood) to references.
// Slugs without a matching document are dropped, so the result may be
// shorter than the input. An empty input performs no request.
func (c *Client) ResolveSlugs(ctx context.Context, kind string, slugs []string) ([]models.Reference, error) {
	res, err := c.Resolve(ctx, kind, slugs)
	if err != nil {
		return nil, err
	}
	return res.References, nil
}

// Resolve is ResolveSlugs with a report of which slugs were not found.
// References follow the order of the first occurrence of each slug in the
// request.
func (c *Client) Resolve(ctx context.Context, kind string, slugs []string) (*Resolution, error) {
	if kind != models.KindPlace && kind != models.KindNeighborhood {
		return nil, fmt.Errorf("%w: cannot resolve slugs of kind %q", apperr.ErrInvalidInput, kind)
	}
	res := &Resolution{
		Kind:       kind,
		Requested:  dedupe(slugs),
		References: []models.Reference{},
		Missing:    []string{},
	}
	if len(res.Requested) == 0 {
		return res, nil
	}

	var docs []slugDoc
	if err := c.Query(ctx, SlugQuery(kind, res.Requested), &docs); err != nil {
		return nil, err
	}

	ids := make(map[string]string, len(docs))
	for _, d := range docs {
		if d.ID != "" {
			ids[d.Slug.Current] = d.ID
		}
	}
	for _, s := range res.Requested {
		if id, ok := ids[s]; ok {
			res.References = append(res.References, models.NewReference(id))
		} else {
			res.Missing = append(res.Missing, s)
		}
	}
	return res, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
