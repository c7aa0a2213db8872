package seed

import (
	_ "embed"
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// NeighborhoodEntry is one neighborhood in the catalog.
type NeighborhoodEntry struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// Validate implements validation.Validatable.
func (e NeighborhoodEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.Slug, validation.Required),
	)
}

// PlaceEntry is one place in the catalog.
type PlaceEntry struct {
	Name             string `yaml:"name"`
	Slug             string `yaml:"slug"`
	Type             string `yaml:"type"`
	ShortDescription string `yaml:"short_description"`
	Address          string `yaml:"address"`
	Website          string `yaml:"website"`
	Instagram        string `yaml:"instagram"`
	GoogleMapsURL    string `yaml:"google_maps_url"`
	NeighborhoodSlug string `yaml:"neighborhood_slug"`
}

// Validate implements validation.Validatable.
func (e PlaceEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.Slug, validation.Required),
		validation.Field(&e.Type, validation.Required),
	)
}

// Catalog is the fixed set of reference entities written by a seed run.
type Catalog struct {
	Neighborhoods []NeighborhoodEntry `yaml:"neighborhoods"`
	Places        []PlaceEntry        `yaml:"places"`
}

// Validate checks every entry, rejects duplicate slugs and place links to
// neighborhoods the catalog does not define.
func (c *Catalog) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Neighborhoods),
		validation.Field(&c.Places),
	); err != nil {
		return err
	}

	known := make(map[string]bool, len(c.Neighborhoods))
	for _, n := range c.Neighborhoods {
		if known[n.Slug] {
			return fmt.Errorf("duplicate neighborhood slug %q", n.Slug)
		}
		known[n.Slug] = true
	}
	seen := make(map[string]bool, len(c.Places))
	for _, p := range c.Places {
		if seen[p.Slug] {
			return fmt.Errorf("duplicate place slug %q", p.Slug)
		}
		seen[p.Slug] = true
		if p.NeighborhoodSlug != "" && !known[p.NeighborhoodSlug] {
			return fmt.Errorf("place %q: unknown neighborhood %q", p.Slug, p.NeighborhoodSlug)
		}
	}
	return nil
}

// DefaultCatalog returns the built-in Austin catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}
