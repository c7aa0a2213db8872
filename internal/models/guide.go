// Package models defines the document and pipeline types shared across guidesmith.
package models

// Document kinds stored in the structured document store.
const (
	KindGuide        = "guide"
	KindPlace        = "place"
	KindNeighborhood = "neighborhood"
)

// Guide types accepted by the guide schema.
const (
	GuideTypeList      = "list"
	GuideTypeExplainer = "explainer"
	GuideTypeReview    = "review"
	GuideTypeRoundup   = "roundup"
	GuideTypeFeature   = "feature"
)

// GuideTypes is the closed set of guide types, in prompt order.
var GuideTypes = []string{
	GuideTypeList,
	GuideTypeExplainer,
	GuideTypeReview,
	GuideTypeRoundup,
	GuideTypeFeature,
}

// TopicCategories is the closed set of categories a topic idea may carry.
var TopicCategories = []string{"food", "comedy", "nightlife", "wellness", "weird", "other"}

// IsGuideType reports whether s is one of GuideTypes.
func IsGuideType(s string) bool {
	for _, t := range GuideTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Topic is a candidate question or theme produced by topic ideation.
type Topic struct {
	Question         string   `json:"question" yaml:"question"`
	Category         string   `json:"category" yaml:"category"`
	NeighborhoodSlug string   `json:"neighborhoodSlug,omitempty" yaml:"neighborhood_slug,omitempty"`
	PlaceSlugs       []string `json:"placeSlugs,omitempty" yaml:"place_slugs,omitempty"`
}

// GuideDraft is the generation service's structured answer for one topic,
// after fallbacks for slug and guide type have been applied.
type GuideDraft struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Summary   string `json:"summary"`
	Content   string `json:"content"`
	GuideType string `json:"guideType"`
}

// Slug is the store's slug object.
type Slug struct {
	Type    string `json:"_type"`
	Current string `json:"current"`
}

// NewSlug wraps s in a slug object.
func NewSlug(s string) Slug {
	return Slug{Type: "slug", Current: s}
}

// Reference points at another document by its store identifier.
type Reference struct {
	Type string `json:"_type"`
	Ref  string `json:"_ref"`
}

// NewReference returns a reference to the document with the given id.
func NewReference(id string) Reference {
	return Reference{Type: "reference", Ref: id}
}

// Guide is the persisted guide document.
type Guide struct {
	ID            string      `json:"_id,omitempty"`
	Type          string      `json:"_type"`
	Title         string      `json:"title"`
	Slug          Slug        `json:"slug"`
	Summary       string      `json:"summary,omitempty"`
	Content       []Block     `json:"content"`
	GuideType     string      `json:"guideType,omitempty"`
	Places        []Reference `json:"places,omitempty"`
	Neighborhoods []Reference `json:"neighborhoods,omitempty"`
}

// GuidePayload is the input to guide creation. Places and Neighborhoods are
// pre-resolved references; when either is non-nil the matching slug list is
// not resolved again.
type GuidePayload struct {
	Title             string
	Slug              Slug
	Summary           string
	Content           []Block
	GuideType         string
	PlaceSlugs        []string
	NeighborhoodSlugs []string
	Places            []Reference
	Neighborhoods     []Reference
}

// Neighborhood is a seeded reference entity.
type Neighborhood struct {
	ID          string  `json:"_id"`
	Type        string  `json:"_type"`
	Name        string  `json:"name"`
	Slug        Slug    `json:"slug"`
	Description []Block `json:"description,omitempty"`
}

// Place is a seeded reference entity, optionally linked to a neighborhood.
type Place struct {
	ID               string     `json:"_id"`
	Type             string     `json:"_type"`
	Name             string     `json:"name"`
	Slug             Slug       `json:"slug"`
	PlaceType        string     `json:"type,omitempty"`
	ShortDescription string     `json:"shortDescription,omitempty"`
	Address          string     `json:"address,omitempty"`
	Website          string     `json:"website,omitempty"`
	Instagram        string     `json:"instagram,omitempty"`
	GoogleMapsURL    string     `json:"googleMapsUrl,omitempty"`
	Neighborhood     *Reference `json:"neighborhood,omitempty"`
}

// DocumentID returns the deterministic store identifier for a slug of the given kind.
func DocumentID(kind, slug string) string {
	return kind + "." + slug
}

// DocumentID returns the neighborhood's store identifier.
func (n Neighborhood) DocumentID() string { return n.ID }

// DocumentID returns the place's store identifier.
func (p Place) DocumentID() string { return p.ID }
