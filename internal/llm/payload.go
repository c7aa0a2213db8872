package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/models"
	"github.com/starford/guidesmith/internal/slug"
)

// guidePayload is the guide schema after tolerant field extraction.
type guidePayload struct {
	Title     string
	Slug      string
	Summary   string
	Content   string
	GuideType string
}

func (p *guidePayload) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Title, validation.Required),
	)
}

// ParseGuide decodes a guide payload. Only the title is mandatory: a missing
// or non-string slug is derived from the title, and a missing or unknown
// guide type becomes "list".
func ParseGuide(content string) (*models.GuideDraft, error) {
	fields, err := decodeObject(content)
	if err != nil {
		return nil, err
	}

	p := guidePayload{
		Title:     strings.TrimSpace(stringField(fields, "title")),
		Slug:      strings.TrimSpace(stringField(fields, "slug")),
		Summary:   stringField(fields, "summary"),
		Content:   stringField(fields, "content"),
		GuideType: strings.TrimSpace(stringField(fields, "guideType")),
	}
	if err := p.Validate(); err != nil {
		return nil, &apperr.ParseError{Field: "title", Err: err}
	}

	if p.Slug == "" {
		p.Slug = slug.FromTitle(p.Title)
	}
	if !models.IsGuideType(p.GuideType) {
		p.GuideType = models.GuideTypeList
	}

	return &models.GuideDraft{
		Title:     p.Title,
		Slug:      p.Slug,
		Summary:   p.Summary,
		Content:   p.Content,
		GuideType: p.GuideType,
	}, nil
}

// ParseTopics decodes an ideation payload. Missing or null topics mean none.
// Entries without a question are skipped and unknown categories become
// "other".
func ParseTopics(content string) ([]models.Topic, error) {
	fields, err := decodeObject(content)
	if err != nil {
		return nil, err
	}
	raw, ok := fields["topics"]
	if !ok || string(raw) == "null" {
		return []models.Topic{}, nil
	}

	var topics []models.Topic
	if err := json.Unmarshal(raw, &topics); err != nil {
		return nil, &apperr.ParseError{Field: "topics", Err: err}
	}

	out := make([]models.Topic, 0, len(topics))
	for _, t := range topics {
		t.Question = strings.TrimSpace(t.Question)
		if err := validation.Validate(t.Question, validation.Required); err != nil {
			continue
		}
		if validation.Validate(t.Category, validation.Required, validation.In(toAny(models.TopicCategories)...)) != nil {
			t.Category = "other"
		}
		out = append(out, t)
	}
	return out, nil
}

// decodeObject parses content as a JSON object, tolerating a surrounding
// markdown code fence.
func decodeObject(content string) (map[string]json.RawMessage, error) {
	s := stripFence(strings.TrimSpace(content))
	if s == "" {
		return nil, &apperr.ParseError{Field: "content", Err: errors.New("empty payload")}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, &apperr.ParseError{Field: "content", Err: fmt.Errorf("not a JSON object: %w", err)}
	}
	if fields == nil {
		return nil, &apperr.ParseError{Field: "content", Err: errors.New("payload is null")}
	}
	return fields, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// stringField returns the field as a string, or "" when it is absent or not
// a JSON string.
func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func toAny(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
