package llm

import (
	"errors"
	"testing"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/models"
)

func TestParseGuideFallbacks(t *testing.T) {
	draft, err := ParseGuide(`{"title":"  Live Music on Red River  ","guideType":"podcast"}`)
	if err != nil {
		t.Fatalf("ParseGuide: %v", err)
	}
	if draft.Title != "Live Music on Red River" {
		t.Errorf("title = %q", draft.Title)
	}
	if draft.Slug != "live-music-on-red-river" {
		t.Errorf("slug = %q", draft.Slug)
	}
	if draft.GuideType != models.GuideTypeList {
		t.Errorf("guideType = %q", draft.GuideType)
	}
}

func TestParseGuideNonStringSlug(t *testing.T) {
	draft, err := ParseGuide(`{"title":"Tacos","slug":42}`)
	if err != nil {
		t.Fatal(err)
	}
	if draft.Slug != "tacos" {
		t.Errorf("slug = %q", draft.Slug)
	}
}

func TestParseGuideCodeFence(t *testing.T) {
	draft, err := ParseGuide("```json\n{\"title\":\"Tacos\",\"slug\":\"tacos\"}\n```")
	if err != nil {
		t.Fatalf("ParseGuide: %v", err)
	}
	if draft.Slug != "tacos" {
		t.Errorf("slug = %q", draft.Slug)
	}
}

func TestParseGuideErrors(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"array":      `[1,2]`,
		"null":       `null`,
		"truncated":  `{"title":"x"`,
		"blankTitle": `{"title":"   "}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGuide(content)
			var pe *apperr.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError, got %v", err)
			}
		})
	}
}

func TestParseTopicsBadArray(t *testing.T) {
	_, err := ParseTopics(`{"topics":"none"}`)
	var pe *apperr.ParseError
	if !errors.As(err, &pe) || pe.Field != "topics" {
		t.Fatalf("expected topics ParseError, got %v", err)
	}
}
