// Package prompt builds the instruction text sent to the generation service.
// Every function is pure: the same inputs always produce the same text.
package prompt

import (
	"fmt"
	"strings"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/models"
)

// Topic ideation bounds.
const (
	DefaultTopicCount = 5
	MaxTopicCount     = 50
)

// System instructions for the two generation tasks.
const (
	GuideSystem = "You are a helpful assistant that creates engaging, informative guides about Austin, Texas. " +
		"You write in a friendly, conversational tone that captures the unique character of Austin."
	TopicsSystem = "You are a helpful assistant that generates engaging questions and topics about Austin, Texas " +
		"that people would search for or ask about."
)

// EntitiesClause introduces the optional hint list in a guide prompt.
const EntitiesClause = "Specific places to include (if relevant):"

// GuideSchema is the output contract requested from the generation service
// for a guide.
var GuideSchema = `{
  "title": "A compelling, SEO-friendly title (max 80 characters)",
  "slug": "url-friendly-slug-based-on-title",
  "summary": "A 2-3 sentence summary that hooks the reader (max 200 characters)",
  "content": "Full guide content in HTML format with proper headings, paragraphs, and lists. Use <h2> for main sections, <h3> for subsections, <p> for paragraphs, <ul>/<ol> for lists, and <strong>/<em> for emphasis.",
  "guideType": "One of: ` + strings.Join(models.GuideTypes, ", ") + `"
}`

// TopicsSchema is the output contract requested for topic ideation.
var TopicsSchema = `{
  "topics": [
    {
      "question": "The question or topic",
      "category": "One of: ` + strings.Join(models.TopicCategories, ", ") + `",
      "neighborhoodSlug": "optional-neighborhood-slug-if-applicable",
      "placeSlugs": ["optional-place-slug-1", "optional-place-slug-2"]
    }
  ]
}`

// Guide returns the user prompt for generating a guide about topic. Non-blank
// hints are listed in an explicit entities clause; with no hints the clause
// is left out entirely.
func Guide(topic string, hints []string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("%w: topic is required", apperr.ErrInvalidInput)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a comprehensive guide about: \"%s\"\n\n", topic)
	b.WriteString("The guide should be engaging, informative, and specific to Austin, Texas.")
	if h := nonBlank(hints); len(h) > 0 {
		fmt.Fprintf(&b, "\n\n%s %s", EntitiesClause, strings.Join(h, ", "))
	}
	b.WriteString("\n\nReturn a JSON object with the following structure:\n")
	b.WriteString(GuideSchema)
	b.WriteString("\n\nMake the content detailed, specific, and useful. Include practical information like " +
		"locations, hours (if known), tips, and local context. Write in a friendly, conversational Austin voice.")
	return b.String(), nil
}

// TopicFilter narrows topic ideation.
type TopicFilter struct {
	Category     string
	Neighborhood string
	Count        int
}

// TopicIdeas returns the user prompt asking for exactly f.Count topic ideas.
// A zero count means DefaultTopicCount; negative counts and counts above
// MaxTopicCount are rejected.
func TopicIdeas(f TopicFilter) (string, error) {
	count := f.Count
	if count == 0 {
		count = DefaultTopicCount
	}
	if count < 1 || count > MaxTopicCount {
		return "", fmt.Errorf("%w: count must be between 1 and %d, got %d", apperr.ErrInvalidInput, MaxTopicCount, f.Count)
	}

	var b strings.Builder
	b.WriteString("Generate engaging questions and topics about Austin, Texas")
	if c := strings.TrimSpace(f.Category); c != "" {
		fmt.Fprintf(&b, " related to %s", c)
	}
	if n := strings.TrimSpace(f.Neighborhood); n != "" {
		fmt.Fprintf(&b, " in the %s neighborhood", n)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "Generate %d questions/topics that people would search for or ask about.\n\n", count)
	b.WriteString("Return a JSON object with this structure:\n")
	b.WriteString(TopicsSchema)
	b.WriteString("\n\nMake the questions specific, interesting, and answerable with a guide.")
	return b.String(), nil
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
