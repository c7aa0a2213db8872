// Package portabletext converts generated HTML-ish content into rich-text
// blocks for the document store.
//
// Two strategies share the Normalizer interface. Plain is the default: it
// strips every tag and emits one unstyled paragraph block per blank-line
// separated chunk, so headings, lists and emphasis are lost. Structured parses
// the markup and keeps headings, list items and strong/em/link marks; it is
// only used when explicitly configured.
package portabletext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/guidesmith/internal/models"
)

// Strategy names accepted by ForStrategy.
const (
	StrategyPlain      = "plain"
	StrategyStructured = "structured"
)

// Normalizer turns a content string into an ordered block sequence. The
// result is never nil, and contains no block without text.
type Normalizer interface {
	Normalize(content string) []models.Block
}

// ForStrategy returns the normalizer registered under name. An empty name
// selects the plain strategy.
func ForStrategy(name string) (Normalizer, error) {
	switch name {
	case "", StrategyPlain:
		return Plain{}, nil
	case StrategyStructured:
		return Structured{}, nil
	default:
		return nil, fmt.Errorf("portabletext: unknown strategy %q", name)
	}
}

var (
	tagRe            = regexp.MustCompile(`<[^>]+>`)
	paragraphBreakRe = regexp.MustCompile(`\n\s*\n`)
)

// Plain is the lossy plain-paragraph strategy.
type Plain struct{}

// Normalize strips markup and splits the remaining text on blank lines.
func (Plain) Normalize(content string) []models.Block {
	text := strings.TrimSpace(tagRe.ReplaceAllString(content, ""))
	if text == "" {
		return []models.Block{}
	}

	blocks := []models.Block{}
	for _, p := range paragraphBreakRe.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		blocks = append(blocks, Paragraph(len(blocks), p))
	}
	return blocks
}

// Normalize applies the plain strategy.
func Normalize(content string) []models.Block {
	return Plain{}.Normalize(content)
}

// Paragraph returns a normal-style block holding text in a single unmarked
// span. Keys are derived from index.
func Paragraph(index int, text string) models.Block {
	return models.Block{
		Type:  "block",
		Key:   fmt.Sprintf("block-%d", index),
		Style: models.StyleNormal,
		Children: []models.Span{{
			Type:  "span",
			Key:   fmt.Sprintf("span-%d", index),
			Text:  text,
			Marks: []string{},
		}},
		MarkDefs: []models.MarkDef{},
	}
}
