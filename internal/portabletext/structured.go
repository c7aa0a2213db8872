package portabletext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/starford/guidesmith/internal/models"
)

var wsRe = regexp.MustCompile(`\s+`)

// Structured maps HTML elements to styled blocks: h1-h6 become heading
// styles (h4 and below collapse to h3), ul/ol items become list blocks with a
// nesting level, and strong/b, em/i and a[href] become span marks.
type Structured struct{}

// Normalize parses content as an HTML fragment. Unparseable input falls back
// to the plain strategy.
func (Structured) Normalize(content string) []models.Block {
	if strings.TrimSpace(content) == "" {
		return []models.Block{}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return Plain{}.Normalize(content)
	}
	w := &blockWriter{blocks: []models.Block{}}
	w.walk(doc.Find("body").Contents())
	return w.blocks
}

type blockWriter struct {
	blocks []models.Block
}

func (w *blockWriter) walk(sel *goquery.Selection) {
	var pending *inline
	flush := func() {
		if pending != nil {
			w.emit(models.StyleNormal, "", 0, pending)
			pending = nil
		}
	}

	sel.Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch {
		case headingStyle(name) != "":
			flush()
			w.emit(headingStyle(name), "", 0, collect(s.Contents()))
		case name == "p" || name == "blockquote" || name == "pre":
			flush()
			w.emit(models.StyleNormal, "", 0, collect(s.Contents()))
		case name == "ul" || name == "ol":
			flush()
			w.list(s, 1)
		case name == "div" || name == "section" || name == "article":
			flush()
			w.walk(s.Contents())
		default:
			if pending == nil {
				pending = &inline{}
			}
			pending.add(s, nil)
		}
	})
	flush()
}

func (w *blockWriter) list(s *goquery.Selection, level int) {
	kind := models.ListBullet
	if goquery.NodeName(s) == "ol" {
		kind = models.ListNumber
	}
	s.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		w.emit(models.StyleNormal, kind, level, collect(li.Contents()))
		li.ChildrenFiltered("ul, ol").Each(func(_ int, sub *goquery.Selection) {
			w.list(sub, level+1)
		})
	})
}

func (w *blockWriter) emit(style, listItem string, level int, in *inline) {
	spans := in.trimmed()
	if len(spans) == 0 {
		return
	}
	idx := len(w.blocks)
	for i := range spans {
		spans[i].Key = fmt.Sprintf("span-%d-%d", idx, i)
	}
	defs := in.defs
	if defs == nil {
		defs = []models.MarkDef{}
	}
	w.blocks = append(w.blocks, models.Block{
		Type:     "block",
		Key:      fmt.Sprintf("block-%d", idx),
		Style:    style,
		ListItem: listItem,
		Level:    level,
		Children: spans,
		MarkDefs: defs,
	})
}

func headingStyle(name string) string {
	switch name {
	case "h1", "h2", "h3":
		return name
	case "h4", "h5", "h6":
		return "h3"
	}
	return ""
}

// inline accumulates the spans and link definitions of one block.
type inline struct {
	spans []models.Span
	defs  []models.MarkDef
}

func collect(sel *goquery.Selection) *inline {
	in := &inline{}
	in.add(sel, nil)
	return in
}

func (in *inline) add(sel *goquery.Selection, marks []string) {
	sel.Each(func(_ int, n *goquery.Selection) {
		switch goquery.NodeName(n) {
		case "#text":
			in.text(wsRe.ReplaceAllString(n.Text(), " "), marks)
		case "br":
			in.text("\n", marks)
		case "strong", "b":
			in.add(n.Contents(), withMark(marks, "strong"))
		case "em", "i":
			in.add(n.Contents(), withMark(marks, "em"))
		case "a":
			href, _ := n.Attr("href")
			if href == "" {
				in.add(n.Contents(), marks)
				return
			}
			key := fmt.Sprintf("link-%d", len(in.defs))
			in.defs = append(in.defs, models.MarkDef{Key: key, Type: "link", Href: href})
			in.add(n.Contents(), withMark(marks, key))
		case "ul", "ol", "#comment":
			// nested lists become their own blocks
		default:
			in.add(n.Contents(), marks)
		}
	})
}

func (in *inline) text(s string, marks []string) {
	if s == "" {
		return
	}
	if n := len(in.spans); n > 0 && sameMarks(in.spans[n-1].Marks, marks) {
		in.spans[n-1].Text += s
		return
	}
	m := append([]string{}, marks...)
	in.spans = append(in.spans, models.Span{Type: "span", Text: s, Marks: m})
}

// trimmed drops surrounding whitespace of the block and any span left empty.
func (in *inline) trimmed() []models.Span {
	if len(in.spans) == 0 {
		return nil
	}
	in.spans[0].Text = strings.TrimLeft(in.spans[0].Text, " \n")
	last := len(in.spans) - 1
	in.spans[last].Text = strings.TrimRight(in.spans[last].Text, " \n")

	out := make([]models.Span, 0, len(in.spans))
	for _, s := range in.spans {
		if s.Text == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 || strings.TrimSpace(joinText(out)) == "" {
		return nil
	}
	return out
}

func joinText(spans []models.Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

func withMark(marks []string, m string) []string {
	out := make([]string, 0, len(marks)+1)
	out = append(out, marks...)
	return append(out, m)
}

func sameMarks(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
