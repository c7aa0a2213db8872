package models

// Block styles and list kinds used in rich text.
const (
	StyleNormal = "normal"
	ListBullet  = "bullet"
	ListNumber  = "number"
)

// Block is one rich-text block.
type Block struct {
	Type     string    `json:"_type"`
	Key      string    `json:"_key,omitempty"`
	Style    string    `json:"style"`
	ListItem string    `json:"listItem,omitempty"`
	Level    int       `json:"level,omitempty"`
	Children []Span    `json:"children"`
	MarkDefs []MarkDef `json:"markDefs"`
}

// Span is an inline run of text with decorator or annotation marks.
type Span struct {
	Type  string   `json:"_type"`
	Key   string   `json:"_key,omitempty"`
	Text  string   `json:"text"`
	Marks []string `json:"marks"`
}

// MarkDef defines an annotation (for example a link) referenced from span marks.
type MarkDef struct {
	Key  string `json:"_key"`
	Type string `json:"_type"`
	Href string `json:"href,omitempty"`
}

// Text concatenates the text of every span in the block.
func (b Block) Text() string {
	var s string
	for _, c := range b.Children {
		s += c.Text
	}
	return s
}
