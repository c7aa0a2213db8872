package guideservice

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/checksum"
)

// Request asks for one guide. Places and Neighborhoods are slugs of existing
// reference entities; they steer generation and become document references.
type Request struct {
	Topic         string   `json:"topic" yaml:"topic"`
	Places        []string `json:"places,omitempty" yaml:"places"`
	Neighborhoods []string `json:"neighborhoods,omitempty" yaml:"neighborhoods"`
	Source        string   `json:"-" yaml:"-"`
}

// Validate implements validation.Validatable.
func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Topic, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Places, validation.Each(validation.Required)),
		validation.Field(&r.Neighborhoods, validation.Each(validation.Required)),
	)
}

// Checksum identifies the request independently of hint order and topic case.
func (r Request) Checksum() string {
	return checksum.Topic(r.Topic, r.Places, r.Neighborhoods)
}

// hints lists the entity slugs offered to the generator, places first.
func (r Request) hints() []string {
	out := make([]string, 0, len(r.Places)+len(r.Neighborhoods))
	for _, s := range append(append([]string{}, r.Places...), r.Neighborhoods...) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseBatch decodes a YAML list of requests. An entry is either a bare
// topic string or a mapping with topic, places and neighborhoods.
func ParseBatch(data []byte) ([]Request, error) {
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("%w: topics file: %v", apperr.ErrInvalidInput, err)
	}
	reqs := make([]Request, 0, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		var r Request
		switch n.Kind {
		case yaml.ScalarNode:
			r.Topic = n.Value
		case yaml.MappingNode:
			if err := n.Decode(&r); err != nil {
				return nil, fmt.Errorf("%w: topics file entry %d: %v", apperr.ErrInvalidInput, i, err)
			}
		default:
			return nil, fmt.Errorf("%w: topics file entry %d: expected a string or a mapping", apperr.ErrInvalidInput, i)
		}
		r.Topic = strings.TrimSpace(r.Topic)
		reqs = append(reqs, r)
	}
	return reqs, nil
}
