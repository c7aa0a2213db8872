// Package checksum derives stable digests for topic requests and titles.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first 8 hex characters of Sum(s).
func Short(s string) string {
	return Sum([]byte(s))[:8]
}

// Topic returns a digest identifying a guide request. Case and surrounding
// whitespace of the topic are ignored, and hint slugs are compared as sets.
func Topic(topic string, places, neighborhoods []string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(topic)))
	b.WriteString("\x00")
	b.WriteString(strings.Join(canonical(places), ","))
	b.WriteString("\x00")
	b.WriteString(strings.Join(canonical(neighborhoods), ","))
	return Sum([]byte(b.String()))
}

func canonical(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
