package slug

import (
	"strings"
	"testing"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Tacos":                           "tacos",
		"  Best Tacos in Austin!  ":       "best-tacos-in-austin",
		"Where's the BBQ? (2025 edition)": "wheres-the-bbq-2025-edition",
		"snake_case -- and   dashes":      "snake-case-and-dashes",
		"--edge--":                        "edge",
		"":                                "",
	}
	for in, want := range cases {
		if got := Make(in); got != want {
			t.Errorf("Make(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromTitle_Fallback(t *testing.T) {
	got := FromTitle("!!!")
	if !strings.HasPrefix(got, "guide-") {
		t.Fatalf("FromTitle(!!!) = %q", got)
	}
	if FromTitle("!!!") != got {
		t.Error("fallback slug must be deterministic")
	}
	if FromTitle("Tacos") != "tacos" {
		t.Errorf("FromTitle(Tacos) = %q", FromTitle("Tacos"))
	}
}
