package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name    string        `yaml:"name"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_TOKEN", "secret")
	path := writeFile(t, "name: demo\ntoken: ${SAMPLE_TOKEN}\ntimeout: 90s\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Token != "secret" {
		t.Errorf("token = %q", s.Token)
	}
	if s.Timeout != 90*time.Second {
		t.Errorf("timeout = %v", s.Timeout)
	}
}

func TestLoadRunsValidate(t *testing.T) {
	path := writeFile(t, "token: x\n")

	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeFile(t, "name: demo\n")

	s := sample{Timeout: time.Minute}
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Timeout != time.Minute {
		t.Errorf("default overwritten: %v", s.Timeout)
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	s := sample{Name: "default"}
	read, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &s)
	if err != nil {
		t.Fatal(err)
	}
	if read {
		t.Error("missing file reported as read")
	}
	if s.Name != "default" {
		t.Errorf("target modified: %+v", s)
	}
}

func TestLoadOptionalBadYAML(t *testing.T) {
	path := writeFile(t, "name: [unterminated\n")

	var s sample
	if _, err := LoadOptional(path, &s); err == nil {
		t.Fatal("expected parse error")
	}
}
