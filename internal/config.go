package internal

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/llm"
	"github.com/starford/guidesmith/internal/portabletext"
	"github.com/starford/guidesmith/internal/sanity"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	LLM     LLMConfig         `yaml:"llm"`
	Sanity  SanityConfig      `yaml:"sanity"`
	Content ContentConfig     `yaml:"content"`
	Inbox   InboxConfig       `yaml:"inbox"`
	Journal JournalConfig     `yaml:"journal"`
	Auth    AuthConfig        `yaml:"auth"`
	Seed    SeedConfig        `yaml:"seed"`
}

// Validate validates the structural settings. Credentials are checked by the
// commands that need them (RequireLLM, RequireStore).
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Sanity.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Inbox.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplyEnv overlays the conventional environment variables on top of the
// file values. Unset variables leave the file value in place.
func (c *Config) ApplyEnv() {
	overlay := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	overlay(&c.LLM.APIKey, "LLM_API_KEY")
	overlay(&c.LLM.BaseURL, "LLM_BASE_URL")
	overlay(&c.LLM.Model, "LLM_MODEL")
	overlay(&c.Sanity.ProjectID, "SANITY_PROJECT_ID")
	overlay(&c.Sanity.Dataset, "SANITY_DATASET")
	overlay(&c.Sanity.Token, "SANITY_WRITE_TOKEN")
	overlay(&c.Sanity.APIVersion, "SANITY_API_VERSION")
	overlay(&c.Sanity.APIHost, "SANITY_API_HOST")
}

// RequireLLM reports a ConfigError when generation credentials are absent.
func (c *Config) RequireLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return &apperr.ConfigError{Setting: "LLM_API_KEY", Reason: "is required"}
	}
	return nil
}

// RequireStore reports a ConfigError when store credentials are absent.
func (c *Config) RequireStore() error {
	if strings.TrimSpace(c.Sanity.Token) == "" {
		return &apperr.ConfigError{Setting: "SANITY_WRITE_TOKEN", Reason: "is required"}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// LLMConfig holds the chat completion service settings.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the generation settings.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Client converts the section into client settings.
func (c *LLMConfig) Client() llm.Config {
	return llm.Config{
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Model:   c.Model,
		Timeout: c.Timeout,
	}
}

// SanityConfig holds the document store settings.
type SanityConfig struct {
	ProjectID     string        `yaml:"project_id"`
	Dataset       string        `yaml:"dataset"`
	APIVersion    string        `yaml:"api_version"`
	APIHost       string        `yaml:"api_host"`
	Token         string        `yaml:"token"`
	QueryTimeout  time.Duration `yaml:"query_timeout"`
	MutateTimeout time.Duration `yaml:"mutate_timeout"`
}

// Validate validates the store settings.
func (c *SanityConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ProjectID, validation.Required),
		validation.Field(&c.Dataset, validation.Required),
		validation.Field(&c.APIVersion, validation.Required),
		validation.Field(&c.QueryTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.MutateTimeout, validation.Min(time.Duration(0))),
	)
}

// Client converts the section into client settings.
func (c *SanityConfig) Client() sanity.Config {
	return sanity.Config{
		ProjectID:     c.ProjectID,
		Dataset:       c.Dataset,
		APIVersion:    c.APIVersion,
		APIHost:       c.APIHost,
		Token:         c.Token,
		QueryTimeout:  c.QueryTimeout,
		MutateTimeout: c.MutateTimeout,
	}
}

// ContentConfig selects the rich-text normalization strategy.
type ContentConfig struct {
	Strategy string `yaml:"strategy"`
}

// Validate validates the content settings.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Strategy, validation.In(portabletext.StrategyPlain, portabletext.StrategyStructured)),
	)
}

// InboxConfig holds the watched request directory.
type InboxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Validate validates the inbox configuration.
func (c *InboxConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// JournalConfig holds the SQLite journal location.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SeedConfig points at a catalog file. An empty path uses the built-in
// catalog.
type SeedConfig struct {
	Catalog string `yaml:"catalog"`
}

// AuthConfig holds API authentication configuration.
//
// Mode is "disabled" (default, local use) or "token" (Bearer token, Token
// must be set).
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:            8080,
				ShutdownTimeout: 10 * time.Second,
			},
		},
		LLM: LLMConfig{
			BaseURL: llm.DefaultBaseURL,
			Model:   llm.DefaultModel,
			Timeout: llm.DefaultTimeout,
		},
		Sanity: SanityConfig{
			ProjectID:     sanity.DefaultProjectID,
			Dataset:       sanity.DefaultDataset,
			APIVersion:    sanity.DefaultAPIVersion,
			QueryTimeout:  sanity.DefaultQueryTimeout,
			MutateTimeout: sanity.DefaultMutateTimeout,
		},
		Content: ContentConfig{
			Strategy: portabletext.StrategyPlain,
		},
		Inbox: InboxConfig{
			Enabled: true,
			Path:    "./inbox",
		},
		Journal: JournalConfig{
			Path: "./guidesmith.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
