package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/noteflow/internal/ai"
	"github.com/starford/noteflow/internal/workspace"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// DefaultUser is the identity used when authentication is disabled.
const DefaultUser = "local"

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Store  StoreConfig       `yaml:"store"`
	Auth   AuthConfig        `yaml:"auth"`
	AI     AIConfig          `yaml:"ai"`
	Timing TimingConfig      `yaml:"timing"`
	Export ExportConfig      `yaml:"export"`
	Inbox  InboxConfig       `yaml:"inbox"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return errors.Join(
		c.App.Validate(),
		c.Store.Validate(),
		c.Auth.Validate(),
		c.AI.Validate(),
		c.Timing.Validate(),
		c.Inbox.Validate(),
	)
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
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig points at the SQLite document store.
type StoreConfig struct {
	Path        string `yaml:"path"`
	EventBuffer int    `yaml:"event_buffer"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.EventBuffer, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): every request acts as User.
//   - "token": Bearer tokens map to user ids through Tokens.
type AuthConfig struct {
	Mode   string            `yaml:"mode"`
	Tokens map[string]string `yaml:"tokens"`
	User   string            `yaml:"user"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if c.User == "" {
		c.User = DefaultUser
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode != AuthModeToken {
		return nil
	}
	if len(c.Tokens) == 0 {
		return fmt.Errorf("auth: mode is %q but no tokens are configured", AuthModeToken)
	}
	for token, user := range c.Tokens {
		if token == "" || user == "" {
			return errors.New("auth: tokens need a non-empty token and user")
		}
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// AIConfig configures the OpenAI-compatible text generator. Without an
// APIKey generation requests fail.
type AIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.When(c.APIKey != "", validation.Required)),
		validation.Field(&c.RequestsPerMinute, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Enabled reports whether a key is configured.
func (c *AIConfig) Enabled() bool {
	return c.APIKey != ""
}

func (c *AIConfig) generator() ai.Config {
	return ai.Config{
		BaseURL:           c.BaseURL,
		APIKey:            c.APIKey,
		Model:             c.Model,
		RequestsPerMinute: c.RequestsPerMinute,
		Timeout:           c.Timeout,
	}
}

// TimingConfig holds the debounce and reset delays.
type TimingConfig struct {
	ContentSaveDelay time.Duration `yaml:"content_save_delay"`
	TagColorDelay    time.Duration `yaml:"tag_color_delay"`
	FinishedReset    time.Duration `yaml:"finished_reset"`
}

// Validate validates the timing configuration.
func (c *TimingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ContentSaveDelay, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.TagColorDelay, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.FinishedReset, validation.Required, validation.Min(time.Millisecond)),
	)
}

func (c *TimingConfig) workspace() workspace.Timing {
	t := workspace.DefaultTiming()
	t.ContentSaveDelay = c.ContentSaveDelay
	t.TagColorDelay = c.TagColorDelay
	t.FinishedReset = c.FinishedReset
	return t
}

// ExportConfig holds the directory exports are written to. Empty disables
// saving exports to disk; downloads still work.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// InboxConfig configures the markdown import directory.
type InboxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	User    string `yaml:"user"`
}

// Validate validates the inbox configuration.
func (c *InboxConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.User, validation.When(c.Enabled, validation.Required)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	timing := workspace.DefaultTiming()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Path:        "./noteflow.db",
			EventBuffer: 64,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
			User: DefaultUser,
		},
		AI: AIConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Timing: TimingConfig{
			ContentSaveDelay: timing.ContentSaveDelay,
			TagColorDelay:    timing.TagColorDelay,
			FinishedReset:    timing.FinishedReset,
		},
		Inbox: InboxConfig{
			Dir:  "./inbox",
			User: DefaultUser,
		},
	}
}
