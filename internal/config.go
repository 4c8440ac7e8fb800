package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	Cache     CacheConfig       `yaml:"cache"`
	Mermaid   MermaidConfig     `yaml:"mermaid"`
	History   HistoryConfig     `yaml:"history"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Mermaid.Validate(); err != nil {
		return err
	}
	if err := c.History.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// WorkspaceConfig holds the path to the content workspace directory.
type WorkspaceConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// Duration wraps time.Duration so YAML values like "90s" parse naturally.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// CacheConfig holds the TTLs for the three cache domains. A zero TTL
// falls back to the service default for that domain.
type CacheConfig struct {
	TreeTTL       Duration `yaml:"tree_ttl"`
	AnalyticsTTL  Duration `yaml:"analytics_ttl"`
	ModuleListTTL Duration `yaml:"module_list_ttl"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	for name, d := range map[string]Duration{
		"tree_ttl":        c.TreeTTL,
		"analytics_ttl":   c.AnalyticsTTL,
		"module_list_ttl": c.ModuleListTTL,
	} {
		if d < 0 {
			return fmt.Errorf("cache: %s must not be negative", name)
		}
	}
	return nil
}

// MermaidConfig controls diagram rendering.
type MermaidConfig struct {
	Theme     string `yaml:"theme"`
	Direction string `yaml:"direction"`
}

// Validate validates the Mermaid configuration.
func (c *MermaidConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Direction, validation.In("", "TD", "LR", "BT", "RL")),
	)
}

// HistoryConfig holds the analytics snapshot database configuration.
// An empty path disables snapshot logging.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
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
				Port: 8080,
			},
		},
		Workspace: WorkspaceConfig{
			Path: "./workspace",
		},
		Cache: CacheConfig{
			TreeTTL:       Duration(time.Minute),
			AnalyticsTTL:  Duration(5 * time.Minute),
			ModuleListTTL: Duration(2 * time.Minute),
		},
		Mermaid: MermaidConfig{
			Theme:     "default",
			Direction: "TD",
		},
		History: HistoryConfig{
			Path: "./trellis.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
