package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/planner/internal/calendar"
	"github.com/starford/planner/internal/models"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Data     DataConfig        `yaml:"data"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	AI       AIConfig          `yaml:"ai"`
	Calendar CalendarConfig    `yaml:"calendar"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if c.Data.Backend == BackendSQLite {
		if err := c.SQLite.Validate(); err != nil {
			return err
		}
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	return c.Calendar.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	CORS     CORSConfig `yaml:"cors"`
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

// CORSConfig lists the browser origins allowed to call the API.
// An empty list disables the CORS wrapper.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DataConfig selects where the planner state lives.
type DataConfig struct {
	Path    string `yaml:"path"`
	Backend string `yaml:"backend"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFS
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(BackendFS, BackendSQLite)),
		validation.Field(&c.Path, validation.When(c.Backend == BackendFS, validation.Required)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
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

// AIConfig seeds the text-generation settings used until a client saves
// its own through the API.
type AIConfig struct {
	Provider string        `yaml:"provider"`
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	Enabled  bool          `yaml:"enabled"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate validates the AI configuration.
func (c *AIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(
			models.ProviderClaude, models.ProviderOpenAI, models.ProviderQwen, models.ProviderDeepSeek)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.APIKey, validation.When(c.Enabled, validation.Required)),
	)
}

// Settings converts the section to the persisted settings shape.
func (c *AIConfig) Settings() models.Settings {
	return models.Settings{
		Provider: c.Provider,
		Endpoint: c.Endpoint,
		Model:    c.Model,
		APIKey:   c.APIKey,
		Enabled:  c.Enabled,
	}
}

// CalendarConfig controls iCalendar export.
type CalendarConfig struct {
	TZID         string        `yaml:"tzid"`
	Offset       time.Duration `yaml:"offset"`
	Name         string        `yaml:"name"`
	ProductID    string        `yaml:"product_id"`
	UIDDomain    string        `yaml:"uid_domain"`
	HTMLNotes    bool          `yaml:"html_notes"`
	Transparency string        `yaml:"transparency"`
}

// Validate validates the calendar configuration.
func (c *CalendarConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TZID, validation.Required),
		validation.Field(&c.Offset, validation.Min(-14*time.Hour), validation.Max(14*time.Hour)),
		validation.Field(&c.Transparency, validation.In("OPAQUE", "TRANSPARENT")),
	)
}

// Options converts the section to encoder options.
func (c *CalendarConfig) Options() calendar.Options {
	o := calendar.DefaultOptions()
	o.TZID = c.TZID
	o.Offset = c.Offset
	if c.Name != "" {
		o.CalendarName = c.Name
	}
	if c.ProductID != "" {
		o.ProductID = c.ProductID
	}
	if c.UIDDomain != "" {
		o.UIDDomain = c.UIDDomain
	}
	o.HTMLNotes = c.HTMLNotes
	o.Transparency = c.Transparency
	return o
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	ai := models.DefaultSettings()
	cal := calendar.DefaultOptions()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Data: DataConfig{
			Path:    "./data",
			Backend: BackendFS,
		},
		SQLite: SQLiteConfig{
			Path: "./planner.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		AI: AIConfig{
			Provider: ai.Provider,
			Endpoint: ai.Endpoint,
			Model:    ai.Model,
			Timeout:  60 * time.Second,
		},
		Calendar: CalendarConfig{
			TZID:      cal.TZID,
			Offset:    cal.Offset,
			Name:      cal.CalendarName,
			ProductID: cal.ProductID,
			UIDDomain: cal.UIDDomain,
		},
	}
}
