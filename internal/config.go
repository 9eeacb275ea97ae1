package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/devtally/internal/apperr"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage drivers.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// BotTokenEnv is the environment variable holding the Telegram bot token.
const BotTokenEnv = "BOT_TOKEN"

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Bot     BotConfig         `yaml:"bot"`
	Storage StorageConfig     `yaml:"storage"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Watch   WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration. The bot section is checked
// separately because only the bot command needs a token.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if c.Storage.Driver == DriverSQLite {
		if err := c.SQLite.Validate(); err != nil {
			return err
		}
	}
	return c.Auth.Validate()
}

// ApplyEnv fills values that come from the environment rather than the
// config file. A non-empty BOT_TOKEN overrides bot.token.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(BotTokenEnv); ok && v != "" {
		c.Bot.Token = v
	}
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
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.When(c.Enabled,
			validation.Required, validation.Min(1), validation.Max(65535))),
	)
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token       string `yaml:"token"`
	PollTimeout int    `yaml:"poll_timeout"`
	Debug       bool   `yaml:"debug"`
}

// Validate validates the bot configuration. A missing token is
// an apperr.ErrConfiguration.
func (c *BotConfig) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w: bot token is empty (set %s or bot.token)", apperr.ErrConfiguration, BotTokenEnv)
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.PollTimeout, validation.Min(0), validation.Max(600)),
	); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrConfiguration, err)
	}
	return nil
}

// StorageConfig selects the tally store.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	// Path is the JSON data file used by the json driver.
	Path string `yaml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = DriverJSON
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverJSON, DriverSQLite, DriverMemory)),
		validation.Field(&c.Path, validation.When(c.Driver == DriverJSON, validation.Required)),
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

// AuthConfig holds HTTP API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
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

// WatchConfig controls the data file watcher.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Enabled: false,
				Port:    8080,
			},
		},
		Bot: BotConfig{
			PollTimeout: 60,
		},
		Storage: StorageConfig{
			Driver: DriverJSON,
			Path:   "./data.json",
		},
		SQLite: SQLiteConfig{
			Path: "./devtally.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Watch: WatchConfig{
			Enabled: true,
		},
	}
}
