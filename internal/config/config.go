// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads authd configuration from defaults, an optional YAML
// file, and command-line flags, in that order of precedence.
package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/logging"
	"github.com/holomush/authd/internal/store"
	"github.com/holomush/authd/internal/xdg"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseURLEnv is consulted when database.url is unset.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the effective authd configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Store    StoreConfig    `koanf:"store"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
}

// HTTPConfig configures the public HTTP server.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig configures the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// StoreConfig selects the UserStore implementation.
type StoreConfig struct {
	Driver string `koanf:"driver"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	// AutoMigrate applies pending migrations when serve starts.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// AuthConfig configures hashing and token generation.
type AuthConfig struct {
	Hasher      string `koanf:"hasher"`
	BcryptCost  int    `koanf:"bcrypt_cost"`
	TokenFormat string `koanf:"token_format"`
}

// Defaults returns the built-in configuration values keyed by koanf path.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":                ":5000",
		"http.read_timeout":        10 * time.Second,
		"http.write_timeout":       10 * time.Second,
		"http.idle_timeout":        60 * time.Second,
		"http.shutdown_timeout":    10 * time.Second,
		"metrics.addr":             "127.0.0.1:9100",
		"log.format":               "json",
		"log.level":                "info",
		"store.driver":             DriverPostgres,
		"database.url":             "",
		"database.connect_timeout": store.DefaultConnectTimeout,
		"database.auto_migrate":    true,
		"auth.hasher":              auth.HasherArgon2id,
		"auth.bcrypt_cost":         0,
		"auth.token_format":        auth.TokenFormatUUID,
	}
}

// flagKeys maps command-line flag names to koanf paths.
var flagKeys = map[string]string{
	"addr":            "http.addr",
	"metrics-addr":    "metrics.addr",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"store":           "store.driver",
	"database-url":    "database.url",
	"connect-timeout": "database.connect_timeout",
	"auto-migrate":    "database.auto_migrate",
	"hasher":          "auth.hasher",
	"bcrypt-cost":     "auth.bcrypt_cost",
	"token-format":    "auth.token_format",
}

// RegisterGlobalFlags adds the flags every command understands.
func RegisterGlobalFlags(fs *pflag.FlagSet) {
	fs.String("log-format", "json", "log format (json or text)")
	fs.String("log-level", "info", "minimum log level (debug, info, warn, error)")
	fs.String("database-url", "", "PostgreSQL connection URL (default $"+DatabaseURLEnv+")")
	fs.Duration("connect-timeout", store.DefaultConnectTimeout, "how long to retry the initial database connection")
}

// RegisterServeFlags adds the flags of the serve command.
func RegisterServeFlags(fs *pflag.FlagSet) {
	fs.String("addr", ":5000", "HTTP listen address")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics and health listen address (empty disables)")
	fs.String("store", DriverPostgres, "user store driver (postgres or memory)")
	fs.Bool("auto-migrate", true, "apply pending database migrations on startup")
	fs.String("hasher", auth.HasherArgon2id, "password hasher (argon2id or bcrypt)")
	fs.Int("bcrypt-cost", 0, "bcrypt cost (0 selects the library default)")
	fs.String("token-format", auth.TokenFormatUUID, "session and reset token format (uuid or hex)")
}

// Load builds the effective configuration. path names a YAML file; when
// empty, the XDG default file is used if it exists. Flags that were not
// set on the command line do not override file values.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}

	if path == "" {
		if p, ok := xdg.DefaultConfigFile(); ok {
			path = p
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv(DatabaseURLEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func flagKey(f *pflag.Flag) (string, any) {
	key, ok := flagKeys[f.Name]
	if !ok {
		return "", nil
	}
	return key, f.Value.String()
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "must not be empty")
	}
	for key, d := range map[string]time.Duration{
		"http.read_timeout":        c.HTTP.ReadTimeout,
		"http.write_timeout":       c.HTTP.WriteTimeout,
		"http.idle_timeout":        c.HTTP.IdleTimeout,
		"http.shutdown_timeout":    c.HTTP.ShutdownTimeout,
		"database.connect_timeout": c.Database.ConnectTimeout,
	} {
		if d <= 0 {
			return invalid(key, "must be positive")
		}
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format", "must be json or text")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log.level").Wrap(err)
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "required when store.driver is postgres (or set "+DatabaseURLEnv+")")
		}
	case DriverMemory:
	default:
		return invalid("store.driver", "must be postgres or memory")
	}

	if _, err := auth.NewHasher(c.Auth.Hasher, c.Auth.BcryptCost); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "auth.hasher").Wrap(err)
	}
	if _, err := auth.NewIdentifierGenerator(c.Auth.TokenFormat); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "auth.token_format").Wrap(err)
	}
	return nil
}

func invalid(key, reason string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s %s", key, reason)
}

// YAML renders the configuration with the database password masked.
func (c *Config) YAML() ([]byte, error) {
	view := map[string]any{
		"http": map[string]any{
			"addr":             c.HTTP.Addr,
			"read_timeout":     c.HTTP.ReadTimeout.String(),
			"write_timeout":    c.HTTP.WriteTimeout.String(),
			"idle_timeout":     c.HTTP.IdleTimeout.String(),
			"shutdown_timeout": c.HTTP.ShutdownTimeout.String(),
		},
		"metrics": map[string]any{"addr": c.Metrics.Addr},
		"log":     map[string]any{"format": c.Log.Format, "level": c.Log.Level},
		"store":   map[string]any{"driver": c.Store.Driver},
		"database": map[string]any{
			"url":             redactURL(c.Database.URL),
			"connect_timeout": c.Database.ConnectTimeout.String(),
			"auto_migrate":    c.Database.AutoMigrate,
		},
		"auth": map[string]any{
			"hasher":       c.Auth.Hasher,
			"bcrypt_cost":  c.Auth.BcryptCost,
			"token_format": c.Auth.TokenFormat,
		},
	}

	out, err := yamlv3.Marshal(view)
	if err != nil {
		return nil, oops.Code("CONFIG_MARSHAL_FAILED").Wrap(err)
	}
	return out, nil
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err == nil && u.User != nil {
		return u.Redacted()
	}
	if strings.Contains(raw, "password=") {
		return "xxxxx"
	}
	return raw
}
