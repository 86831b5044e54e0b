// Package config loads larago settings from defaults, larago.yaml, LARAGO_
// environment variables and command-line flags, in increasing priority.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// ConfigFileName is the file looked up in the working directory when no
// explicit path is given.
const ConfigFileName = "larago.yaml"

// EnvPrefix prefixes every environment override, e.g. LARAGO_DATABASE_DRIVER.
const EnvPrefix = "LARAGO_"

// Supported database drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
	// Name is the Mongo database; SQL drivers ignore it.
	Name string `koanf:"name"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

type AuthConfig struct {
	BcryptCost int `koanf:"bcrypt_cost"`
}

func defaults() map[string]any {
	return map[string]any{
		"database.driver":  DriverSQLite,
		"database.dsn":     "larago.db",
		"database.name":    "larago",
		"log.level":        "info",
		"log.format":       "console",
		"auth.bcrypt_cost": 10,
	}
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"driver":    "database.driver",
	"dsn":       "database.dsn",
	"log-level": "log.level",
}

// Load builds the configuration. cfgFile may be empty, in which case
// larago.yaml is read when present. flags may be nil; only flags set on the
// command line override other sources.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(ConfigFileName); err == nil {
			cfgFile = ConfigFileName
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// LARAGO_DATABASE_DRIVER -> database.driver, LARAGO_AUTH_BCRYPT_COST -> auth.bcrypt_cost
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(key, "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres, DriverMongo:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Driver != DriverMemory && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}
	return nil
}
