package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "larago.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := "database:\n  driver: postgres\n  dsn: postgres://file\nlog:\n  level: warn\nauth:\n  bcrypt_cost: 12\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yaml), 0o644))

	t.Setenv("LARAGO_DATABASE_DSN", "postgres://env")
	t.Setenv("LARAGO_AUTH_BCRYPT_COST", "4")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("driver", "", "")
	flags.String("dsn", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "debug"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver, "from file")
	assert.Equal(t, "postgres://env", cfg.Database.DSN, "env beats file")
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
	assert.Equal(t, "debug", cfg.Log.Level, "flag beats file")
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory needs no dsn", Config{Database: DatabaseConfig{Driver: DriverMemory}, Log: LogConfig{Format: "json"}, Auth: AuthConfig{BcryptCost: bcrypt.MinCost}}, ""},
		{"unknown driver", Config{Database: DatabaseConfig{Driver: "mysql"}, Log: LogConfig{Format: "json"}}, "unknown database driver"},
		{"missing dsn", Config{Database: DatabaseConfig{Driver: DriverSQLite}, Log: LogConfig{Format: "json"}}, "dsn is required"},
		{"bad format", Config{Database: DatabaseConfig{Driver: DriverMemory}, Log: LogConfig{Format: "xml"}}, "unknown log format"},
		{"cost too low", Config{Database: DatabaseConfig{Driver: DriverMemory}, Log: LogConfig{Format: "json"}, Auth: AuthConfig{BcryptCost: 2}}, "auth.bcrypt_cost must be between 4 and 31"},
		{"cost too high", Config{Database: DatabaseConfig{Driver: DriverMemory}, Log: LogConfig{Format: "json"}, Auth: AuthConfig{BcryptCost: bcrypt.MaxCost + 1}}, "got 32"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLogConfig_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.Logger(&buf)
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	_, err = LogConfig{Level: "loud"}.Logger(&buf)
	assert.Error(t, err)
}
