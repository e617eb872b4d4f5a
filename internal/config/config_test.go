package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFile = `
development:
  database_url: sqlite://dev.db
  log_level: debug
production:
  database_url: postgres://app:secret@db:5432/app?sslmode=disable
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "demomigrate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("DEMOMIGRATE_NO_TRANSACTION", "sometimes")

	var cfg Config
	err := ParseEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DEMOMIGRATE_DATABASE_URL", "sqlite://:memory:")
	t.Setenv("DEMOMIGRATE_NO_TRANSACTION", "true")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "sqlite://:memory:", cfg.DatabaseURL)
	assert.Equal(t, DefaultEnvironment, cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.NoTransaction)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, testFile)

	cfg, err := Load(Overrides{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "sqlite://dev.db", cfg.DatabaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)

	t.Setenv("DEMOMIGRATE_ENV", "production")
	cfg, err = Load(Overrides{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:secret@db:5432/app?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, testFile)
	t.Setenv("DEMOMIGRATE_CONFIG", path)
	t.Setenv("DEMOMIGRATE_DATABASE_URL", "mysql://root@localhost:3306/env")
	t.Setenv("DEMOMIGRATE_LOG_LEVEL", "warn")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "mysql://root@localhost:3306/env", cfg.DatabaseURL, "env wins over file")
	assert.Equal(t, "warn", cfg.LogLevel)

	cfg, err = Load(Overrides{DatabaseURL: "sqlite://flag.db", LogLevel: "error"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite://flag.db", cfg.DatabaseURL, "flag wins over env")
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoadAcceptsDriverDSN(t *testing.T) {
	for _, u := range []string{
		"mysql://root:pw@tcp(localhost:3306)/app",
		"mysql://root@unix(/var/run/mysqld/mysqld.sock)/app",
		"sqlite://:memory:",
		"postgresql://app@localhost/app?sslmode=disable",
	} {
		cfg, err := Load(Overrides{DatabaseURL: u})
		require.NoError(t, err, u)
		assert.Equal(t, u, cfg.DatabaseURL)
	}
}

func TestLoadUnknownEnvironment(t *testing.T) {
	path := writeConfig(t, testFile)

	_, err := Load(Overrides{ConfigFile: path, Environment: "staging"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownEnvironment))
	assert.Contains(t, err.Error(), `"staging"`)
}

func TestLoadBadFile(t *testing.T) {
	_, err := Load(Overrides{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorContains(t, err, "read config file")

	path := writeConfig(t, "development: [not, a, map")
	_, err = Load(Overrides{ConfigFile: path})
	assert.ErrorContains(t, err, "parse config file")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		o    Overrides
		want string
	}{
		{
			name: "missing url",
			o:    Overrides{},
			want: "invalid config: database_url is required",
		},
		{
			name: "unsupported store",
			o:    Overrides{DatabaseURL: "mongodb://localhost/demo"},
			want: `invalid config: database_url "mongodb://localhost/demo" fails "dburl"`,
		},
		{
			name: "no scheme",
			o:    Overrides{DatabaseURL: "demo.db"},
			want: `invalid config: database_url "demo.db" fails "dburl"`,
		},
		{
			name: "bad log level",
			o:    Overrides{DatabaseURL: "sqlite://demo.db", LogLevel: "loud"},
			want: `invalid config: log_level "loud" fails "oneof"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.o)
			require.Error(t, err)

			var invalid *InvalidError
			require.ErrorAs(t, err, &invalid)
			assert.EqualError(t, err, tt.want)
		})
	}
}
