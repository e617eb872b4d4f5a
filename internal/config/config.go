package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultEnvironment is used when neither --env nor DEMOMIGRATE_ENV is set
const DefaultEnvironment = "development"

// Config is the resolved runtime configuration
type Config struct {
	DatabaseURL   string `env:"DEMOMIGRATE_DATABASE_URL" validate:"required,dburl"`
	Environment   string `env:"DEMOMIGRATE_ENV" envDefault:"development" validate:"required"`
	ConfigFile    string `env:"DEMOMIGRATE_CONFIG"`
	LogLevel      string `env:"DEMOMIGRATE_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	NoTransaction bool   `env:"DEMOMIGRATE_NO_TRANSACTION"`
}

// Overrides holds values set on the command line. Empty fields leave the
// environment or file value in place.
type Overrides struct {
	DatabaseURL   string
	Environment   string
	ConfigFile    string
	LogLevel      string
	NoTransaction bool
}

// Environment is one section of the config file
type Environment struct {
	DatabaseURL string `yaml:"database_url"`
	LogLevel    string `yaml:"log_level"`
}

// File maps environment names to their settings, e.g.
//
//	development:
//	  database_url: sqlite://dev.db
//	production:
//	  database_url: postgres://app@db/app
type File map[string]Environment

var (
	// ErrUnknownEnvironment is returned when the config file has no section
	// for the selected environment.
	ErrUnknownEnvironment = errors.New("environment not found in config file")

	validate = newValidator()
)

// InvalidError reports a setting that failed validation
type InvalidError struct {
	Field string
	Rule  string
	Value any
}

func (e *InvalidError) Error() string {
	if e.Rule == "required" {
		return fmt.Sprintf("invalid config: %s is required", e.Field)
	}
	return fmt.Sprintf("invalid config: %s %q fails %q", e.Field, e.Value, e.Rule)
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load resolves the configuration. Command line overrides win over the
// environment, which wins over the config file.
func Load(o Overrides) (*Config, error) {
	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	if o.Environment != "" {
		cfg.Environment = o.Environment
	}
	if o.ConfigFile != "" {
		cfg.ConfigFile = o.ConfigFile
	}

	if cfg.ConfigFile != "" {
		f, err := ReadFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		section, ok := f[cfg.Environment]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownEnvironment, cfg.Environment, cfg.ConfigFile)
		}
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = section.DatabaseURL
		}
		if _, set := os.LookupEnv("DEMOMIGRATE_LOG_LEVEL"); !set && section.LogLevel != "" {
			cfg.LogLevel = section.LogLevel
		}
	}

	if o.DatabaseURL != "" {
		cfg.DatabaseURL = o.DatabaseURL
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.NoTransaction {
		cfg.NoTransaction = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile parses a YAML config file
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return f, nil
}

// Validate checks the resolved settings
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &InvalidError{Field: fieldName(fe.StructField()), Rule: fe.Tag(), Value: fe.Value()}
	}
	return err
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("dburl", validateDatabaseURL)
	return v
}

// validateDatabaseURL accepts URLs of a supported store. Only the scheme is
// checked, so driver DSNs such as mysql://root@tcp(host:3306)/db pass.
func validateDatabaseURL(fl validator.FieldLevel) bool {
	scheme, rest, ok := strings.Cut(fl.Field().String(), "://")
	if !ok || rest == "" {
		return false
	}
	switch scheme {
	case "sqlite", "sqlite3", "postgres", "postgresql", "mysql":
		return true
	}
	return false
}

func fieldName(structField string) string {
	switch structField {
	case "DatabaseURL":
		return "database_url"
	case "LogLevel":
		return "log_level"
	default:
		return strings.ToLower(structField)
	}
}
