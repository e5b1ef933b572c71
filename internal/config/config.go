// Package config loads the orb CLI configuration.
//
// Settings come from, in increasing priority: built-in defaults, a YAML file
// (~/.orb/config.yaml unless another path is given) and ORB_* environment
// variables. References of the form ${VAR} in the file are expanded before
// parsing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/broady/orb/option"
)

// EnvPrefix is the prefix of environment variables that override the file.
const EnvPrefix = "ORB"

// Config is the CLI configuration file.
type Config struct {
	APIKey            string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	ValidateParams    bool          `yaml:"validate_params" mapstructure:"validate_params"`
	ValidateResponses bool          `yaml:"validate_responses" mapstructure:"validate_responses"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Logging           LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// LoggingConfig controls log output on stderr.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		BaseURL:        "https://api.withorb.com/v1/",
		ValidateParams: true,
		Timeout:        60 * time.Second,
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultPath returns ~/.orb/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".orb", "config.yaml"), nil
}

// Load reads the configuration. An empty path means [DefaultPath], which may
// be missing; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("api_key", def.APIKey)
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("validate_params", def.ValidateParams)
	v.SetDefault("validate_responses", def.ValidateResponses)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)

	optional := path == ""
	if optional {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		content := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewReader([]byte(content))); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) check() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// WriteDefault writes the default configuration to path, creating its
// directory. It refuses to replace an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s already exists", path)
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Redacted returns a copy of c that is safe to print.
func (c Config) Redacted() Config {
	if len(c.APIKey) > 4 {
		c.APIKey = strings.Repeat("*", len(c.APIKey)-4) + c.APIKey[len(c.APIKey)-4:]
	} else if c.APIKey != "" {
		c.APIKey = "****"
	}
	return c
}

// YAML encodes c as it would appear in a config file.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Logger returns a logger writing to w at the configured level and format.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ClientOptions turns the configuration into client options.
func (c *Config) ClientOptions(logger *slog.Logger) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithBaseURL(c.BaseURL),
		option.WithParamsValidation(c.ValidateParams),
		option.WithResponseValidation(c.ValidateResponses),
		option.WithHTTPClient(&http.Client{Timeout: c.Timeout}),
	}
	if c.APIKey != "" {
		opts = append(opts, option.WithAPIKey(c.APIKey))
	}
	if logger != nil {
		opts = append(opts, option.WithLogger(logger))
	}
	return opts
}
