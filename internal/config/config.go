// Package config loads agentmark project settings from agentmark.yaml and
// AGENTMARK_* environment variables.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/roach88/agentmark/internal/compiler"
)

// FileName is the project config file looked up in the working directory
// when no explicit path is given.
const FileName = "agentmark"

// EnvPrefix prefixes environment overrides, e.g. AGENTMARK_OUT_DIR or
// AGENTMARK_LOG_JSON.
const EnvPrefix = "AGENTMARK"

// Config holds project settings.
type Config struct {
	// OutDir is the directory artifacts are written under.
	OutDir string `mapstructure:"out_dir"`
	// Types lists .cue files declaring interfaces and literal unions.
	Types      []string `mapstructure:"types"`
	EmptyCell  string   `mapstructure:"empty_cell"`
	Separators string   `mapstructure:"separators"`
	// Ledger is the SQLite build ledger path.
	Ledger string    `mapstructure:"ledger"`
	Log    LogConfig `mapstructure:"log"`

	// File is the config file that was read, empty when defaults and
	// environment were enough.
	File string `mapstructure:"-"`
}

// LogConfig controls logger output.
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("out_dir", ".")
	v.SetDefault("types", []string{})
	v.SetDefault("empty_cell", "")
	v.SetDefault("separators", string(compiler.SeparatorWhitespace))
	v.SetDefault("ledger", ".agentmark/ledger.db")
	v.SetDefault("log.json", false)
}

// Load reads configuration. With an empty path it looks for agentmark.yaml
// in the working directory and falls back to defaults when there is none;
// an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

// LoadWithViper unmarshals and validates settings from v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that cannot be expressed as defaults.
func (c *Config) Validate() error {
	if err := compiler.SeparatorPolicy(c.Separators).Validate(); err != nil {
		return errors.WithHint(
			errors.Wrap(err, "invalid config"),
			"set separators to whitespace or newline",
		)
	}
	if c.OutDir == "" {
		return errors.New("invalid config: out_dir must not be empty")
	}
	if c.Ledger == "" {
		return errors.New("invalid config: ledger must not be empty")
	}
	return nil
}

// CompilerOptions returns the compilation options these settings select.
func (c *Config) CompilerOptions() compiler.Options {
	return compiler.Options{
		EmptyCell:  c.EmptyCell,
		Separators: compiler.SeparatorPolicy(c.Separators),
	}
}
