// Package config loads ecoscope's TOML configuration, the product taxonomy
// file, and the repo ignore patterns.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// DefaultFile is read when no --config flag is given and the file exists in
// the working directory.
const DefaultFile = "ecoscope.toml"

// Default logical document names, resolved relative to Data.Dir.
const (
	DefaultAPISurface     = "api-surface-map.json"
	DefaultInfrastructure = "infrastructure-map.json"
	DefaultProduct        = "product-map.json"
)

type Config struct {
	Data     DataConfig     `toml:"data"`
	Taxonomy TaxonomyConfig `toml:"taxonomy"`
	Output   OutputConfig   `toml:"output"`
	Log      LogConfig      `toml:"log"`
}

type DataConfig struct {
	Dir            string   `toml:"dir" validate:"required"`
	APISurface     string   `toml:"api_surface" validate:"required,nefield=Infrastructure,nefield=Product"`
	Infrastructure string   `toml:"infrastructure" validate:"required,nefield=Product"`
	Product        string   `toml:"product" validate:"required"`
	IgnoreRepos    []string `toml:"ignore_repos" validate:"dive,required"`
}

// TaxonomyConfig points at an optional product taxonomy file. An empty path
// keeps the product groups of the product document.
type TaxonomyConfig struct {
	Path string `toml:"path"`
}

type OutputConfig struct {
	Format string `toml:"format" validate:"oneof=text json"`
	Color  string `toml:"color" validate:"oneof=auto always never"`
}

type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the TOML file at path, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional behaves like Load when path names an existing file. When path
// is empty it falls back to DefaultFile, and a missing DefaultFile yields
// Default() instead of an error.
func LoadOptional(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("stat %s: %w", DefaultFile, err)
	}
	return Load(DefaultFile)
}

// Parse decodes TOML text into a validated Config.
func Parse(text string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field constraint. Flag overrides should be applied
// before calling it a second time.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				if fe.Tag() == "nefield" {
					msgs = append(msgs, fmt.Sprintf("%s: %q is also configured as %s", fe.Namespace(), fmt.Sprint(fe.Value()), fe.Param()))
					continue
				}
				msgs = append(msgs, fmt.Sprintf("%s: invalid value %q (%s)", fe.Namespace(), fmt.Sprint(fe.Value()), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps Log.Level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Data.Dir) == "" {
		cfg.Data.Dir = "data"
	}
	if strings.TrimSpace(cfg.Data.APISurface) == "" {
		cfg.Data.APISurface = DefaultAPISurface
	}
	if strings.TrimSpace(cfg.Data.Infrastructure) == "" {
		cfg.Data.Infrastructure = DefaultInfrastructure
	}
	if strings.TrimSpace(cfg.Data.Product) == "" {
		cfg.Data.Product = DefaultProduct
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}
	if strings.TrimSpace(cfg.Output.Color) == "" {
		cfg.Output.Color = "auto"
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "warn"
	}
}

func normalize(cfg *Config) {
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Output.Color = strings.ToLower(strings.TrimSpace(cfg.Output.Color))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Taxonomy.Path = strings.TrimSpace(cfg.Taxonomy.Path)

	patterns := cfg.Data.IgnoreRepos[:0]
	for _, p := range cfg.Data.IgnoreRepos {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	cfg.Data.IgnoreRepos = patterns
}
