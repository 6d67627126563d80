package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/rangebuf/internal/config/loader"
	"github.com/dshills/rangebuf/internal/engine/buffer"
	"github.com/dshills/rangebuf/internal/engine/filecache"
	"github.com/dshills/rangebuf/internal/engine/rangetree"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "RANGEBUF_"

// Config holds all rangebuf settings.
type Config struct {
	Engine EngineConfig `toml:"engine" yaml:"engine"`
	Log    LogConfig    `toml:"log" yaml:"log"`
	Watch  WatchConfig  `toml:"watch" yaml:"watch"`

	// Path is the file the configuration was read from, if any.
	Path string `toml:"-" yaml:"-"`
}

// EngineConfig tunes the buffer engine.
type EngineConfig struct {
	// PageSize is the file cache page size in bytes. Must be a power of two.
	PageSize int `toml:"page_size" yaml:"page_size"`

	// MaxCacheBytes bounds the resident bytes of each file cache.
	MaxCacheBytes int64 `toml:"max_cache_bytes" yaml:"max_cache_bytes"`

	// MaxNodeSize is the largest leaf the tree builds when fusing.
	MaxNodeSize int `toml:"max_node_size" yaml:"max_node_size"`

	// ShrinkRatio is the used fraction of a memory buffer below which a
	// trimmed leaf gets a smaller copy. Zero disables shrinking.
	ShrinkRatio float64 `toml:"shrink_ratio" yaml:"shrink_ratio"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // text or json
}

// WatchConfig controls watching opened files for external changes.
type WatchConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			PageSize:      filecache.DefaultPageSize,
			MaxCacheBytes: filecache.DefaultMaxBytes,
			MaxNodeSize:   rangetree.DefaultMaxNodeSize,
			ShrinkRatio:   rangetree.DefaultShrinkRatio,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Watch: WatchConfig{
			Enabled: true,
		},
	}
}

// Load reads the configuration file at path, if any, applies environment
// overrides, and validates the result. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	return load(loader.DefaultFS(), path, loader.NewEnvLoader(EnvPrefix))
}

func load(fsys loader.FileSystem, path string, env loader.Loader) (*Config, error) {
	var merged map[string]any

	if path != "" {
		fl, err := loader.ForPath(fsys, path)
		if err != nil {
			return nil, err
		}
		fileCfg, err := fl.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, fileCfg)
	}

	envCfg, err := env.Load()
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}
	merged = loader.DeepMerge(merged, envCfg)

	cfg := Default()
	if err := decode(merged, cfg); err != nil {
		return nil, err
	}
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays the merged settings onto cfg. Settings the map does not
// mention keep their current values.
func decode(m map[string]any, cfg *Config) error {
	if len(m) == 0 {
		return nil
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}

// Validate checks every setting and returns the first problem found.
func (c *Config) Validate() error {
	e := c.Engine
	switch {
	case e.PageSize <= 0 || e.PageSize&(e.PageSize-1) != 0:
		return &ValidationError{Path: "engine.page_size", Message: "must be a positive power of two", Value: e.PageSize}
	case e.MaxCacheBytes <= 0:
		return &ValidationError{Path: "engine.max_cache_bytes", Message: "must be positive", Value: e.MaxCacheBytes}
	case e.MaxNodeSize <= 0:
		return &ValidationError{Path: "engine.max_node_size", Message: "must be positive", Value: e.MaxNodeSize}
	case e.ShrinkRatio < 0 || e.ShrinkRatio > 1:
		return &ValidationError{Path: "engine.shrink_ratio", Message: "must be between 0 and 1", Value: e.ShrinkRatio}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log.level", Message: "unknown level", Value: c.Log.Level}
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return &ValidationError{Path: "log.format", Message: "must be text or json", Value: c.Log.Format}
	}
	return nil
}

// DocumentOptions translates the engine and watch settings into options for
// opening documents.
func (c *Config) DocumentOptions(log *slog.Logger) []buffer.Option {
	return []buffer.Option{
		buffer.WithPageSize(c.Engine.PageSize),
		buffer.WithMaxCacheBytes(c.Engine.MaxCacheBytes),
		buffer.WithMaxNodeSize(c.Engine.MaxNodeSize),
		buffer.WithShrinkRatio(c.Engine.ShrinkRatio),
		buffer.WithWatch(c.Watch.Enabled),
		buffer.WithLogger(log),
	}
}
