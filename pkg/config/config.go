// Package config handles loading and saving csvgraph configuration.
//
// Values are layered, highest priority first: command line flags,
// CSVGRAPH_* environment variables, the config file, built-in defaults.
//
// The config file follows the XDG Base Directory specification:
//   - Config:  ~/.config/csvgraph/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CSVGRAPH_"

// LogConfig selects the zap logger.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`   // debug, info, warn, error
	Format string `koanf:"format" yaml:"format"` // console or json
}

// RenderConfig holds output defaults for the render command.
type RenderConfig struct {
	Width  int    `koanf:"width" yaml:"width,omitempty"`
	Height int    `koanf:"height" yaml:"height,omitempty"`
	Title  string `koanf:"title" yaml:"title,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	ChunkSize     int          `koanf:"chunk_size" yaml:"chunk_size"`
	Layout        string       `koanf:"layout" yaml:"layout"`
	Palette       []string     `koanf:"palette" yaml:"palette,omitempty"`
	PruneIsolated bool         `koanf:"prune_isolated" yaml:"prune_isolated"`
	Log           LogConfig    `koanf:"log" yaml:"log"`
	Render        RenderConfig `koanf:"render" yaml:"render,omitempty"`

	// File is the config file that was read, empty when none was found.
	File string `koanf:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:     100,
		Layout:        "organic",
		PruneIsolated: true,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultMap() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"chunk_size":     d.ChunkSize,
		"layout":         d.Layout,
		"prune_isolated": d.PruneIsolated,
		"log.level":      d.Log.Level,
		"log.format":     d.Log.Format,
	}
}

// ConfigDir returns the XDG config directory for csvgraph.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "csvgraph")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "csvgraph")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load builds the effective configuration. cfgFile overrides the XDG path;
// a missing default file is not an error, a missing explicit one is. flags
// may be nil; only flags the user changed take effect.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultMap(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := expandHome(cfgFile)
	if path == "" {
		if p := ConfigPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	} else if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// CSVGRAPH_CHUNK_SIZE -> chunk_size, CSVGRAPH_LOG_LEVEL -> log.level
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path
	return cfg, cfg.Validate()
}

// envKeys lists the config keys settable from the environment. Other
// CSVGRAPH_ variables (CSVGRAPH_DEBUG, CSVGRAPH_METRICS) belong to other
// packages.
var envKeys = map[string]bool{
	"chunk_size": true, "layout": true, "palette": true, "prune_isolated": true,
	"log.level": true, "log.format": true,
	"render.width": true, "render.height": true, "render.title": true,
}

func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	for _, section := range []string{"log_", "render_"} {
		if strings.HasPrefix(key, section) {
			key = strings.TrimSuffix(section, "_") + "." + strings.TrimPrefix(key, section)
		}
	}
	if !envKeys[key] {
		return "", nil
	}
	if key == "palette" {
		return key, splitList(value)
	}
	return key, value
}

// flagKey maps changed command line flags onto config keys.
func flagKey(flags *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		switch f.Name {
		case "chunk-size":
			return "chunk_size", posflag.FlagVal(flags, f)
		case "layout", "palette":
			return f.Name, posflag.FlagVal(flags, f)
		case "keep-isolated":
			keep, _ := flags.GetBool(f.Name)
			return "prune_isolated", !keep
		case "log-level":
			return "log.level", posflag.FlagVal(flags, f)
		case "log-format":
			return "log.format", posflag.FlagVal(flags, f)
		case "width", "height", "title":
			return "render." + f.Name, posflag.FlagVal(flags, f)
		default:
			return "", nil
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be at least 1, got %d", c.ChunkSize)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Render.Width < 0 || c.Render.Height < 0 {
		return fmt.Errorf("render size must not be negative")
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
