// Package hooks runs user commands around csvgraph render. Hooks live in
// .csvgraph/hooks.yaml and run before the output is written (pre-render)
// or after it (post-render).
package hooks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookPhase names when a hook runs.
type HookPhase string

const (
	// PreRender hooks see the loaded graph before any output exists. A
	// failure cancels the render.
	PreRender HookPhase = "pre-render"
	// PostRender hooks run once the output is on disk. Failures are logged.
	PostRender HookPhase = "post-render"
)

// DefaultTimeout bounds a hook without an explicit timeout.
const DefaultTimeout = 30 * time.Second

// Hook is one configured command.
type Hook struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"` // run with sh -c
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`           // values are expanded against the environment
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"` // fail | continue
}

// Config is the parsed hooks.yaml.
type Config struct {
	Hooks HooksByPhase `yaml:"hooks" json:"hooks"`
}

// HooksByPhase groups hooks by phase, each list in run order.
type HooksByPhase struct {
	PreRender  []Hook `yaml:"pre-render,omitempty" json:"pre-render,omitempty"`
	PostRender []Hook `yaml:"post-render,omitempty" json:"post-render,omitempty"`
}

// Phase returns the hooks of phase, or nil for an unknown phase.
func (c *Config) Phase(phase HookPhase) []Hook {
	switch phase {
	case PreRender:
		return c.Hooks.PreRender
	case PostRender:
		return c.Hooks.PostRender
	}
	return nil
}

// Empty reports whether no hook is configured.
func (c *Config) Empty() bool {
	return len(c.Hooks.PreRender) == 0 && len(c.Hooks.PostRender) == 0
}

// RenderContext is what hooks learn about the render, as CSVGRAPH_*
// environment variables.
type RenderContext struct {
	OutputPath   string
	OutputFormat string // svg, png, html, json, dot, mermaid, md
	NodeCount    int
	EdgeCount    int
	Timestamp    time.Time
}

// ToEnv renders c as KEY=value pairs.
func (c RenderContext) ToEnv() []string {
	return []string{
		"CSVGRAPH_OUTPUT_PATH=" + c.OutputPath,
		"CSVGRAPH_OUTPUT_FORMAT=" + c.OutputFormat,
		"CSVGRAPH_NODE_COUNT=" + strconv.Itoa(c.NodeCount),
		"CSVGRAPH_EDGE_COUNT=" + strconv.Itoa(c.EdgeCount),
		"CSVGRAPH_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// ConfigPath returns the hooks file of projectDir.
func ConfigPath(projectDir string) string {
	return filepath.Join(projectDir, ".csvgraph", "hooks.yaml")
}

// Loader reads a project's hooks file.
type Loader struct {
	projectDir string
	config     *Config
	warnings   []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithProjectDir reads hooks from dir instead of the working directory.
func WithProjectDir(dir string) LoaderOption {
	return func(l *Loader) { l.projectDir = dir }
}

// NewLoader returns a loader; call Load before querying it.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.projectDir == "" {
		l.projectDir, _ = os.Getwd()
	}
	return l
}

// LoadDefault loads the hooks of the working directory.
func LoadDefault() (*Loader, error) {
	l := NewLoader()
	return l, l.Load()
}

// Load parses the hooks file and fills in defaults. A missing file is not
// an error.
func (l *Loader) Load() error {
	path := ConfigPath(l.projectDir)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.config = &Config{}
		return nil
	case err != nil:
		return fmt.Errorf("reading hooks config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Hooks.PreRender = l.withDefaults(PreRender, cfg.Hooks.PreRender)
	cfg.Hooks.PostRender = l.withDefaults(PostRender, cfg.Hooks.PostRender)
	l.config = cfg
	return nil
}

// withDefaults drops hooks without a command and fills name, timeout and
// on_error. Pre-render hooks fail by default, post-render ones continue.
func (l *Loader) withDefaults(phase HookPhase, in []Hook) []Hook {
	onError := "continue"
	if phase == PreRender {
		onError = "fail"
	}
	var out []Hook
	for i, h := range in {
		if strings.TrimSpace(h.Command) == "" {
			l.warnings = append(l.warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if h.Name == "" {
			h.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		if h.Timeout == 0 {
			h.Timeout = DefaultTimeout
		}
		if h.OnError == "" {
			h.OnError = onError
		}
		out = append(out, h)
	}
	return out
}

// Config returns the loaded configuration, empty before Load.
func (l *Loader) Config() *Config {
	if l.config == nil {
		return &Config{}
	}
	return l.config
}

// HasHooks reports whether any hook survived loading.
func (l *Loader) HasHooks() bool { return !l.Config().Empty() }

// GetHooks returns the hooks of phase.
func (l *Loader) GetHooks(phase HookPhase) []Hook { return l.Config().Phase(phase) }

// Warnings returns problems found while loading that did not stop it.
func (l *Loader) Warnings() []string { return l.warnings }

// UnmarshalYAML accepts timeouts as durations ("10s") or plain seconds.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout"`
		Env     map[string]string `yaml:"env"`
		OnError string            `yaml:"on_error"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*h = Hook{Name: raw.Name, Command: raw.Command, Env: raw.Env, OnError: raw.OnError}
	if raw.Timeout == "" {
		return nil
	}
	if d, err := time.ParseDuration(raw.Timeout); err == nil {
		h.Timeout = d
		return nil
	}
	secs, err := strconv.ParseFloat(raw.Timeout, 64)
	if err != nil {
		return fmt.Errorf("invalid timeout %q", raw.Timeout)
	}
	h.Timeout = time.Duration(secs * float64(time.Second))
	return nil
}
