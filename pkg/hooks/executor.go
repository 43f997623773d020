package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/csvgraph/pkg/metrics"
)

// HookResult is the outcome of one hook run.
type HookResult struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Stdout   string
	Stderr   string
	Error    error
	Duration time.Duration
}

// Executor runs configured hooks and records their results.
type Executor struct {
	config  *Config
	render  RenderContext
	results []HookResult
}

// NewExecutor creates an executor for one render.
func NewExecutor(config *Config, render RenderContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, render: render}
}

// RunPreRender runs every pre-render hook. It stops at the first failing
// hook whose on_error is fail.
func (e *Executor) RunPreRender(ctx context.Context) error {
	return e.runPhase(ctx, PreRender, e.config.Hooks.PreRender)
}

// RunPostRender runs every post-render hook, with the same on_error rules.
func (e *Executor) RunPostRender(ctx context.Context) error {
	return e.runPhase(ctx, PostRender, e.config.Hooks.PostRender)
}

func (e *Executor) runPhase(ctx context.Context, phase HookPhase, hooks []Hook) error {
	for _, h := range hooks {
		res := e.run(ctx, phase, h)
		e.results = append(e.results, res)
		if !res.Success && h.OnError != "continue" {
			return fmt.Errorf("%s hook %q failed: %w", phase, h.Name, res.Error)
		}
	}
	return nil
}

func (e *Executor) run(ctx context.Context, phase HookPhase, h Hook) HookResult {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	cmd.Env = append(os.Environ(), e.render.ToEnv()...)
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	// bound the wait for pipes held open by orphaned children
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := HookResult{
		Hook:     h,
		Phase:    phase,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: metrics.Since(metrics.Hooks, start),
	}
	switch {
	case err == nil:
		res.Success = true
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Error = fmt.Errorf("timed out after %v", timeout)
	default:
		res.Error = err
	}
	return res
}

// Results returns every recorded result in run order.
func (e *Executor) Results() []HookResult {
	return e.results
}

// Summary describes the runs in one line per failure.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return "no hooks run"
	}
	var ok, failed int
	var lines []string
	for _, r := range e.results {
		if r.Success {
			ok++
			continue
		}
		failed++
		line := fmt.Sprintf("  %s %s: %v", r.Phase, r.Hook.Name, r.Error)
		if r.Stderr != "" {
			line += " (" + truncate(r.Stderr, 120) + ")"
		}
		lines = append(lines, line)
	}
	head := fmt.Sprintf("hooks: %d succeeded, %d failed", ok, failed)
	return strings.Join(append([]string{head}, lines...), "\n")
}

// RunHooks loads the hooks of projectDir and returns an executor, or nil
// when hooks are disabled or none are configured.
func RunHooks(projectDir string, render RenderContext, noHooks bool) (*Executor, []string, error) {
	if noHooks {
		return nil, nil, nil
	}
	loader := NewLoader(WithProjectDir(projectDir))
	if err := loader.Load(); err != nil {
		return nil, nil, err
	}
	if !loader.HasHooks() {
		return nil, loader.Warnings(), nil
	}
	return NewExecutor(loader.Config(), render), loader.Warnings(), nil
}

// truncate shortens s to n display cells, never splitting a rune.
func truncate(s string, n int) string {
	return runewidth.Truncate(s, n, "...")
}
