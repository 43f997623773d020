package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vanderheijden86/csvgraph/pkg/graph"
	"github.com/vanderheijden86/csvgraph/pkg/session"
	"github.com/vanderheijden86/csvgraph/pkg/ui"
	"github.com/vanderheijden86/csvgraph/pkg/watcher"
)

type viewFlags struct {
	inputFlags
	watch bool
}

func newViewCmd() *cobra.Command {
	f := &viewFlags{}
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Build the graph in the terminal with live progress and the legend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runView(cmd, f)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "reload whenever an input file changes")
	return cmd
}

func runView(cmd *cobra.Command, f *viewFlags) error {
	a := appFrom(cmd.Context())
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("view needs a terminal; use render to write a file")
	}

	req, err := f.request(a.log)
	if err != nil {
		return err
	}
	if err := session.CheckFiles(req); err != nil {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			req, err = promptFiles(req)
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Alert("Cannot load graph", err.Error(),
				"Pass --nodes and --edges, or --dir with both files."))
			return err
		}
	}

	var p *tea.Program
	sess, err := newSession(a.cfg, f.seed, a.log, func(pr graph.Progress) {
		if p != nil {
			p.Send(ui.ProgressMsg(pr))
		}
	})
	if err != nil {
		return err
	}

	m := ui.NewModel("csvgraph "+req.NodesPath+" + "+req.EdgesPath, func(ctx context.Context) (*session.Result, error) {
		return sess.Load(ctx, req)
	})
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithoutSignalHandler())

	if f.watch {
		w, err := watcher.NewWatcher([]string{req.NodesPath, req.EdgesPath},
			watcher.WithOnChange(func([]string) { p.Send(ui.ReloadMsg{}) }),
			watcher.WithOnError(func(err error) { a.log.Debug("watch", zap.Error(err)) }),
		)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()
	}

	return runTUIProgram(p)
}

// promptFiles asks for whichever input path is missing and checks the
// answers again.
func promptFiles(req session.Request) (session.Request, error) {
	exists := func(s string) error {
		info, err := os.Stat(s)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", s)
		}
		return nil
	}
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Nodes CSV").Placeholder("nodes.csv").Value(&req.NodesPath).Validate(exists),
		huh.NewInput().Title("Edges CSV").Placeholder("edges.csv").Value(&req.EdgesPath).Validate(exists),
	))
	if err := form.Run(); err != nil {
		return req, fmt.Errorf("%w: %v", session.ErrMissingFile, err)
	}
	return req, session.CheckFiles(req)
}

func runTUIProgram(p *tea.Program) error {
	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set CSVGRAPH_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("CSVGRAPH_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}
				p.Quit()
			}()
		}
	}

	final, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	if err != nil {
		return err
	}
	if m, ok := final.(ui.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
