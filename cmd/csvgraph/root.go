package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vanderheijden86/csvgraph/pkg/config"
	"github.com/vanderheijden86/csvgraph/pkg/debug"
	"github.com/vanderheijden86/csvgraph/pkg/version"
)

// app carries what PersistentPreRunE resolved to the subcommands.
type app struct {
	cfgFile string
	cfg     config.Config
	log     *zap.Logger
}

type appKey struct{}

func appFrom(ctx context.Context) *app {
	a, _ := ctx.Value(appKey{}).(*app)
	return a
}

// newRootCmd creates the root command and every subcommand.
func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "csvgraph",
		Short: "Turn node and edge CSV files into a colored graph",
		Long: `csvgraph reads a nodes CSV (id, type, label) and an edges CSV
(source, target, edge_type), merges duplicate rows, colors nodes by type
and renders the result with a legend, as a file or in the terminal.`,
		Version: version.String(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg

			log, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			a.log = log
			debug.SetLogger(log)
			if cfg.File != "" {
				log.Debug("using config file", zap.String("path", cfg.File))
			}

			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", fmt.Sprintf("config file (default: %s)", config.ConfigPath()))
	pf.Int("chunk-size", 0, "node records processed per chunk")
	pf.String("layout", "", "layout algorithm (organic|hierarchic|circular|cluster)")
	pf.StringSlice("palette", nil, "comma separated #rrggbb colors assigned to types in order")
	pf.Bool("keep-isolated", false, "keep nodes that have no edges")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (console|json)")

	_ = root.RegisterFlagCompletionFunc("layout", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"organic", "hierarchic", "circular", "cluster"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = root.RegisterFlagCompletionFunc("log-format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"console", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newRenderCmd(),
		newViewCmd(),
		newLegendCmd(),
		newInsightsCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "csvgraph %s\n", version.String())
			return nil
		},
	}
}
