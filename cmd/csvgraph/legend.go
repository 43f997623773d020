package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type legendFlags struct {
	inputFlags
	markdown bool
	json     bool
}

func newLegendCmd() *cobra.Command {
	f := &legendFlags{}
	cmd := &cobra.Command{
		Use:   "legend",
		Short: "Load the inputs and print the type to color legend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd.Context())
			req, err := f.request(a.log)
			if err != nil {
				return err
			}
			sess, err := newSession(a.cfg, f.seed, a.log, nil)
			if err != nil {
				return err
			}
			res, err := sess.Load(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case f.json:
				data, err := json.MarshalIndent(res.Legend, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err

			case f.markdown:
				md := "# Legend\n\n" + res.Legend.Markdown()
				if !term.IsTerminal(int(os.Stdout.Fd())) {
					_, err := fmt.Fprint(out, md)
					return err
				}
				rendered, err := glamour.Render(md, "dark")
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, rendered)
				return err

			default:
				res.Legend.WriteTable(out)
				return nil
			}
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "print a markdown table (styled on a terminal)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the legend as JSON")
	cmd.MarkFlagsMutuallyExclusive("markdown", "json")
	return cmd
}
