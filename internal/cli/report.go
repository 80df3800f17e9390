package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/crosslang/sdkbench/pkg/report"
)

// newReportCmd creates the report command: print or render the latest
// persisted report.
func newReportCmd() *cobra.Command {
	var (
		stateDir string
		asJSON   bool
		dotOut   string
		svgOut   string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the latest compatibility report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, stateDir)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			rep, err := store.LoadLatest(ctx)
			if err != nil {
				return err
			}

			if dotOut != "" {
				if err := os.WriteFile(dotOut, []byte(report.ToDOT(rep)), 0o644); err != nil {
					return err
				}
				loggerFromContext(ctx).Info("wrote graph", "path", dotOut)
			}
			if svgOut != "" {
				svg, err := report.ToSVG(ctx, rep)
				if err != nil {
					return err
				}
				if err := os.WriteFile(svgOut, svg, 0o644); err != nil {
					return err
				}
				loggerFromContext(ctx).Info("wrote graph", "path", svgOut)
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(rep)
			}
			printReport(rep)
			return nil
		},
	}

	cmd.Flags().StringVar(&stateDir, "state-dir", "", "directory for reports and edges (default: ~/.sdkbench)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringVar(&dotOut, "dot", "", "write the matrix graph as DOT to this path")
	cmd.Flags().StringVar(&svgOut, "svg", "", "write the matrix graph as SVG to this path")

	return cmd
}

func printReport(rep *report.Report) {
	fmt.Printf("run %s (%s)\n\n", rep.RunID, rep.CreatedAt.Format("2006-01-02 15:04:05"))

	for _, e := range rep.Entries {
		detail := ""
		if e.Run != nil && e.Run.Error != "" {
			detail = "  " + e.Run.Error
		}
		fmt.Printf("  %-14s %s%s\n", e.Status, e.Cell.Key(), detail)
	}

	s := rep.Summary
	fmt.Printf("\n%d cells: %d passed, %d failed, %d timed out, %d errored, %d untested\n",
		s.Total, s.Passed, s.Failed, s.TimedOut, s.Errored, s.Untested)

	languages := make([]string, 0, len(rep.PassRates))
	for language := range rep.PassRates {
		languages = append(languages, language)
	}
	sort.Strings(languages)
	for _, language := range languages {
		r := rep.PassRates[language]
		fmt.Printf("  %-12s %d/%d (%.0f%%)\n", language, r.Passed, r.Total, r.Rate*100)
	}

	for _, w := range rep.Warnings {
		fmt.Fprintf(os.Stderr, "warning [%s] %s: %s\n", w.Code, w.Language, w.Message)
	}
}
