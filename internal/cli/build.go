package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crosslang/sdkbench/pkg/lang"
	"github.com/crosslang/sdkbench/pkg/matrix"
)

// newBuildCmd creates the build command: expand compatibility rules into
// the cell set without executing anything.
func newBuildCmd() *cobra.Command {
	var (
		rulesPath string
		refresh   bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "build [language...]",
		Short: "Expand compatibility rules into the test cell set",
		Long: `Build the compatibility matrix from the catalog and the rules file and
print the resulting cells. Language pairs without an explicit rule test
latest against latest only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			rules, err := matrix.LoadRules(rulesPath, lang.Default())
			if err != nil {
				return err
			}

			snap := refreshCatalog(ctx, buildCatalog(ctx), args, refresh)
			cells, warnings, err := matrix.Build(snap, rules)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				logger.Warn(w.Message, "code", w.Code, "language", w.Language)
			}

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(cells)
			}
			for _, cell := range cells {
				fmt.Println(cell)
			}
			logger.Info("matrix built", "cells", len(cells), "rules", len(rules.Pairs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "compatibility rules file (TOML)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the release cache")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print cells as JSON")

	return cmd
}
