package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

// newCatalogCmd creates the catalog command: refresh and print the
// per-language release listings.
func newCatalogCmd() *cobra.Command {
	var (
		refresh bool
		asJSON  bool
		showPre bool
	)

	cmd := &cobra.Command{
		Use:   "catalog [language...]",
		Short: "Refresh and print SDK release listings",
		Long: `Fetch the release listing for each language (all languages when none
are named) and print the known versions. Listings are cached; use
--refresh to bypass the cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap := refreshCatalog(ctx, buildCatalog(ctx), args, refresh)

			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(snap)
			}

			languages := snap.Languages()
			sort.Strings(languages)
			for _, language := range languages {
				fmt.Printf("%s:\n", language)
				for _, r := range snap.Releases[language] {
					if r.Prerelease && !showPre {
						continue
					}
					marker := ""
					if r.IsLatest {
						marker = "  (latest)"
					}
					fmt.Printf("  %-14s %s%s\n", r.Version, r.ReleaseDate.Format("2006-01-02"), marker)
				}
			}
			for _, w := range snap.Warnings {
				fmt.Fprintf(os.Stderr, "warning [%s] %s: %s\n", w.Code, w.Language, w.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the release cache")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	cmd.Flags().BoolVar(&showPre, "prereleases", false, "include prerelease versions")

	return cmd
}
