package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/crosslang/sdkbench/internal/server"
)

// newServeCmd creates the serve command: expose stored results and
// metrics over HTTP.
func newServeCmd() *cobra.Command {
	var (
		addr     string
		stateDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve compatibility results over HTTP",
		Long: `Serve the latest report, the accumulated edge set, a rendered matrix
graph, and Prometheus metrics. Endpoints: /api/report, /api/edges,
/api/matrix.svg, /api/matrix.dot, /healthz, /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, stateDir)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			srv := server.New(store, nil, loggerFromContext(ctx))
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "listen address")
	cmd.Flags().StringVar(&stateDir, "state-dir", "", "directory for reports and edges (default: ~/.sdkbench)")

	return cmd
}
