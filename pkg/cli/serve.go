package cli

import (
	"github.com/dshills/aihub/pkg/server"
	"github.com/dshills/aihub/pkg/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// newServeCommand runs the REST API
func newServeCommand(e *env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow REST API",
		Long: `Serve saved workflows over HTTP under /api/v1, with Prometheus metrics
at /metrics. With the redis driver, writes made by other processes are
logged as they arrive.

Endpoints:
  GET    /api/v1/workflows
  POST   /api/v1/workflows
  GET    /api/v1/workflows/{id}
  PUT    /api/v1/workflows/{id}
  DELETE /api/v1/workflows/{id}
  POST   /api/v1/workflows/{id}/duplicate
  GET    /api/v1/workflows/{id}/export?format=json|yaml
  POST   /api/v1/workflows/import
  GET    /api/v1/node-types?q=`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = e.cfg.Server.Addr
			}

			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.close() }()

			srv := server.New(st.svc, e.reg,
				server.WithLogger(e.logger),
				server.WithAllowedOrigins(e.cfg.Server.AllowedOrigins),
			)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.ListenAndServe(ctx, addr)
			})
			g.Go(func() error {
				return st.svc.Watch(ctx, func(id workflow.WorkflowID) {
					e.logger.Info("workflow changed by another process", zap.String("workflow", id.String()))
				})
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	return cmd
}

