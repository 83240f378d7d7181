package serve

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/listview/cli/cmd"
	"github.com/compozy/listview/engine/infra/server"
	"github.com/compozy/listview/pkg/config"
	"github.com/compozy/listview/pkg/logger"
)

const (
	flagHost    = "host"
	flagPort    = "port"
	flagMetrics = "metrics"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lists over HTTP",
		Long: `Start the HTTP API. Lists are mounted on first request and stay mounted
until the process receives SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true}, runServe, args)
		},
	}
	c.Flags().String(flagHost, "", "Listen host")
	c.Flags().Int(flagPort, 0, "Listen port")
	c.Flags().Bool(flagMetrics, true, "Expose Prometheus metrics on /metrics")
	return c
}

// applyFlags copies changed serve flags onto the server configuration.
func applyFlags(c *cobra.Command, cfg *config.Config) error {
	flags := c.Flags()
	if flags.Changed(flagHost) {
		cfg.Server.Host, _ = flags.GetString(flagHost)
	}
	if flags.Changed(flagPort) {
		cfg.Server.Port, _ = flags.GetInt(flagPort)
	}
	if flags.Changed(flagMetrics) {
		cfg.Server.Metrics, _ = flags.GetBool(flagMetrics)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid server flags: %w", err)
	}
	return nil
}

func runServe(ctx context.Context, c *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
	cfg := e.Config()
	if err := applyFlags(c, cfg); err != nil {
		return err
	}
	ctx = config.ContextWithConfig(ctx, cfg)
	log := logger.FromContext(ctx)
	srv, err := server.NewServer(ctx, e.Deps())
	if err != nil {
		return err
	}
	if srv.Monitoring().IsInitialized() {
		srv.Monitoring().SetAsGlobal()
	}
	log.Info("Starting HTTP server",
		"address", fmt.Sprintf("http://%s", srv.Addr()),
		"storage", cfg.Storage.Driver,
		"metrics", cfg.Server.Metrics,
	)
	return srv.Run()
}
