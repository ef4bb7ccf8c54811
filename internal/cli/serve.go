package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/embulk/pluginindex/pkg/observability"
	"github.com/embulk/pluginindex/pkg/server"
)

type serveOpts struct {
	schedule string
	mode     string
	noUpdate bool
}

// serveCommand runs the redirect service.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the download redirect service",
		Long: `Serve answers / and /embulk-latest.jar with redirects to the Embulk
downloads, exposes /update to rebuild and publish the plugin listing, and
/metrics for Prometheus.

The listen port comes from PORT (default 8580).`,
		Example: `  pluginindex serve
  pluginindex serve --schedule "@every 6h"
  PORT=9000 pluginindex serve --redirect-mode meta`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.schedule, "schedule", "", "cron spec for periodic updates (e.g. \"@every 6h\")")
	cmd.Flags().StringVar(&opts.mode, "redirect-mode", "", "latest jar response: redirect or meta")
	cmd.Flags().BoolVar(&opts.noUpdate, "no-update", false, "do not expose /update")
	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts serveOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.mode != "" {
		cfg.Server.RedirectMode = opts.mode
	}
	if opts.schedule != "" {
		cfg.Server.Schedule = opts.schedule
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	resolver, vc, err := c.newResolver(ctx, cfg)
	if err != nil {
		return err
	}
	defer vc.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)
	observability.SetPipelineHooks(metrics)
	observability.SetCacheHooks(metrics)
	observability.SetHTTPHooks(metrics)
	defer observability.Reset()

	var update server.UpdateFunc
	if !opts.noUpdate {
		update = updateFunc(cfg)
	}

	srv := server.New(resolver, update, server.Options{
		DownloadBase: cfg.Version.DownloadBase,
		RedirectMode: cfg.Server.RedirectMode,
		Logger:       c.Logger,
		Metrics:      metrics,
	})
	if cfg.Server.Schedule != "" {
		if err := srv.Schedule(cfg.Server.Schedule); err != nil {
			return err
		}
	}

	return srv.ListenAndServe(ctx, cfg.Addr())
}
