package main

import (
	"os/signal"
	"syscall"

	"github.com/germanamz/wgrib/pkg/tools/mcpserver"
	"github.com/germanamz/wgrib/pkg/wgrib"
	"github.com/spf13/cobra"
)

var version = "dev"

func newServeCmd(a *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the decoders as MCP tools over stdio",
		Long: `Serve exposes the wgrib_run tool over the Model Context Protocol on standard
input and output. Protocol messages bypass the decoder output capture. With
--watch the config file is reloaded when it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			inv, log, err := a.newInvoker(ctx)
			if err != nil {
				return err
			}

			sub := inv.Events().Subscribe(64)
			defer inv.Events().Unsubscribe(sub)
			go wgrib.LogEvents(ctx, sub, log)

			if path := a.v.GetString("config"); watch && path != "" {
				go func() {
					// Re-resolve so flag and environment overrides still apply.
					err := wgrib.WatchConfig(ctx, path, log, func(wgrib.Config) {
						cfg, err := a.loadConfig()
						if err == nil {
							err = inv.Reload(cfg)
						}
						if err != nil {
							log.Warn("config reload rejected", "path", path, "error", err)
						}
					})
					if err != nil {
						log.Warn("config watch stopped", "path", path, "error", err)
					}
				}()
			}

			srv := mcpserver.New("wgrib", version, log)
			srv.RegisterToolBox(inv.Tools())

			log.Info("serving", "transport", "stdio", "decoders", inv.Selectors())

			return srv.ServeStdio(ctx)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", true, "reload the config file when it changes")

	return cmd
}
