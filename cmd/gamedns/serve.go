package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gamedns/gamedns/internal/bench"
	"github.com/gamedns/gamedns/internal/history"
	"github.com/gamedns/gamedns/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the web dashboard for triggering and watching runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, servers, err := loadSetup()
			if err != nil {
				return err
			}
			if !cfg.Web.Enabled {
				return fmt.Errorf("web dashboard is disabled; set web.enabled: true in %s", configPath)
			}

			settings := bench.Settings{
				PingCount:  cfg.PingCount,
				Timeout:    cfg.Timeout.Duration(),
				MaxWorkers: cfg.MaxWorkers,
			}

			var sink web.ReportSink
			if cfg.History.IsEnabled() {
				historyCfg := cfg.History
				sink = func(report bench.Report, settings bench.Settings, startedAt time.Time) {
					if err := archiveRun(logger, historyCfg, report, settings, startedAt); err != nil {
						logger.Warn("could not archive run", "error", err)
					}
				}
				// fail early if the archive path is unusable
				store, err := history.Open(historyCfg.Path)
				if err != nil {
					return err
				}
				store.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := web.NewServer(cfg.Web, servers, settings, logger, sink)
			return server.Start(ctx)
		},
	}
}
