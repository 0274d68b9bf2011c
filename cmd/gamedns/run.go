package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/gamedns/gamedns/internal/bench"
	"github.com/gamedns/gamedns/internal/catalog"
	"github.com/gamedns/gamedns/internal/config"
	"github.com/gamedns/gamedns/internal/history"
	"github.com/gamedns/gamedns/internal/render"
	"github.com/gamedns/gamedns/internal/util"
)

func newRunCmd() *cobra.Command {
	var showAll bool
	var showAllSet bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark all configured DNS servers and rank them",
		RunE: func(cmd *cobra.Command, args []string) error {
			showAllSet = cmd.Flags().Changed("show-all")
			logger := newLogger()

			cfg, servers, err := loadSetup()
			if err != nil {
				return err
			}
			if !showAllSet {
				showAll = cfg.ShowAllServers == nil || *cfg.ShowAllServers
			}

			if runtime.GOOS != "windows" && os.Geteuid() != 0 {
				logger.Info("running without root, using unprivileged ICMP or TCP fallback")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			settings := bench.Settings{
				PingCount:  cfg.PingCount,
				Timeout:    cfg.Timeout.Duration(),
				MaxWorkers: cfg.MaxWorkers,
			}
			startedAt := time.Now()
			report, err := runBenchmark(ctx, logger, settings, servers)
			if err != nil {
				return err
			}

			fmt.Println()
			render.Results(os.Stdout, report, showAll)
			fmt.Println()
			render.Failed(os.Stdout, report.Unscorable)
			fmt.Println()
			render.Recommendation(os.Stdout, report.Recommendation)

			if cfg.History.IsEnabled() {
				if err := archiveRun(logger, cfg.History, report, settings, startedAt); err != nil {
					logger.Warn("could not archive run", "error", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showAll, "show-all", false, "show every ranked server, not just the top five")
	return cmd
}

func runBenchmark(ctx context.Context, logger util.Logger, settings bench.Settings, servers []catalog.Server) (bench.Report, error) {
	bar := progressbar.NewOptions64(int64(len(servers)),
		progressbar.OptionSetDescription("testing DNS servers"),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
		progressbar.OptionSetWriter(os.Stderr),
	)

	runner := bench.NewRunner(settings,
		bench.WithLogger(logger),
		bench.WithProgress(func(done, total int, server catalog.Server) {
			bar.Describe(server.Name)
			_ = bar.Set(done)
		}),
	)
	report, err := runner.Run(ctx, servers)
	if err != nil {
		return bench.Report{}, err
	}
	if ctx.Err() != nil {
		logger.Warn("benchmark interrupted, results are partial")
	}
	return report, nil
}

func archiveRun(logger util.Logger, cfg config.HistoryConfig, report bench.Report, settings bench.Settings, startedAt time.Time) error {
	store, err := history.Open(cfg.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, err := store.SaveReport(report, settings, startedAt)
	if err != nil {
		return err
	}
	logger.Debug("run archived", "run_id", runID, "path", cfg.Path)
	if cfg.Keep > 0 {
		return store.Prune(cfg.Keep)
	}
	return nil
}
