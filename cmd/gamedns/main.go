// Command gamedns benchmarks public DNS resolvers for gaming use and
// recommends a primary/secondary pair.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gamedns/gamedns/internal/catalog"
	"github.com/gamedns/gamedns/internal/config"
	"github.com/gamedns/gamedns/internal/util"
)

var (
	configPath string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:           "gamedns",
		Short:         "Find the fastest DNS servers for gaming",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "gamedns.yaml", "path to the configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() util.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return util.NewLogger(level)
}

// loadSetup reads the config and builds the merged server catalogue.
func loadSetup() (config.Config, []catalog.Server, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	custom := make([]catalog.Server, 0, len(cfg.CustomServers))
	for _, srv := range cfg.CustomServers {
		custom = append(custom, catalog.Server{Name: srv.Name, Address: srv.Address})
	}
	servers, err := catalog.Merge(custom)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, servers, nil
}
