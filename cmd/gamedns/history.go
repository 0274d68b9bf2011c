package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gamedns/gamedns/internal/history"
	"github.com/gamedns/gamedns/internal/render"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List archived benchmark runs, or show one run in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadSetup()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				rows, err := store.Results(args[0])
				if err != nil {
					return err
				}
				render.RunResults(os.Stdout, args[0], rows)
				return nil
			}

			runs, err := store.Runs(limit)
			if err != nil {
				return err
			}
			render.History(os.Stdout, runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}
