package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gamedns/gamedns/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gamedns version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("gamedns", version.Version)
		},
	}
}
