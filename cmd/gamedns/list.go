package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gamedns/gamedns/internal/geo"
	"github.com/gamedns/gamedns/internal/render"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the configured DNS server catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, servers, err := loadSetup()
			if err != nil {
				return err
			}

			var resolver *geo.Resolver
			if cfg.GeoIP.Database != "" {
				resolver, err = geo.Open(cfg.GeoIP.Database)
				if err != nil {
					logger.Warn("could not open geoip database", "path", cfg.GeoIP.Database, "error", err)
				} else {
					defer resolver.Close()
				}
			}

			render.Catalogue(os.Stdout, servers, resolver)
			return nil
		},
	}
}
