package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"miway.dev/gtfs/downloader"
	"miway.dev/gtfs/miway"
)

var generateCmd = &cobra.Command{
	Use:   "generate [feed] [output-dir] [prefix]",
	Short: "Generates MiWay bus data from a GTFS archive",
	Long: `Generates MiWay bus data from a GTFS archive.

The feed is a URL or a local path, input/gtfs.zip by default.

Without --service-id (or service_ids in the config file) all services
are kept. Passing --service-id= with no value excludes everything.`,
	Args: cobra.MaximumNArgs(3),
	RunE: generate,
}

var (
	serviceIDs []string
	cacheTTL   time.Duration
)

func init() {
	generateCmd.Flags().StringSliceVarP(&serviceIDs, "service-id", "s", nil, "Useful service ID (repeatable)")
	generateCmd.Flags().DurationVarP(&cacheTTL, "cache", "", 0, "Reuse a downloaded feed younger than this")
	rootCmd.AddCommand(generateCmd)
}

func generate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		cfg.Feed = args[0]
	}
	if len(args) > 1 {
		cfg.Output = args[1]
	}
	if len(args) > 2 {
		cfg.Prefix = args[2]
	}
	if cmd.Flags().Changed("service-id") {
		ids := append([]string{}, serviceIDs...)
		cfg.ServiceIDs = &ids
	}

	manager, logger, err := buildManager(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer manager.Close()

	if cacheTTL > 0 {
		manager.Downloader = downloader.NewFilesystem(
			filepath.Join(cfg.Output, "input", cfg.Prefix+"gtfs.zip"),
			logger,
		)
		manager.CacheTTL = cacheTTL
	}

	out, err := manager.Generate(cmd.Context(), miway.New(), cfg.Services(), cfg.Feed, cfg.Prefix)
	if err != nil {
		return err
	}

	fmt.Printf(
		"%d routes, %d trips, %d stops, %d service dates\n",
		len(out.Routes),
		len(out.Trips),
		len(out.Stops),
		len(out.ServiceDates),
	)

	return nil
}
