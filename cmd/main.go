package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"miway.dev/gtfs"
	"miway.dev/gtfs/config"
)

var rootCmd = &cobra.Command{
	Use:          "miway",
	Short:        "MiWay GTFS tool",
	Long:         "Generates Mississauga MiWay bus data from GTFS",
	SilenceUsage: true,
}

var (
	configPath     string
	storageBackend string
	dsn            string
	outputDir      string
	prefix         string
	verbose        bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&storageBackend, "storage", "", "", "Storage backend (memory, sqlite, postgres)")
	rootCmd.PersistentFlags().StringVarP(&dsn, "dsn", "", "", "Postgres connection string")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output directory")
	rootCmd.PersistentFlags().StringVarP(&prefix, "prefix", "p", "", "Output file prefix")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// Loads --config, or the defaults, and applies the flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("storage") {
		cfg.Storage.Backend = storageBackend
	}
	if flags.Changed("dsn") {
		cfg.Storage.DSN = dsn
	}
	if flags.Changed("output") {
		cfg.Output = outputDir
	}
	if flags.Changed("prefix") {
		cfg.Prefix = prefix
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	return cfg, nil
}

func buildManager(cfg *config.Config) (*gtfs.Manager, *zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := cfg.Logger()
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}

	s, err := cfg.OpenStorage()
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}

	return gtfs.NewManager(s, logger), logger, nil
}
