package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var stopsCmd = &cobra.Command{
	Use:   "stops",
	Short: "Lists generated stops",
	Args:  cobra.NoArgs,
	RunE:  stops,
}

func init() {
	rootCmd.AddCommand(stopsCmd)
}

func stops(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	manager, _, err := buildManager(cfg)
	if err != nil {
		return err
	}
	defer manager.Close()

	out, err := manager.Load(cfg.Prefix)
	if err != nil {
		return err
	}

	stops := out.Stops
	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].Name < stops[j].Name
	})

	for _, stop := range stops {
		fmt.Printf("%s (%s): %s\n", stop.ID, stop.Code, stop.Name)
	}

	return nil
}
