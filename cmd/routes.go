package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"miway.dev/gtfs/model"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Lists generated routes and their directions",
	Args:  cobra.NoArgs,
	RunE:  routes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func routes(cmd *cobra.Command, args []string) error {
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

	tripsByRoute := map[string][]model.OutputTrip{}
	for _, trip := range out.Trips {
		tripsByRoute[trip.RouteID] = append(tripsByRoute[trip.RouteID], trip)
	}

	for _, route := range out.Routes {
		directions := []string{}
		for _, trip := range tripsByRoute[route.ID] {
			label := trip.Direction.String()
			if trip.Headsign != "" {
				label = strings.TrimSpace(label + " " + trip.Headsign)
			}
			if label == "" {
				label = fmt.Sprintf("direction %d", trip.DirectionID)
			}
			directions = append(directions, label)
		}
		fmt.Printf(
			"%s: %s #%s [%s]\n",
			route.ShortName,
			route.LongName,
			route.Color,
			strings.Join(directions, ", "),
		)
	}

	return nil
}
