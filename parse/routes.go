package parse

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"

	"miway.dev/gtfs/model"
)

type RouteCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Desc      string `csv:"route_desc"`
	Type      string `csv:"route_type"`
	URL       string `csv:"route_url"`
	Color     string `csv:"route_color"`
	TextColor string `csv:"route_text_color"`
}

func validRouteType(t model.RouteType) bool {
	return (t >= model.RouteTypeTram && t <= model.RouteTypeFunicular) ||
		t == model.RouteTypeTrolleybus ||
		t == model.RouteTypeMonorail
}

func validColor(color string) bool {
	if len(color) != 6 {
		return false
	}
	_, err := hex.DecodeString(color)
	return err == nil
}

// Returns the set of route IDs. Blank colors are kept blank so that
// agencies can fall back on their own color.
func ParseRoutes(writer FeedWriter, data io.Reader, agency map[string]bool) (map[string]bool, error) {
	routeCsv := []*RouteCSV{}
	if err := gocsv.Unmarshal(data, &routeCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling routes csv: %w", err)
	}

	routes := map[string]bool{}

	for _, r := range routeCsv {
		if r.ID == "" {
			return nil, fmt.Errorf("route has no route_id")
		}
		if routes[r.ID] {
			return nil, fmt.Errorf("repeated route_id '%s'", r.ID)
		}
		routes[r.ID] = true

		if len(agency) > 1 && r.AgencyID == "" {
			return nil, fmt.Errorf("route_id '%s' has no agency_id", r.ID)
		}
		if r.AgencyID != "" && !agency[r.AgencyID] {
			return nil, fmt.Errorf("unknown agency_id '%s'", r.AgencyID)
		}

		if r.ShortName == "" && r.LongName == "" {
			return nil, fmt.Errorf("route_id '%s' has no short_name or long_name", r.ID)
		}

		routeType, err := strconv.Atoi(r.Type)
		if err != nil {
			return nil, fmt.Errorf("route_id '%s' has invalid route_type: %w", r.ID, err)
		}
		if !validRouteType(model.RouteType(routeType)) {
			return nil, fmt.Errorf("route_id '%s' has invalid route_type: %d", r.ID, routeType)
		}

		if r.Color != "" && !validColor(r.Color) {
			return nil, fmt.Errorf("route_id '%s' has invalid route_color: %s", r.ID, r.Color)
		}
		if r.TextColor != "" && !validColor(r.TextColor) {
			return nil, fmt.Errorf("route_id '%s' has invalid route_text_color: %s", r.ID, r.TextColor)
		}

		err = writer.WriteRoute(&model.Route{
			ID:        r.ID,
			AgencyID:  r.AgencyID,
			ShortName: r.ShortName,
			LongName:  r.LongName,
			Desc:      r.Desc,
			Type:      model.RouteType(routeType),
			URL:       r.URL,
			Color:     r.Color,
			TextColor: r.TextColor,
		})
		if err != nil {
			return nil, fmt.Errorf("writing route: %w", err)
		}
	}

	return routes, nil
}
