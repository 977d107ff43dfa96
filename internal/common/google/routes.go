package google

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const routesFieldMask = "routes.duration,routes.distanceMeters,routes.polyline,routes.legs.steps"

type Leg struct {
	StartPlace string          `json:"start_place"`
	EndPlace   string          `json:"end_place"`
	Steps      json.RawMessage `json:"steps,omitempty"`
}

// Route is a walking route that visits places in the given order.
type Route struct {
	Places         []string `json:"places"`
	DistanceMeters int64    `json:"distance_meters"`
	Duration       string   `json:"duration"`
	Polyline       string   `json:"polyline,omitempty"`
	Legs           []Leg    `json:"legs"`
}

func (r Route) String() string {
	return fmt.Sprintf("Walking route %s: %d meters, %s, %d legs",
		strings.Join(r.Places, " -> "), r.DistanceMeters, r.Duration, len(r.Legs))
}

type waypoint struct {
	PlaceID string `json:"placeId"`
}

type computeRoutesRequest struct {
	Origin        waypoint   `json:"origin"`
	Destination   waypoint   `json:"destination"`
	Intermediates []waypoint `json:"intermediates,omitempty"`
	TravelMode    string     `json:"travelMode"`
}

// ComputeWalkingRoute resolves names to places and computes a walking route
// through them in order. Names that resolve ambiguously are skipped.
func (c *Client) ComputeWalkingRoute(ctx context.Context, names []string) (Route, error) {
	var valid []string
	resolved := make(map[string]Place, len(names))
	var skipped []string

	for _, name := range names {
		place, err := c.SearchPlace(ctx, name)
		if err != nil {
			return Route{}, err
		}
		if place.Ambiguous {
			skipped = append(skipped, name)
			continue
		}
		resolved[name] = place
		valid = append(valid, name)
	}

	if len(skipped) > 0 {
		c.logger.Warn("Some places were not found and will be skipped", map[string]interface{}{
			"places": skipped,
		})
	}
	if len(valid) < 2 {
		return Route{}, fmt.Errorf("%w: at least two valid places are required, got %d", ErrInsufficientPlaces, len(valid))
	}

	req := computeRoutesRequest{
		Origin:      waypoint{PlaceID: resolved[valid[0]].ID},
		Destination: waypoint{PlaceID: resolved[valid[len(valid)-1]].ID},
		TravelMode:  "WALK",
	}
	for _, name := range valid[1 : len(valid)-1] {
		req.Intermediates = append(req.Intermediates, waypoint{PlaceID: resolved[name].ID})
	}

	body, err := c.post(ctx, c.endpoint(c.config.RoutesURL, "/directions/v2:computeRoutes"), routesFieldMask, req)
	if err != nil {
		return Route{}, err
	}

	first := gjson.GetBytes(body, "routes.0")
	if !first.Exists() {
		return Route{}, fmt.Errorf("%w: no route could be calculated for the given places", ErrNoRoute)
	}

	route := Route{
		Places:         valid,
		DistanceMeters: first.Get("distanceMeters").Int(),
		Duration:       first.Get("duration").String(),
		Polyline:       first.Get("polyline.encodedPolyline").String(),
	}
	for i, leg := range first.Get("legs").Array() {
		if i+1 >= len(valid) {
			break
		}
		l := Leg{StartPlace: valid[i], EndPlace: valid[i+1]}
		if steps := leg.Get("steps"); steps.Exists() {
			l.Steps = json.RawMessage(steps.Raw)
		}
		route.Legs = append(route.Legs, l)
	}
	return route, nil
}
