package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const placesFieldMask = "places.displayName,places.formattedAddress,places.id"

// Place is the first Places result for a text query. Ambiguous is set when
// the API returned more than one candidate.
type Place struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Ambiguous bool   `json:"ambiguous,omitempty"`
}

func (p Place) String() string {
	s := fmt.Sprintf("%s (%s) id=%s", p.Name, p.Address, p.ID)
	if p.Ambiguous {
		s += " [multiple results found, returning the first one]"
	}
	return s
}

// SearchPlace finds a place in Versailles by free text.
func (c *Client) SearchPlace(ctx context.Context, query string) (Place, error) {
	query = strings.TrimSpace(query)
	if !strings.Contains(query, "Versailles") {
		query += ", Versailles"
	}

	if cached, ok := c.places.Get(query); ok {
		return cached, nil
	}

	body, err := c.post(ctx, c.endpoint(c.config.PlacesURL, "/v1/places:searchText"), placesFieldMask,
		map[string]string{"textQuery": query})
	if err != nil {
		return Place{}, err
	}

	results := gjson.GetBytes(body, "places").Array()
	if len(results) == 0 {
		return Place{}, fmt.Errorf("%w: %s", ErrNoPlaces, query)
	}

	first := results[0]
	place := Place{
		ID:        first.Get("id").String(),
		Name:      first.Get("displayName.text").String(),
		Address:   first.Get("formattedAddress").String(),
		Ambiguous: len(results) > 1,
	}
	if place.Name == "" {
		place.Name = strings.TrimSuffix(query, ", Versailles")
	}

	c.places.Add(query, place)
	return place, nil
}
