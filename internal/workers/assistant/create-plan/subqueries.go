package createplan

import (
	"fmt"

	"versailles-assistant/internal/models"
)

const (
	queryAccessibility = "Wheelchair accessibility, elevator access, accessible restrooms, and mobility assistance at Versailles"
	querySenior        = "Senior-friendly areas, rest areas, seating, and reduced walking routes at Versailles"
	queryFamily        = "Family-friendly activities and appropriate areas at Versailles for mixed age groups"
	queryPractical     = "Practical information about visiting Versailles including timing and costs"
	queryItinerary     = "Recommended route and itinerary for group visit to Versailles"
)

// GenerateSubQueries is a pure function of its inputs. The history facet is
// always first; the others are appended in a fixed order when they apply.
func GenerateSubQueries(query string, profile models.UserProfile, c models.UserConstraints) []models.SubQuery {
	sub := func(facet models.Facet, text string, priority float64, tools ...string) models.SubQuery {
		return models.SubQuery{
			Facet:         facet,
			Query:         text,
			Priority:      priority,
			RequiredTools: tools,
			Constraints:   c.ToMap(),
		}
	}

	out := []models.SubQuery{
		sub(models.FacetHistory, fmt.Sprintf("Historical and cultural information about Versailles for %s", profile), 1.0, models.ToolKnowledgeBase),
	}

	if profile == models.ProfileAccessibilityNeeds {
		out = append(out, sub(models.FacetPractical, queryAccessibility, 1.0, models.ToolKnowledgeBase))
	}
	if profile == models.ProfileElderlyGroup || profile == models.ProfileFamilyWithElderly {
		out = append(out, sub(models.FacetPractical, querySenior, 0.95, models.ToolKnowledgeBase))
	}
	if profile == models.ProfileFamilyWithKids || profile == models.ProfileFamilyWithElderly {
		out = append(out, sub(models.FacetFamily, queryFamily, 0.9, models.ToolKnowledgeBase))
	}
	if c.Duration != "" || c.Budget != "" {
		out = append(out, sub(models.FacetPractical, queryPractical, 0.8, models.ToolSchedule, models.ToolKnowledgeBase))
	}
	if c.GroupSize != nil && *c.GroupSize > 1 {
		out = append(out, sub(models.FacetItinerary, queryItinerary, 0.7, models.ToolPlaces, models.ToolKnowledgeBase))
	}

	return out
}
