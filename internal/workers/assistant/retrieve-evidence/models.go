// internal/workers/assistant/retrieve-evidence/models.go
package retrieveevidence

import (
	"context"

	"versailles-assistant/internal/common/google"
	"versailles-assistant/internal/common/knowledge"
	"versailles-assistant/internal/common/schedule"
	"versailles-assistant/internal/models"
)

type Input struct {
	SubQuery models.SubQuery `json:"subquery"`
}

type Output struct {
	PartialAnswer models.PartialAnswer `json:"partial_answer"`
}

type KnowledgeBase interface {
	Ask(ctx context.Context, question string) (knowledge.Answer, error)
}

type WeatherService interface {
	Forecast(ctx context.Context, days int) (google.Forecast, error)
}

type PlacesService interface {
	SearchPlace(ctx context.Context, query string) (google.Place, error)
}

type ScheduleService interface {
	Fetch(ctx context.Context, date string) (schedule.Day, error)
}

// Sources groups the collaborators. A nil source counts as a failed call.
type Sources struct {
	Knowledge KnowledgeBase
	Weather   WeatherService
	Places    PlacesService
	Schedule  ScheduleService
}
