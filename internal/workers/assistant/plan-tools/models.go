// internal/workers/assistant/plan-tools/models.go
package plantools

import (
	"context"

	"versailles-assistant/internal/common/google"
	"versailles-assistant/internal/common/knowledge"
	"versailles-assistant/internal/common/schedule"
	"versailles-assistant/internal/models"
)

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	models.ToolPlanResult
}

type KnowledgeBase interface {
	Ask(ctx context.Context, question string) (knowledge.Answer, error)
}

type ScheduleService interface {
	Fetch(ctx context.Context, date string) (schedule.Day, error)
}

// GoogleService covers the three Google Maps Platform calls the planner uses.
type GoogleService interface {
	Forecast(ctx context.Context, days int) (google.Forecast, error)
	SearchPlace(ctx context.Context, query string) (google.Place, error)
	ComputeWalkingRoute(ctx context.Context, names []string) (google.Route, error)
}

type Tools struct {
	Knowledge KnowledgeBase
	Schedule  ScheduleService
	Google    GoogleService
}
