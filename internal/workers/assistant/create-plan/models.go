// internal/workers/assistant/create-plan/models.go
package createplan

import "versailles-assistant/internal/models"

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	Plan models.Plan `json:"plan"`
}
