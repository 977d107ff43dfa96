// internal/workers/assistant/route-query/models.go
package routequery

import "versailles-assistant/internal/models"

type Input struct {
	Query   string               `json:"query"`
	History []models.ChatMessage `json:"history,omitempty"`
}

type Output struct {
	models.RouterOutput
}
