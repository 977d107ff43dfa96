// internal/workers/assistant/plan-tools/execute.go
package plantools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/common/metrics"
	"versailles-assistant/internal/common/prompts"
	"versailles-assistant/internal/common/validation"
	"versailles-assistant/internal/models"
)

const ApologyAnswer = "I apologize, but I encountered an error while processing your question."

var (
	ErrNoPlace            = errors.New("No place found in query")
	ErrInsufficientPlaces = errors.New("Insufficient places for route planning")
	ErrToolNotConfigured  = errors.New("TOOL_NOT_CONFIGURED")
	ErrUnknownTool        = errors.New("UNKNOWN_TOOL")
)

var routeExtractionSchema = validation.MustCompileSchema("route_extraction", `{"type": "array", "items": {"type": "string"}}`)

var executionOrder = []string{models.ToolSchedule, models.ToolWeather, models.ToolPlaces, models.ToolRoute, models.ToolKnowledgeBase}

var contextLabels = map[string]string{
	models.ToolSchedule: "Current schedule information",
	models.ToolWeather:  "Weather forecast",
	models.ToolPlaces:   "Location details",
	models.ToolRoute:    "Route information",
}

// ExecuteTools runs the analysed tools in dependency order. Tool failures are
// recorded in their result and never abort the run.
func (h *Handler) ExecuteTools(ctx context.Context, analysis models.QueryAnalysis, query string) models.ToolPlanResult {
	required := make(map[string]bool, len(analysis.RequiredTools))
	for _, t := range analysis.RequiredTools {
		required[t] = true
	}

	var results []models.ToolResult
	for _, tool := range executionOrder {
		if !required[tool] {
			continue
		}
		data, err := h.runTool(ctx, tool, analysis.ExtractedEntities, query, results)
		result := models.ToolResult{ToolName: tool, Success: err == nil, Data: data}
		if err != nil {
			result.Data = ""
			result.Error = err.Error()
			h.logger.Warn("tool failed", map[string]interface{}{
				"tool":  tool,
				"error": err.Error(),
			})
		}
		metrics.EvidenceSourceCalls.WithLabelValues("tool_"+tool, toolOutcome(err)).Inc()
		results = append(results, result)
	}

	out := models.ToolPlanResult{Analysis: analysis, ToolResults: results}
	for _, r := range results {
		if r.ToolName != models.ToolKnowledgeBase {
			continue
		}
		if r.Success {
			out.Answer = r.Data
		} else {
			out.Answer = ApologyAnswer
		}
	}
	return out
}

func (h *Handler) runTool(ctx context.Context, tool string, entities map[string]interface{}, query string, previous []models.ToolResult) (string, error) {
	switch tool {
	case models.ToolSchedule:
		if h.tools.Schedule == nil {
			return "", ErrToolNotConfigured
		}
		date, _ := entities["date"].(string)
		if date == "" {
			date = h.now().Format("2006-01-02")
		}
		day, err := h.tools.Schedule.Fetch(ctx, date)
		if err != nil {
			return "", err
		}
		return day.String(), nil

	case models.ToolWeather:
		if h.tools.Google == nil {
			return "", ErrToolNotConfigured
		}
		days, ok := entities["weather_days"].(int)
		if !ok {
			days = h.config.DefaultForecastDays
		}
		forecast, err := h.tools.Google.Forecast(ctx, days)
		if err != nil {
			return "", err
		}
		return forecast.String(), nil

	case models.ToolPlaces:
		if h.tools.Google == nil {
			return "", ErrToolNotConfigured
		}
		place := ""
		if places := entityPlaces(entities); len(places) > 0 {
			place = places[0]
		} else {
			place = h.extractPlace(ctx, query)
		}
		if place == "" {
			return "", ErrNoPlace
		}
		found, err := h.tools.Google.SearchPlace(ctx, place)
		if err != nil {
			return "", err
		}
		return found.String(), nil

	case models.ToolRoute:
		if h.tools.Google == nil {
			return "", ErrToolNotConfigured
		}
		places := entityPlaces(entities)
		if len(places) < 2 {
			places = h.extractRoute(ctx, query)
		}
		if len(places) < 2 {
			return "", ErrInsufficientPlaces
		}
		route, err := h.tools.Google.ComputeWalkingRoute(ctx, places)
		if err != nil {
			return "", err
		}
		return route.String(), nil

	case models.ToolKnowledgeBase:
		if h.tools.Knowledge == nil {
			return "", ErrToolNotConfigured
		}
		answer, err := h.tools.Knowledge.Ask(ctx, RefineQuery(query, previous))
		if err != nil {
			return "", err
		}
		return answer.Text, nil
	}
	return "", apperrors.NewToolExecutionFailedError(tool, ErrUnknownTool)
}

// RefineQuery prefixes the question with the output of the tools that
// succeeded before the knowledge base call.
func RefineQuery(query string, previous []models.ToolResult) string {
	parts := []string{"Original question: " + query}
	for _, r := range previous {
		label, ok := contextLabels[r.ToolName]
		if !ok || !r.Success {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s...", label, truncateRunes(r.Data, 200)))
	}
	return strings.Join(parts, "\n\n") + "\n\nPlease provide a comprehensive answer using all the above information."
}

func (h *Handler) extractPlace(ctx context.Context, query string) string {
	text, err := h.llmExtract(ctx, prompts.PlaceExtraction, query)
	if err != nil {
		return ""
	}
	place := strings.Trim(strings.TrimSpace(text), `"`)
	if place == "NONE" {
		return ""
	}
	return place
}

func (h *Handler) extractRoute(ctx context.Context, query string) []string {
	text, err := h.llmExtract(ctx, prompts.RouteExtraction, query)
	if err != nil {
		return nil
	}
	var places []string
	if err := validation.ParseInto(text, routeExtractionSchema, &places); err != nil {
		h.logger.Warn("route extraction returned no usable places", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return places
}

func (h *Handler) llmExtract(ctx context.Context, name, query string) (string, error) {
	if h.completer == nil {
		return "", ErrToolNotConfigured
	}
	prompt, err := h.prompts.Render(name, map[string]interface{}{"Query": query})
	if err != nil {
		return "", err
	}
	return h.completer.Complete(ctx, prompt)
}

func entityPlaces(entities map[string]interface{}) []string {
	switch v := entities["places"].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toolOutcome(err error) string {
	if err != nil {
		return metrics.OutcomeError
	}
	return metrics.OutcomeOK
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
