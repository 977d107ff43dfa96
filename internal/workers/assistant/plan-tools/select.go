// internal/workers/assistant/plan-tools/select.go
package plantools

import (
	"context"
	"fmt"
	"strings"

	"versailles-assistant/internal/common/prompts"
	"versailles-assistant/internal/common/validation"
	"versailles-assistant/internal/models"
)

const selectionFallbackConfidence = 0.5

type selectableTool struct {
	name        string
	description string
	seconds     float64
}

var selectableTools = []selectableTool{
	{models.SelectKnowledgeBase, "Official Versailles knowledge base - history, attractions, facilities, general information", 1.0},
	{models.SelectGoogleMaps, "Google Maps API - location search, directions, distances, navigation between places", 1.5},
	{models.SelectGoogleWeather, "Weather API - current weather, forecasts, seasonal conditions", 1.0},
	{models.SelectScheduleAPI, "Schedule API - opening hours, closing times, crowd levels, special events", 1.0},
	{models.SelectRestaurantAPI, "Restaurant recommendations - nearby dining options with ratings and reviews", 2.0},
	{models.SelectHotelAPI, "Hotel recommendations - nearby accommodation with ratings and prices", 2.0},
	{models.SelectAccessibilityKB, "Accessibility information - wheelchair access, elevators, accessible routes, facilities", 1.0},
}

var toolSelectionSchema = validation.MustCompileSchema("tool_selection", `{
	"type": "object",
	"properties": {
		"required_tools": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"tool": {"enum": ["knowledge_base", "google_maps", "google_weather", "schedule_api", "restaurant_api", "hotel_api", "accessibility_kb"]},
					"purpose": {"type": "string"},
					"priority": {"type": "number"},
					"query_for_tool": {"type": "string"},
					"expected_output": {"type": "string"}
				},
				"required": ["tool", "purpose", "priority", "query_for_tool", "expected_output"]
			}
		},
		"can_answer_directly": {"type": "boolean"},
		"needs_synthesis": {"type": "boolean"},
		"reasoning": {"type": "string"},
		"confidence": {"type": "number"},
		"execution_plan": {"enum": ["sequential", "parallel"]}
	},
	"required": ["required_tools", "can_answer_directly", "needs_synthesis", "reasoning", "confidence", "execution_plan"]
}`)

// SelectTools asks the LLM which tools a query needs and how to run them.
// Any failure falls back to a single knowledge base lookup.
func (h *Handler) SelectTools(ctx context.Context, query string) models.ToolSelectionResult {
	selection, err := h.selectTools(ctx, query)
	if err != nil {
		h.logger.Warn("tool selection fell back to knowledge base", map[string]interface{}{
			"error": err.Error(),
		})
		selection = models.ToolSelection{
			RequiredTools: []models.ToolRequirement{{
				Tool:           models.SelectKnowledgeBase,
				Purpose:        "Fallback to general knowledge base",
				Priority:       1.0,
				QueryForTool:   query,
				ExpectedOutput: "General information",
			}},
			CanAnswerDirectly: true,
			NeedsSynthesis:    false,
			Reasoning:         fmt.Sprintf("Fallback due to error: %v", err),
			Confidence:        selectionFallbackConfidence,
			ExecutionPlan:     models.ExecutionSequential,
			Fallback:          true,
		}
	} else {
		h.logger.Info("tools selected", map[string]interface{}{
			"tools":         len(selection.RequiredTools),
			"executionPlan": selection.ExecutionPlan,
			"confidence":    selection.Confidence,
		})
	}
	return models.ToolSelectionResult{Selection: selection, Guidance: Guidance(selection)}
}

func (h *Handler) selectTools(ctx context.Context, query string) (models.ToolSelection, error) {
	var selection models.ToolSelection
	if h.completer == nil {
		return selection, ErrToolNotConfigured
	}

	prompt, err := h.prompts.Render(prompts.ToolSelection, map[string]interface{}{
		"Query": query,
		"Tools": toolCatalog(),
	})
	if err != nil {
		return selection, err
	}

	text, err := h.completer.Complete(ctx, prompt)
	if err != nil {
		return selection, err
	}

	doc, err := validation.ParseDocument(text)
	if err != nil {
		return selection, err
	}
	normalizeSelection(doc)
	if err := validation.DecodeValidated(doc, toolSelectionSchema, &selection); err != nil {
		return selection, err
	}
	if len(selection.RequiredTools) == 0 {
		return selection, fmt.Errorf("no tools selected")
	}

	for i := range selection.RequiredTools {
		selection.RequiredTools[i].Priority = models.Clamp01(selection.RequiredTools[i].Priority)
	}
	selection.Confidence = models.Clamp01(selection.Confidence)
	selection.Fallback = false
	return selection, nil
}

// Guidance derives the execution hints for a selection. Parallel plans cost
// the slowest tool, sequential plans the sum, plus the synthesis step.
func Guidance(selection models.ToolSelection) models.ExecutionGuidance {
	n := len(selection.RequiredTools)
	parallel := selection.ExecutionPlan == models.ExecutionParallel && n > 1

	var total, slowest float64
	for _, r := range selection.RequiredTools {
		t := toolSeconds(r.Tool)
		total += t
		if t > slowest {
			slowest = t
		}
	}

	synthesis := 0.5
	if selection.NeedsSynthesis {
		synthesis = 2.0
	}

	estimate := total + synthesis
	if selection.ExecutionPlan == models.ExecutionParallel {
		estimate = slowest + synthesis
	}

	return models.ExecutionGuidance{
		SingleTool:        n == 1,
		ParallelExecution: parallel,
		NeedsLLMSynthesis: selection.NeedsSynthesis,
		EstimatedSeconds:  estimate,
	}
}

func toolSeconds(name string) float64 {
	for _, t := range selectableTools {
		if t.name == name {
			return t.seconds
		}
	}
	return 1.0
}

func toolCatalog() string {
	lines := make([]string, 0, len(selectableTools))
	for _, t := range selectableTools {
		lines = append(lines, fmt.Sprintf("- %s: %s", t.name, t.description))
	}
	return strings.Join(lines, "\n")
}

// normalizeSelection lower-cases tool names and the execution plan so the
// schema enums match regardless of the model's casing.
func normalizeSelection(doc interface{}) {
	m, ok := doc.(map[string]interface{})
	if !ok {
		return
	}
	if s, ok := m["execution_plan"].(string); ok {
		m["execution_plan"] = strings.ToLower(strings.TrimSpace(s))
	}
	tools, _ := m["required_tools"].([]interface{})
	for _, item := range tools {
		if t, ok := item.(map[string]interface{}); ok {
			if s, ok := t["tool"].(string); ok {
				t["tool"] = strings.ToLower(strings.TrimSpace(s))
			}
		}
	}
}
