// internal/workers/assistant/route-query/handler.go
package routequery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"versailles-assistant/internal/common/camunda"
	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/common/llm"
	"versailles-assistant/internal/common/prompts"
	"versailles-assistant/internal/common/validation"
	"versailles-assistant/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "assistant.route-query"

	fallbackConfidence = 0.5
)

var (
	ErrRoutingFailed       = errors.New("ROUTING_FAILED")
	ErrDecompositionFailed = errors.New("DECOMPOSITION_FAILED")
	ErrEmptyQuery          = errors.New("EMPTY_QUERY")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config    *Config
	completer llm.Completer
	prompts   *prompts.Set
	logger    Logger
	errors    *apperrors.ErrorHandler
}

func NewHandler(config *Config, completer llm.Completer, set *prompts.Set, log Logger) *Handler {
	if set == nil {
		set = prompts.Default()
	}
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:    config,
		completer: completer,
		prompts:   set,
		logger:    logger,
		errors:    apperrors.NewErrorHandler(logger),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.NewInvalidChatRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		if errors.Is(err, ErrEmptyQuery) {
			err = apperrors.NewInvalidChatRequestError(err.Error())
		}
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(client, job, output); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, ErrEmptyQuery
	}
	return &Output{RouterOutput: h.Process(ctx, input.Query, input.History)}, nil
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// Process routes the query and decomposes it when the decision asks for it.
func (h *Handler) Process(ctx context.Context, query string, history []models.ChatMessage) models.RouterOutput {
	routing := h.Route(ctx, query, history)
	out := models.RouterOutput{Routing: routing}
	if routing.Decision == models.DecisionDecompose {
		out.Decomposition = h.Decompose(ctx, query, routing)
	}
	return out
}

// Route asks the LLM for a routing decision. It never fails: any error
// yields a DECOMPOSE decision flagged as a fallback.
func (h *Handler) Route(ctx context.Context, query string, history []models.ChatMessage) models.RoutingResult {
	result, err := h.route(ctx, query, history)
	if err != nil {
		h.logger.Warn("routing fell back to decomposition", map[string]interface{}{
			"error": err.Error(),
		})
		return models.RoutingResult{
			Decision:   models.DecisionDecompose,
			Complexity: models.ComplexityModerate,
			Reasoning:  fmt.Sprintf("Fallback due to routing error: %v", err),
			Confidence: fallbackConfidence,
			Fallback:   true,
		}
	}

	h.logger.Info("query routed", map[string]interface{}{
		"decision":   string(result.Decision),
		"complexity": string(result.Complexity),
		"confidence": result.Confidence,
	})
	return result
}

func (h *Handler) route(ctx context.Context, query string, history []models.ChatMessage) (models.RoutingResult, error) {
	var result models.RoutingResult

	prompt, err := h.prompts.Render(prompts.Routing, map[string]interface{}{
		"Query":   query,
		"History": formatHistory(history),
	})
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrRoutingFailed, err)
	}

	text, err := h.complete(ctx, prompt)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrRoutingFailed, err)
	}

	doc, err := validation.ParseDocument(text)
	if err != nil {
		return result, err
	}
	normalizeRouting(doc)

	if err := validation.DecodeValidated(doc, routingSchema, &result); err != nil {
		return result, err
	}
	result.Confidence = models.Clamp01(result.Confidence)
	result.Fallback = false
	return result, nil
}

// Decompose splits the query into sub-queries. On any error it returns a
// single general sub-query for the original text.
func (h *Handler) Decompose(ctx context.Context, query string, routing models.RoutingResult) []models.DecomposedQuery {
	subQueries, err := h.decompose(ctx, query, routing)
	if err != nil {
		h.logger.Warn("decomposition fell back to a single sub-query", map[string]interface{}{
			"error": err.Error(),
		})
		return []models.DecomposedQuery{{
			Query:           query,
			Purpose:         "general_info",
			Priority:        1.0,
			Dependencies:    []string{},
			RequiredSources: []string{models.SourceOfficialKB},
			ExpectedInfo:    "General information about the query",
		}}
	}

	h.logger.Info("query decomposed", map[string]interface{}{
		"subQueries": len(subQueries),
	})
	return subQueries
}

func (h *Handler) decompose(ctx context.Context, query string, routing models.RoutingResult) ([]models.DecomposedQuery, error) {
	prompt, err := h.prompts.Render(prompts.Decomposition, map[string]interface{}{
		"Query":      query,
		"Complexity": string(routing.Complexity),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompositionFailed, err)
	}

	text, err := h.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompositionFailed, err)
	}

	var parsed struct {
		SubQueries []models.DecomposedQuery `json:"sub_queries"`
	}
	if err := validation.ParseInto(text, decompositionSchema, &parsed); err != nil {
		return nil, err
	}

	for i := range parsed.SubQueries {
		parsed.SubQueries[i].Priority = models.Clamp01(parsed.SubQueries[i].Priority)
	}
	return parsed.SubQueries, nil
}

func (h *Handler) complete(ctx context.Context, prompt string) (string, error) {
	if h.completer == nil {
		return "", errors.New("no completer configured")
	}
	return h.completer.Complete(ctx, prompt)
}

// normalizeRouting upper-cases the decision and lower-cases the complexity
// so the schema enums match regardless of the model's casing.
func normalizeRouting(doc interface{}) {
	m, ok := doc.(map[string]interface{})
	if !ok {
		return
	}
	if s, ok := m["decision"].(string); ok {
		m["decision"] = strings.ToUpper(strings.TrimSpace(s))
	}
	if s, ok := m["complexity"].(string); ok {
		m["complexity"] = strings.ToLower(strings.TrimSpace(s))
	}
}

func formatHistory(history []models.ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return strings.Join(lines, "\n")
}
