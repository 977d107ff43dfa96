// internal/workers/assistant/create-plan/handler.go
package createplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"versailles-assistant/internal/common/camunda"
	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "assistant.create-plan"
)

var (
	ErrEmptyQuery = errors.New("EMPTY_QUERY")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config *Config
	logger Logger
	errors *apperrors.ErrorHandler
}

func NewHandler(config *Config, log Logger) *Handler {
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config: config,
		logger: logger,
		errors: apperrors.NewErrorHandler(logger),
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
		return nil, fmt.Errorf("%w: query is required", ErrEmptyQuery)
	}

	plan := CreatePlan(input.Query)

	h.logger.Info("plan created", map[string]interface{}{
		"profile":    plan.UserProfile,
		"subqueries": len(plan.SubQueries),
		"confidence": plan.Confidence,
		"missing":    plan.InformationGaps.MissingCount(),
	})

	return &Output{Plan: plan}, nil
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// CreatePlan runs extraction, gap analysis, profiling and sub-query
// generation. Confidence is the mean sub-query priority, reduced by 0.1 per
// missing category and floored at zero.
func CreatePlan(query string) models.Plan {
	constraints := ExtractConstraints(query)
	gaps := AnalyzeGaps(query, constraints)
	profile := DetermineProfile(constraints)
	subqueries := GenerateSubQueries(query, profile, constraints)

	base := 0.0
	for _, sq := range subqueries {
		base += sq.Priority
	}
	if len(subqueries) > 0 {
		base /= float64(len(subqueries))
	}

	missing := gaps.MissingCount()
	confidence := base - 0.1*float64(missing)
	if confidence < 0 {
		confidence = 0
	}

	reasoning := []string{fmt.Sprintf("Identified %s profile with %d faceted sub-queries", profile, len(subqueries))}
	if missing > 0 {
		reasoning = append(reasoning, fmt.Sprintf("Missing %d key information pieces", missing))
	}

	return models.Plan{
		Query:           query,
		UserConstraints: constraints,
		UserProfile:     profile,
		SubQueries:      subqueries,
		Confidence:      confidence,
		Reasoning:       strings.Join(reasoning, " | "),
		InformationGaps: gaps,
	}
}
