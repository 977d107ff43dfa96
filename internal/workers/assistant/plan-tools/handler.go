// internal/workers/assistant/plan-tools/handler.go
package plantools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"versailles-assistant/internal/common/camunda"
	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/common/llm"
	"versailles-assistant/internal/common/prompts"
	"versailles-assistant/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "assistant.plan-tools"
)

var (
	ErrEmptyQuery = errors.New("EMPTY_QUERY")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config    *Config
	tools     Tools
	completer llm.Completer
	prompts   *prompts.Set
	now       func() time.Time
	logger    Logger
	errors    *apperrors.ErrorHandler
}

func NewHandler(config *Config, tools Tools, completer llm.Completer, set *prompts.Set, log Logger) *Handler {
	if set == nil {
		set = prompts.Default()
	}
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:    config,
		tools:     tools,
		completer: completer,
		prompts:   set,
		now:       time.Now,
		logger:    logger,
		errors:    apperrors.NewErrorHandler(logger),
	}
}

// WithClock replaces the clock used for relative dates.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
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
	return &Output{ToolPlanResult: h.Plan(ctx, input.Query)}, nil
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// Analyze classifies the query against the handler's clock.
func (h *Handler) Analyze(query string) models.QueryAnalysis {
	return Analyze(query, h.now())
}

// Plan analyses the query and runs the selected tools.
func (h *Handler) Plan(ctx context.Context, query string) models.ToolPlanResult {
	analysis := h.Analyze(query)
	h.logger.Info("query analysed", map[string]interface{}{
		"queryType":     string(analysis.QueryType),
		"confidence":    analysis.Confidence,
		"requiredTools": analysis.RequiredTools,
	})
	return h.ExecuteTools(ctx, analysis, query)
}
