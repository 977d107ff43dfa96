// internal/workers/assistant/synthesize-answer/handler.go
package synthesizeanswer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"versailles-assistant/internal/common/camunda"
	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/common/llm"
	"versailles-assistant/internal/common/prompts"
	"versailles-assistant/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "assistant.synthesize-answer"
)

var (
	ErrLLMFailed       = errors.New("LLM_SYNTHESIS_FAILED")
	ErrEmptyCompletion = errors.New("EMPTY_COMPLETION")
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
	return &Output{FinalAnswer: h.Synthesize(ctx, input.Plan, input.PartialAnswers)}, nil
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// Synthesize merges the partial answers into the final answer. An LLM
// failure degrades the answer text only.
func (h *Handler) Synthesize(ctx context.Context, plan models.Plan, partials []models.PartialAnswer) models.FinalAnswer {
	resolved := resolveConflicts(partials)
	citations := Citations(resolved)

	confidence := 0.0
	if len(resolved) > 0 {
		total := 0.0
		for _, p := range resolved {
			total += p.Confidence
		}
		confidence = models.Clamp01(total / float64(len(resolved)))
	}

	followUps := plan.InformationGaps.SuggestedQuestions
	if followUps == nil {
		followUps = []string{}
	}

	return models.FinalAnswer{
		Answer:                  h.answerText(ctx, plan, resolved),
		Recommendations:         Recommendations(plan),
		SourceCitations:         citations,
		ConstraintsCheck:        CheckConstraints(plan.UserConstraints),
		Confidence:              confidence,
		Reasoning:               fmt.Sprintf("Synthesized from %d faceted answers with %d sources", len(resolved), len(citations)),
		FollowUpQuestions:       followUps,
		InformationCompleteness: models.Clamp01(1.0 - 0.25*float64(plan.InformationGaps.MissingCount())),
	}
}

func (h *Handler) answerText(ctx context.Context, plan models.Plan, partials []models.PartialAnswer) string {
	combined := combinedContent(partials)

	text, err := h.complete(ctx, plan, combined)
	if err != nil {
		h.logger.Warn("synthesis fell back to faceted content", map[string]interface{}{
			"profile": string(plan.UserProfile),
			"error":   err.Error(),
		})
		return "Based on the available information: " + truncateRunes(combined, h.config.FallbackMaxRunes) + "..."
	}
	return text
}

func (h *Handler) complete(ctx context.Context, plan models.Plan, combined string) (string, error) {
	if h.completer == nil {
		return "", fmt.Errorf("%w: no completer configured", ErrLLMFailed)
	}

	constraints, err := json.MarshalIndent(plan.UserConstraints.ToMap(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMFailed, err)
	}

	prompt, err := h.prompts.Render(prompts.Synthesis, map[string]interface{}{
		"Profile":            string(plan.UserProfile),
		"Constraints":        string(constraints),
		"FacetedInformation": combined,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMFailed, err)
	}

	text, err := h.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// CheckConstraints marks a constraint as satisfied when it was stated.
func CheckConstraints(c models.UserConstraints) map[string]bool {
	checks := make(map[string]bool)
	if c.Duration != "" {
		checks["duration_compatible"] = true
	}
	if models.IsTrue(c.HasChildren) {
		checks["child_friendly"] = true
	}
	if c.Mobility != "" {
		checks["accessibility"] = true
	}
	return checks
}

// Citations lists "source (facet)" for the top two chunks of each partial,
// first occurrence wins.
func Citations(partials []models.PartialAnswer) []string {
	seen := make(map[string]bool)
	citations := []string{}
	for _, p := range partials {
		chunks := p.EvidenceChunks
		if len(chunks) > 2 {
			chunks = chunks[:2]
		}
		for _, c := range chunks {
			citation := fmt.Sprintf("%s (%s)", c.Source, c.Facet)
			if !seen[citation] {
				seen[citation] = true
				citations = append(citations, citation)
			}
		}
	}
	return citations
}

func resolveConflicts(partials []models.PartialAnswer) []models.PartialAnswer {
	sorted := make([]models.PartialAnswer, len(partials))
	copy(sorted, partials)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	return sorted
}

func combinedContent(partials []models.PartialAnswer) string {
	lines := make([]string, 0, len(partials))
	for _, p := range partials {
		lines = append(lines, fmt.Sprintf("%s: %s", p.Facet, p.Answer))
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
