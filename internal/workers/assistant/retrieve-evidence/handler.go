// internal/workers/assistant/retrieve-evidence/handler.go
package retrieveevidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"versailles-assistant/internal/common/camunda"
	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/common/metrics"
	"versailles-assistant/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "assistant.retrieve-evidence"

	NoInformationAnswer = "No information available for this aspect."
)

var (
	ErrSourceNotConfigured = errors.New("SOURCE_NOT_CONFIGURED")
	ErrEmptyContent        = errors.New("EMPTY_CONTENT")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config  *Config
	sources Sources
	now     func() time.Time
	logger  Logger
	errors  *apperrors.ErrorHandler
}

func NewHandler(config *Config, sources Sources, log Logger) *Handler {
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:  config,
		sources: sources,
		now:     time.Now,
		logger:  logger,
		errors:  apperrors.NewErrorHandler(logger),
	}
}

// WithClock replaces the clock used to pick the schedule date.
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
	if input.SubQuery.Facet == "" {
		return nil, apperrors.NewEvidenceRetrievalFailedError("", errors.New("subquery facet is required"))
	}
	chunks := h.RetrieveEvidence(ctx, input.SubQuery)
	return &Output{PartialAnswer: GeneratePartialAnswer(input.SubQuery, chunks)}, nil
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// RetrieveEvidence queries the facet's dedicated source, then the official
// knowledge base. Source failures are logged and yield no chunk; they are
// never returned.
func (h *Handler) RetrieveEvidence(ctx context.Context, sq models.SubQuery) []models.EvidenceChunk {
	var chunks []models.EvidenceChunk

	switch sq.Facet {
	case models.FacetWeather:
		chunks = append(chunks, h.fromWeather(ctx, sq)...)
	case models.FacetItinerary:
		chunks = append(chunks, h.fromMaps(ctx, sq)...)
	case models.FacetPractical:
		chunks = append(chunks, h.fromSchedule(ctx, sq)...)
	}

	chunks = append(chunks, h.fromKnowledgeBase(ctx, sq)...)
	return chunks
}

func (h *Handler) fromWeather(ctx context.Context, sq models.SubQuery) []models.EvidenceChunk {
	days := forecastDays(sq.Constraints, h.config.DefaultForecastDays)
	return h.collect(sq, models.SourceWeatherAPI, 0.9, map[string]interface{}{"api": "google_weather", "days": days},
		func() (string, error) {
			if h.sources.Weather == nil {
				return "", ErrSourceNotConfigured
			}
			forecast, err := h.sources.Weather.Forecast(ctx, days)
			if err != nil {
				return "", err
			}
			return forecast.String(), nil
		})
}

func (h *Handler) fromMaps(ctx context.Context, sq models.SubQuery) []models.EvidenceChunk {
	if !sq.RequiresTool(models.ToolPlaces) {
		return nil
	}
	return h.collect(sq, models.SourceMapsAPI, 0.8, map[string]interface{}{"api": "google_places"},
		func() (string, error) {
			if h.sources.Places == nil {
				return "", ErrSourceNotConfigured
			}
			place, err := h.sources.Places.SearchPlace(ctx, h.config.DefaultPlace)
			if err != nil {
				return "", err
			}
			return place.String(), nil
		})
}

func (h *Handler) fromSchedule(ctx context.Context, sq models.SubQuery) []models.EvidenceChunk {
	date := h.now().Format("2006-01-02")
	return h.collect(sq, models.SourceScheduleAPI, 0.95, map[string]interface{}{"api": "schedule_scraper", "date": date},
		func() (string, error) {
			if h.sources.Schedule == nil {
				return "", ErrSourceNotConfigured
			}
			day, err := h.sources.Schedule.Fetch(ctx, date)
			if err != nil {
				return "", err
			}
			return day.String(), nil
		})
}

func (h *Handler) fromKnowledgeBase(ctx context.Context, sq models.SubQuery) []models.EvidenceChunk {
	return h.collect(sq, models.SourceOfficialKB, 1.0, map[string]interface{}{"kb": "versailles_expert"},
		func() (string, error) {
			if h.sources.Knowledge == nil {
				return "", ErrSourceNotConfigured
			}
			answer, err := h.sources.Knowledge.Ask(ctx, sq.Query)
			if err != nil {
				return "", err
			}
			// The not-found reply is not evidence and must not score as official.
			if answer.NotFound {
				return "", nil
			}
			return answer.Text, nil
		})
}

// collect turns one source call into at most one chunk and records its outcome.
func (h *Handler) collect(sq models.SubQuery, source string, score float64, metadata map[string]interface{}, call func() (string, error)) []models.EvidenceChunk {
	content, err := call()
	if err == nil && strings.TrimSpace(content) == "" {
		err = ErrEmptyContent
	}

	var chunks []models.EvidenceChunk
	if err == nil {
		chunks = append(chunks, models.EvidenceChunk{
			Source:          source,
			Content:         content,
			Score:           score,
			AuthorityWeight: models.AuthorityWeight(source),
			Facet:           sq.Facet,
			Metadata:        metadata,
		})
	}

	outcome := metrics.SourceOutcome(len(chunks), err)
	if errors.Is(err, ErrEmptyContent) {
		outcome = metrics.OutcomeEmpty
	}
	metrics.EvidenceSourceCalls.WithLabelValues(source, outcome).Inc()

	if err != nil {
		h.logger.Warn("evidence source returned nothing", map[string]interface{}{
			"source":  source,
			"facet":   sq.Facet,
			"outcome": outcome,
			"error":   err.Error(),
		})
	}
	return chunks
}

// GeneratePartialAnswer summarises the top three chunks by score times
// authority. Confidence is the mean score over every chunk.
func GeneratePartialAnswer(sq models.SubQuery, chunks []models.EvidenceChunk) models.PartialAnswer {
	if len(chunks) == 0 {
		return models.PartialAnswer{
			Facet:                sq.Facet,
			Answer:               NoInformationAnswer,
			EvidenceChunks:       []models.EvidenceChunk{},
			Confidence:           0,
			ConstraintsSatisfied: []string{},
		}
	}

	sorted := make([]models.EvidenceChunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rank() > sorted[j].Rank()
	})

	top := sorted
	if len(top) > 3 {
		top = top[:3]
	}
	parts := make([]string, 0, len(top))
	for _, c := range top {
		parts = append(parts, truncateRunes(c.Content, 200)+"...")
	}
	combined := strings.Join(parts, "\n")

	total := 0.0
	for _, c := range sorted {
		total += c.Score
	}

	return models.PartialAnswer{
		Facet:                sq.Facet,
		Answer:               fmt.Sprintf("Based on %s information: %s...", sq.Facet, truncateRunes(combined, 300)),
		EvidenceChunks:       sorted,
		Confidence:           total / float64(len(sorted)),
		ConstraintsSatisfied: models.SortedKeys(sq.Constraints),
	}
}

func forecastDays(constraints map[string]interface{}, fallback int) int {
	switch v := constraints["days"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
