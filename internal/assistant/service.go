// Package assistant wires the pipeline stages into the entry points used by
// the HTTP API and the CLI.
package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"versailles-assistant/internal/common/aws"
	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/common/knowledge"
	"versailles-assistant/internal/common/logger"
	"versailles-assistant/internal/common/metrics"
	"versailles-assistant/internal/common/observability"
	"versailles-assistant/internal/models"
	createplan "versailles-assistant/internal/workers/assistant/create-plan"
	retrieveevidence "versailles-assistant/internal/workers/assistant/retrieve-evidence"

	"go.opentelemetry.io/otel/attribute"
)

const (
	ProcessingMethod = "enhanced_planner"

	MethodAnswer   = "answer"
	MethodRespond  = "respond"
	MethodToolPlan = "tool_plan"
	MethodSelect   = "select_tools"
	MethodRoute    = "route"

	AlertLowConfidence  = "low_confidence"
	AlertRouterFallback = "router_fallback"
)

type Retriever interface {
	RetrieveEvidence(ctx context.Context, sq models.SubQuery) []models.EvidenceChunk
}

type Synthesizer interface {
	Synthesize(ctx context.Context, plan models.Plan, partials []models.PartialAnswer) models.FinalAnswer
}

// Router decides how a query is handled. Respond only needs the decision;
// Process also decomposes and backs the route endpoint.
type Router interface {
	Route(ctx context.Context, query string, history []models.ChatMessage) models.RoutingResult
	Process(ctx context.Context, query string, history []models.ChatMessage) models.RouterOutput
}

type ToolPlanner interface {
	Plan(ctx context.Context, query string) models.ToolPlanResult
	SelectTools(ctx context.Context, query string) models.ToolSelectionResult
}

type KnowledgeBase interface {
	Ask(ctx context.Context, question string) (knowledge.Answer, error)
}

type Alerter interface {
	PublishAlert(ctx context.Context, alert aws.Alert) (string, error)
}

// Dependencies holds the stage implementations. Alerter and Observability
// are optional.
type Dependencies struct {
	Retriever     Retriever
	Synthesizer   Synthesizer
	Router        Router
	ToolPlanner   ToolPlanner
	Knowledge     KnowledgeBase
	Alerter       Alerter
	Observability *observability.Observability
	Logger        logger.Logger
}

type Options struct {
	AlertConfidenceThreshold float64
	AlertTimeout             time.Duration
}

// Response is what the chat surface returns for one turn.
type Response struct {
	Answer  string                `json:"answer"`
	Routing models.RoutingResult  `json:"routing"`
	Result  *models.PlannerResult `json:"result,omitempty"`
}

type Service struct {
	deps Dependencies
	opts Options
	log  logger.Logger
}

func NewService(deps Dependencies, opts Options) *Service {
	if opts.AlertTimeout <= 0 {
		opts.AlertTimeout = 5 * time.Second
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{deps: deps, opts: opts, log: log.With(map[string]interface{}{"component": "assistant"})}
}

// Answer runs plan, faceted retrieval and synthesis for one query.
func (s *Service) Answer(ctx context.Context, query string) (result models.PlannerResult, err error) {
	defer s.observe(MethodAnswer, time.Now(), &err)

	if strings.TrimSpace(query) == "" {
		return result, apperrors.NewInvalidChatRequestError("query is empty")
	}

	ctx, span := s.deps.Observability.StartSpan(ctx, "assistant.answer")
	defer func() { observability.EndSpan(span, err) }()

	plan := runStage(ctx, s, "create_plan", func(ctx context.Context) models.Plan {
		return createplan.CreatePlan(query)
	})
	if len(plan.SubQueries) == 0 {
		return result, apperrors.NewPlanCreationFailedError(errors.New("no sub-queries generated"))
	}

	partials := make([]models.PartialAnswer, 0, len(plan.SubQueries))
	for _, sq := range plan.SubQueries {
		if err := ctx.Err(); err != nil {
			return result, apperrors.NewUpstreamTimeoutError("pipeline", err)
		}
		partial := runStage(ctx, s, "retrieve_evidence", func(ctx context.Context) models.PartialAnswer {
			chunks := s.deps.Retriever.RetrieveEvidence(ctx, sq)
			return retrieveevidence.GeneratePartialAnswer(sq, chunks)
		}, attribute.String("facet", string(sq.Facet)))
		partials = append(partials, partial)
	}

	final := runStage(ctx, s, "synthesize", func(ctx context.Context) models.FinalAnswer {
		return s.deps.Synthesizer.Synthesize(ctx, plan, partials)
	})

	if err := ctx.Err(); err != nil {
		return result, apperrors.NewUpstreamTimeoutError("pipeline", err)
	}

	s.log.Info("answer synthesized", map[string]interface{}{
		"profile":      string(plan.UserProfile),
		"subQueries":   len(plan.SubQueries),
		"confidence":   final.Confidence,
		"completeness": final.InformationCompleteness,
	})

	if final.Confidence < s.opts.AlertConfidenceThreshold {
		s.alert(ctx, aws.Alert{
			Reason:     AlertLowConfidence,
			Query:      query,
			Confidence: final.Confidence,
			Detail:     final.Reasoning,
		})
	}

	return models.PlannerResult{
		Plan:             plan,
		PartialAnswers:   partials,
		FinalAnswer:      final,
		ProcessingMethod: ProcessingMethod,
	}, nil
}

// Respond lets the router pick the strategy for a chat turn.
func (s *Service) Respond(ctx context.Context, query string, history []models.ChatMessage) (resp Response, err error) {
	defer s.observe(MethodRespond, time.Now(), &err)

	if strings.TrimSpace(query) == "" {
		return resp, apperrors.NewInvalidChatRequestError("query is empty")
	}

	ctx, span := s.deps.Observability.StartSpan(ctx, "assistant.respond")
	defer func() { observability.EndSpan(span, err) }()

	routing := runStage(ctx, s, "route", func(ctx context.Context) models.RoutingResult {
		return s.deps.Router.Route(ctx, query, history)
	})
	resp.Routing = routing

	if routing.Fallback {
		s.alert(ctx, aws.Alert{
			Reason:     AlertRouterFallback,
			Query:      query,
			Confidence: routing.Confidence,
			Detail:     routing.Reasoning,
		})
	}

	switch routing.Decision {
	case models.DecisionDirectRAG:
		question := strings.TrimSpace(routing.DirectQuery)
		if question == "" {
			question = query
		}
		answer, askErr := s.ask(ctx, question)
		if askErr == nil {
			resp.Answer = answer
			return resp, nil
		}
		s.log.Warn("direct lookup failed, running full pipeline", map[string]interface{}{
			"error": askErr.Error(),
		})

	case models.DecisionClarify:
		if len(routing.ClarificationQuestions) > 0 {
			resp.Answer = strings.Join(routing.ClarificationQuestions, "\n")
			return resp, nil
		}
	}

	result, err := s.Answer(ctx, query)
	if err != nil {
		return resp, err
	}
	resp.Answer = result.FinalAnswer.Answer
	resp.Result = &result
	return resp, nil
}

// ToolPlan runs the tool planner for one query.
func (s *Service) ToolPlan(ctx context.Context, query string) (result models.ToolPlanResult, err error) {
	defer s.observe(MethodToolPlan, time.Now(), &err)

	if strings.TrimSpace(query) == "" {
		return result, apperrors.NewInvalidChatRequestError("query is empty")
	}

	ctx, span := s.deps.Observability.StartSpan(ctx, "assistant.tool_plan")
	defer func() { observability.EndSpan(span, err) }()

	return runStage(ctx, s, "plan_tools", func(ctx context.Context) models.ToolPlanResult {
		return s.deps.ToolPlanner.Plan(ctx, query)
	}), nil
}

// SelectTools asks the LLM tool selector which sources a query needs,
// without running them.
func (s *Service) SelectTools(ctx context.Context, query string) (result models.ToolSelectionResult, err error) {
	defer s.observe(MethodSelect, time.Now(), &err)

	if strings.TrimSpace(query) == "" {
		return result, apperrors.NewInvalidChatRequestError("query is empty")
	}

	ctx, span := s.deps.Observability.StartSpan(ctx, "assistant.select_tools")
	defer func() { observability.EndSpan(span, err) }()

	return runStage(ctx, s, "select_tools", func(ctx context.Context) models.ToolSelectionResult {
		return s.deps.ToolPlanner.SelectTools(ctx, query)
	}), nil
}

// Route exposes the router decision and any decomposition.
func (s *Service) Route(ctx context.Context, query string, history []models.ChatMessage) (out models.RouterOutput, err error) {
	defer s.observe(MethodRoute, time.Now(), &err)

	if strings.TrimSpace(query) == "" {
		return out, apperrors.NewInvalidChatRequestError("query is empty")
	}

	return runStage(ctx, s, "route", func(ctx context.Context) models.RouterOutput {
		return s.deps.Router.Process(ctx, query, history)
	}), nil
}

func (s *Service) ask(ctx context.Context, question string) (string, error) {
	if s.deps.Knowledge == nil {
		return "", apperrors.NewKnowledgeBaseUnavailableError(errors.New("knowledge base not configured"))
	}
	type lookup struct {
		answer knowledge.Answer
		err    error
	}
	res := runStage(ctx, s, "knowledge_lookup", func(ctx context.Context) lookup {
		answer, err := s.deps.Knowledge.Ask(ctx, question)
		return lookup{answer: answer, err: err}
	})
	if res.err != nil {
		return "", res.err
	}
	return res.answer.Text, nil
}

// runStage runs fn inside a span and records its latency.
func runStage[T any](ctx context.Context, s *Service, name string, fn func(context.Context) T, attrs ...attribute.KeyValue) T {
	start := time.Now()
	ctx, span := s.deps.Observability.StartSpan(ctx, name, attrs...)
	out := fn(ctx)
	observability.EndSpan(span, nil)
	s.deps.Observability.RecordStage(ctx, name, time.Since(start), "ok")
	return out
}

func (s *Service) alert(ctx context.Context, alert aws.Alert) {
	if s.deps.Alerter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.AlertTimeout)
	defer cancel()

	if _, err := s.deps.Alerter.PublishAlert(ctx, alert); err != nil {
		s.log.Warn("failed to publish alert", map[string]interface{}{
			"reason": alert.Reason,
			"error":  err.Error(),
		})
	}
}

func (s *Service) observe(method string, start time.Time, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = "error"
	}
	metrics.AssistantRequests.WithLabelValues(method, outcome).Inc()
	metrics.AssistantRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
