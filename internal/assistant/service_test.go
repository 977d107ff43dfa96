package assistant

import (
	"context"
	"errors"
	"testing"

	"versailles-assistant/internal/common/aws"
	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/common/knowledge"
	"versailles-assistant/internal/common/logger"
	"versailles-assistant/internal/models"
	retrieveevidence "versailles-assistant/internal/workers/assistant/retrieve-evidence"
	plantools "versailles-assistant/internal/workers/assistant/plan-tools"
	routequery "versailles-assistant/internal/workers/assistant/route-query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	calls []models.SubQuery
	fn    func(sq models.SubQuery) []models.EvidenceChunk
}

func (f *fakeRetriever) RetrieveEvidence(ctx context.Context, sq models.SubQuery) []models.EvidenceChunk {
	f.calls = append(f.calls, sq)
	if f.fn == nil {
		return nil
	}
	return f.fn(sq)
}

type fakeSynthesizer struct {
	partials []models.PartialAnswer
	final    models.FinalAnswer
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, plan models.Plan, partials []models.PartialAnswer) models.FinalAnswer {
	f.partials = partials
	return f.final
}

type fakeRouter struct {
	out          models.RouterOutput
	history      []models.ChatMessage
	routeCalls   int
	processCalls int
}

func (f *fakeRouter) Route(ctx context.Context, query string, history []models.ChatMessage) models.RoutingResult {
	f.routeCalls++
	f.history = history
	return f.out.Routing
}

func (f *fakeRouter) Process(ctx context.Context, query string, history []models.ChatMessage) models.RouterOutput {
	f.processCalls++
	f.history = history
	return f.out
}

// countingCompleter replies in order and counts calls.
type countingCompleter struct {
	replies []string
	calls   int
}

func (c *countingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.calls++
	if c.calls <= len(c.replies) {
		return c.replies[c.calls-1], nil
	}
	return "", errors.New("no reply scripted")
}

type routeQueryLogger struct{ logger.Logger }

func (l *routeQueryLogger) With(fields map[string]interface{}) routequery.Logger {
	return &routeQueryLogger{l.Logger.With(fields)}
}

type planToolsLogger struct{ logger.Logger }

func (l *planToolsLogger) With(fields map[string]interface{}) plantools.Logger {
	return &planToolsLogger{l.Logger.With(fields)}
}

type fakeToolPlanner struct {
	result    models.ToolPlanResult
	selection models.ToolSelectionResult
}

func (f *fakeToolPlanner) Plan(ctx context.Context, query string) models.ToolPlanResult {
	return f.result
}

func (f *fakeToolPlanner) SelectTools(ctx context.Context, query string) models.ToolSelectionResult {
	return f.selection
}

type fakeKnowledge struct {
	questions []string
	answer    string
	err       error
}

func (f *fakeKnowledge) Ask(ctx context.Context, question string) (knowledge.Answer, error) {
	f.questions = append(f.questions, question)
	return knowledge.Answer{Question: question, Text: f.answer}, f.err
}

type fakeAlerter struct{ alerts []aws.Alert }

func (f *fakeAlerter) PublishAlert(ctx context.Context, alert aws.Alert) (string, error) {
	f.alerts = append(f.alerts, alert)
	return "id", nil
}

type fixture struct {
	retriever   *fakeRetriever
	synthesizer *fakeSynthesizer
	router      *fakeRouter
	knowledge   *fakeKnowledge
	alerter     *fakeAlerter
	service     *Service
}

func newFixture(t *testing.T, threshold float64) *fixture {
	f := &fixture{
		retriever:   &fakeRetriever{},
		synthesizer: &fakeSynthesizer{final: models.FinalAnswer{Answer: "synthesized", Confidence: 0.9}},
		router:      &fakeRouter{},
		knowledge:   &fakeKnowledge{answer: "kb answer"},
		alerter:     &fakeAlerter{},
	}
	f.service = NewService(Dependencies{
		Retriever:   f.retriever,
		Synthesizer: f.synthesizer,
		Router:      f.router,
		ToolPlanner: &fakeToolPlanner{result: models.ToolPlanResult{Answer: "tools"}},
		Knowledge:   f.knowledge,
		Alerter:     f.alerter,
		Logger:      logger.NewTestLogger(t),
	}, Options{AlertConfidenceThreshold: threshold})
	return f
}

func TestAnswer_RunsEverySubQuery(t *testing.T) {
	f := newFixture(t, 0.3)
	f.retriever.fn = func(sq models.SubQuery) []models.EvidenceChunk {
		if sq.Facet != models.FacetHistory {
			return nil
		}
		return []models.EvidenceChunk{{Source: models.SourceOfficialKB, Content: "Built by Louis XIV", Score: 1, AuthorityWeight: 1, Facet: sq.Facet}}
	}

	result, err := f.service.Answer(context.Background(), "Plan a full day visit with my 2 kids and elderly mother")
	require.NoError(t, err)

	assert.Equal(t, ProcessingMethod, result.ProcessingMethod)
	assert.Equal(t, models.ProfileFamilyWithElderly, result.Plan.UserProfile)
	require.Len(t, result.PartialAnswers, len(result.Plan.SubQueries))
	assert.Len(t, f.retriever.calls, len(result.Plan.SubQueries))
	assert.Equal(t, "Based on history information: Built by Louis XIV......", result.PartialAnswers[0].Answer)
	assert.Equal(t, retrieveevidence.NoInformationAnswer, result.PartialAnswers[1].Answer)
	assert.Equal(t, result.PartialAnswers, f.synthesizer.partials)
	assert.Equal(t, "synthesized", result.FinalAnswer.Answer)
	assert.Empty(t, f.alerter.alerts)
}

func TestAnswer_LowConfidenceAlert(t *testing.T) {
	f := newFixture(t, 0.3)
	f.synthesizer.final = models.FinalAnswer{Answer: "weak", Confidence: 0.1, Reasoning: "Synthesized from 1 faceted answers with 0 sources"}

	_, err := f.service.Answer(context.Background(), "What time does Versailles open?")
	require.NoError(t, err)

	require.Len(t, f.alerter.alerts, 1)
	assert.Equal(t, AlertLowConfidence, f.alerter.alerts[0].Reason)
	assert.InDelta(t, 0.1, f.alerter.alerts[0].Confidence, 1e-9)
}

func TestAnswer_EmptyQuery(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.service.Answer(context.Background(), "  ")
	assert.Equal(t, 400, apperrors.HTTPStatus(err))
}

func TestAnswer_CancelledContext(t *testing.T) {
	f := newFixture(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Answer(ctx, "Plan my visit")
	assert.Equal(t, 504, apperrors.HTTPStatus(err))
}

func TestRespond(t *testing.T) {
	t.Run("direct rag uses reformulated query", func(t *testing.T) {
		f := newFixture(t, 0)
		f.router.out = models.RouterOutput{Routing: models.RoutingResult{Decision: models.DecisionDirectRAG, DirectQuery: "Versailles opening hours"}}

		resp, err := f.service.Respond(context.Background(), "when open?", nil)
		require.NoError(t, err)
		assert.Equal(t, "kb answer", resp.Answer)
		assert.Equal(t, []string{"Versailles opening hours"}, f.knowledge.questions)
		assert.Nil(t, resp.Result)
	})

	t.Run("direct rag falls back to original query", func(t *testing.T) {
		f := newFixture(t, 0)
		f.router.out = models.RouterOutput{Routing: models.RoutingResult{Decision: models.DecisionDirectRAG}}

		_, err := f.service.Respond(context.Background(), "Ticket price?", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Ticket price?"}, f.knowledge.questions)
	})

	t.Run("direct rag failure runs the pipeline", func(t *testing.T) {
		f := newFixture(t, 0)
		f.knowledge.err = errors.New("es down")
		f.router.out = models.RouterOutput{Routing: models.RoutingResult{Decision: models.DecisionDirectRAG}}

		resp, err := f.service.Respond(context.Background(), "Ticket price?", nil)
		require.NoError(t, err)
		assert.Equal(t, "synthesized", resp.Answer)
		require.NotNil(t, resp.Result)
	})

	t.Run("clarify joins questions", func(t *testing.T) {
		f := newFixture(t, 0)
		f.router.out = models.RouterOutput{Routing: models.RoutingResult{
			Decision:               models.DecisionClarify,
			ClarificationQuestions: []string{"When are you visiting?", "Who is coming?"},
		}}

		resp, err := f.service.Respond(context.Background(), "I want to visit", nil)
		require.NoError(t, err)
		assert.Equal(t, "When are you visiting?\nWho is coming?", resp.Answer)
	})

	t.Run("fallback decomposition alerts and runs the pipeline", func(t *testing.T) {
		f := newFixture(t, 0)
		f.router.out = models.RouterOutput{Routing: models.RoutingResult{Decision: models.DecisionDecompose, Fallback: true, Confidence: 0.5}}
		history := []models.ChatMessage{{Role: models.RoleSystem, Content: "persona: family"}}

		resp, err := f.service.Respond(context.Background(), "Plan a day with kids", history)
		require.NoError(t, err)
		assert.Equal(t, "synthesized", resp.Answer)
		assert.Equal(t, history, f.router.history)
		require.Len(t, f.alerter.alerts, 1)
		assert.Equal(t, AlertRouterFallback, f.alerter.alerts[0].Reason)
		assert.Equal(t, 1, f.router.routeCalls)
		assert.Zero(t, f.router.processCalls)
	})
}

func TestRespond_DecomposeMakesOneLLMCall(t *testing.T) {
	routing := `{"decision": "DECOMPOSE", "complexity": "complex", "reasoning": "several needs", "confidence": 0.8}`
	completer := &countingCompleter{replies: []string{
		routing,
		routing,
		`{"sub_queries": [{"query": "Weather today?", "purpose": "weather_info", "priority": 0.9, "dependencies": [], "required_sources": ["weather_api"], "expected_info": "Forecast"}]}`,
	}}
	router := routequery.NewHandler(routequery.LoadConfig(), completer, nil, &routeQueryLogger{logger.NewTestLogger(t)})

	f := newFixture(t, 0)
	f.service.deps.Router = router

	resp, err := f.service.Respond(context.Background(), "Plan a rainy day with my parents", nil)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionDecompose, resp.Routing.Decision)
	assert.False(t, resp.Routing.Fallback)
	assert.Equal(t, "synthesized", resp.Answer)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 1, completer.calls)

	out, err := f.service.Route(context.Background(), "Plan a rainy day with my parents", nil)
	require.NoError(t, err)
	require.Len(t, out.Decomposition, 1)
	assert.Equal(t, "weather_info", out.Decomposition[0].Purpose)
	assert.Equal(t, 3, completer.calls)
}

func TestToolPlanAndRoute(t *testing.T) {
	f := newFixture(t, 0)
	f.router.out = models.RouterOutput{Routing: models.RoutingResult{Decision: models.DecisionDirectRAG}}

	tools, err := f.service.ToolPlan(context.Background(), "What time does Versailles open?")
	require.NoError(t, err)
	assert.Equal(t, "tools", tools.Answer)

	out, err := f.service.Route(context.Background(), "Ticket price?", nil)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionDirectRAG, out.Routing.Decision)

	_, err = f.service.ToolPlan(context.Background(), "")
	assert.Error(t, err)
}

func TestSelectTools(t *testing.T) {
	f := newFixture(t, 0)
	h := plantools.NewHandler(plantools.LoadConfig(), plantools.Tools{}, &countingCompleter{replies: []string{"not json"}}, nil, &planToolsLogger{logger.NewTestLogger(t)})
	f.service.deps.ToolPlanner = h

	result, err := f.service.SelectTools(context.Background(), "Best restaurants near Versailles")
	require.NoError(t, err)
	assert.True(t, result.Selection.Fallback)
	require.Len(t, result.Selection.RequiredTools, 1)
	assert.Equal(t, models.SelectKnowledgeBase, result.Selection.RequiredTools[0].Tool)
	assert.True(t, result.Guidance.SingleTool)

	_, err = f.service.SelectTools(context.Background(), "  ")
	assert.Error(t, err)
}
