// internal/workers/assistant/retrieve-evidence/handler_test.go
package retrieveevidence

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"versailles-assistant/internal/common/google"
	"versailles-assistant/internal/common/knowledge"
	"versailles-assistant/internal/common/schedule"
	"versailles-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, fields: merged}
}

// BenchmarkLogger is a minimal logger for benchmarks
type BenchmarkLogger struct{}

func (b *BenchmarkLogger) Info(msg string, fields map[string]interface{})  {}
func (b *BenchmarkLogger) Warn(msg string, fields map[string]interface{})  {}
func (b *BenchmarkLogger) Error(msg string, fields map[string]interface{}) {}
func (b *BenchmarkLogger) With(fields map[string]interface{}) Logger       { return b }

// ==========================
// Mock Sources
// ==========================

type MockKnowledge struct{ mock.Mock }

func (m *MockKnowledge) Ask(ctx context.Context, question string) (knowledge.Answer, error) {
	args := m.Called(ctx, question)
	return args.Get(0).(knowledge.Answer), args.Error(1)
}

type MockWeather struct{ mock.Mock }

func (m *MockWeather) Forecast(ctx context.Context, days int) (google.Forecast, error) {
	args := m.Called(ctx, days)
	return args.Get(0).(google.Forecast), args.Error(1)
}

type MockPlaces struct{ mock.Mock }

func (m *MockPlaces) SearchPlace(ctx context.Context, query string) (google.Place, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(google.Place), args.Error(1)
}

type MockSchedule struct{ mock.Mock }

func (m *MockSchedule) Fetch(ctx context.Context, date string) (schedule.Day, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(schedule.Day), args.Error(1)
}

func createTestConfig() *Config {
	return &Config{
		Timeout:             time.Second,
		DefaultForecastDays: 3,
		DefaultPlace:        "Château de Versailles",
	}
}

func fixedClock() time.Time {
	return time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
}

func sources(chunks []models.EvidenceChunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Source)
	}
	return out
}

func TestRetrieveEvidence_WeatherUsesDaysConstraint(t *testing.T) {
	kb := new(MockKnowledge)
	weather := new(MockWeather)
	kb.On("Ask", mock.Anything, "Will it rain?").Return(knowledge.Answer{Text: "Gardens close in heavy storms."}, nil)
	weather.On("Forecast", mock.Anything, 5).Return(google.Forecast{Days: 5, Summary: []string{"2025-06-14: Sunny, 14-25°C, rain 10%"}}, nil)

	h := NewHandler(createTestConfig(), Sources{Knowledge: kb, Weather: weather}, NewTestLogger(t))
	chunks := h.RetrieveEvidence(context.Background(), models.SubQuery{
		Facet:       models.FacetWeather,
		Query:       "Will it rain?",
		Constraints: map[string]interface{}{"days": float64(5)},
	})

	require.Len(t, chunks, 2)
	assert.Equal(t, []string{models.SourceWeatherAPI, models.SourceOfficialKB}, sources(chunks))
	assert.InDelta(t, 0.9, chunks[0].Score, 1e-9)
	assert.Equal(t, 5, chunks[0].Metadata["days"])
	assert.Equal(t, "google_weather", chunks[0].Metadata["api"])
	assert.InDelta(t, 1.0, chunks[1].Score, 1e-9)
	assert.Equal(t, models.AuthorityWeight(models.SourceOfficialKB), chunks[1].AuthorityWeight)
	kb.AssertExpectations(t)
	weather.AssertExpectations(t)
}

func TestRetrieveEvidence_WeatherDefaultsToThreeDays(t *testing.T) {
	weather := new(MockWeather)
	weather.On("Forecast", mock.Anything, 3).Return(google.Forecast{Days: 3, Summary: []string{"x"}}, nil)

	h := NewHandler(createTestConfig(), Sources{Weather: weather}, NewTestLogger(t))
	chunks := h.RetrieveEvidence(context.Background(), models.SubQuery{Facet: models.FacetWeather, Query: "weather"})

	// knowledge base is not configured, so only the weather chunk remains
	require.Len(t, chunks, 1)
	weather.AssertExpectations(t)
}

func TestRetrieveEvidence_ItineraryRequiresPlacesTool(t *testing.T) {
	places := new(MockPlaces)
	places.On("SearchPlace", mock.Anything, "Château de Versailles").
		Return(google.Place{ID: "p1", Name: "Château de Versailles", Address: "Place d'Armes"}, nil).Once()

	h := NewHandler(createTestConfig(), Sources{Places: places}, NewTestLogger(t))

	without := h.RetrieveEvidence(context.Background(), models.SubQuery{Facet: models.FacetItinerary, Query: "route"})
	assert.Empty(t, without)

	with := h.RetrieveEvidence(context.Background(), models.SubQuery{
		Facet:         models.FacetItinerary,
		Query:         "route",
		RequiredTools: []string{models.ToolPlaces},
	})
	require.Len(t, with, 1)
	assert.Equal(t, models.SourceMapsAPI, with[0].Source)
	assert.InDelta(t, 0.8, with[0].Score, 1e-9)
	assert.Contains(t, with[0].Content, "Château de Versailles")
	places.AssertExpectations(t)
}

func TestRetrieveEvidence_PracticalUsesToday(t *testing.T) {
	sched := new(MockSchedule)
	sched.On("Fetch", mock.Anything, "2025-06-14").Return(schedule.Day{
		Date:   "2025-06-14",
		Venues: []schedule.Venue{{Name: "Château", Hours: "9:00 - 18:30"}},
	}, nil)

	h := NewHandler(createTestConfig(), Sources{Schedule: sched}, NewTestLogger(t)).WithClock(fixedClock)
	chunks := h.RetrieveEvidence(context.Background(), models.SubQuery{Facet: models.FacetPractical, Query: "hours"})

	require.Len(t, chunks, 1)
	assert.Equal(t, models.SourceScheduleAPI, chunks[0].Source)
	assert.InDelta(t, 0.95, chunks[0].Score, 1e-9)
	assert.Equal(t, "2025-06-14", chunks[0].Metadata["date"])
	assert.Contains(t, chunks[0].Content, "9:00 - 18:30")
	sched.AssertExpectations(t)
}

func TestRetrieveEvidence_SourceFailuresAreSwallowed(t *testing.T) {
	kb := new(MockKnowledge)
	sched := new(MockSchedule)
	kb.On("Ask", mock.Anything, mock.Anything).Return(knowledge.Answer{}, errors.New("es down"))
	sched.On("Fetch", mock.Anything, mock.Anything).Return(schedule.Day{}, schedule.ErrFetchFailed)

	h := NewHandler(createTestConfig(), Sources{Knowledge: kb, Schedule: sched}, NewTestLogger(t)).WithClock(fixedClock)
	chunks := h.RetrieveEvidence(context.Background(), models.SubQuery{Facet: models.FacetPractical, Query: "hours"})
	assert.Empty(t, chunks)

	partial := GeneratePartialAnswer(models.SubQuery{Facet: models.FacetPractical}, chunks)
	assert.Equal(t, NoInformationAnswer, partial.Answer)
	assert.Zero(t, partial.Confidence)
	assert.Empty(t, partial.EvidenceChunks)
}

func TestRetrieveEvidence_EmptyContentYieldsNoChunk(t *testing.T) {
	kb := new(MockKnowledge)
	kb.On("Ask", mock.Anything, mock.Anything).Return(knowledge.Answer{Text: "   "}, nil)

	h := NewHandler(createTestConfig(), Sources{Knowledge: kb}, NewTestLogger(t))
	assert.Empty(t, h.RetrieveEvidence(context.Background(), models.SubQuery{Facet: models.FacetHistory, Query: "x"}))
}

func TestRetrieveEvidence_KnowledgeNotFoundYieldsNoChunk(t *testing.T) {
	kb := new(MockKnowledge)
	kb.On("Ask", mock.Anything, "Who painted the ceiling?").Return(knowledge.Answer{
		Question: "Who painted the ceiling?",
		Text:     "I could not find relevant information in the Versailles knowledge base to answer this question.",
		NotFound: true,
	}, nil)

	h := NewHandler(createTestConfig(), Sources{Knowledge: kb}, NewTestLogger(t))
	chunks := h.RetrieveEvidence(context.Background(), models.SubQuery{Facet: models.FacetHistory, Query: "Who painted the ceiling?"})

	assert.Empty(t, chunks)
	partial := GeneratePartialAnswer(models.SubQuery{Facet: models.FacetHistory}, chunks)
	assert.Equal(t, NoInformationAnswer, partial.Answer)
	assert.Zero(t, partial.Confidence)
	kb.AssertExpectations(t)
}

func TestGeneratePartialAnswer(t *testing.T) {
	long := strings.Repeat("é", 250)
	chunks := []models.EvidenceChunk{
		{Source: models.SourceExternalWeb, Content: "web", Score: 0.9, AuthorityWeight: models.AuthorityWeight(models.SourceExternalWeb)},
		{Source: models.SourceOfficialKB, Content: long, Score: 1.0, AuthorityWeight: models.AuthorityWeight(models.SourceOfficialKB)},
		{Source: models.SourceScheduleAPI, Content: "open", Score: 0.95, AuthorityWeight: models.AuthorityWeight(models.SourceScheduleAPI)},
		{Source: models.SourceWeatherAPI, Content: "sunny", Score: 0.9, AuthorityWeight: models.AuthorityWeight(models.SourceWeatherAPI)},
	}
	sq := models.SubQuery{
		Facet:       models.FacetPractical,
		Constraints: map[string]interface{}{"duration": "half day", "budget": "low"},
	}

	partial := GeneratePartialAnswer(sq, chunks)

	assert.Equal(t, models.FacetPractical, partial.Facet)
	assert.True(t, strings.HasPrefix(partial.Answer, "Based on practical information: "+strings.Repeat("é", 200)+"..."))
	assert.True(t, strings.HasSuffix(partial.Answer, "..."))
	assert.NotContains(t, partial.Answer, "web")
	assert.Equal(t, models.SourceOfficialKB, partial.EvidenceChunks[0].Source)
	assert.Len(t, partial.EvidenceChunks, 4)
	assert.InDelta(t, (0.9+1.0+0.95+0.9)/4, partial.Confidence, 1e-9)
	assert.Equal(t, []string{"budget", "duration"}, partial.ConstraintsSatisfied)

	// input order is untouched
	assert.Equal(t, models.SourceExternalWeb, chunks[0].Source)
}

func TestGeneratePartialAnswer_StableOnTies(t *testing.T) {
	chunks := []models.EvidenceChunk{
		{Source: "a", Content: "first", Score: 0.5, AuthorityWeight: 1},
		{Source: "b", Content: "second", Score: 0.5, AuthorityWeight: 1},
	}
	partial := GeneratePartialAnswer(models.SubQuery{Facet: models.FacetHistory}, chunks)
	assert.Equal(t, "Based on history information: first...\nsecond......", partial.Answer)
}

func TestHandler_Execute(t *testing.T) {
	kb := new(MockKnowledge)
	kb.On("Ask", mock.Anything, "History of the Hall of Mirrors").
		Return(knowledge.Answer{Text: "Built between 1678 and 1684."}, nil)

	h := NewHandler(createTestConfig(), Sources{Knowledge: kb}, NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{SubQuery: models.SubQuery{
		Facet: models.FacetHistory,
		Query: "History of the Hall of Mirrors",
	}})
	require.NoError(t, err)
	assert.Equal(t, "Based on history information: Built between 1678 and 1684.......", out.PartialAnswer.Answer)
	assert.InDelta(t, 1.0, out.PartialAnswer.Confidence, 1e-9)

	_, err = h.Execute(context.Background(), &Input{})
	assert.Error(t, err)
}

func BenchmarkGeneratePartialAnswer(b *testing.B) {
	chunks := []models.EvidenceChunk{
		{Source: models.SourceOfficialKB, Content: strings.Repeat("x", 400), Score: 1, AuthorityWeight: 1},
		{Source: models.SourceScheduleAPI, Content: strings.Repeat("y", 400), Score: 0.95, AuthorityWeight: 0.95},
	}
	sq := models.SubQuery{Facet: models.FacetPractical}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GeneratePartialAnswer(sq, chunks)
	}
}
