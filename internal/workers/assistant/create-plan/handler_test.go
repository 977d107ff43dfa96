// internal/workers/assistant/create-plan/handler_test.go
package createplan

import (
	"context"
	"errors"
	"testing"
	"time"

	"versailles-assistant/internal/models"

	"github.com/stretchr/testify/assert"
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
func (b *BenchmarkLogger) Error(msg string, fields map[string]interface{}) {}
func (b *BenchmarkLogger) With(fields map[string]interface{}) Logger       { return b }

func createTestConfig() *Config {
	return &Config{
		Timeout:    time.Second,
		MaxRetries: 1,
	}
}

func facets(subqueries []models.SubQuery) []models.Facet {
	out := make([]models.Facet, 0, len(subqueries))
	for _, sq := range subqueries {
		out = append(out, sq.Facet)
	}
	return out
}

func TestExtractConstraints(t *testing.T) {
	tests := []struct {
		name  string
		query string
		check func(t *testing.T, c models.UserConstraints)
	}{
		{
			name:  "family sets children and group size",
			query: "Visiting with my family",
			check: func(t *testing.T, c models.UserConstraints) {
				assert.True(t, models.IsTrue(c.HasChildren))
				require.NotNil(t, c.GroupSize)
				assert.Equal(t, 4, *c.GroupSize)
			},
		},
		{
			name:  "kids without family leaves group size unset",
			query: "Plan a full day visit with my 2 kids and elderly mother",
			check: func(t *testing.T, c models.UserConstraints) {
				assert.True(t, models.IsTrue(c.HasChildren))
				assert.Nil(t, c.GroupSize)
				assert.True(t, models.IsTrue(c.HasElderly))
				assert.Equal(t, "frequent", c.RestFrequency)
				assert.Equal(t, "full day", c.Duration)
			},
		},
		{
			name:  "group",
			query: "school group tour",
			check: func(t *testing.T, c models.UserConstraints) {
				require.NotNil(t, c.GroupSize)
				assert.Equal(t, 6, *c.GroupSize)
				assert.Nil(t, c.HasChildren)
			},
		},
		{
			name:  "wheelchair and blind",
			query: "My father uses a wheelchair and my aunt is blind",
			check: func(t *testing.T, c models.UserConstraints) {
				assert.True(t, models.IsTrue(c.HasDisabilities))
				assert.Equal(t, []string{"wheelchair", "visual_impaired"}, c.AccessibilityNeeds)
				assert.Equal(t, "wheelchair", c.Mobility)
			},
		},
		{
			name:  "walking aid in chinese",
			query: "我的奶奶用拐杖",
			check: func(t *testing.T, c models.UserConstraints) {
				assert.Equal(t, []string{"mobility_aid"}, c.AccessibilityNeeds)
				assert.Equal(t, "limited", c.Mobility)
				assert.Equal(t, "chinese", c.Language)
			},
		},
		{
			name:  "generic accessibility adds no tag",
			query: "Is the palace accessible?",
			check: func(t *testing.T, c models.UserConstraints) {
				assert.True(t, models.IsTrue(c.HasDisabilities))
				assert.Empty(t, c.AccessibilityNeeds)
				assert.Empty(t, c.Mobility)
			},
		},
		{
			name:  "medical condition",
			query: "I have a chronic condition",
			check: func(t *testing.T, c models.UserConstraints) {
				assert.True(t, models.IsTrue(c.MedicalConditions))
				assert.Equal(t, "frequent", c.RestFrequency)
			},
		},
		{
			name:  "moderate rest",
			query: "only short distances please",
			check: func(t *testing.T, c models.UserConstraints) {
				assert.Equal(t, "moderate", c.RestFrequency)
			},
		},
		{
			name:  "hours duration and luxury budget",
			query: "3 hours, premium experience",
			check: func(t *testing.T, c models.UserConstraints) {
				assert.Equal(t, "3 hours", c.Duration)
				assert.Equal(t, "high", c.Budget)
			},
		},
		{
			name:  "interests, season and outdoor preference",
			query: "Cheap summer trip for history and architecture, mostly outdoor",
			check: func(t *testing.T, c models.UserConstraints) {
				assert.Equal(t, "low", c.Budget)
				assert.Equal(t, "summer", c.Season)
				assert.Equal(t, []string{"history", "gardens", "architecture"}, c.Interests)
				assert.True(t, models.IsTrue(c.OutdoorPreference))
			},
		},
		{
			name:  "french season on whole words only",
			query: "Nous voulons visiter en hiver avec la société",
			check: func(t *testing.T, c models.UserConstraints) {
				assert.Equal(t, "winter", c.Season)
				assert.Equal(t, "french", c.Language)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ExtractConstraints(tt.query))
		})
	}
}

func TestExtractConstraints_NoKeywords(t *testing.T) {
	c := ExtractConstraints("xyz")
	assert.Equal(t, models.UserConstraints{}, c)
	assert.Empty(t, c.ToMap())

	plan := CreatePlan("xyz")
	assert.Equal(t, models.ProfileSoloTraveler, plan.UserProfile)
	assert.Len(t, plan.SubQueries, 1)
	assert.Empty(t, plan.SubQueries[0].Constraints)
}

func TestAnalyzeGaps(t *testing.T) {
	gaps := AnalyzeGaps("Tell me about Versailles", models.UserConstraints{})
	assert.True(t, gaps.MissingDate)
	assert.True(t, gaps.MissingGroupComposition)
	assert.True(t, gaps.MissingDuration)
	assert.True(t, gaps.MissingBudget)
	assert.Equal(t, []string{QuestionDate, QuestionGroup, QuestionDuration, QuestionBudget}, gaps.SuggestedQuestions)
	assert.Equal(t, 4, gaps.MissingCount())

	query := "Visit on 12/06 with my family for a full day, what is the price?"
	gaps = AnalyzeGaps(query, ExtractConstraints(query))
	assert.Zero(t, gaps.MissingCount())
	assert.Empty(t, gaps.SuggestedQuestions)

	gaps = AnalyzeGaps("anything", models.UserConstraints{Season: "winter", HasElderly: models.BoolPtr(true)})
	assert.False(t, gaps.MissingDate)
	assert.False(t, gaps.MissingGroupComposition)
	assert.Equal(t, []string{QuestionDuration, QuestionBudget}, gaps.SuggestedQuestions)
}

func TestDetermineProfile(t *testing.T) {
	tests := []struct {
		name string
		c    models.UserConstraints
		want models.UserProfile
	}{
		{"disabilities beat everything", models.UserConstraints{
			HasDisabilities: models.BoolPtr(true), HasChildren: models.BoolPtr(true), HasElderly: models.BoolPtr(true), GroupSize: models.IntPtr(10),
		}, models.ProfileAccessibilityNeeds},
		{"limited mobility", models.UserConstraints{Mobility: "limited"}, models.ProfileAccessibilityNeeds},
		{"children and elderly", models.UserConstraints{HasChildren: models.BoolPtr(true), HasElderly: models.BoolPtr(true)}, models.ProfileFamilyWithElderly},
		{"elderly", models.UserConstraints{HasElderly: models.BoolPtr(true)}, models.ProfileElderlyGroup},
		{"frequent rest", models.UserConstraints{RestFrequency: "frequent"}, models.ProfileElderlyGroup},
		{"children", models.UserConstraints{HasChildren: models.BoolPtr(true), GroupSize: models.IntPtr(6)}, models.ProfileFamilyWithKids},
		{"big group", models.UserConstraints{GroupSize: models.IntPtr(5)}, models.ProfileGroup},
		{"couple", models.UserConstraints{GroupSize: models.IntPtr(2)}, models.ProfileCouple},
		{"student", models.UserConstraints{Budget: "Student rate"}, models.ProfileStudent},
		{"default", models.UserConstraints{GroupSize: models.IntPtr(3)}, models.ProfileSoloTraveler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineProfile(tt.c))
		})
	}
}

func TestGenerateSubQueries(t *testing.T) {
	c := models.UserConstraints{
		HasChildren: models.BoolPtr(true),
		HasElderly:  models.BoolPtr(true),
		GroupSize:   models.IntPtr(4),
		Duration:    "full day",
	}
	subs := GenerateSubQueries("q", models.ProfileFamilyWithElderly, c)

	assert.Equal(t, []models.Facet{
		models.FacetHistory, models.FacetPractical, models.FacetFamily, models.FacetPractical, models.FacetItinerary,
	}, facets(subs))
	assert.Equal(t, "Historical and cultural information about Versailles for family_with_elderly", subs[0].Query)
	assert.Equal(t, []string{models.ToolKnowledgeBase}, subs[0].RequiredTools)
	assert.Equal(t, 0.95, subs[1].Priority)
	assert.Equal(t, []string{models.ToolSchedule, models.ToolKnowledgeBase}, subs[3].RequiredTools)
	assert.Equal(t, []string{models.ToolPlaces, models.ToolKnowledgeBase}, subs[4].RequiredTools)
	assert.Equal(t, 0.7, subs[4].Priority)

	subs[0].Constraints["duration"] = "mutated"
	assert.Equal(t, "full day", subs[1].Constraints["duration"], "each sub-query owns its constraint copy")

	again := GenerateSubQueries("q", models.ProfileFamilyWithElderly, c)
	assert.Equal(t, GenerateSubQueries("q", models.ProfileFamilyWithElderly, c), again)

	for _, sq := range again {
		assert.GreaterOrEqual(t, sq.Priority, 0.0)
		assert.LessOrEqual(t, sq.Priority, 1.0)
	}
}

func TestCreatePlan_FamilyWithElderlyScenario(t *testing.T) {
	plan := CreatePlan("Plan a full day visit with my 2 kids and elderly mother")

	assert.Equal(t, models.ProfileFamilyWithElderly, plan.UserProfile)
	assert.Equal(t, []models.Facet{
		models.FacetHistory, models.FacetPractical, models.FacetFamily, models.FacetPractical,
	}, facets(plan.SubQueries))

	// date and budget are missing
	assert.Equal(t, 2, plan.InformationGaps.MissingCount())
	assert.InDelta(t, (1.0+0.95+0.9+0.8)/4-0.2, plan.Confidence, 1e-9)
	assert.Equal(t, "Identified family_with_elderly profile with 4 faceted sub-queries | Missing 2 key information pieces", plan.Reasoning)
}

func TestCreatePlan_OpeningHoursScenario(t *testing.T) {
	plan := CreatePlan("What time does Versailles open?")

	require.Len(t, plan.SubQueries, 1)
	assert.Equal(t, models.FacetHistory, plan.SubQueries[0].Facet)
	assert.Equal(t, models.ProfileSoloTraveler, plan.UserProfile)
	assert.InDelta(t, 0.6, plan.Confidence, 1e-9)
}

func TestCreatePlan_ConfidenceFloor(t *testing.T) {
	plan := CreatePlan("hello")
	assert.GreaterOrEqual(t, plan.Confidence, 0.0)
	assert.LessOrEqual(t, plan.Confidence, 1.0)
}

func TestHandler_Execute(t *testing.T) {
	handler := NewHandler(createTestConfig(), NewTestLogger(t))

	out, err := handler.Execute(context.Background(), &Input{Query: "Wheelchair access for a couple"})
	require.NoError(t, err)
	assert.Equal(t, models.ProfileAccessibilityNeeds, out.Plan.UserProfile)
	assert.Equal(t, models.FacetPractical, out.Plan.SubQueries[1].Facet)

	_, err = handler.Execute(context.Background(), &Input{Query: "   "})
	assert.True(t, errors.Is(err, ErrEmptyQuery))
}

func BenchmarkCreatePlan(b *testing.B) {
	handler := NewHandler(createTestConfig(), &BenchmarkLogger{})
	input := &Input{Query: "Plan a full day visit with my 2 kids and elderly mother, budget friendly"}
	for i := 0; i < b.N; i++ {
		_, _ = handler.Execute(context.Background(), input)
	}
}
