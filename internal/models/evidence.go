// internal/models/evidence.go
package models

// Evidence source names.
const (
	SourceOfficialKB  = "official_kb"
	SourceScheduleAPI = "schedule_api"
	SourceWeatherAPI  = "weather_api"
	SourceMapsAPI     = "maps_api"
	SourceFAQKB       = "faq_kb"
	SourceExternalWeb = "external_web"
)

var authorityWeights = map[string]float64{
	SourceOfficialKB:  1.0,
	SourceScheduleAPI: 0.95,
	SourceWeatherAPI:  0.9,
	SourceMapsAPI:     0.9,
	SourceFAQKB:       0.7,
	SourceExternalWeb: 0.5,
}

// AuthorityWeight returns the fixed trust constant for source, 0 when unknown.
func AuthorityWeight(source string) float64 {
	return authorityWeights[source]
}

// AuthorityWeights returns a copy of the weight table.
func AuthorityWeights() map[string]float64 {
	out := make(map[string]float64, len(authorityWeights))
	for k, v := range authorityWeights {
		out[k] = v
	}
	return out
}

// EvidenceChunk is one retrieved snippet.
type EvidenceChunk struct {
	Source          string                 `json:"source"`
	Content         string                 `json:"content"`
	Score           float64                `json:"score"`
	AuthorityWeight float64                `json:"authority_weight"`
	Facet           Facet                  `json:"facet"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// Rank is the ordering key used when choosing which chunks to keep.
func (e EvidenceChunk) Rank() float64 {
	return e.Score * e.AuthorityWeight
}

// PartialAnswer is the per-facet summary built from ranked evidence.
type PartialAnswer struct {
	Facet                Facet           `json:"facet"`
	Answer               string          `json:"answer"`
	EvidenceChunks       []EvidenceChunk `json:"evidence_chunks"`
	Confidence           float64         `json:"confidence"`
	ConstraintsSatisfied []string        `json:"constraints_satisfied"`
}

// FinalAnswer is the terminal artifact returned to callers.
type FinalAnswer struct {
	Answer                  string          `json:"answer"`
	Recommendations         []string        `json:"recommendations"`
	SourceCitations         []string        `json:"source_citations"`
	ConstraintsCheck        map[string]bool `json:"constraints_check"`
	Confidence              float64         `json:"confidence"`
	Reasoning               string          `json:"reasoning"`
	FollowUpQuestions       []string        `json:"follow_up_questions"`
	InformationCompleteness float64         `json:"information_completeness"`
}

// PlannerResult bundles every stage output of one planner run.
type PlannerResult struct {
	Plan             Plan            `json:"plan"`
	PartialAnswers   []PartialAnswer `json:"partial_answers"`
	FinalAnswer      FinalAnswer     `json:"final_answer"`
	ProcessingMethod string          `json:"processing_method"`
}
