// internal/models/routing.go
package models

// RouteDecision is the strategy the router picks for a query.
type RouteDecision string

const (
	DecisionDirectRAG RouteDecision = "DIRECT_RAG"
	DecisionDecompose RouteDecision = "DECOMPOSE"
	DecisionClarify   RouteDecision = "CLARIFY"
)

type QueryComplexity string

const (
	ComplexitySimple   QueryComplexity = "simple"
	ComplexityModerate QueryComplexity = "moderate"
	ComplexityComplex  QueryComplexity = "complex"
)

// RoutingResult is the validated output of the routing call.
type RoutingResult struct {
	Decision               RouteDecision   `json:"decision"`
	Complexity             QueryComplexity `json:"complexity"`
	Reasoning              string          `json:"reasoning"`
	Confidence             float64         `json:"confidence"`
	DirectQuery            string          `json:"direct_query,omitempty"`
	ClarificationQuestions []string        `json:"clarification_questions,omitempty"`
	Fallback               bool            `json:"fallback,omitempty"`
}

// DecomposedQuery is one LLM-proposed sub-query. Dependencies are informational
// and do not affect execution order.
type DecomposedQuery struct {
	Query           string   `json:"query"`
	Purpose         string   `json:"purpose"`
	Priority        float64  `json:"priority"`
	Dependencies    []string `json:"dependencies"`
	RequiredSources []string `json:"required_sources"`
	ExpectedInfo    string   `json:"expected_info"`
}

// RouterOutput is what Process returns.
type RouterOutput struct {
	Routing       RoutingResult     `json:"routing"`
	Decomposition []DecomposedQuery `json:"decomposition,omitempty"`
}
