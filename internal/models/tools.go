// internal/models/tools.go
package models

// QueryType classifies a query for the tool planner.
type QueryType string

const (
	QueryTypePureKnowledge  QueryType = "pure_knowledge"
	QueryTypeLocationSearch QueryType = "location_search"
	QueryTypeRoutePlanning  QueryType = "route_planning"
	QueryTypeWeatherInquiry QueryType = "weather_inquiry"
	QueryTypeScheduleCheck  QueryType = "schedule_check"
	QueryTypeMixedQuery     QueryType = "mixed_query"
)

// QueryAnalysis is the tool planner's classification of one query.
type QueryAnalysis struct {
	QueryType         QueryType              `json:"query_type"`
	Confidence        float64                `json:"confidence"`
	RequiredTools     []string               `json:"required_tools"`
	ExtractedEntities map[string]interface{} `json:"extracted_entities"`
	Reasoning         string                 `json:"reasoning"`
}

// ToolResult is the outcome of one tool call. Failures are data, not errors.
type ToolResult struct {
	ToolName string `json:"tool_name"`
	Success  bool   `json:"success"`
	Data     string `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ToolPlanResult bundles a tool-planner run.
type ToolPlanResult struct {
	Analysis    QueryAnalysis `json:"analysis"`
	ToolResults []ToolResult  `json:"tool_results"`
	Answer      string        `json:"answer"`
}

// Tools the LLM tool selector may name.
const (
	SelectKnowledgeBase   = "knowledge_base"
	SelectGoogleMaps      = "google_maps"
	SelectGoogleWeather   = "google_weather"
	SelectScheduleAPI     = "schedule_api"
	SelectRestaurantAPI   = "restaurant_api"
	SelectHotelAPI        = "hotel_api"
	SelectAccessibilityKB = "accessibility_kb"

	ExecutionSequential = "sequential"
	ExecutionParallel   = "parallel"
)

// ToolRequirement is one tool the selector asked for.
type ToolRequirement struct {
	Tool           string  `json:"tool"`
	Purpose        string  `json:"purpose"`
	Priority       float64 `json:"priority"`
	QueryForTool   string  `json:"query_for_tool"`
	ExpectedOutput string  `json:"expected_output"`
}

// ToolSelection is the LLM's choice of tools for a query.
type ToolSelection struct {
	RequiredTools     []ToolRequirement `json:"required_tools"`
	CanAnswerDirectly bool              `json:"can_answer_directly"`
	NeedsSynthesis    bool              `json:"needs_synthesis"`
	Reasoning         string            `json:"reasoning"`
	Confidence        float64           `json:"confidence"`
	ExecutionPlan     string            `json:"execution_plan"`
	Fallback          bool              `json:"fallback"`
}

// ExecutionGuidance summarises how a selection should be run.
type ExecutionGuidance struct {
	SingleTool        bool    `json:"single_tool"`
	ParallelExecution bool    `json:"parallel_execution"`
	NeedsLLMSynthesis bool    `json:"needs_llm_synthesis"`
	EstimatedSeconds  float64 `json:"estimated_time"`
}

type ToolSelectionResult struct {
	Selection ToolSelection     `json:"selection"`
	Guidance  ExecutionGuidance `json:"guidance"`
}
