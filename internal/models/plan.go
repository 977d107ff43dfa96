// internal/models/plan.go
package models

import "sort"

// Facet is a dimension of information need a sub-query targets.
type Facet string

const (
	FacetHistory   Facet = "history"
	FacetPractical Facet = "practical"
	FacetFamily    Facet = "family"
	FacetItinerary Facet = "itinerary"
	FacetWeather   Facet = "weather"
	FacetTickets   Facet = "tickets"
	FacetCultural  Facet = "cultural"
)

// UserProfile is the coarse traveler classification that drives facet selection.
type UserProfile string

const (
	ProfileAccessibilityNeeds UserProfile = "accessibility_needs"
	ProfileFamilyWithKids     UserProfile = "family_with_kids"
	ProfileFamilyWithElderly  UserProfile = "family_with_elderly"
	ProfileElderlyGroup       UserProfile = "elderly_group"
	ProfileCouple             UserProfile = "couple"
	ProfileSoloTraveler       UserProfile = "solo_traveler"
	ProfileGroup              UserProfile = "group"
	ProfileStudent            UserProfile = "student"
)

// Tool names a sub-query may require.
const (
	ToolKnowledgeBase = "knowledge_base"
	ToolSchedule      = "schedule"
	ToolWeather       = "weather"
	ToolPlaces        = "places"
	ToolRoute         = "route"
)

// UserConstraints is extracted once per query and not modified afterwards.
// Nil pointers and empty strings mean "not stated".
type UserConstraints struct {
	Duration           string   `json:"duration,omitempty"`
	Budget             string   `json:"budget,omitempty"`
	GroupSize          *int     `json:"group_size,omitempty"`
	HasChildren        *bool    `json:"has_children,omitempty"`
	HasElderly         *bool    `json:"has_elderly,omitempty"`
	HasDisabilities    *bool    `json:"has_disabilities,omitempty"`
	Season             string   `json:"season,omitempty"`
	Language           string   `json:"language,omitempty"`
	OutdoorPreference  *bool    `json:"outdoor_preference,omitempty"`
	Mobility           string   `json:"mobility,omitempty"`
	AccessibilityNeeds []string `json:"accessibility_needs,omitempty"`
	MedicalConditions  *bool    `json:"medical_conditions,omitempty"`
	RestFrequency      string   `json:"rest_frequency,omitempty"`
	Interests          []string `json:"interests,omitempty"`
}

func BoolPtr(b bool) *bool { return &b }

func IntPtr(i int) *int { return &i }

// IsTrue reports whether an optional flag was set to true.
func IsTrue(b *bool) bool { return b != nil && *b }

// HasAccessibilityNeed reports whether tag was detected.
func (c UserConstraints) HasAccessibilityNeed(tag string) bool {
	for _, n := range c.AccessibilityNeeds {
		if n == tag {
			return true
		}
	}
	return false
}

// ToMap returns only the fields that were stated, keyed by their JSON names.
func (c UserConstraints) ToMap() map[string]interface{} {
	m := make(map[string]interface{})
	if c.Duration != "" {
		m["duration"] = c.Duration
	}
	if c.Budget != "" {
		m["budget"] = c.Budget
	}
	if c.GroupSize != nil {
		m["group_size"] = *c.GroupSize
	}
	if c.HasChildren != nil {
		m["has_children"] = *c.HasChildren
	}
	if c.HasElderly != nil {
		m["has_elderly"] = *c.HasElderly
	}
	if c.HasDisabilities != nil {
		m["has_disabilities"] = *c.HasDisabilities
	}
	if c.Season != "" {
		m["season"] = c.Season
	}
	if c.Language != "" {
		m["language"] = c.Language
	}
	if c.OutdoorPreference != nil {
		m["outdoor_preference"] = *c.OutdoorPreference
	}
	if c.Mobility != "" {
		m["mobility"] = c.Mobility
	}
	if len(c.AccessibilityNeeds) > 0 {
		m["accessibility_needs"] = append([]string(nil), c.AccessibilityNeeds...)
	}
	if c.MedicalConditions != nil {
		m["medical_conditions"] = *c.MedicalConditions
	}
	if c.RestFrequency != "" {
		m["rest_frequency"] = c.RestFrequency
	}
	if len(c.Interests) > 0 {
		m["interests"] = append([]string(nil), c.Interests...)
	}
	return m
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InformationGaps flags the planning fields a query did not mention.
type InformationGaps struct {
	MissingDate             bool     `json:"missing_date"`
	MissingGroupComposition bool     `json:"missing_group_composition"`
	MissingDuration         bool     `json:"missing_duration"`
	MissingBudget           bool     `json:"missing_budget"`
	SuggestedQuestions      []string `json:"suggested_questions"`
}

// MissingCount is the number of missing categories.
func (g InformationGaps) MissingCount() int {
	n := 0
	for _, missing := range []bool{g.MissingDate, g.MissingGroupComposition, g.MissingDuration, g.MissingBudget} {
		if missing {
			n++
		}
	}
	return n
}

// SubQuery is one facet-tagged question produced from the user query.
type SubQuery struct {
	Facet         Facet                  `json:"facet"`
	Query         string                 `json:"query"`
	Priority      float64                `json:"priority"`
	RequiredTools []string               `json:"required_tools"`
	Constraints   map[string]interface{} `json:"constraints"`
}

// RequiresTool reports whether tool is in RequiredTools.
func (s SubQuery) RequiresTool(tool string) bool {
	for _, t := range s.RequiredTools {
		if t == tool {
			return true
		}
	}
	return false
}

// Plan is the output of the planner stage.
type Plan struct {
	Query           string          `json:"query"`
	UserConstraints UserConstraints `json:"user_constraints"`
	UserProfile     UserProfile     `json:"user_profile"`
	SubQueries      []SubQuery      `json:"subqueries"`
	Confidence      float64         `json:"confidence"`
	Reasoning       string          `json:"reasoning"`
	InformationGaps InformationGaps `json:"information_gaps"`
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
