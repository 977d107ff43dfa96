package createplan

import (
	"regexp"
	"strings"
	"unicode"

	"versailles-assistant/internal/models"
)

var (
	elderlyKeywords       = []string{"elderly", "senior", "seniors", "老人", "老年人", "grandparents", "grandmother", "grandfather"}
	wheelchairKeywords    = []string{"wheelchair", "轮椅", "fauteuil roulant", "mobility scooter", "rollator"}
	walkingAidKeywords    = []string{"walker", "walking stick", "cane", "拐杖", "助行器", "canne"}
	visualKeywords        = []string{"blind", "visually impaired", "vision", "sight", "盲人", "视力", "malvoyant", "aveugle"}
	hearingKeywords       = []string{"deaf", "hearing impaired", "hearing aid", "聋人", "听力", "sourd", "malentendant"}
	cognitiveKeywords     = []string{"autism", "dementia", "alzheimer", "cognitive", "mental health", "自闭症", "痴呆"}
	accessibilityKeywords = []string{"accessibility", "accessible", "disabled", "disability", "handicap", "无障碍", "残疾"}
	medicalKeywords       = []string{"medical condition", "health condition", "chronic", "medication", "疾病", "慢性病"}
	frequentRestKeywords  = []string{"tired easily", "frequent breaks", "rest often", "容易疲劳"}
	moderateRestKeywords  = []string{"limited walking", "short distances", "步行困难"}
	outdoorKeywords       = []string{"outdoor", "outside", "plein air", "en extérieur"}

	// Seasons are matched on whole words; "été" would otherwise match "société".
	seasonWords = []struct {
		word   string
		season string
	}{
		{"spring", "spring"},
		{"summer", "summer"},
		{"autumn", "autumn"},
		{"fall", "autumn"},
		{"winter", "winter"},
		{"printemps", "spring"},
		{"été", "summer"},
		{"automne", "autumn"},
		{"hiver", "winter"},
	}

	frenchMarkers = map[string]bool{
		"bonjour": true, "visite": true, "visiter": true, "château": true, "jardins": true,
		"combien": true, "quel": true, "quelle": true, "nous": true, "avec": true,
		"enfants": true, "famille": true, "demain": true, "aujourd": true, "je": true,
	}

	hoursPattern = regexp.MustCompile(`(\d+)\s*hours?`)
	wordPattern  = regexp.MustCompile(`[\p{L}']+`)
)

// ExtractConstraints derives visitor constraints from keyword matches. It is
// deterministic and leaves every field unset when nothing matches.
func ExtractConstraints(query string) models.UserConstraints {
	var c models.UserConstraints
	q := strings.ToLower(query)
	words := wordSet(q)

	switch {
	case containsAny(q, "family", "families"):
		c.HasChildren = models.BoolPtr(true)
		c.GroupSize = models.IntPtr(4)
	case containsAny(q, "kids", "children"):
		c.HasChildren = models.BoolPtr(true)
	case strings.Contains(q, "group"):
		c.GroupSize = models.IntPtr(6)
	}

	if containsAny(q, elderlyKeywords...) {
		c.HasElderly = models.BoolPtr(true)
		c.RestFrequency = "frequent"
	}

	if containsAny(q, wheelchairKeywords...) {
		c.HasDisabilities = models.BoolPtr(true)
		c.AccessibilityNeeds = append(c.AccessibilityNeeds, "wheelchair")
		c.Mobility = "wheelchair"
	}
	if containsAny(q, walkingAidKeywords...) {
		c.HasDisabilities = models.BoolPtr(true)
		c.AccessibilityNeeds = append(c.AccessibilityNeeds, "mobility_aid")
		c.Mobility = "limited"
	}
	if containsAny(q, visualKeywords...) {
		c.HasDisabilities = models.BoolPtr(true)
		c.AccessibilityNeeds = append(c.AccessibilityNeeds, "visual_impaired")
	}
	if containsAny(q, hearingKeywords...) {
		c.HasDisabilities = models.BoolPtr(true)
		c.AccessibilityNeeds = append(c.AccessibilityNeeds, "hearing_impaired")
	}
	if containsAny(q, cognitiveKeywords...) {
		c.HasDisabilities = models.BoolPtr(true)
		c.AccessibilityNeeds = append(c.AccessibilityNeeds, "cognitive")
	}
	if containsAny(q, accessibilityKeywords...) {
		c.HasDisabilities = models.BoolPtr(true)
	}

	if containsAny(q, medicalKeywords...) {
		c.MedicalConditions = models.BoolPtr(true)
		c.RestFrequency = "frequent"
	}

	if containsAny(q, frequentRestKeywords...) {
		c.RestFrequency = "frequent"
	} else if containsAny(q, moderateRestKeywords...) {
		c.RestFrequency = "moderate"
	}

	switch {
	case containsAny(q, "half day", "morning"):
		c.Duration = "half day"
	case containsAny(q, "full day", "whole day"):
		c.Duration = "full day"
	default:
		if m := hoursPattern.FindStringSubmatch(q); m != nil {
			c.Duration = m[1] + " hours"
		}
	}

	switch {
	case containsAny(q, "budget", "cheap", "affordable"):
		c.Budget = "low"
	case containsAny(q, "luxury", "premium"):
		c.Budget = "high"
	}

	if containsAny(q, "history", "historical") {
		c.Interests = append(c.Interests, "history")
	}
	if containsAny(q, "art", "artistic") {
		c.Interests = append(c.Interests, "art")
	}
	if containsAny(q, "garden", "outdoor") {
		c.Interests = append(c.Interests, "gardens")
	}
	if strings.Contains(q, "architecture") {
		c.Interests = append(c.Interests, "architecture")
	}

	for _, s := range seasonWords {
		if words[s.word] {
			c.Season = s.season
			break
		}
	}

	if containsAny(q, outdoorKeywords...) {
		c.OutdoorPreference = models.BoolPtr(true)
	}

	c.Language = detectLanguage(query, words)
	return c
}

func detectLanguage(query string, words map[string]bool) string {
	for _, r := range query {
		if unicode.Is(unicode.Han, r) {
			return "chinese"
		}
	}
	for w := range words {
		if frenchMarkers[w] {
			return "french"
		}
	}
	return ""
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(s, -1) {
		set[strings.Trim(w, "'")] = true
		// "aujourd'hui" is also recognised by its stem.
		if i := strings.IndexByte(w, '\''); i > 0 {
			set[w[:i]] = true
		}
	}
	return set
}
