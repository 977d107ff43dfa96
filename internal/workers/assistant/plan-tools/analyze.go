// internal/workers/assistant/plan-tools/analyze.go
package plantools

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"versailles-assistant/internal/models"
)

type typePatterns struct {
	queryType models.QueryType
	tools     []string
	patterns  []*regexp.Regexp
}

// classifiers are evaluated in this order; ties go to the earlier type.
var classifiers = []typePatterns{
	{
		queryType: models.QueryTypeLocationSearch,
		tools:     []string{models.ToolPlaces},
		patterns: compile(
			`où\s+(?:se trouve|est|est-ce que je peux trouver)`,
			`where\s+(?:is|can i find|to find)`,
			`location\s+of`,
			`address\s+of`,
			`find\s+(?:the\s+)?(?:location|place|building)`,
			`chercher\s+(?:le\s+lieu|l'endroit|la\s+place)`,
		),
	},
	{
		queryType: models.QueryTypeRoutePlanning,
		tools:     []string{models.ToolPlaces, models.ToolRoute},
		patterns: compile(
			`comment\s+(?:aller|me rendre|y aller)`,
			`how\s+(?:to get|do i get|can i go)`,
			`route\s+(?:from|to|between)`,
			`chemin\s+(?:vers|de|entre)`,
			`itinéraire\s+(?:pour|vers|de)`,
			`plan\s+(?:a\s+)?(?:route|path|walk)`,
			`walking\s+(?:route|path|directions)`,
		),
	},
	{
		queryType: models.QueryTypeWeatherInquiry,
		tools:     []string{models.ToolWeather},
		patterns: compile(
			`météo|weather|temps\s+(?:qu'il fait|aujourd'hui|demain)`,
			`(?:will it|va-t-il)\s+(?:rain|pleuvoir)`,
			`temperature|température`,
			`forecast|prévisions`,
			`sunny|cloudy|rainy|ensoleillé|nuageux|pluvieux`,
		),
	},
	{
		queryType: models.QueryTypeScheduleCheck,
		tools:     []string{models.ToolSchedule},
		patterns: compile(
			`(?:heures?\s+d')?ouverture|opening\s+(?:hours?|times?)`,
			`(?:quand|when)\s+(?:est-ce que|does|do)\s+(?:c'est\s+)?ouvert`,
			`(?:what\s+time|when)\b.*\bopen`,
			`fermé|closed|fermeture`,
			`horaires?|schedule|timetable`,
			`combien\s+de\s+(?:visiteurs|monde|personnes)`,
			`(?:visitor|attendance)\s+(?:numbers?|count)`,
		),
	},
}

var (
	todayPattern    = regexp.MustCompile(`aujourd'hui|today`)
	tomorrowPattern = regexp.MustCompile(`demain|tomorrow`)
	dmyPattern      = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})`)
	ymdPattern      = regexp.MustCompile(`(\d{4})[/\-](\d{1,2})[/\-](\d{1,2})`)

	daysPattern = regexp.MustCompile(`(\d+)\s+(?:jours?|days?)`)
	weekPattern = regexp.MustCompile(`cette\s+semaine|this\s+week|week-?end`)
)

var knownPlaces = []string{
	"galerie des glaces",
	"hall of mirrors",
	"miroir",
	"petit trianon",
	"grand trianon",
	"hameau de la reine",
	"marie antoinette",
	"hamlet",
	"jardins",
	"gardens",
	"parc",
	"château",
	"palace",
	"palais",
	"écuries",
	"stables",
	"orangerie",
	"bosquets",
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

type typeScore struct {
	queryType models.QueryType
	score     float64
}

// Analyze classifies the query, picks the tools it needs and extracts dates,
// places and forecast length. knowledge_base is always the last tool.
func Analyze(query string, now time.Time) models.QueryAnalysis {
	lower := strings.ToLower(query)

	var scores []typeScore
	var primary *typePatterns
	best := 0.0
	for i := range classifiers {
		c := &classifiers[i]
		matched := 0
		for _, p := range c.patterns {
			if p.MatchString(lower) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := float64(matched) / float64(len(c.patterns))
		scores = append(scores, typeScore{queryType: c.queryType, score: score})
		if score > best {
			best = score
			primary = c
		}
	}

	analysis := models.QueryAnalysis{
		QueryType:         models.QueryTypePureKnowledge,
		Confidence:        1.0,
		ExtractedEntities: ExtractEntities(query, now),
	}

	var tools []string
	if primary != nil {
		analysis.QueryType = primary.queryType
		analysis.Confidence = best
		tools = appendUnique(tools, primary.tools...)

		high := 0
		for _, s := range scores {
			if s.score > 0.3 {
				high++
			}
		}
		if high > 1 {
			analysis.QueryType = models.QueryTypeMixedQuery
			for _, s := range scores {
				if s.score > 0.3 {
					tools = appendUnique(tools, classifierFor(s.queryType).tools...)
				}
			}
		}
	}
	analysis.RequiredTools = appendUnique(tools, models.ToolKnowledgeBase)
	analysis.Reasoning = reasoning(analysis.QueryType, scores, analysis.ExtractedEntities)
	return analysis
}

// ExtractEntities finds the visit date, known Versailles places and the
// forecast horizon mentioned in the query.
func ExtractEntities(query string, now time.Time) map[string]interface{} {
	lower := strings.ToLower(query)
	entities := make(map[string]interface{})

	switch {
	case todayPattern.MatchString(lower):
		entities["date"] = now.Format("2006-01-02")
	case tomorrowPattern.MatchString(lower):
		entities["date"] = now.AddDate(0, 0, 1).Format("2006-01-02")
	default:
		if m := dmyPattern.FindStringSubmatch(lower); m != nil {
			entities["date"] = formatDate(m[3], m[2], m[1])
		} else if m := ymdPattern.FindStringSubmatch(lower); m != nil {
			entities["date"] = formatDate(m[1], m[2], m[3])
		}
	}

	var places []string
	for _, p := range knownPlaces {
		if strings.Contains(lower, p) {
			places = append(places, p)
		}
	}
	if len(places) > 0 {
		entities["places"] = places
	}

	if m := daysPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			entities["weather_days"] = n
		}
	} else if weekPattern.MatchString(lower) {
		entities["weather_days"] = 7
	}

	return entities
}

func formatDate(year, month, day string) string {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%s-%02d-%02d", year, m, d)
}

func classifierFor(t models.QueryType) *typePatterns {
	for i := range classifiers {
		if classifiers[i].queryType == t {
			return &classifiers[i]
		}
	}
	return nil
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}

func reasoning(t models.QueryType, scores []typeScore, entities map[string]interface{}) string {
	parts := []string{fmt.Sprintf("Query classified as: %s", t)}

	if len(scores) > 0 {
		sorted := make([]typeScore, len(scores))
		copy(sorted, scores)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].score > sorted[j].score })
		if len(sorted) > 3 {
			sorted = sorted[:3]
		}
		formatted := make([]string, 0, len(sorted))
		for _, s := range sorted {
			formatted = append(formatted, fmt.Sprintf("%s: %.2f", s.queryType, s.score))
		}
		parts = append(parts, "Confidence scores: "+strings.Join(formatted, ", "))
	}

	if len(entities) > 0 {
		if raw, err := json.Marshal(entities); err == nil {
			parts = append(parts, "Extracted entities: "+string(raw))
		}
	}

	return strings.Join(parts, " | ")
}
