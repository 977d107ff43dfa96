package createplan

import (
	"strings"
	"unicode"

	"versailles-assistant/internal/models"
)

const (
	QuestionDate     = "📅 Quelle date prévoyez-vous pour votre visite ? (Cela m'aidera à vérifier les horaires et l'affluence)"
	QuestionGroup    = "👥 Combien de personnes vous accompagnent ? Y a-t-il des enfants ou des personnes âgées ?"
	QuestionDuration = "⏰ Combien de temps souhaitez-vous consacrer à votre visite ? (2h, demi-journée, journée complète)"
	QuestionBudget   = "💰 Avez-vous un budget particulier en tête ? (Cela m'aidera à recommander les bonnes options de billets)"
)

var (
	dateIndicators = []string{
		"today", "tomorrow", "next week", "this weekend", "monday", "tuesday", "wednesday",
		"thursday", "friday", "saturday", "sunday", "janvier", "february", "mars", "april",
		"今天", "明天", "下周", "周末", "lundi", "mardi", "mercredi", "jeudi", "vendredi",
	}
	groupIndicators = []string{
		"family", "kids", "children", "elderly", "senior", "group", "couple", "alone", "solo",
		"famille", "enfants", "personnes âgées", "groupe", "seul", "一家人", "孩子", "老人",
	}
	durationIndicators = []string{
		"hour", "day", "morning", "afternoon", "evening", "half day", "full day",
		"heure", "journée", "matin", "après-midi", "soir", "demi-journée", "小时", "天", "上午",
	}
	budgetIndicators = []string{
		"budget", "price", "cost", "expensive", "cheap", "affordable", "luxury", "premium",
		"prix", "coût", "cher", "abordable", "luxe", "économique", "预算", "价格", "便宜",
	}
)

// AnalyzeGaps flags the planning categories the query leaves open and adds
// one clarifying question per missing category, in a fixed order.
func AnalyzeGaps(query string, c models.UserConstraints) models.InformationGaps {
	gaps := models.InformationGaps{SuggestedQuestions: []string{}}
	q := strings.ToLower(query)

	hasDate := c.Season != "" || containsAny(q, dateIndicators...) || looksLikeDate(query)
	if !hasDate {
		gaps.MissingDate = true
		gaps.SuggestedQuestions = append(gaps.SuggestedQuestions, QuestionDate)
	}

	hasGroup := c.GroupSize != nil || c.HasChildren != nil || c.HasElderly != nil || containsAny(q, groupIndicators...)
	if !hasGroup {
		gaps.MissingGroupComposition = true
		gaps.SuggestedQuestions = append(gaps.SuggestedQuestions, QuestionGroup)
	}

	if c.Duration == "" && !containsAny(q, durationIndicators...) {
		gaps.MissingDuration = true
		gaps.SuggestedQuestions = append(gaps.SuggestedQuestions, QuestionDuration)
	}

	if c.Budget == "" && !containsAny(q, budgetIndicators...) {
		gaps.MissingBudget = true
		gaps.SuggestedQuestions = append(gaps.SuggestedQuestions, QuestionBudget)
	}

	return gaps
}

// looksLikeDate accepts any query with a digit and a date separator.
func looksLikeDate(query string) bool {
	if !strings.ContainsAny(query, "/-") {
		return false
	}
	return strings.IndexFunc(query, unicode.IsDigit) >= 0
}
