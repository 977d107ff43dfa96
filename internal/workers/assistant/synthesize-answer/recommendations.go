// internal/workers/assistant/synthesize-answer/recommendations.go
package synthesizeanswer

import "versailles-assistant/internal/models"

// Recommendations applies the fixed rule table to the plan's profile and
// constraints. Rules are evaluated in order and each adds its lines.
func Recommendations(plan models.Plan) []string {
	c := plan.UserConstraints
	recs := []string{}

	if plan.UserProfile == models.ProfileAccessibilityNeeds {
		recs = append(recs,
			"🦽 Use the main entrance with elevator access - avoid stairs at secondary entrances",
			"🚻 Accessible restrooms are located on the ground floor near the Hall of Mirrors",
			"🎧 Request audio guides with tactile maps at the information desk",
		)
		if c.HasAccessibilityNeed("wheelchair") {
			recs = append(recs, "♿ Wheelchair rental available at entrance - reserve in advance")
		}
		if c.HasAccessibilityNeed("visual_impaired") {
			recs = append(recs, "👁️ Tactile tours available on request - contact accessibility services")
		}
	}

	switch plan.UserProfile {
	case models.ProfileElderlyGroup, models.ProfileFamilyWithElderly:
		recs = append(recs,
			"🪑 Take advantage of seating areas in the State Apartments",
			"🚌 Consider the petit train (small train) for garden tours to reduce walking",
			"☕ Plan rest stops at the café near the Grand Trianon",
		)
		if c.RestFrequency == "frequent" {
			recs = append(recs, "⏰ Plan for 15-minute breaks every hour")
		}
	}

	switch plan.UserProfile {
	case models.ProfileFamilyWithKids, models.ProfileFamilyWithElderly:
		recs = append(recs,
			"🏰 Visit the Queen's Hamlet - engaging for all ages",
			"🎒 Bring snacks and water - limited food options inside",
		)
	}

	switch c.Duration {
	case "half day":
		recs = append(recs, "⏱️ Focus on the main palace and Hall of Mirrors for a half-day visit")
	case "full day":
		recs = append(recs, "🌳 Include the gardens and Trianon palaces for a full-day experience")
	}

	if c.Budget == "low" {
		recs = append(recs,
			"💰 Gardens are free on weekdays (Nov-Mar) - great budget option",
			"🎫 Consider the basic Palace ticket instead of the Passport",
		)
	}

	if models.IsTrue(c.OutdoorPreference) {
		recs = append(recs,
			"🌺 Spend time in the magnificent gardens and park",
			"🚴 Bike rentals available for exploring the vast grounds",
		)
	}

	return recs
}
