package createplan

import (
	"strings"

	"versailles-assistant/internal/models"
)

// DetermineProfile picks the first matching profile. Accessibility needs take
// precedence over every other signal.
func DetermineProfile(c models.UserConstraints) models.UserProfile {
	switch {
	case models.IsTrue(c.HasDisabilities) || c.Mobility == "wheelchair" || c.Mobility == "limited":
		return models.ProfileAccessibilityNeeds
	case models.IsTrue(c.HasChildren) && models.IsTrue(c.HasElderly):
		return models.ProfileFamilyWithElderly
	case models.IsTrue(c.HasElderly) || c.RestFrequency == "frequent":
		return models.ProfileElderlyGroup
	case models.IsTrue(c.HasChildren):
		return models.ProfileFamilyWithKids
	case c.GroupSize != nil && *c.GroupSize > 4:
		return models.ProfileGroup
	case c.GroupSize != nil && *c.GroupSize == 2:
		return models.ProfileCouple
	case strings.Contains(strings.ToLower(c.Budget), "student"):
		return models.ProfileStudent
	default:
		return models.ProfileSoloTraveler
	}
}
