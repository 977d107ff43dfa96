package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserConstraints_ToMapOnlyStatedFields(t *testing.T) {
	assert.Empty(t, UserConstraints{}.ToMap())

	c := UserConstraints{
		Duration:           "full day",
		HasChildren:        BoolPtr(true),
		HasElderly:         BoolPtr(false),
		AccessibilityNeeds: []string{"wheelchair"},
	}
	m := c.ToMap()
	assert.Equal(t, []string{"accessibility_needs", "duration", "has_children", "has_elderly"}, SortedKeys(m))
	assert.Equal(t, false, m["has_elderly"])

	m["accessibility_needs"].([]string)[0] = "mutated"
	assert.Equal(t, "wheelchair", c.AccessibilityNeeds[0])
}

func TestInformationGaps_MissingCount(t *testing.T) {
	assert.Equal(t, 0, InformationGaps{}.MissingCount())
	assert.Equal(t, 3, InformationGaps{MissingDate: true, MissingDuration: true, MissingBudget: true}.MissingCount())
}

func TestAuthorityWeight(t *testing.T) {
	assert.Equal(t, 1.0, AuthorityWeight(SourceOfficialKB))
	assert.Equal(t, 0.95, AuthorityWeight(SourceScheduleAPI))
	assert.Equal(t, 0.9, AuthorityWeight(SourceWeatherAPI))
	assert.Equal(t, 0.9, AuthorityWeight(SourceMapsAPI))
	assert.Equal(t, 0.7, AuthorityWeight(SourceFAQKB))
	assert.Equal(t, 0.5, AuthorityWeight(SourceExternalWeb))
	assert.Equal(t, 0.0, AuthorityWeight("blog"))

	copied := AuthorityWeights()
	copied[SourceOfficialKB] = 0
	assert.Equal(t, 1.0, AuthorityWeight(SourceOfficialKB))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.25))
	assert.Equal(t, 1.0, Clamp01(1.2))
	assert.Equal(t, 0.4, Clamp01(0.4))
}
