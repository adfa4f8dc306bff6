package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/nilm-chat/internal/model"
)

var scoredDevices = []model.DeviceSummary{
	{ClusterID: 1, Name: "Refrigerator"},
	{ClusterID: 2, Name: "Lighting"},
	{ClusterID: 3, Name: "Electronics"},
	{ClusterID: 5, Name: "HVAC"},
}

func TestConfidenceNoDevices(t *testing.T) {
	assert.Equal(t, 0.9, Confidence("anything", nil))
}

func TestConfidenceBounds(t *testing.T) {
	assert.InDelta(t, 0.2, Confidence("nothing relevant", scoredDevices), 1e-9)
	assert.InDelta(t, 0.4, Confidence("the refrigerator is on", scoredDevices), 1e-9)
	assert.Equal(t, 1.0, Confidence("Refrigerator, LIGHTING, electronics and hvac", scoredDevices))

	almost := Confidence("Refrigerator, Lighting and Electronics", scoredDevices)
	assert.Less(t, almost, 1.0)
	assert.GreaterOrEqual(t, almost, 0.2)
}

func TestConfidenceMonotonic(t *testing.T) {
	responses := []string{
		"",
		"hvac",
		"hvac lighting",
		"hvac lighting electronics",
		"hvac lighting electronics refrigerator",
	}
	prev := 0.0
	for _, r := range responses {
		c := Confidence(r, scoredDevices)
		assert.GreaterOrEqual(t, c, prev, "response %q", r)
		prev = c
	}
}

func TestConfidenceSubstringMatch(t *testing.T) {
	devices := []model.DeviceSummary{{Name: "Fan"}, {Name: ""}}
	// 子串匹配：不考虑词边界
	assert.InDelta(t, 0.6, Confidence("the fans are quiet", devices), 1e-9)
}
