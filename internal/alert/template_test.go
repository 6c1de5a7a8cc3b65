package alert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tauron-farm/tauron/internal/model"
)

func TestFallback_HighRiskIsolates(t *testing.T) {
	text := Fallback(sampleInput())
	assert.Equal(t, "Isolate #47: milk yield dropped ~26%, mastitis (udder infection) risk — recently shared space with #31. Inspect now.", text)
}

func TestFallback_WatchRiskChecks(t *testing.T) {
	in := sampleInput()
	in.RiskScore = 0.55

	text := Fallback(in)
	assert.True(t, strings.HasPrefix(text, "Check #47:"), text)
}

func TestFallback_BoundaryExactlyAtAlertThresholdChecks(t *testing.T) {
	in := sampleInput()
	in.RiskScore = 0.70

	text := Fallback(in)
	assert.True(t, strings.HasPrefix(text, "Check #47:"), text)
}

func TestFallback_SmallDeltaUsesAbnormalPhrase(t *testing.T) {
	in := sampleInput()
	in.FeatureDelta = 0.1

	text := Fallback(in)
	assert.Contains(t, text, "abnormal milk yield detected")
}

func TestFallback_NoEdgeOmitsContactClause(t *testing.T) {
	in := sampleInput()
	in.TopEdge = nil

	text := Fallback(in)
	assert.NotContains(t, text, "shared space")
	assert.Contains(t, text, "Inspect now.")
}

func TestFallback_NoDiseaseUsesGenericLabel(t *testing.T) {
	in := sampleInput()
	in.DominantDisease = ""

	text := Fallback(in)
	assert.Contains(t, text, "health issue risk")
}

func TestFallback_Deterministic(t *testing.T) {
	in := sampleInput()
	first := Fallback(in)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Fallback(in))
	}
	assert.NotEmpty(t, first)
}

func TestFallback_NoAttribution(t *testing.T) {
	text := Fallback(Input{CowID: 12, RiskScore: 0.45, DominantDisease: model.DiseaseBRD})
	assert.Contains(t, text, "#12")
	assert.Contains(t, text, "abnormal sensor readings detected")
}
