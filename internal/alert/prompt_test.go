package alert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tauron-farm/tauron/internal/model"
)

func sampleInput() Input {
	return Input{
		CowID:           47,
		RiskScore:       0.82,
		DominantDisease: model.DiseaseMastitis,
		Risks: model.RiskVector{
			model.DiseaseMastitis: 0.82,
			model.DiseaseBRD:      0.35,
			model.DiseaseLameness: 0.10,
		},
		TopFeature:   "milk_yield_kg",
		FeatureDelta: -1.76,
		TopEdge:      &model.TopEdge{From: 47, To: 31, Weight: 1.0},
	}
}

func TestBuildPrompt_FieldOrder(t *testing.T) {
	prompt := BuildPrompt(sampleInput())

	lines := strings.Split(prompt, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Cow ID: #47", lines[0])
	assert.Equal(t, "Risk score: 82%", lines[1])
	assert.Equal(t, "Primary disease risk: mastitis (udder infection)", lines[2])
	assert.Equal(t, "Top risk factor: milk yield (change from baseline: down ~26% below normal)", lines[3])
	assert.Equal(t, "Highest-risk contact: #47 shared space with #31 (connection strength: 100%)", lines[4])
	assert.Equal(t, "Write one farmer alert sentence.", lines[5])
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	in := sampleInput()
	first := BuildPrompt(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildPrompt(in))
	}
}

func TestBuildPrompt_SecondaryRisks(t *testing.T) {
	in := sampleInput()
	in.Risks[model.DiseaseBRD] = 0.45

	prompt := BuildPrompt(in)
	assert.Contains(t, prompt, "Secondary risks: BRD (respiratory disease) 45%.")
}

func TestBuildPrompt_NoEdge(t *testing.T) {
	in := sampleInput()
	in.TopEdge = nil

	prompt := BuildPrompt(in)
	assert.NotContains(t, prompt, "Highest-risk contact")
}

func TestBuildPrompt_UnknownFeatureFallsBackToRawName(t *testing.T) {
	in := sampleInput()
	in.TopFeature = "water_intake_l"

	prompt := BuildPrompt(in)
	assert.Contains(t, prompt, "Top risk factor: water intake l")
}

func TestDeltaPercent(t *testing.T) {
	assert.Equal(t, 26, DeltaPercent(-1.76))
	assert.Equal(t, 26, DeltaPercent(1.76))
	assert.Equal(t, 50, DeltaPercent(-9.0), "capped at 50")
	assert.Equal(t, 0, DeltaPercent(0))
}

func TestDeltaPhrase(t *testing.T) {
	assert.Equal(t, "near baseline", deltaPhrase(0.1))
	assert.Equal(t, "near baseline", deltaPhrase(-0.2))
	assert.Equal(t, "up ~7% above normal", deltaPhrase(0.5))
	assert.Equal(t, "down ~7% below normal", deltaPhrase(-0.5))
}

func TestSystemPrompt_IncludesWordLimit(t *testing.T) {
	assert.Contains(t, SystemPrompt(25), "Maximum 25 words.")
}

func TestCapWords(t *testing.T) {
	assert.Equal(t, "one two three", CapWords("one two three", 5))
	assert.Equal(t, "one two", CapWords("one two three", 2))
	assert.Equal(t, "one two three", CapWords("one two three", 0), "zero disables the cap")
	assert.Equal(t, "a b", CapWords("  a   b  ", 10), "whitespace is normalised")
}
