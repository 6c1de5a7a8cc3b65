package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor_Boundaries(t *testing.T) {
	cases := []struct {
		name string
		max  float64
		want Status
	}{
		{"zero", 0.0, StatusOK},
		{"just below watch", 0.39999, StatusOK},
		{"exactly watch threshold", 0.40, StatusOK},
		{"just above watch", 0.40001, StatusWatch},
		{"mid watch", 0.55, StatusWatch},
		{"exactly alert threshold", 0.70, StatusWatch},
		{"just above alert", 0.70001, StatusAlert},
		{"max", 1.0, StatusAlert},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := RiskVector{DiseaseMastitis: tc.max, DiseaseBRD: 0.1, DiseaseLameness: 0.05}
			assert.Equal(t, tc.want, StatusFor(v), "max=%v", tc.max)
		})
	}
}

func TestStatusFor_UsesMaxAcrossDiseases(t *testing.T) {
	v := RiskVector{DiseaseMastitis: 0.1, DiseaseBRD: 0.85, DiseaseLameness: 0.3}
	assert.Equal(t, StatusAlert, StatusFor(v))

	max, disease := v.Max()
	assert.Equal(t, 0.85, max)
	assert.Equal(t, DiseaseBRD, disease)
}

func TestRiskVector_Dominant(t *testing.T) {
	assert.Equal(t, DiseaseMastitis, RiskVector{DiseaseMastitis: 0.9, DiseaseBRD: 0.5}.Dominant())

	// All scores at or below the watch threshold → no dominant disease.
	assert.Equal(t, Disease(""), RiskVector{DiseaseMastitis: 0.40, DiseaseBRD: 0.2}.Dominant())
	assert.Equal(t, Disease(""), RiskVector{}.Dominant())
}

func TestRiskVector_Clamp(t *testing.T) {
	v := RiskVector{DiseaseMastitis: 1.3, DiseaseBRD: -0.2, DiseaseLameness: 0.5}
	warnings := v.Clamp()

	require.Len(t, warnings, 2)
	assert.Equal(t, 1.0, v[DiseaseMastitis])
	assert.Equal(t, 0.0, v[DiseaseBRD])
	assert.Equal(t, 0.5, v[DiseaseLameness])

	assert.Empty(t, RiskVector{DiseaseMastitis: 0.5}.Clamp())
}

func TestCow_UnscoredReadsAsOK(t *testing.T) {
	c := &Cow{ID: 12, Pen: "A1"}
	assert.Equal(t, StatusOK, c.Status())
	assert.Equal(t, Disease(""), c.DominantDisease())
	assert.False(t, c.Scored)
}

func TestRiskVector_Clone(t *testing.T) {
	v := RiskVector{DiseaseMastitis: 0.8}
	clone := v.Clone()
	clone[DiseaseMastitis] = 0.1
	assert.Equal(t, 0.8, v[DiseaseMastitis])

	assert.Nil(t, RiskVector(nil).Clone())
}

func TestFeatureLabel(t *testing.T) {
	assert.Equal(t, "milk yield", FeatureLabel("milk_yield_kg"))
	assert.Equal(t, "unknown signal", FeatureLabel("unknown_signal"))
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidDisease("brd"))
	assert.False(t, ValidDisease("BRD"))
	assert.True(t, ValidHealthEvent("off_feed"))
	assert.True(t, ValidHealthEvent(""))
	assert.False(t, ValidHealthEvent("sneezing"))
	assert.True(t, ValidOutcome("confirmed"))
	assert.False(t, ValidOutcome(""))
}
