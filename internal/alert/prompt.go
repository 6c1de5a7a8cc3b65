// Package alert turns attribution output into one bounded plain-English
// sentence a farmer can act on, via a chained set of generation backends
// with a deterministic template as the final fallback.
package alert

import (
	"fmt"
	"strings"

	"github.com/tauron-farm/tauron/internal/model"
)

// Input is the structured explanation an alert is generated from.
type Input struct {
	CowID           int
	RiskScore       float64
	DominantDisease model.Disease
	Risks           model.RiskVector
	TopFeature      string
	FeatureDelta    float64
	TopEdge         *model.TopEdge
}

// SystemPrompt returns the instruction block sent to every generation
// backend. maxWords is repeated here because backends cannot be trusted to
// respect it; the chain enforces the cap on output regardless.
func SystemPrompt(maxWords int) string {
	return fmt.Sprintf(
		"You are an AI assistant helping dairy farmers protect their herd. "+
			"Convert structured cow health sensor data into ONE clear, actionable sentence a farmer "+
			"can act on immediately. "+
			"Rules: Use plain English, no veterinary jargon. "+
			"Name the cow number, name the disease risk, name the specific sensor signal, name the action. "+
			"Speak directly in imperative voice: 'Isolate #47...' not 'You should isolate...'. "+
			"Never say 'I' or 'the model'. "+
			"Maximum %d words.", maxWords)
}

// BuildPrompt renders the user prompt. Field order is fixed so identical
// inputs always produce identical prompts.
func BuildPrompt(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Cow ID: #%d\n", in.CowID)
	fmt.Fprintf(&b, "Risk score: %.0f%%\n", in.RiskScore*100)

	if in.DominantDisease != "" {
		fmt.Fprintf(&b, "Primary disease risk: %s\n", diseaseLabel(in.DominantDisease))
	}

	feature := model.FeatureLabel(in.TopFeature)
	if feature == "" {
		feature = "sensor readings"
	}
	fmt.Fprintf(&b, "Top risk factor: %s (change from baseline: %s)\n", feature, deltaPhrase(in.FeatureDelta))

	if in.TopEdge != nil {
		fmt.Fprintf(&b, "Highest-risk contact: #%d shared space with #%d (connection strength: %.0f%%)\n",
			in.CowID, in.TopEdge.To, in.TopEdge.Weight*100)
	}

	// Secondary disease risks above the watch-adjacent floor, canonical order.
	var secondary []string
	for _, d := range model.Diseases {
		if d == in.DominantDisease {
			continue
		}
		if score, ok := in.Risks[d]; ok && score > 0.30 {
			secondary = append(secondary, fmt.Sprintf("%s %.0f%%", diseaseLabel(d), score*100))
		}
	}
	if len(secondary) > 0 {
		fmt.Fprintf(&b, "Secondary risks: %s.\n", strings.Join(secondary, ", "))
	}

	b.WriteString("Write one farmer alert sentence.")
	return b.String()
}

// DeltaPercent converts a standardised feature delta into an approximate
// percentage change for display: roughly 15% per standard deviation, capped
// at 50 so a wild z-score never prints an absurd number.
func DeltaPercent(delta float64) int {
	if delta < 0 {
		delta = -delta
	}
	pct := int(delta * 15)
	if pct > 50 {
		return 50
	}
	return pct
}

func deltaPhrase(delta float64) string {
	switch {
	case delta > 0.2:
		return fmt.Sprintf("up ~%d%% above normal", DeltaPercent(delta))
	case delta < -0.2:
		return fmt.Sprintf("down ~%d%% below normal", DeltaPercent(delta))
	default:
		return "near baseline"
	}
}

func diseaseLabel(d model.Disease) string {
	if label, ok := model.DiseaseLabels[d]; ok {
		return label
	}
	if d == "" {
		return "unknown risk"
	}
	return string(d)
}

// CapWords truncates text to at most n words. Zero or negative n disables
// the cap.
func CapWords(text string, n int) string {
	if n <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}
