package alert

import (
	"fmt"
	"math"

	"github.com/tauron-farm/tauron/internal/model"
)

// Fallback renders the template alert used when every generation backend is
// down or unconfigured. It is fully deterministic: identical inputs produce
// identical text, with no timestamps or randomness in the prose.
func Fallback(in Input) string {
	action := "Check"
	if in.RiskScore > model.AlertThreshold {
		action = "Isolate"
	}

	feature := model.FeatureLabel(in.TopFeature)
	if feature == "" {
		feature = "sensor readings"
	}

	var signal string
	if math.Abs(in.FeatureDelta) > 0.2 {
		direction := "increased"
		if in.FeatureDelta < 0 {
			direction = "dropped"
		}
		signal = fmt.Sprintf("%s %s ~%d%%", feature, direction, DeltaPercent(in.FeatureDelta))
	} else {
		signal = fmt.Sprintf("abnormal %s detected", feature)
	}

	disease := "health issue"
	if in.DominantDisease != "" {
		disease = diseaseLabel(in.DominantDisease)
	}

	if in.TopEdge != nil {
		return fmt.Sprintf("%s #%d: %s, %s risk — recently shared space with #%d. Inspect now.",
			action, in.CowID, signal, disease, in.TopEdge.To)
	}
	return fmt.Sprintf("%s #%d: %s, %s risk. Inspect now.", action, in.CowID, signal, disease)
}
