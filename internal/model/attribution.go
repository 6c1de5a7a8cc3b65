package model

// SensorFeatures lists the model input features in canonical order. The
// attribution vector indexes into this list, so order is a boundary
// contract with the scoring model.
var SensorFeatures = []string{
	"activity",
	"highly_active",
	"rumination_min",
	"feeding_min",
	"ear_temp_c",
	"milk_yield_kg",
	"health_event",
	"feeding_visits",
	"days_in_milk",
}

// FeatureLabels maps sensor feature names to plain-English phrases used in
// alert prompts and template fallbacks.
var FeatureLabels = map[string]string{
	"activity":       "activity level",
	"highly_active":  "hours of high activity",
	"rumination_min": "rumination time",
	"feeding_min":    "feeding time",
	"ear_temp_c":     "ear temperature",
	"milk_yield_kg":  "milk yield",
	"health_event":   "recent vet event",
	"feeding_visits": "feeding station visits",
	"days_in_milk":   "days in milk",
}

// FeatureLabel returns the human label for a feature, falling back to the
// raw name with underscores spaced out.
func FeatureLabel(feature string) string {
	if label, ok := FeatureLabels[feature]; ok {
		return label
	}
	out := make([]byte, len(feature))
	for i := 0; i < len(feature); i++ {
		if feature[i] == '_' {
			out[i] = ' '
		} else {
			out[i] = feature[i]
		}
	}
	return string(out)
}

// TopEdge identifies the contact edge contributing most to a cow's risk.
type TopEdge struct {
	From   int     `json:"from"`
	To     int     `json:"to"`
	Weight float64 `json:"weight"`
}

// Attribution is the explanation for one cow's risk score: the
// highest-gradient sensor feature, its signed delta against the recent
// baseline (standardised, in [-1,1] after clamping), and the most relevant
// contact edge if any.
type Attribution struct {
	TopFeature   string   `json:"top_feature"`
	FeatureDelta float64  `json:"feature_delta"`
	TopEdge      *TopEdge `json:"top_edge,omitempty"`
}
