package model

// Disease is a closed enum of the disease classes the risk model scores.
// Keeping the set closed catches key drift ("brd" vs "BRD") at validation
// time instead of silently mis-aligning scores.
type Disease string

const (
	DiseaseMastitis Disease = "mastitis"
	DiseaseBRD      Disease = "brd"
	DiseaseLameness Disease = "lameness"
)

// Diseases lists all disease classes in canonical order.
var Diseases = []Disease{DiseaseMastitis, DiseaseBRD, DiseaseLameness}

// DiseaseLabels maps disease classes to farmer-friendly labels for prompts.
var DiseaseLabels = map[Disease]string{
	DiseaseMastitis: "mastitis (udder infection)",
	DiseaseBRD:      "BRD (respiratory disease)",
	DiseaseLameness: "lameness (hoof/leg issue)",
}

// ValidDisease reports whether s names a known disease class.
func ValidDisease(s string) bool {
	for _, d := range Diseases {
		if string(d) == s {
			return true
		}
	}
	return false
}

// RiskVector holds one score in [0,1] per disease class.
type RiskVector map[Disease]float64

// Status is the derived alert tier for a cow.
type Status string

const (
	StatusOK    Status = "ok"
	StatusWatch Status = "watch"
	StatusAlert Status = "alert"
)

// Risk thresholds. A cow is "alert" strictly above the upper threshold,
// "watch" strictly above the lower threshold, otherwise "ok".
const (
	WatchThreshold = 0.40
	AlertThreshold = 0.70
)

// Max returns the highest score in the vector and the disease carrying it.
// An empty or nil vector returns (0, "").
func (v RiskVector) Max() (float64, Disease) {
	var (
		best    float64
		disease Disease
	)
	// Iterate canonical order so ties resolve deterministically.
	for _, d := range Diseases {
		if score, ok := v[d]; ok && (disease == "" || score > best) {
			best = score
			disease = d
		}
	}
	return best, disease
}

// StatusFor derives the alert tier from a risk vector. Status is a pure
// function of the vector and the two thresholds; it is never stored
// independently of the vector it was derived from.
func StatusFor(v RiskVector) Status {
	max, _ := v.Max()
	switch {
	case max > AlertThreshold:
		return StatusAlert
	case max > WatchThreshold:
		return StatusWatch
	default:
		return StatusOK
	}
}

// Dominant returns the disease driving the risk, or "" if every score is at
// or below the watch threshold.
func (v RiskVector) Dominant() Disease {
	max, d := v.Max()
	if max <= WatchThreshold {
		return ""
	}
	return d
}

// Clamp coerces out-of-range scores into [0,1] and returns a warning per
// adjusted entry. Out-of-range model output is a data-quality problem, not a
// reason to reject a scoring result.
func (v RiskVector) Clamp() []string {
	var warnings []string
	for _, d := range Diseases {
		score, ok := v[d]
		if !ok {
			continue
		}
		switch {
		case score < 0:
			v[d] = 0
			warnings = append(warnings, "risk score for "+string(d)+" below 0, clamped to 0")
		case score > 1:
			v[d] = 1
			warnings = append(warnings, "risk score for "+string(d)+" above 1, clamped to 1")
		}
	}
	return warnings
}

// Clone returns an independent copy of the vector.
func (v RiskVector) Clone() RiskVector {
	if v == nil {
		return nil
	}
	out := make(RiskVector, len(v))
	for d, s := range v {
		out[d] = s
	}
	return out
}

// Cow is the authoritative state for one monitored animal.
//
// Risk is nil until the scorer has run at least once; such cows display as
// "ok" but carry Scored=false so callers can distinguish "healthy" from
// "never scored". Attribution fields are populated only while status != ok.
type Cow struct {
	ID          int          `json:"id"`
	Pen         string       `json:"pen"`
	Bunk        string       `json:"bunk,omitempty"`
	Risk        RiskVector   `json:"risk,omitempty"`
	Scored      bool         `json:"scored"`
	Attribution *Attribution `json:"attribution,omitempty"`
}

// Status derives the current alert tier. Unscored cows read as ok.
func (c *Cow) Status() Status {
	if !c.Scored {
		return StatusOK
	}
	return StatusFor(c.Risk)
}

// DominantDisease derives the disease driving the risk, or "" for ok cows.
func (c *Cow) DominantDisease() Disease {
	if !c.Scored {
		return ""
	}
	return c.Risk.Dominant()
}
