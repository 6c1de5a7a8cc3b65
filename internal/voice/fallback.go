package voice

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tauron-farm/tauron/internal/ingest"
	"github.com/tauron-farm/tauron/internal/model"
)

var (
	cowRe   = regexp.MustCompile(`(?i)(?:cow\s*#?|#)(\d+)`)
	yieldRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:kg|kilos?|liters?|litres?)`)
	penRe   = regexp.MustCompile(`(?i)pen\s+#?([A-Za-z0-9]+)`)
)

// Event keywords checked in order; first hit wins for a segment.
var eventKeywords = []struct {
	phrases []string
	event   model.HealthEvent
}{
	{[]string{"mastitis", "swollen udder", "hard quarter"}, model.HealthEventMastitis},
	{[]string{"calv"}, model.HealthEventCalving},
	{[]string{"lame", "limp", "favoring a leg"}, model.HealthEventLame},
	{[]string{"off feed", "off her feed", "not eating", "skipped feed"}, model.HealthEventOffFeed},
	{[]string{"sick", "unwell", "looks off", "acting strange"}, model.HealthEventOther},
}

// KeywordParse is the deterministic no-LLM transcript parser. Each cow
// mention opens a segment running to the next mention; yield, pen and event
// keywords found in the segment attach to that cow. Confidence is fixed at
// 0.25 to signal the crude extraction path to the caller.
func KeywordParse(transcript string) *Extraction {
	ext := &Extraction{Cows: []ingest.Record{}, Confidence: fallbackConfidence}

	matches := cowRe.FindAllStringSubmatchIndex(transcript, -1)
	for i, m := range matches {
		cowID, err := strconv.Atoi(transcript[m[2]:m[3]])
		if err != nil || cowID <= 0 {
			continue
		}

		end := len(transcript)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		segment := transcript[m[0]:end]

		rec := ingest.Record{
			CowID:       cowID,
			Pen:         segmentPen(segment),
			HealthEvent: string(segmentEvent(segment)),
			Notes:       strings.TrimSpace(segment),
			Source:      string(model.SourceVoice),
		}

		if y := yieldRe.FindStringSubmatch(segment); y != nil {
			if v, err := strconv.ParseFloat(y[1], 64); err == nil {
				rec.YieldKg = &v
			}
		}

		ext.Cows = append(ext.Cows, rec)
	}

	return ext
}

func segmentPen(segment string) string {
	if m := penRe.FindStringSubmatch(segment); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

func segmentEvent(segment string) model.HealthEvent {
	lower := strings.ToLower(segment)
	for _, kw := range eventKeywords {
		for _, phrase := range kw.phrases {
			if strings.Contains(lower, phrase) {
				return kw.event
			}
		}
	}
	return model.HealthEventNone
}
