// Package impact derives aggregate herd-protection metrics from the
// prediction history. The per-event constants are fixed demo assumptions,
// not farm-calibrated economics.
package impact

import (
	"math"

	"github.com/tauron-farm/tauron/internal/model"
)

// Fixed per-event assumptions.
const (
	// Antibiotic doses for one clinical case caught late; an early catch
	// avoids the full course.
	dosesPerConfirmedAlert = 3

	// Dollars saved per clinical case avoided: discarded milk, treatment
	// and vet time for an average case.
	dollarsPerConfirmedAlert = 220.0

	// The model flags risk ahead of visible symptoms by this margin.
	leadTimeHours = 48
)

// Report is the aggregate impact view served by the API.
type Report struct {
	AlertsRaised     int     `json:"alerts_raised"`
	AlertsConfirmed  int     `json:"alerts_confirmed"`
	AlertsDismissed  int     `json:"alerts_dismissed"`
	AlertsPending    int     `json:"alerts_pending"`
	DosesAvoided     int     `json:"doses_avoided"`
	DollarsSaved     float64 `json:"dollars_saved"`
	LeadTimeHours    int     `json:"lead_time_hours"`
	ConfirmationRate float64 `json:"confirmation_rate"`
}

// Compute aggregates the prediction history. Only alert-status predictions
// count as raised alerts; the confirmation rate is over resolved alerts
// (confirmed plus dismissed), so a history of all-pending outcomes reports
// a rate of 0 rather than dividing by zero.
func Compute(predictions []model.Prediction) Report {
	report := Report{LeadTimeHours: leadTimeHours}

	for _, p := range predictions {
		if p.Status != model.StatusAlert {
			continue
		}
		report.AlertsRaised++
		switch p.Outcome {
		case model.OutcomeConfirmed:
			report.AlertsConfirmed++
		case model.OutcomeUnconfirmed:
			report.AlertsDismissed++
		default:
			report.AlertsPending++
		}
	}

	report.DosesAvoided = report.AlertsConfirmed * dosesPerConfirmedAlert
	report.DollarsSaved = float64(report.AlertsConfirmed) * dollarsPerConfirmedAlert

	if resolved := report.AlertsConfirmed + report.AlertsDismissed; resolved > 0 {
		rate := float64(report.AlertsConfirmed) / float64(resolved)
		report.ConfirmationRate = math.Round(rate*1000) / 1000
	}

	return report
}
