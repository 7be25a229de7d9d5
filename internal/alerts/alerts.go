// Package alerts evaluates configured time-threshold rules against a unit.
// Evaluation is a pure function of (unit, rules, now) so the recompute pass
// can be re-run safely at any time and always yields the same result.
package alerts

import (
	"fmt"
	"time"

	"qtrak/internal/models"
)

// DefaultReturnThresholdHours applies to the stage-return family when no
// active rule configures it.
const DefaultReturnThresholdHours = 48

// warningGraceHours is how far past a stage-return threshold a unit stays
// at warning before escalating to critical.
const warningGraceHours = 24

// Result is the combined alert state for a unit.
type Result struct {
	Overdue  bool
	Severity models.Severity
}

// Evaluate runs all three rule families and combines them by taking the
// highest severity observed.
func Evaluate(u *models.Unit, rules []models.Rule, now time.Time) Result {
	sev := models.SeverityNone
	for _, f := range []models.RuleFamily{
		models.FamilyProductionReturn,
		models.FamilyTargetShipment,
		models.FamilyInspectionDate,
	} {
		s, _ := evalFamily(u, rules, f, now)
		sev = sev.Max(s)
	}
	return Result{Overdue: sev != models.SeverityNone, Severity: sev}
}

// Warnings returns one warning per triggered family, with a stable id so
// acknowledgements survive regeneration.
func Warnings(u *models.Unit, rules []models.Rule, now time.Time) []models.Warning {
	var out []models.Warning
	for _, f := range []models.RuleFamily{
		models.FamilyProductionReturn,
		models.FamilyTargetShipment,
		models.FamilyInspectionDate,
	} {
		sev, msg := evalFamily(u, rules, f, now)
		if sev == models.SeverityNone {
			continue
		}
		out = append(out, models.Warning{
			ID:        models.WarningID(u.ID, f),
			UnitID:    u.ID,
			Family:    f,
			Message:   msg,
			Severity:  sev,
			CreatedAt: now,
		})
	}
	return out
}

func evalFamily(u *models.Unit, rules []models.Rule, f models.RuleFamily, now time.Time) (models.Severity, string) {
	switch f {
	case models.FamilyProductionReturn:
		return evalStageReturn(u, rules, now)
	case models.FamilyTargetShipment:
		return evalDateRule(u.TargetShipDate, "target ship date", active(rules, f), now)
	case models.FamilyInspectionDate:
		return evalDateRule(u.InspectionDate, "inspection date", active(rules, f), now)
	}
	return models.SeverityNone, ""
}

// evalStageReturn checks every returned-to-production entry that has not
// been followed by a quality-control re-entry.
func evalStageReturn(u *models.Unit, rules []models.Rule, now time.Time) (models.Severity, string) {
	threshold := float64(DefaultReturnThresholdHours)
	found := false
	for _, r := range active(rules, models.FamilyProductionReturn) {
		h := r.ThresholdHours()
		if !found || h < threshold {
			threshold = h
			found = true
		}
	}

	var worst float64
	for i, e := range u.History {
		if e.Stage != models.StageReturnedProduction {
			continue
		}
		reentered := false
		for _, later := range u.History[i+1:] {
			if later.Stage == models.StageQualityControl {
				reentered = true
				break
			}
		}
		if reentered {
			continue
		}
		if elapsed := now.Sub(e.EnteredAt).Hours(); elapsed > worst {
			worst = elapsed
		}
	}
	if worst <= threshold {
		return models.SeverityNone, ""
	}
	msg := fmt.Sprintf("in production return for %.0fh (threshold %.0fh)", worst, threshold)
	if worst > threshold+warningGraceHours {
		return models.SeverityCritical, msg
	}
	return models.SeverityWarning, msg
}

// evalDateRule handles the target-date and inspection-date families, which
// share one shape: alert when the remaining time until a date falls under a
// configured threshold, escalating once the date has passed. Critical-level
// thresholds are checked before warning-level ones.
func evalDateRule(date *time.Time, label string, rules []models.Rule, now time.Time) (models.Severity, string) {
	if date == nil || len(rules) == 0 {
		return models.SeverityNone, ""
	}
	remaining := date.Sub(now).Hours()

	for _, want := range []models.Severity{models.SeverityCritical, models.SeverityWarning} {
		for _, r := range rules {
			if r.Severity != want || remaining > r.ThresholdHours() {
				continue
			}
			if remaining < 0 {
				return models.SeverityCritical, fmt.Sprintf("%s passed %.0fh ago", label, -remaining)
			}
			return want, fmt.Sprintf("%s in %.0fh (threshold %.0fh)", label, remaining, r.ThresholdHours())
		}
	}
	return models.SeverityNone, ""
}

func active(rules []models.Rule, f models.RuleFamily) []models.Rule {
	var out []models.Rule
	for _, r := range rules {
		if r.Active && r.Family == f {
			out = append(out, r)
		}
	}
	return out
}
