package alerts

import (
	"testing"
	"time"

	"qtrak/internal/models"
)

var t0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func returnedUnit(returnedAt time.Time) *models.Unit {
	return &models.Unit{
		ID:           "u-1",
		SerialNumber: "SN-1",
		CurrentStage: models.StageReturnedProduction,
		History: []models.StageEntry{
			{Stage: models.StageQualityControl, EnteredAt: returnedAt.Add(-4 * time.Hour)},
			{Stage: models.StageReturnedProduction, EnteredAt: returnedAt},
		},
	}
}

func returnRule(days float64) models.Rule {
	return models.Rule{
		Name:      "production_return",
		Family:    models.FamilyProductionReturn,
		Threshold: days,
		Unit:      models.UnitDays,
		Severity:  models.SeverityWarning,
		Active:    true,
	}
}

func TestStageReturnOverdueScenario(t *testing.T) {
	u := returnedUnit(t0)
	rules := []models.Rule{returnRule(2)}

	cases := []struct {
		name    string
		at      time.Time
		overdue bool
		sev     models.Severity
	}{
		{"before threshold", t0.Add(26 * time.Hour), false, models.SeverityNone},
		{"past threshold", t0.Add(50 * time.Hour), true, models.SeverityWarning},
		{"past grace", t0.Add(98 * time.Hour), true, models.SeverityCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(u, rules, tc.at)
			if res.Overdue != tc.overdue || res.Severity != tc.sev {
				t.Errorf("got overdue=%v sev=%s, want overdue=%v sev=%s",
					res.Overdue, res.Severity, tc.overdue, tc.sev)
			}
		})
	}
}

func TestStageReturnDefaultThreshold(t *testing.T) {
	u := returnedUnit(t0)
	// No active rules: the 48h default applies.
	res := Evaluate(u, nil, t0.Add(50*time.Hour))
	if res.Severity != models.SeverityWarning {
		t.Errorf("default threshold: got %s, want warning", res.Severity)
	}
	res = Evaluate(u, nil, t0.Add(40*time.Hour))
	if res.Severity != models.SeverityNone {
		t.Errorf("under default threshold: got %s, want none", res.Severity)
	}
}

func TestStageReturnClearedByReentry(t *testing.T) {
	u := returnedUnit(t0)
	u.History = append(u.History, models.StageEntry{
		Stage:     models.StageQualityControl,
		EnteredAt: t0.Add(10 * time.Hour),
	})
	u.CurrentStage = models.StageQualityControl

	res := Evaluate(u, []models.Rule{returnRule(2)}, t0.Add(200*time.Hour))
	if res.Overdue {
		t.Errorf("re-entered quality control must clear the return alert, got %s", res.Severity)
	}
}

func TestInactiveRulesIgnored(t *testing.T) {
	r := returnRule(1)
	r.Active = false
	u := returnedUnit(t0)

	// Inactive 1-day rule: default 48h governs, 30h elapsed is quiet.
	res := Evaluate(u, []models.Rule{r}, t0.Add(30*time.Hour))
	if res.Overdue {
		t.Errorf("inactive rule must not trigger, got %s", res.Severity)
	}
}

func TestTargetDateScenario(t *testing.T) {
	ship := t0.Add(72 * time.Hour)
	u := &models.Unit{
		ID:             "u-2",
		CurrentStage:   models.StageQualityControl,
		History:        []models.StageEntry{{Stage: models.StageQualityControl, EnteredAt: t0}},
		TargetShipDate: &ship,
	}
	rules := []models.Rule{{
		Name:      "target_shipment",
		Family:    models.FamilyTargetShipment,
		Threshold: 24,
		Unit:      models.UnitHours,
		Severity:  models.SeverityWarning,
		Active:    true,
	}}

	if res := Evaluate(u, rules, t0); res.Severity != models.SeverityNone {
		t.Errorf("72h remaining: got %s, want none", res.Severity)
	}
	if res := Evaluate(u, rules, t0.Add(49*time.Hour)); res.Severity != models.SeverityWarning {
		t.Errorf("23h remaining: got %s, want warning", res.Severity)
	}
	if res := Evaluate(u, rules, t0.Add(73*time.Hour)); res.Severity != models.SeverityCritical {
		t.Errorf("date passed: got %s, want critical", res.Severity)
	}
}

func TestInspectionDateCriticalCheckedFirst(t *testing.T) {
	insp := t0.Add(20 * time.Hour)
	u := &models.Unit{
		ID:             "u-3",
		CurrentStage:   models.StageQualityControl,
		History:        []models.StageEntry{{Stage: models.StageQualityControl, EnteredAt: t0}},
		InspectionDate: &insp,
	}
	rules := []models.Rule{
		{Name: "inspection_warn", Family: models.FamilyInspectionDate, Threshold: 3, Unit: models.UnitDays, Severity: models.SeverityWarning, Active: true},
		{Name: "inspection_crit", Family: models.FamilyInspectionDate, Threshold: 24, Unit: models.UnitHours, Severity: models.SeverityCritical, Active: true},
	}

	// 20h remaining satisfies both thresholds; critical wins.
	if res := Evaluate(u, rules, t0); res.Severity != models.SeverityCritical {
		t.Errorf("inside critical threshold: got %s, want critical", res.Severity)
	}

	far := t0.Add(50 * time.Hour)
	u.InspectionDate = &far
	// 50h remaining: only the 3-day warning rule matches.
	if res := Evaluate(u, rules, t0); res.Severity != models.SeverityWarning {
		t.Errorf("inside warning threshold only: got %s, want warning", res.Severity)
	}
}

func TestEvaluateCombinesMaxSeverity(t *testing.T) {
	ship := t0.Add(-1 * time.Hour) // already passed
	u := returnedUnit(t0)
	u.TargetShipDate = &ship

	rules := []models.Rule{
		returnRule(2),
		{Name: "target", Family: models.FamilyTargetShipment, Threshold: 24, Unit: models.UnitHours, Severity: models.SeverityWarning, Active: true},
	}
	// Return family at warning (50h), target family critical (passed).
	res := Evaluate(u, rules, t0.Add(50*time.Hour))
	if res.Severity != models.SeverityCritical {
		t.Errorf("combined severity: got %s, want critical", res.Severity)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	u := returnedUnit(t0)
	rules := []models.Rule{returnRule(2)}
	at := t0.Add(50 * time.Hour)

	first := Evaluate(u, rules, at)
	second := Evaluate(u, rules, at)
	if first != second {
		t.Errorf("evaluation not deterministic: %+v vs %+v", first, second)
	}
}

func TestThresholdMonotonicity(t *testing.T) {
	u := returnedUnit(t0)
	at := t0.Add(50 * time.Hour)

	prev := 99
	for _, days := range []float64{1, 2, 3, 5} {
		res := Evaluate(u, []models.Rule{returnRule(days)}, at)
		rank := map[models.Severity]int{
			models.SeverityCritical: 2,
			models.SeverityWarning:  1,
			models.SeverityNone:     0,
		}[res.Severity]
		if rank > prev {
			t.Fatalf("raising threshold to %v days increased severity to %s", days, res.Severity)
		}
		prev = rank
	}
}

func TestWarningsStableIDs(t *testing.T) {
	ship := t0.Add(-2 * time.Hour)
	u := returnedUnit(t0)
	u.TargetShipDate = &ship
	rules := []models.Rule{
		returnRule(2),
		{Name: "target", Family: models.FamilyTargetShipment, Threshold: 24, Unit: models.UnitHours, Severity: models.SeverityWarning, Active: true},
	}

	ws := Warnings(u, rules, t0.Add(50*time.Hour))
	if len(ws) != 2 {
		t.Fatalf("got %d warnings, want 2", len(ws))
	}
	ids := map[string]bool{}
	for _, w := range ws {
		ids[w.ID] = true
		if w.Message == "" {
			t.Errorf("warning %s has empty message", w.ID)
		}
	}
	if !ids[models.WarningID("u-1", models.FamilyProductionReturn)] ||
		!ids[models.WarningID("u-1", models.FamilyTargetShipment)] {
		t.Errorf("unexpected warning ids: %v", ids)
	}
}
