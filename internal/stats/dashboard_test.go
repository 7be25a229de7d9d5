package stats

import (
	"testing"
	"time"

	"qtrak/internal/models"
)

func TestDashboardCountsAndEfficiency(t *testing.T) {
	now := t0.Add(24 * time.Hour)
	lastMonth := t0.AddDate(0, -1, 0)

	ready := unitWithHistory("r",
		entry(models.StageQualityControl, t0),
		entry(models.StageReadyForShipment, t0.Add(2*time.Hour)),
	)
	shippedNow := unitWithHistory("s1",
		entry(models.StageQualityControl, t0),
		entry(models.StageReadyForShipment, t0.Add(2*time.Hour)),
		entry(models.StageShipped, t0.Add(4*time.Hour)),
	)
	shippedOld := unitWithHistory("s2",
		entry(models.StageQualityControl, lastMonth),
		entry(models.StageReadyForShipment, lastMonth.Add(2*time.Hour)),
		entry(models.StageShipped, lastMonth.Add(4*time.Hour)),
	)
	qcClean := unitWithHistory("q1", entry(models.StageQualityControl, t0))
	qcDefective := unitWithHistory("q2", entry(models.StageQualityControl, t0))
	qcDefective.IsOverdue = true
	qcDefective.Defects = []models.Defect{
		{ID: "d1", Category: "paint", Priority: models.PriorityCritical, Status: models.DefectOpen, ReportedAt: t0},
		{ID: "d2", Category: "weld", Priority: models.PriorityCritical, Status: models.DefectClosed, ReportedAt: t0},
	}

	units := []*models.Unit{ready, shippedNow, shippedOld, qcClean, qcDefective}
	d := NewCalculator().Dashboard(units, nil, now)

	if d.TotalUnits != 5 {
		t.Errorf("total: got %d, want 5", d.TotalUnits)
	}
	if d.StageCounts[models.StageQualityControl] != 2 || d.StageCounts[models.StageShipped] != 2 {
		t.Errorf("stage counts wrong: %v", d.StageCounts)
	}
	if d.OverdueUnits != 1 {
		t.Errorf("overdue: got %d, want 1", d.OverdueUnits)
	}
	// Only the open critical defect counts.
	if d.CriticalDefects != 1 {
		t.Errorf("critical defects: got %d, want 1", d.CriticalDefects)
	}
	if d.MonthlyShipped != 1 {
		t.Errorf("monthly shipped: got %d, want 1", d.MonthlyShipped)
	}
	// ready + both shipped + clean QC unit = 4 of 5 -> 80%.
	if d.QualityEfficiency != 80 {
		t.Errorf("quality efficiency: got %d, want 80", d.QualityEfficiency)
	}
}

func TestDashboardEmptyFleet(t *testing.T) {
	d := NewCalculator().Dashboard(nil, nil, t0)
	if d.TotalUnits != 0 || d.QualityEfficiency != 0 {
		t.Errorf("empty fleet: got %+v", d)
	}
	if d.StageCounts[models.StageProduction] != 0 {
		t.Errorf("stage counts must be initialized for all stages")
	}
}

func TestTopDefectCauses(t *testing.T) {
	u1 := unitWithHistory("a", entry(models.StageQualityControl, t0))
	u1.Defects = []models.Defect{
		{Category: "paint", Subcategory: "runs", ReportedAt: t0},
		{Category: "paint", Subcategory: "runs", ReportedAt: t0},
		{Category: "weld", Subcategory: "porosity", ReportedAt: t0},
	}
	u2 := unitWithHistory("b", entry(models.StageQualityControl, t0))
	u2.Defects = []models.Defect{
		{Category: "paint", Subcategory: "runs", ReportedAt: t0},
		{Category: "electrical", Subcategory: "harness", ReportedAt: t0},
	}

	got := TopDefectCauses([]*models.Unit{u1, u2}, 2)
	if len(got) != 2 {
		t.Fatalf("got %d causes, want 2", len(got))
	}
	if got[0].Category != "paint" || got[0].Subcategory != "runs" || got[0].Count != 3 {
		t.Errorf("top cause wrong: %+v", got[0])
	}
}

func TestTopReturnCausesOnlyOpenAtReturn(t *testing.T) {
	resolved := t0.Add(1 * time.Hour)
	u := unitWithHistory("a",
		entry(models.StageQualityControl, t0),
		entry(models.StageReturnedProduction, t0.Add(2*time.Hour)),
	)
	u.Defects = []models.Defect{
		// Open at the return: counts.
		{Category: "paint", Subcategory: "runs", Status: models.DefectOpen, ReportedAt: t0},
		// Resolved before the return: excluded.
		{Category: "weld", Subcategory: "porosity", Status: models.DefectResolved, ReportedAt: t0, ResolvedAt: &resolved},
		// Reported after the return: excluded.
		{Category: "electrical", Subcategory: "harness", Status: models.DefectOpen, ReportedAt: t0.Add(3 * time.Hour)},
	}

	got := TopReturnCauses([]*models.Unit{u}, 0)
	if len(got) != 1 {
		t.Fatalf("got %d return causes, want 1: %+v", len(got), got)
	}
	if got[0].Category != "paint" || got[0].Count != 1 {
		t.Errorf("return cause wrong: %+v", got[0])
	}
}
