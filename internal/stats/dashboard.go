package stats

import (
	"math"
	"sort"
	"time"

	"qtrak/internal/models"
)

// Dashboard aggregates the full unit set into the reporting snapshot.
// The caller supplies a consistent snapshot of units plus the recent
// activity slice to embed.
func (c *Calculator) Dashboard(units []*models.Unit, recent []models.ActivityEntry, now time.Time) models.DashboardStats {
	d := models.DashboardStats{
		StageCounts:    make(map[models.Stage]int, len(models.Stages)),
		AvgStageHours:  make(map[models.Stage]float64, len(models.Stages)),
		TotalUnits:     len(units),
		RecentActivity: recent,
	}
	for _, s := range models.Stages {
		d.StageCounts[s] = 0
	}

	efficient := 0
	for _, u := range units {
		d.StageCounts[u.CurrentStage]++
		if u.IsOverdue {
			d.OverdueUnits++
		}
		openDefects := 0
		for _, df := range u.Defects {
			if df.Status.Open() {
				openDefects++
				if df.Priority == models.PriorityCritical {
					d.CriticalDefects++
				}
			}
		}
		if shippedIn(u, now) {
			d.MonthlyShipped++
		}
		switch u.CurrentStage {
		case models.StageReadyForShipment, models.StageShipped:
			efficient++
		case models.StageQualityControl:
			if openDefects == 0 {
				efficient++
			}
		}
	}

	for _, s := range models.Stages {
		d.AvgStageHours[s] = c.FleetAverage(units, s, now)
	}
	if d.TotalUnits > 0 {
		d.QualityEfficiency = int(math.Round(float64(efficient) / float64(d.TotalUnits) * 100))
	}
	return d
}

// shippedIn reports whether the unit has a shipped entry in now's calendar
// month.
func shippedIn(u *models.Unit, now time.Time) bool {
	for _, e := range u.History {
		if e.Stage != models.StageShipped {
			continue
		}
		if e.EnteredAt.Year() == now.Year() && e.EnteredAt.Month() == now.Month() {
			return true
		}
	}
	return false
}

// TopDefectCauses returns the n most frequent (category, subcategory)
// pairs across all defects.
func TopDefectCauses(units []*models.Unit, n int) []models.CauseCount {
	counts := make(map[[2]string]int)
	for _, u := range units {
		for _, df := range u.Defects {
			counts[[2]string{df.Category, df.Subcategory}]++
		}
	}
	return rankCauses(counts, n)
}

// TopReturnCauses ranks causes among defects that were open at the moment
// of a returned-to-production transition.
func TopReturnCauses(units []*models.Unit, n int) []models.CauseCount {
	counts := make(map[[2]string]int)
	for _, u := range units {
		for _, e := range u.History {
			if e.Stage != models.StageReturnedProduction {
				continue
			}
			for _, df := range u.Defects {
				if df.ReportedAt.After(e.EnteredAt) {
					continue
				}
				if df.ResolvedAt != nil && !df.ResolvedAt.After(e.EnteredAt) {
					continue
				}
				counts[[2]string{df.Category, df.Subcategory}]++
			}
		}
	}
	return rankCauses(counts, n)
}

func rankCauses(counts map[[2]string]int, n int) []models.CauseCount {
	out := make([]models.CauseCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, models.CauseCount{Category: k[0], Subcategory: k[1], Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Subcategory < out[j].Subcategory
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
