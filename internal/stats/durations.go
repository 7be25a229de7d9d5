// Package stats computes per-stage durations and the fleet-wide dashboard
// snapshot. Everything here is read-only and pull-based.
package stats

import (
	"math"
	"sync/atomic"
	"time"

	"qtrak/internal/models"
)

// Sanity bounds for a single stage interval. Intervals outside the bounds
// are discarded from averages so one corrupt record cannot skew fleet
// statistics; discards are counted, not raised as errors.
const (
	minInterval = time.Minute
	maxInterval = 30 * 24 * time.Hour
)

// exitStages maps a stage to the stages that close an interval spent in it.
var exitStages = map[models.Stage][]models.Stage{
	models.StageProduction:         {models.StageQualityControl},
	models.StageQualityControl:     {models.StageReturnedProduction, models.StageService, models.StageReadyForShipment, models.StageShipped},
	models.StageReturnedProduction: {models.StageQualityControl},
	models.StageService:            {models.StageQualityControl, models.StageReadyForShipment},
	models.StageReadyForShipment:   {models.StageShipped},
	models.StageShipped:            {},
}

// Calculator computes stage durations and keeps the discard diagnostic.
type Calculator struct {
	discarded atomic.Int64
}

func NewCalculator() *Calculator { return &Calculator{} }

// Discarded returns how many intervals the sanity bound has dropped since
// the calculator was created. A steadily climbing value points at clock or
// data problems.
func (c *Calculator) Discarded() int64 { return c.discarded.Load() }

// StageHours sums the time a unit spent in the given stage, in hours. The
// still-open interval of the current stage is measured against now.
func (c *Calculator) StageHours(u *models.Unit, stage models.Stage, now time.Time) float64 {
	exits := exitStages[stage]
	var total float64
	for i, e := range u.History {
		if e.Stage != stage {
			continue
		}
		end, closed := c.findExit(u.History[i+1:], exits)
		if !closed {
			if stage != u.CurrentStage {
				continue
			}
			end = now
		}
		iv := end.Sub(e.EnteredAt)
		if iv < minInterval || iv > maxInterval {
			c.discarded.Add(1)
			continue
		}
		total += iv.Hours()
	}
	return total
}

func (c *Calculator) findExit(later []models.StageEntry, exits []models.Stage) (time.Time, bool) {
	for _, e := range later {
		for _, x := range exits {
			if e.Stage == x {
				return e.EnteredAt, true
			}
		}
	}
	return time.Time{}, false
}

// StageDurations returns the hours spent in every stage the unit has
// visited.
func (c *Calculator) StageDurations(u *models.Unit, now time.Time) map[models.Stage]float64 {
	out := make(map[models.Stage]float64)
	for _, s := range models.Stages {
		if h := c.StageHours(u, s, now); h > 0 {
			out[s] = h
		}
	}
	return out
}

// FleetAverage returns the arithmetic mean of StageHours across all units
// that accumulated an in-bound duration for the stage, rounded to one
// decimal for display stability. Returns 0 when no unit qualifies.
func (c *Calculator) FleetAverage(units []*models.Unit, stage models.Stage, now time.Time) float64 {
	var sum float64
	var n int
	for _, u := range units {
		if h := c.StageHours(u, stage, now); h > 0 {
			sum += h
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*10) / 10
}
