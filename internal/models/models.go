package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the tracking core.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateSerial = errors.New("duplicate serial number")
	ErrValidation      = errors.New("validation failed")
	ErrInvalidRule     = errors.New("invalid rule config")
)

// Unit is one manufactured item tracked through the lifecycle stages.
type Unit struct {
	ID           string   `json:"id"`
	SerialNumber string   `json:"serial_number"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Customer     string   `json:"customer"`
	OrderRef     string   `json:"order_ref,omitempty"`
	Priority     Priority `json:"priority"`
	Description  string   `json:"description,omitempty"`

	CurrentStage Stage        `json:"current_stage"`
	History      []StageEntry `json:"history"`
	Defects      []Defect     `json:"defects,omitempty"`

	// Derived by the alert evaluator; cached on the unit.
	IsOverdue bool     `json:"is_overdue"`
	Severity  Severity `json:"severity"`

	// Optional dates consumed by the alert evaluator.
	ProductionDate *time.Time `json:"production_date,omitempty"`
	TargetShipDate *time.Time `json:"target_ship_date,omitempty"`
	InspectionDate *time.Time `json:"inspection_date,omitempty"`

	// Convenience timestamps maintained by the transition engine.
	ProductionReturnDate *time.Time `json:"production_return_date,omitempty"`
	QualityStartDate     *time.Time `json:"quality_start_date,omitempty"`
	ServiceStartDate     *time.Time `json:"service_start_date,omitempty"`
	ServiceEndDate       *time.Time `json:"service_end_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageEntry records that a unit entered a stage at a point in time.
// Entries are immutable and appended in chronological order.
type StageEntry struct {
	Stage     Stage     `json:"stage"`
	EnteredAt time.Time `json:"entered_at"`
	Actor     string    `json:"actor,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// Defect is a reported nonconformity attached to a unit.
type Defect struct {
	ID          string       `json:"id"`
	Category    string       `json:"category"`
	Subcategory string       `json:"subcategory,omitempty"`
	Description string       `json:"description,omitempty"`
	Responsible string       `json:"responsible,omitempty"`
	Priority    Priority     `json:"priority"`
	Status      DefectStatus `json:"status"`
	ReportedAt  time.Time    `json:"reported_at"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
	EstimatedAt *time.Time   `json:"estimated_at,omitempty"`
}

// Rule is a configured time-threshold alert condition. Rules are
// process-wide configuration evaluated against every unit independently.
type Rule struct {
	Name        string     `json:"name"`
	Family      RuleFamily `json:"family"`
	Threshold   float64    `json:"threshold"`
	Unit        TimeUnit   `json:"unit"`
	Severity    Severity   `json:"severity"`
	Active      bool       `json:"active"`
	Description string     `json:"description,omitempty"`
}

// ThresholdHours returns the rule threshold converted to hours.
func (r Rule) ThresholdHours() float64 { return r.Unit.Hours(r.Threshold) }

// Validate checks a rule for configuration errors.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: rule name required", ErrInvalidRule)
	}
	if !r.Family.Valid() {
		return fmt.Errorf("%w: unknown family %q", ErrInvalidRule, r.Family)
	}
	if r.Threshold <= 0 {
		return fmt.Errorf("%w: threshold must be positive, got %v", ErrInvalidRule, r.Threshold)
	}
	if !r.Unit.Valid() {
		return fmt.Errorf("%w: unknown time unit %q", ErrInvalidRule, r.Unit)
	}
	if r.Severity != SeverityWarning && r.Severity != SeverityCritical {
		return fmt.Errorf("%w: severity must be warning or critical, got %q", ErrInvalidRule, r.Severity)
	}
	return nil
}

// Warning is a derived, acknowledgeable alert instance. Only the
// acknowledged flag is persisted, keyed by the deterministic ID.
type Warning struct {
	ID           string     `json:"id"`
	UnitID       string     `json:"unit_id"`
	Family       RuleFamily `json:"family"`
	Message      string     `json:"message"`
	Severity     Severity   `json:"severity"`
	CreatedAt    time.Time  `json:"created_at"`
	Acknowledged bool       `json:"acknowledged"`
}

// WarningID derives the stable warning identifier for a unit and family.
func WarningID(unitID string, family RuleFamily) string {
	return unitID + ":" + string(family)
}

// ActivityEntry is one append-only record of a mutation, kept for the
// recent-activity display and audit trail.
type ActivityEntry struct {
	ID        int64     `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	UnitID    string    `json:"unit_id,omitempty"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// DashboardStats is the fleet-wide reporting snapshot. It is recomputed
// fully on every request and never persisted.
type DashboardStats struct {
	StageCounts       map[Stage]int     `json:"stage_counts"`
	TotalUnits        int               `json:"total_units"`
	OverdueUnits      int               `json:"overdue_units"`
	CriticalDefects   int               `json:"critical_defects"`
	MonthlyShipped    int               `json:"monthly_shipped"`
	AvgStageHours     map[Stage]float64 `json:"avg_stage_hours"`
	QualityEfficiency int               `json:"quality_efficiency"`
	RecentActivity    []ActivityEntry   `json:"recent_activity"`
}

// CauseCount is one frequency-ranked defect cause.
type CauseCount struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Count       int    `json:"count"`
}

// UnitFilter is the optional predicate set for listing units.
type UnitFilter struct {
	Stage        Stage
	Model        string
	Priority     Priority
	Overdue      *bool
	ProducedFrom *time.Time
	ProducedTo   *time.Time
}

// Match reports whether the unit satisfies every set predicate.
func (f UnitFilter) Match(u *Unit) bool {
	if f.Stage != "" && u.CurrentStage != f.Stage {
		return false
	}
	if f.Model != "" && u.Model != f.Model {
		return false
	}
	if f.Priority != "" && u.Priority != f.Priority {
		return false
	}
	if f.Overdue != nil && u.IsOverdue != *f.Overdue {
		return false
	}
	if f.ProducedFrom != nil {
		if u.ProductionDate == nil || u.ProductionDate.Before(*f.ProducedFrom) {
			return false
		}
	}
	if f.ProducedTo != nil {
		if u.ProductionDate == nil || u.ProductionDate.After(*f.ProducedTo) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the unit so callers can never mutate
// repository state through a returned pointer.
func (u *Unit) Clone() *Unit {
	c := *u
	c.History = append([]StageEntry(nil), u.History...)
	c.Defects = append([]Defect(nil), u.Defects...)
	c.ProductionDate = copyTime(u.ProductionDate)
	c.TargetShipDate = copyTime(u.TargetShipDate)
	c.InspectionDate = copyTime(u.InspectionDate)
	c.ProductionReturnDate = copyTime(u.ProductionReturnDate)
	c.QualityStartDate = copyTime(u.QualityStartDate)
	c.ServiceStartDate = copyTime(u.ServiceStartDate)
	c.ServiceEndDate = copyTime(u.ServiceEndDate)
	for i := range c.Defects {
		c.Defects[i].ResolvedAt = copyTime(c.Defects[i].ResolvedAt)
		c.Defects[i].EstimatedAt = copyTime(c.Defects[i].EstimatedAt)
	}
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
