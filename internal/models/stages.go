package models

import "fmt"

// Stage is one state in the fixed production/quality lifecycle.
type Stage string

const (
	StageProduction         Stage = "production"
	StageQualityControl     Stage = "quality_control"
	StageReturnedProduction Stage = "returned_to_production"
	StageService            Stage = "service"
	StageReadyForShipment   Stage = "ready_for_shipment"
	StageShipped            Stage = "shipped"
)

// stageInfo is the single definition of per-stage display data.
type stageInfo struct {
	Label string
	Color string
}

var stageTable = map[Stage]stageInfo{
	StageProduction:         {"Production", "#6c757d"},
	StageQualityControl:     {"Quality Control", "#0d6efd"},
	StageReturnedProduction: {"Returned to Production", "#fd7e14"},
	StageService:            {"Service", "#6f42c1"},
	StageReadyForShipment:   {"Ready for Shipment", "#198754"},
	StageShipped:            {"Shipped", "#20c997"},
}

// Stages lists all lifecycle stages in pipeline order.
var Stages = []Stage{
	StageProduction,
	StageQualityControl,
	StageReturnedProduction,
	StageService,
	StageReadyForShipment,
	StageShipped,
}

// stageGraph holds the allowed outgoing transitions per stage.
// Shipped is terminal.
var stageGraph = map[Stage][]Stage{
	StageProduction:         {StageQualityControl},
	StageQualityControl:     {StageReturnedProduction, StageService, StageReadyForShipment},
	StageReturnedProduction: {StageQualityControl},
	StageService:            {StageQualityControl, StageReadyForShipment},
	StageReadyForShipment:   {StageShipped},
	StageShipped:            {},
}

func (s Stage) Valid() bool {
	_, ok := stageTable[s]
	return ok
}

func (s Stage) Label() string { return stageTable[s].Label }
func (s Stage) Color() string { return stageTable[s].Color }

// Terminal reports whether the stage has no outgoing transitions.
func (s Stage) Terminal() bool { return len(stageGraph[s]) == 0 && s.Valid() }

// CanTransitionTo reports whether moving from s to next is allowed.
func (s Stage) CanTransitionTo(next Stage) bool {
	for _, t := range stageGraph[s] {
		if t == next {
			return true
		}
	}
	return false
}

// ParseStage converts a raw string to a Stage.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown stage %q", ErrValidation, raw)
	}
	return s, nil
}

// Priority is the unit or defect priority level.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorityRank = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Severity is the combined alert level for a unit.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityNone:     0,
	SeverityWarning:  1,
	SeverityCritical: 2,
}

func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Max returns the higher of two severities.
func (s Severity) Max(other Severity) Severity {
	if severityRank[other] > severityRank[s] {
		return other
	}
	return s
}

// DefectStatus is the workflow state of a reported defect.
type DefectStatus string

const (
	DefectOpen       DefectStatus = "open"
	DefectInProgress DefectStatus = "in_progress"
	DefectResolved   DefectStatus = "resolved"
	DefectClosed     DefectStatus = "closed"
)

var defectStatuses = map[DefectStatus]bool{
	DefectOpen:       true,
	DefectInProgress: true,
	DefectResolved:   true,
	DefectClosed:     true,
}

func (s DefectStatus) Valid() bool { return defectStatuses[s] }

// Open reports whether the defect still needs work.
func (s DefectStatus) Open() bool { return s == DefectOpen || s == DefectInProgress }

// RuleFamily identifies which alert condition a rule configures.
type RuleFamily string

const (
	FamilyProductionReturn RuleFamily = "production_return"
	FamilyTargetShipment   RuleFamily = "target_shipment"
	FamilyInspectionDate   RuleFamily = "inspection_date"
)

var ruleFamilies = map[RuleFamily]bool{
	FamilyProductionReturn: true,
	FamilyTargetShipment:   true,
	FamilyInspectionDate:   true,
}

func (f RuleFamily) Valid() bool { return ruleFamilies[f] }

// TimeUnit is the unit a rule threshold is expressed in.
type TimeUnit string

const (
	UnitHours TimeUnit = "hours"
	UnitDays  TimeUnit = "days"
)

// Hours converts a threshold in this unit to hours.
func (u TimeUnit) Hours(threshold float64) float64 {
	if u == UnitDays {
		return threshold * 24
	}
	return threshold
}

func (u TimeUnit) Valid() bool { return u == UnitHours || u == UnitDays }
