package tracking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"qtrak/internal/alerts"
	"qtrak/internal/audit"
	"qtrak/internal/models"
)

// DefectInput holds the fields for a newly reported defect.
type DefectInput struct {
	Category    string
	Subcategory string
	Description string
	Responsible string
	Priority    models.Priority
	EstimatedAt *time.Time
	Actor       string
}

// AddDefect reports a nonconformity on the unit.
func (s *Service) AddDefect(unitID string, in DefectInput) (*models.Unit, error) {
	if in.Category == "" {
		return nil, fmt.Errorf("%w: defect category required", models.ErrValidation)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", models.ErrValidation, in.Priority)
	}
	unlock := s.lockUnit(unitID)
	defer unlock()

	now := s.clock.Now()
	rules := s.Rules()
	d := models.Defect{
		ID:          uuid.NewString(),
		Category:    in.Category,
		Subcategory: in.Subcategory,
		Description: in.Description,
		Responsible: in.Responsible,
		Priority:    in.Priority,
		Status:      models.DefectOpen,
		ReportedAt:  now,
		EstimatedAt: in.EstimatedAt,
	}
	if d.Priority == "" {
		d.Priority = models.PriorityMedium
	}

	u, err := s.repo.Mutate(unitID, func(u *models.Unit) error {
		u.Defects = append(u.Defects, d)
		res := alerts.Evaluate(u, rules, now)
		u.IsOverdue, u.Severity = res.Overdue, res.Severity
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.saveUnits(); err != nil {
		return nil, err
	}
	s.activity.RecordAt(now, in.Actor, audit.ActionDefect, unitID,
		fmt.Sprintf("reported defect %s/%s on %s", d.Category, d.Subcategory, u.SerialNumber))
	return u, nil
}

// UpdateDefectStatus moves a defect through its workflow. Entering
// resolved or closed stamps the resolution time.
func (s *Service) UpdateDefectStatus(unitID, defectID string, status models.DefectStatus, actor string) (*models.Unit, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown defect status %q", models.ErrValidation, status)
	}
	unlock := s.lockUnit(unitID)
	defer unlock()

	now := s.clock.Now()
	rules := s.Rules()
	u, err := s.repo.Mutate(unitID, func(u *models.Unit) error {
		for i := range u.Defects {
			if u.Defects[i].ID != defectID {
				continue
			}
			u.Defects[i].Status = status
			if !status.Open() && u.Defects[i].ResolvedAt == nil {
				u.Defects[i].ResolvedAt = &now
			}
			if status.Open() {
				u.Defects[i].ResolvedAt = nil
			}
			res := alerts.Evaluate(u, rules, now)
			u.IsOverdue, u.Severity = res.Overdue, res.Severity
			u.UpdatedAt = now
			return nil
		}
		return fmt.Errorf("%w: defect %s on unit %s", models.ErrNotFound, defectID, unitID)
	})
	if err != nil {
		return nil, err
	}
	if err := s.saveUnits(); err != nil {
		return nil, err
	}
	s.activity.RecordAt(now, actor, audit.ActionDefect, unitID,
		fmt.Sprintf("defect %s on %s set to %s", defectID, u.SerialNumber, status))
	return u, nil
}
