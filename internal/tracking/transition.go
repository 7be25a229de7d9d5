package tracking

import (
	"fmt"

	"qtrak/internal/alerts"
	"qtrak/internal/audit"
	"qtrak/internal/models"
)

// Transition moves the unit to the given stage. The adjacency graph is
// enforced: shipped is terminal and every other stage only reaches its
// documented successors. The new history entry, the convenience
// timestamps, the alert re-evaluation and the activity entry all share one
// clock reading.
func (s *Service) Transition(id string, to models.Stage, actor, notes string) (*models.Unit, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown stage %q", models.ErrValidation, to)
	}
	unlock := s.lockUnit(id)
	defer unlock()

	now := s.clock.Now()
	rules := s.Rules()
	var from models.Stage
	u, err := s.repo.Mutate(id, func(u *models.Unit) error {
		from = u.CurrentStage
		if from.Terminal() {
			return fmt.Errorf("%w: unit %s is shipped, no further transitions", models.ErrValidation, u.SerialNumber)
		}
		if !from.CanTransitionTo(to) {
			return fmt.Errorf("%w: cannot move %s from %s to %s", models.ErrValidation, u.SerialNumber, from, to)
		}

		u.History = append(u.History, models.StageEntry{
			Stage:     to,
			EnteredAt: now,
			Actor:     actor,
			Notes:     notes,
		})
		u.CurrentStage = to

		switch to {
		case models.StageReturnedProduction:
			u.ProductionReturnDate = &now
		case models.StageQualityControl:
			u.QualityStartDate = &now
		case models.StageService:
			u.ServiceStartDate = &now
		}
		if from == models.StageService &&
			(to == models.StageQualityControl || to == models.StageReadyForShipment) {
			u.ServiceEndDate = &now
		}

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
	s.activity.RecordAt(now, actor, audit.ActionTransition, id,
		fmt.Sprintf("%s: %s → %s", u.SerialNumber, from.Label(), to.Label()))
	return u, nil
}
