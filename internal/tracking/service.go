package tracking

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"qtrak/internal/alerts"
	"qtrak/internal/audit"
	"qtrak/internal/clock"
	"qtrak/internal/models"
	"qtrak/internal/stats"
	"qtrak/internal/store"
)

// Service wires the repository, rule set, alert evaluator, duration
// calculator, activity log and store into the synchronous API consumed by
// outer layers.
type Service struct {
	repo     *Repository
	store    store.Store
	clock    clock.Clock
	calc     *stats.Calculator
	activity *audit.Log

	ruleMu sync.RWMutex
	rules  []models.Rule

	ackMu sync.Mutex
	acks  map[string]bool

	locks sync.Map // unit id -> *sync.Mutex
}

// NewService loads persisted state from the store and returns a ready
// service. An empty store starts with no units and no rules.
func NewService(st store.Store, clk clock.Clock, activityLimit int) (*Service, error) {
	s := &Service{
		repo:     NewRepository(),
		store:    st,
		clock:    clk,
		calc:     stats.NewCalculator(),
		activity: audit.New(clk, st, activityLimit),
		acks:     make(map[string]bool),
	}

	var units []*models.Unit
	if err := st.Load(store.CollectionUnits, &units); err != nil && !errors.Is(err, store.ErrNoData) {
		return nil, fmt.Errorf("load units: %w", err)
	}
	s.repo.Replace(units)

	if err := st.Load(store.CollectionRules, &s.rules); err != nil && !errors.Is(err, store.ErrNoData) {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	if err := st.Load(store.CollectionWarningAcks, &s.acks); err != nil && !errors.Is(err, store.ErrNoData) {
		return nil, fmt.Errorf("load warning acks: %w", err)
	}
	if s.acks == nil {
		s.acks = make(map[string]bool)
	}
	return s, nil
}

// Close persists the unit collection one last time and closes the store.
func (s *Service) Close() error {
	if err := s.saveUnits(); err != nil {
		return err
	}
	return s.store.Close()
}

// lockUnit serializes read-modify-write sequences per unit id.
func (s *Service) lockUnit(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateUnitInput holds the fields for a new unit. Name, model, serial number and
// customer are required.
type CreateUnitInput struct {
	SerialNumber   string
	Name           string
	Model          string
	Customer       string
	OrderRef       string
	Priority       models.Priority
	Description    string
	ProductionDate *time.Time
	TargetShipDate *time.Time
	InspectionDate *time.Time
	Actor          string
}

func (in CreateUnitInput) validate() error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name required", models.ErrValidation)
	case in.Model == "":
		return fmt.Errorf("%w: model required", models.ErrValidation)
	case in.SerialNumber == "":
		return fmt.Errorf("%w: serial number required", models.ErrValidation)
	case in.Customer == "":
		return fmt.Errorf("%w: customer required", models.ErrValidation)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", models.ErrValidation, in.Priority)
	}
	return nil
}

// CreateUnit registers a new unit. Units enter tracking already in quality
// control, so the initial stage is forced and the first history entry is
// stamped at the clock's current time.
func (s *Service) CreateUnit(in CreateUnitInput) (*models.Unit, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	u := &models.Unit{
		ID:               uuid.NewString(),
		SerialNumber:     in.SerialNumber,
		Name:             in.Name,
		Model:            in.Model,
		Customer:         in.Customer,
		OrderRef:         in.OrderRef,
		Priority:         in.Priority,
		Description:      in.Description,
		CurrentStage:     models.StageQualityControl,
		History:          []models.StageEntry{{Stage: models.StageQualityControl, EnteredAt: now, Actor: in.Actor}},
		Severity:         models.SeverityNone,
		ProductionDate:   in.ProductionDate,
		TargetShipDate:   in.TargetShipDate,
		InspectionDate:   in.InspectionDate,
		QualityStartDate: &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if u.Priority == "" {
		u.Priority = models.PriorityMedium
	}
	res := alerts.Evaluate(u, s.Rules(), now)
	u.IsOverdue, u.Severity = res.Overdue, res.Severity

	if err := s.repo.Insert(u); err != nil {
		return nil, err
	}
	if err := s.saveUnits(); err != nil {
		return nil, err
	}
	s.activity.RecordAt(now, in.Actor, audit.ActionCreate, u.ID,
		fmt.Sprintf("created unit %s (%s)", u.SerialNumber, u.Model))
	return u.Clone(), nil
}

// Unit returns the unit by id.
func (s *Service) Unit(id string) (*models.Unit, error) {
	return s.repo.Get(id)
}

// Units lists units matching the filter in insertion order.
func (s *Service) Units(f models.UnitFilter) []*models.Unit {
	return s.repo.List(f)
}

// UpdateUnitInput carries partial non-stage field edits. Nil fields are
// left untouched; stage changes go through Transition.
type UpdateUnitInput struct {
	Name           *string
	Model          *string
	Customer       *string
	OrderRef       *string
	Priority       *models.Priority
	Description    *string
	ProductionDate *time.Time
	TargetShipDate *time.Time
	InspectionDate *time.Time
	Actor          string
}

// UpdateUnit applies non-stage field edits. Edits touching the alert date
// fields re-run the evaluator so cached overdue/severity stay fresh.
func (s *Service) UpdateUnit(id string, in UpdateUnitInput) (*models.Unit, error) {
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", models.ErrValidation, *in.Priority)
	}
	unlock := s.lockUnit(id)
	defer unlock()

	now := s.clock.Now()
	rules := s.Rules()
	u, err := s.repo.Mutate(id, func(u *models.Unit) error {
		if in.Name != nil {
			u.Name = *in.Name
		}
		if in.Model != nil {
			u.Model = *in.Model
		}
		if in.Customer != nil {
			u.Customer = *in.Customer
		}
		if in.OrderRef != nil {
			u.OrderRef = *in.OrderRef
		}
		if in.Priority != nil {
			u.Priority = *in.Priority
		}
		if in.Description != nil {
			u.Description = *in.Description
		}
		datesChanged := false
		if in.ProductionDate != nil {
			u.ProductionDate = in.ProductionDate
			datesChanged = true
		}
		if in.TargetShipDate != nil {
			u.TargetShipDate = in.TargetShipDate
			datesChanged = true
		}
		if in.InspectionDate != nil {
			u.InspectionDate = in.InspectionDate
			datesChanged = true
		}
		if datesChanged {
			res := alerts.Evaluate(u, rules, now)
			u.IsOverdue, u.Severity = res.Overdue, res.Severity
		}
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.saveUnits(); err != nil {
		return nil, err
	}
	s.activity.RecordAt(now, in.Actor, audit.ActionUpdate, id,
		fmt.Sprintf("updated unit %s", u.SerialNumber))
	return u, nil
}

// DeleteUnit removes the unit, its defects and any warning
// acknowledgements keyed to it. Activity entries are retained for audit.
func (s *Service) DeleteUnit(id string, actor string) error {
	unlock := s.lockUnit(id)
	defer unlock()

	u, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.ackMu.Lock()
	for _, f := range []models.RuleFamily{models.FamilyProductionReturn, models.FamilyTargetShipment, models.FamilyInspectionDate} {
		delete(s.acks, models.WarningID(id, f))
	}
	err = s.store.Save(store.CollectionWarningAcks, s.acks)
	s.ackMu.Unlock()
	if err != nil {
		return fmt.Errorf("save warning acks: %w", err)
	}

	if err := s.saveUnits(); err != nil {
		return err
	}
	s.activity.Record(actor, audit.ActionDelete, id,
		fmt.Sprintf("deleted unit %s", u.SerialNumber))
	return nil
}

// Rules returns a copy of the configured alert rules.
func (s *Service) Rules() []models.Rule {
	s.ruleMu.RLock()
	defer s.ruleMu.RUnlock()
	return append([]models.Rule(nil), s.rules...)
}

// ReplaceRules validates and swaps the rule configuration, persists it and
// runs the full alert recompute pass.
func (s *Service) ReplaceRules(rules []models.Rule, actor string) error {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	s.ruleMu.Lock()
	s.rules = append([]models.Rule(nil), rules...)
	s.ruleMu.Unlock()

	if err := s.store.Save(store.CollectionRules, rules); err != nil {
		return fmt.Errorf("save rules: %w", err)
	}
	s.activity.Record(actor, audit.ActionRule, "",
		fmt.Sprintf("replaced alert rules (%d configured)", len(rules)))
	_, errs := s.RecomputeAlerts()
	if len(errs) > 0 {
		return fmt.Errorf("recompute after rule change: %w", errors.Join(errs...))
	}
	return nil
}

// SeedRules installs the rule set only when none is configured yet, so a
// config file cannot clobber admin changes on every start.
func (s *Service) SeedRules(rules []models.Rule) error {
	s.ruleMu.RLock()
	empty := len(s.rules) == 0
	s.ruleMu.RUnlock()
	if !empty || len(rules) == 0 {
		return nil
	}
	return s.ReplaceRules(rules, "system")
}

// RecomputeAlerts re-evaluates every unit's cached overdue/severity
// fields. A failure on one unit never aborts the pass; failures are
// collected and returned. Returns how many units changed.
func (s *Service) RecomputeAlerts() (int, []error) {
	now := s.clock.Now()
	rules := s.Rules()
	changed := 0
	var errs []error
	for _, snap := range s.repo.Snapshot() {
		id := snap.ID
		unlock := s.lockUnit(id)
		_, err := s.repo.Mutate(id, func(u *models.Unit) error {
			res := alerts.Evaluate(u, rules, now)
			if u.IsOverdue != res.Overdue || u.Severity != res.Severity {
				u.IsOverdue, u.Severity = res.Overdue, res.Severity
				changed++
			}
			return nil
		})
		unlock()
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			// Deleted mid-pass is fine; anything else is reported.
			errs = append(errs, fmt.Errorf("unit %s: %w", id, err))
		}
	}
	if changed > 0 {
		if err := s.saveUnits(); err != nil {
			errs = append(errs, err)
		}
	}
	return changed, errs
}

// Warnings regenerates the derived warning list from units and rules.
// Only the acknowledged flag is read from persisted state.
func (s *Service) Warnings() []models.Warning {
	now := s.clock.Now()
	rules := s.Rules()

	s.ackMu.Lock()
	acks := make(map[string]bool, len(s.acks))
	for k, v := range s.acks {
		acks[k] = v
	}
	s.ackMu.Unlock()

	var out []models.Warning
	for _, u := range s.repo.Snapshot() {
		for _, w := range alerts.Warnings(u, rules, now) {
			w.Acknowledged = acks[w.ID]
			out = append(out, w)
		}
	}
	return out
}

// AcknowledgeWarning marks the warning id as acknowledged. The unit part
// of the id must refer to a live unit.
func (s *Service) AcknowledgeWarning(id string, actor string) error {
	unitID, _, ok := splitWarningID(id)
	if !ok {
		return fmt.Errorf("%w: malformed warning id %q", models.ErrValidation, id)
	}
	if _, err := s.repo.Get(unitID); err != nil {
		return err
	}

	s.ackMu.Lock()
	s.acks[id] = true
	err := s.store.Save(store.CollectionWarningAcks, s.acks)
	s.ackMu.Unlock()
	if err != nil {
		return fmt.Errorf("save warning acks: %w", err)
	}
	s.activity.Record(actor, audit.ActionAck, unitID, "acknowledged warning "+id)
	return nil
}

// Dashboard recomputes the reporting snapshot from a copy-on-read view of
// the fleet.
func (s *Service) Dashboard() models.DashboardStats {
	return s.calc.Dashboard(s.repo.Snapshot(), s.activity.Recent(10), s.clock.Now())
}

// TopDefectCauses ranks the most frequent defect causes fleet-wide.
func (s *Service) TopDefectCauses(n int) []models.CauseCount {
	return stats.TopDefectCauses(s.repo.Snapshot(), n)
}

// TopReturnCauses ranks causes among defects open at a production return.
func (s *Service) TopReturnCauses(n int) []models.CauseCount {
	return stats.TopReturnCauses(s.repo.Snapshot(), n)
}

// StageDurations exposes the per-unit duration calculation.
func (s *Service) StageDurations(id string) (map[models.Stage]float64, error) {
	u, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	return s.calc.StageDurations(u, s.clock.Now()), nil
}

// DiscardedIntervals reports how many intervals the duration sanity bound
// has dropped, for operator diagnostics.
func (s *Service) DiscardedIntervals() int64 { return s.calc.Discarded() }

// Activity returns the most recent activity entries, newest first.
func (s *Service) Activity(n int) []models.ActivityEntry {
	return s.activity.Recent(n)
}

func (s *Service) saveUnits() error {
	if err := s.store.Save(store.CollectionUnits, s.repo.Snapshot()); err != nil {
		return fmt.Errorf("save units: %w", err)
	}
	return nil
}

func splitWarningID(id string) (unitID string, family models.RuleFamily, ok bool) {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == ':' {
			f := models.RuleFamily(id[i+1:])
			if i == 0 || !f.Valid() {
				return "", "", false
			}
			return id[:i], f, true
		}
	}
	return "", "", false
}
