// Package tracking holds the unit repository, the stage transition engine
// and the service facade the outer layers call.
package tracking

import (
	"fmt"
	"sync"

	"qtrak/internal/models"
)

// Repository is the in-memory unit collection, keyed by id with a unique
// serial number index. It guards map integrity only; read-modify-write
// sequences are serialized per unit by the service.
type Repository struct {
	mu      sync.RWMutex
	units   map[string]*models.Unit
	serials map[string]string // serial number -> unit id
	order   []string          // insertion order of ids
}

func NewRepository() *Repository {
	return &Repository{
		units:   make(map[string]*models.Unit),
		serials: make(map[string]string),
	}
}

// Insert adds a fully-formed unit. The serial number must be unused.
func (r *Repository) Insert(u *models.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.serials[u.SerialNumber]; ok {
		return fmt.Errorf("%w: %s", models.ErrDuplicateSerial, u.SerialNumber)
	}
	r.units[u.ID] = u
	r.serials[u.SerialNumber] = u.ID
	r.order = append(r.order, u.ID)
	return nil
}

// Get returns a deep copy of the unit.
func (r *Repository) Get(id string) (*models.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: unit %s", models.ErrNotFound, id)
	}
	return u.Clone(), nil
}

// Mutate applies fn to the stored unit under the repository lock and
// returns a copy of the result. fn sees the live record; returning an
// error leaves it untouched only if fn itself did not write.
func (r *Repository) Mutate(id string, fn func(*models.Unit) error) (*models.Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: unit %s", models.ErrNotFound, id)
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

// Delete removes the unit and its serial index entry. Unknown ids return
// ErrNotFound, consistent with Get and Mutate.
func (r *Repository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.units[id]
	if !ok {
		return fmt.Errorf("%w: unit %s", models.ErrNotFound, id)
	}
	delete(r.units, id)
	delete(r.serials, u.SerialNumber)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns deep copies of all units matching the filter, in insertion
// order.
func (r *Repository) List(f models.UnitFilter) []*models.Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Unit
	for _, id := range r.order {
		u := r.units[id]
		if f.Match(u) {
			out = append(out, u.Clone())
		}
	}
	return out
}

// Snapshot returns copies of every unit so dashboard scans never observe a
// half-written record.
func (r *Repository) Snapshot() []*models.Unit {
	return r.List(models.UnitFilter{})
}

// Replace swaps the whole collection, used when loading from the store.
func (r *Repository) Replace(units []*models.Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.units = make(map[string]*models.Unit, len(units))
	r.serials = make(map[string]string, len(units))
	r.order = r.order[:0]
	for _, u := range units {
		r.units[u.ID] = u
		r.serials[u.SerialNumber] = u.ID
		r.order = append(r.order, u.ID)
	}
}

// Len returns the number of stored units.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}
