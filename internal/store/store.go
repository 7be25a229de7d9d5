// Package store provides durable load/save of named collections.
// The core persists units, rules, warning acknowledgements and the
// activity log as independent JSON blobs; the layout behind a name is an
// implementation detail of the store.
package store

import "errors"

// Collection names used by the tracking core.
const (
	CollectionUnits       = "units"
	CollectionRules       = "rules"
	CollectionWarningAcks = "warning_acks"
	CollectionActivity    = "activity_log"
)

// ErrNoData is returned by Load when a collection has never been saved.
var ErrNoData = errors.New("no data for collection")

// Store is the persistence boundary injected into the tracking service.
type Store interface {
	// Load decodes the named collection into v. Returns ErrNoData when
	// the collection does not exist yet.
	Load(name string, v any) error
	// Save encodes v and replaces the named collection atomically.
	Save(name string, v any) error
	// Delete removes the named collection. Deleting an absent collection
	// is a no-op.
	Delete(name string) error
	Close() error
}
