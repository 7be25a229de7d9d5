// Package audit keeps the append-only activity log. The log is bounded,
// non-authoritative and survives unit deletion.
package audit

import (
	"log"
	"sync"
	"time"

	"qtrak/internal/clock"
	"qtrak/internal/models"
	"qtrak/internal/store"
)

// Action constants.
const (
	ActionCreate     = "CREATE"
	ActionUpdate     = "UPDATE"
	ActionDelete     = "DELETE"
	ActionTransition = "TRANSITION"
	ActionDefect     = "DEFECT"
	ActionRule       = "RULE"
	ActionAck        = "ACK"
)

// DefaultLimit bounds how many entries the log retains.
const DefaultLimit = 200

// Log is the in-memory activity log, persisted through the store.
type Log struct {
	mu      sync.Mutex
	clock   clock.Clock
	store   store.Store
	limit   int
	nextID  int64
	entries []models.ActivityEntry
}

// New creates a log bound to the given store. A nil store keeps the log
// purely in memory.
func New(c clock.Clock, st store.Store, limit int) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &Log{clock: c, store: st, limit: limit, nextID: 1}
	if st != nil {
		var saved []models.ActivityEntry
		if err := st.Load(store.CollectionActivity, &saved); err == nil {
			l.entries = saved
			for _, e := range saved {
				if e.ID >= l.nextID {
					l.nextID = e.ID + 1
				}
			}
		}
	}
	return l
}

// Record appends an entry stamped at the clock's current time.
func (l *Log) Record(actor, action, unitID, summary string) models.ActivityEntry {
	return l.RecordAt(l.clock.Now(), actor, action, unitID, summary)
}

// RecordAt appends an entry with an explicit timestamp. Transition audit
// entries pass the same clock reading used for the stage entry so the two
// stay consistent for audit purposes.
func (l *Log) RecordAt(at time.Time, actor, action, unitID, summary string) models.ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if actor == "" {
		actor = "system"
	}
	e := models.ActivityEntry{
		ID:        l.nextID,
		Actor:     actor,
		Action:    action,
		UnitID:    unitID,
		Summary:   summary,
		CreatedAt: at,
	}
	l.nextID++
	l.entries = append(l.entries, e)
	if len(l.entries) > l.limit {
		l.entries = l.entries[len(l.entries)-l.limit:]
	}
	l.persist()
	return e
}

// Recent returns up to n entries, newest first.
func (l *Log) Recent(n int) []models.ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]models.ActivityEntry, 0, n)
	for i := len(l.entries) - 1; i >= len(l.entries)-n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Log) persist() {
	if l.store == nil {
		return
	}
	if err := l.store.Save(store.CollectionActivity, l.entries); err != nil {
		log.Printf("activity log save failed: %v", err)
	}
}
