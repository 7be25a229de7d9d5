// Package testutil holds shared helpers for core tests: a settable fake
// clock and a service factory backed by the in-memory store.
package testutil

import (
	"sync"
	"testing"
	"time"

	"qtrak/internal/models"
	"qtrak/internal/store"
	"qtrak/internal/tracking"
)

// FakeClock returns a fixed time until advanced.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock pins the clock to t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set pins the clock to an absolute time.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// T0 is the base time used across core tests.
var T0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// SetupService builds a service on a fresh in-memory store with the clock
// pinned to T0.
func SetupService(t *testing.T) (*tracking.Service, *FakeClock) {
	t.Helper()
	clk := NewFakeClock(T0)
	svc, err := tracking.NewService(store.NewMemory(), clk, 0)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, clk
}

// CreateUnit creates a unit with sensible defaults, overridable serial.
func CreateUnit(t *testing.T, svc *tracking.Service, serial string) *models.Unit {
	t.Helper()
	u, err := svc.CreateUnit(tracking.CreateUnitInput{
		SerialNumber: serial,
		Name:         "Crawler " + serial,
		Model:        "CX-200",
		Customer:     "Acme Industrial",
		Priority:     models.PriorityMedium,
		Actor:        "tester",
	})
	if err != nil {
		t.Fatalf("create unit %s: %v", serial, err)
	}
	return u
}

// MustTransition applies a stage change and fails the test on error.
func MustTransition(t *testing.T, svc *tracking.Service, id string, to models.Stage) *models.Unit {
	t.Helper()
	u, err := svc.Transition(id, to, "tester", "")
	if err != nil {
		t.Fatalf("transition to %s: %v", to, err)
	}
	return u
}
