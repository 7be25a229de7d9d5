package store

import (
	"encoding/json"
	"sync"
)

// Memory is a map-backed store for tests and ephemeral runs. Values are
// round-tripped through JSON so behavior matches the durable stores.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Load(name string, v any) error {
	m.mu.RLock()
	data, ok := m.blobs[name]
	m.mu.RUnlock()
	if !ok {
		return ErrNoData
	}
	return json.Unmarshal(data, v)
}

func (m *Memory) Save(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs[name] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	delete(m.blobs, name)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
