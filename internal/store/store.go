// Package store keeps named scenarios. The store is shared across sessions:
// reads are concurrent, writes exclusive. Runs always operate on a private
// copy of the parameters taken at start time, so in-flight computation is
// never affected by a concurrent write.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/openw3/world3/internal/model"
)

// ErrNotFound reports an unknown scenario id.
var ErrNotFound = errors.New("scenario not found")

// ErrPreset reports an attempt to delete a built-in scenario.
var ErrPreset = errors.New("cannot delete preset scenarios")

// Scenario is a stored parameter set plus its preset flag.
type Scenario struct {
	Params   model.ScenarioParams `json:"params"`
	IsPreset bool                 `json:"is_preset"`
}

// Summary is the lightweight listing form.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ColorHex    string `json:"color_hex"`
	IsPreset    bool   `json:"is_preset"`
}

// Summarize builds the listing form of a scenario.
func Summarize(s Scenario) Summary {
	return Summary{
		ID:          s.Params.Meta.ID,
		Name:        s.Params.Meta.Name,
		Description: s.Params.Meta.Description,
		ColorHex:    s.Params.Meta.ColorHex,
		IsPreset:    s.IsPreset,
	}
}

// Store is the scenario repository shared by the HTTP surface and the
// streaming sessions.
type Store interface {
	// List returns summaries sorted by name.
	List() ([]Summary, error)
	// Get returns the scenario for id, or ErrNotFound.
	Get(id string) (Scenario, error)
	// Put inserts or replaces a scenario keyed by its meta id.
	Put(s Scenario) error
	// UpdateParams replaces the parameters of an existing scenario.
	UpdateParams(id string, p model.ScenarioParams) error
	// Delete removes a scenario; presets return ErrPreset.
	Delete(id string) error
}

// MemStore is the in-memory Store, seeded with the built-in presets.
type MemStore struct {
	mu        sync.RWMutex
	scenarios map[string]Scenario
}

// NewMemStore returns a MemStore holding the three preset scenarios.
func NewMemStore() *MemStore {
	m := &MemStore{scenarios: make(map[string]Scenario)}
	for _, p := range model.Presets() {
		m.scenarios[p.Meta.ID] = Scenario{Params: p, IsPreset: true}
	}
	return m
}

func (m *MemStore) List() ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.scenarios))
	for _, s := range m.scenarios {
		out = append(out, Summarize(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) Get(id string) (Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scenarios[id]
	if !ok {
		return Scenario{}, ErrNotFound
	}
	return s, nil
}

func (m *MemStore) Put(s Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[s.Params.Meta.ID] = s
	return nil
}

func (m *MemStore) UpdateParams(id string, p model.ScenarioParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scenarios[id]
	if !ok {
		return ErrNotFound
	}
	p.Meta.ID = id
	s.Params = p
	m.scenarios[id] = s
	return nil
}

func (m *MemStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scenarios[id]
	if !ok {
		return ErrNotFound
	}
	if s.IsPreset {
		return ErrPreset
	}
	delete(m.scenarios, id)
	return nil
}
