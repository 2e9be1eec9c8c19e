package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/openw3/world3/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists scenarios as JSON payloads keyed by id. Presets are
// seeded on first open and re-seeded if deleted out of band.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the scenario database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS scenarios (
			id        TEXT PRIMARY KEY,
			name      TEXT NOT NULL,
			is_preset INTEGER NOT NULL DEFAULT 0,
			payload   BLOB NOT NULL
		)
	`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.seedPresets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *SQLiteStore) seedPresets() error {
	for _, p := range model.Presets() {
		var id string
		err := s.db.QueryRow(`SELECT id FROM scenarios WHERE name = ? AND is_preset = 1`, p.Meta.Name).Scan(&id)
		switch {
		case err == nil:
			continue // already seeded; keep its stable id
		case errors.Is(err, sql.ErrNoRows):
			if err := s.insert(Scenario{Params: p, IsPreset: true}); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) insert(sc Scenario) error {
	payload, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO scenarios (id, name, is_preset, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_preset = excluded.is_preset,
			payload = excluded.payload
	`, sc.Params.Meta.ID, sc.Params.Meta.Name, boolToInt(sc.IsPreset), payload)
	return err
}

func (s *SQLiteStore) List() ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT payload FROM scenarios`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var sc Scenario
		if err := json.Unmarshal(payload, &sc); err != nil {
			return nil, fmt.Errorf("decode scenario: %w", err)
		}
		out = append(out, Summarize(sc))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *SQLiteStore) Get(id string) (Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(id)
}

func (s *SQLiteStore) get(id string) (Scenario, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM scenarios WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Scenario{}, ErrNotFound
	}
	if err != nil {
		return Scenario{}, err
	}
	var sc Scenario
	if err := json.Unmarshal(payload, &sc); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario %s: %w", id, err)
	}
	return sc, nil
}

func (s *SQLiteStore) Put(sc Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(sc)
}

func (s *SQLiteStore) UpdateParams(id string, p model.ScenarioParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := s.get(id)
	if err != nil {
		return err
	}
	p.Meta.ID = id
	sc.Params = p
	return s.insert(sc)
}

func (s *SQLiteStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := s.get(id)
	if err != nil {
		return err
	}
	if sc.IsPreset {
		return ErrPreset
	}
	_, err = s.db.Exec(`DELETE FROM scenarios WHERE id = ?`, id)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
