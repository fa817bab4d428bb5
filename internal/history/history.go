// Package history records the price estimates made in each browser session.
package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded prediction. Entries are never modified once stored.
type Entry struct {
	ID         string             `json:"id"`
	Input      map[string]float64 `json:"input"`
	Prediction float64            `json:"prediction"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Store is an append-only, per-session sequence of entries
type Store interface {
	// Append stores e at the end of the session's history and returns it
	// with its ID and timestamp filled in.
	Append(session string, e Entry) (Entry, error)
	// List returns the session's entries in append order
	List(session string) ([]Entry, error)
	// Len returns the number of entries in the session
	Len(session string) (int, error)
	Close() error
}

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open creates the store for the configured backend
func Open(backend, sqlitePath string) (Store, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendSQLite:
		return OpenSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown history backend %q", backend)
	}
}

func copyInput(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (e Entry) clone() Entry {
	e.Input = copyInput(e.Input)
	return e
}

// stamp fills in the ID and creation time of a new entry
func stamp(e Entry, now func() time.Time) Entry {
	e = e.clone()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now().UTC()
	}
	return e
}

// MemoryStore keeps entries for the lifetime of the process
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Entry
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]Entry),
		now:      time.Now,
	}
}

// Append implements Store
func (s *MemoryStore) Append(session string, e Entry) (Entry, error) {
	e = stamp(e, s.now)

	s.mu.Lock()
	s.sessions[session] = append(s.sessions[session], e)
	s.mu.Unlock()

	return e.clone(), nil
}

// List implements Store
func (s *MemoryStore) List(session string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.sessions[session]
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.clone()
	}
	return out, nil
}

// Len implements Store
func (s *MemoryStore) Len(session string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[session]), nil
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
