// Package memory provides in-memory implementations of the storage interfaces.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/AltairaLabs/lead-oversight/internal/countdown"
	"github.com/AltairaLabs/lead-oversight/internal/storage"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Store implements storage.Store using in-memory maps
type Store struct {
	mu             sync.RWMutex
	claims         map[string]types.ClaimRecord
	sessions       map[string]*types.SupervisionSession
	workerSessions map[string]string // workerID -> sessionID
	timers         []countdown.Timer
}

var _ storage.Store = (*Store)(nil)

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		claims:         make(map[string]types.ClaimRecord),
		sessions:       make(map[string]*types.SupervisionSession),
		workerSessions: make(map[string]string),
	}
}

// GetClaim retrieves the live claim for a worker
func (s *Store) GetClaim(ctx context.Context, workerID string) (*types.ClaimRecord, error) {
	if workerID == "" {
		return nil, storage.ErrWorkerIDEmpty
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.claims[workerID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// PutClaim inserts or replaces a claim
func (s *Store) PutClaim(ctx context.Context, claim *types.ClaimRecord) error {
	if claim == nil {
		return storage.ErrClaimNil
	}
	if claim.WorkerID == "" {
		return storage.ErrWorkerIDEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claim.WorkerID] = *claim
	return nil
}

// DeleteClaim removes a worker's claim
func (s *Store) DeleteClaim(ctx context.Context, workerID string) (bool, error) {
	if workerID == "" {
		return false, storage.ErrWorkerIDEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[workerID]; !ok {
		return false, nil
	}
	delete(s.claims, workerID)
	return true, nil
}

// ListClaims returns every live claim ordered by worker ID
func (s *Store) ListClaims(ctx context.Context) ([]*types.ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.ClaimRecord, 0, len(s.claims))
	for _, rec := range s.claims {
		rec := rec
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkerID < out[j].WorkerID })
	return out, nil
}

// CreateSession stores a new session
func (s *Store) CreateSession(ctx context.Context, session *types.SupervisionSession) error {
	if session == nil {
		return storage.ErrSessionNil
	}
	if session.ID == "" {
		return storage.ErrSessionIDEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("%w: %s", storage.ErrSessionExists, session.ID)
	}
	if existing, ok := s.workerSessions[session.WorkerID]; ok {
		return fmt.Errorf("%w: worker %s has session %s", storage.ErrWorkerHasActive, session.WorkerID, existing)
	}

	// Store a copy to prevent external modifications
	s.sessions[session.ID] = session.Clone()
	s.workerSessions[session.WorkerID] = session.ID
	return nil
}

// GetSession retrieves a session by ID
func (s *Store) GetSession(ctx context.Context, sessionID string) (*types.SupervisionSession, error) {
	if sessionID == "" {
		return nil, storage.ErrSessionIDEmpty
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return session.Clone(), nil
}

// GetSessionByWorker retrieves the session of a claimed worker
func (s *Store) GetSessionByWorker(ctx context.Context, workerID string) (*types.SupervisionSession, error) {
	if workerID == "" {
		return nil, storage.ErrWorkerIDEmpty
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.workerSessions[workerID]
	if !ok {
		return nil, nil
	}
	return s.sessions[id].Clone(), nil
}

// UpdateSession replaces a stored session
func (s *Store) UpdateSession(ctx context.Context, session *types.SupervisionSession) error {
	if session == nil {
		return storage.ErrSessionNil
	}
	if session.ID == "" {
		return storage.ErrSessionIDEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return types.NewError(types.ErrSessionNotFound, "session %s", session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// DeleteSession removes a session
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return storage.ErrSessionIDEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(s.sessions, sessionID)
	if s.workerSessions[session.WorkerID] == sessionID {
		delete(s.workerSessions, session.WorkerID)
	}
	return nil
}

// ListSessions returns every session ordered by start time
func (s *Store) ListSessions(ctx context.Context) ([]*types.SupervisionSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.SupervisionSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// SaveTimers replaces the stored timer set
func (s *Store) SaveTimers(ctx context.Context, timers []countdown.Timer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers = append([]countdown.Timer(nil), timers...)
	return nil
}

// LoadTimers returns the stored timer set
func (s *Store) LoadTimers(ctx context.Context) ([]countdown.Timer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]countdown.Timer(nil), s.timers...), nil
}

// Close is a no-op for the in-memory store
func (s *Store) Close() error {
	return nil
}
