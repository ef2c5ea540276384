// Package storage defines the persistence contracts of the oversight engine.
// Implementations live in the memory and sqlite subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/AltairaLabs/lead-oversight/internal/countdown"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Shared argument errors returned by every backend
var (
	ErrClaimNil        = errors.New("claim cannot be nil")
	ErrWorkerIDEmpty   = errors.New("worker ID cannot be empty")
	ErrSessionNil      = errors.New("session cannot be nil")
	ErrSessionIDEmpty  = errors.New("session ID cannot be empty")
	ErrSessionExists   = errors.New("session already exists")
	ErrWorkerHasActive = errors.New("worker already has an active session")
)

// ClaimStore persists claim records, one per worker
type ClaimStore interface {
	// GetClaim retrieves the live claim for a worker
	// Returns nil, nil if the worker is unclaimed
	GetClaim(ctx context.Context, workerID string) (*types.ClaimRecord, error)

	// PutClaim inserts or replaces the claim of claim.WorkerID
	PutClaim(ctx context.Context, claim *types.ClaimRecord) error

	// DeleteClaim removes a worker's claim
	// Returns false, nil when there was nothing to delete
	DeleteClaim(ctx context.Context, workerID string) (bool, error)

	// ListClaims returns every live claim ordered by worker ID
	ListClaims(ctx context.Context) ([]*types.ClaimRecord, error)
}

// SessionStore persists supervision sessions
type SessionStore interface {
	// CreateSession stores a new session
	// Returns ErrSessionExists or ErrWorkerHasActive on collisions
	CreateSession(ctx context.Context, session *types.SupervisionSession) error

	// GetSession retrieves a session by ID
	// Returns nil, nil if not found
	GetSession(ctx context.Context, sessionID string) (*types.SupervisionSession, error)

	// GetSessionByWorker retrieves the session of a claimed worker
	// Returns nil, nil if not found
	GetSessionByWorker(ctx context.Context, workerID string) (*types.SupervisionSession, error)

	// UpdateSession replaces a stored session
	// Returns types.ErrSessionNotFound if it does not exist
	UpdateSession(ctx context.Context, session *types.SupervisionSession) error

	// DeleteSession removes a session; deleting a missing session is not an error
	DeleteSession(ctx context.Context, sessionID string) error

	// ListSessions returns every session ordered by start time
	ListSessions(ctx context.Context) ([]*types.SupervisionSession, error)
}

// TimerStore persists countdown timer state across restarts
type TimerStore interface {
	// SaveTimers replaces the stored timer set with timers
	SaveTimers(ctx context.Context, timers []countdown.Timer) error

	// LoadTimers returns the stored timer set
	LoadTimers(ctx context.Context) ([]countdown.Timer, error)
}

// Store bundles every persistence concern of the engine
type Store interface {
	ClaimStore
	SessionStore
	TimerStore
	Close() error
}
