// Package sqlite provides a durable storage.Store backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AltairaLabs/lead-oversight/internal/countdown"
	"github.com/AltairaLabs/lead-oversight/internal/storage"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Store persists claims, sessions and timers in a single SQLite database
type Store struct {
	db   *sql.DB
	path string
}

var _ storage.Store = (*Store)(nil)

// New opens (creating if needed) the database at path and applies the schema
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS claims (
		worker_id TEXT PRIMARY KEY,
		supervisor_id TEXT NOT NULL,
		claimed_at INTEGER NOT NULL,
		distance_miles REAL NOT NULL,
		tier TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL UNIQUE,
		started_at INTEGER NOT NULL,
		session_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

	CREATE TABLE IF NOT EXISTS timers (
		key TEXT PRIMARY KEY,
		timer_json TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Claim operations

// GetClaim retrieves the live claim for a worker
func (s *Store) GetClaim(ctx context.Context, workerID string) (*types.ClaimRecord, error) {
	if workerID == "" {
		return nil, storage.ErrWorkerIDEmpty
	}

	var rec types.ClaimRecord
	var claimedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT worker_id, supervisor_id, claimed_at, distance_miles, tier
		FROM claims WHERE worker_id = ?
	`, workerID).Scan(&rec.WorkerID, &rec.SupervisorID, &claimedAt, &rec.DistanceMiles, &rec.Tier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	rec.ClaimedAt = time.Unix(0, claimedAt).UTC()
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claims (worker_id, supervisor_id, claimed_at, distance_miles, tier)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(worker_id) DO UPDATE SET
			supervisor_id = excluded.supervisor_id,
			claimed_at = excluded.claimed_at,
			distance_miles = excluded.distance_miles,
			tier = excluded.tier
	`, claim.WorkerID, claim.SupervisorID, claim.ClaimedAt.UnixNano(), claim.DistanceMiles, string(claim.Tier))
	if err != nil {
		return fmt.Errorf("put claim: %w", err)
	}
	return nil
}

// DeleteClaim removes a worker's claim
func (s *Store) DeleteClaim(ctx context.Context, workerID string) (bool, error) {
	if workerID == "" {
		return false, storage.ErrWorkerIDEmpty
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM claims WHERE worker_id = ?`, workerID)
	if err != nil {
		return false, fmt.Errorf("delete claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete claim: %w", err)
	}
	return n > 0, nil
}

// ListClaims returns every live claim ordered by worker ID
func (s *Store) ListClaims(ctx context.Context) ([]*types.ClaimRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT worker_id, supervisor_id, claimed_at, distance_miles, tier
		FROM claims ORDER BY worker_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	claims := []*types.ClaimRecord{}
	for rows.Next() {
		var rec types.ClaimRecord
		var claimedAt int64
		if err := rows.Scan(&rec.WorkerID, &rec.SupervisorID, &claimedAt, &rec.DistanceMiles, &rec.Tier); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		rec.ClaimedAt = time.Unix(0, claimedAt).UTC()
		claims = append(claims, &rec)
	}
	return claims, rows.Err()
}

// Session operations

// CreateSession stores a new session
func (s *Store) CreateSession(ctx context.Context, session *types.SupervisionSession) error {
	if session == nil {
		return storage.ErrSessionNil
	}
	if session.ID == "" {
		return storage.ErrSessionIDEmpty
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM sessions WHERE id = ? OR worker_id = ?`, session.ID, session.WorkerID).
		Scan(&existing)
	switch {
	case err == nil && existing == session.ID:
		return fmt.Errorf("%w: %s", storage.ErrSessionExists, session.ID)
	case err == nil:
		return fmt.Errorf("%w: worker %s has session %s", storage.ErrWorkerHasActive, session.WorkerID, existing)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, worker_id, started_at, session_json) VALUES (?, ?, ?, ?)
	`, session.ID, session.WorkerID, session.StartedAt.UnixNano(), string(data)); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return tx.Commit()
}

// GetSession retrieves a session by ID
func (s *Store) GetSession(ctx context.Context, sessionID string) (*types.SupervisionSession, error) {
	if sessionID == "" {
		return nil, storage.ErrSessionIDEmpty
	}
	return s.scanSession(s.db.QueryRowContext(ctx, `SELECT session_json FROM sessions WHERE id = ?`, sessionID))
}

// GetSessionByWorker retrieves the session of a claimed worker
func (s *Store) GetSessionByWorker(ctx context.Context, workerID string) (*types.SupervisionSession, error) {
	if workerID == "" {
		return nil, storage.ErrWorkerIDEmpty
	}
	return s.scanSession(s.db.QueryRowContext(ctx, `SELECT session_json FROM sessions WHERE worker_id = ?`, workerID))
}

func (s *Store) scanSession(row *sql.Row) (*types.SupervisionSession, error) {
	var data string
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session types.SupervisionSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// UpdateSession replaces a stored session
func (s *Store) UpdateSession(ctx context.Context, session *types.SupervisionSession) error {
	if session == nil {
		return storage.ErrSessionNil
	}
	if session.ID == "" {
		return storage.ErrSessionIDEmpty
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET session_json = ? WHERE id = ?`, string(data), session.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.NewError(types.ErrSessionNotFound, "session %s", session.ID)
	}
	return nil
}

// DeleteSession removes a session
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return storage.ErrSessionIDEmpty
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListSessions returns every session ordered by start time
func (s *Store) ListSessions(ctx context.Context) ([]*types.SupervisionSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_json FROM sessions ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*types.SupervisionSession{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var session types.SupervisionSession
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

// Timer operations

// SaveTimers replaces the stored timer set
func (s *Store) SaveTimers(ctx context.Context, timers []countdown.Timer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM timers`); err != nil {
		return fmt.Errorf("clear timers: %w", err)
	}
	for _, t := range timers {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal timer %s: %w", t.Key, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO timers (key, timer_json) VALUES (?, ?)`, t.Key, string(data)); err != nil {
			return fmt.Errorf("insert timer %s: %w", t.Key, err)
		}
	}
	return tx.Commit()
}

// LoadTimers returns the stored timer set ordered by key
func (s *Store) LoadTimers(ctx context.Context) ([]countdown.Timer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT timer_json FROM timers ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("load timers: %w", err)
	}
	defer rows.Close()

	var timers []countdown.Timer
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan timer: %w", err)
		}
		var t countdown.Timer
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("unmarshal timer: %w", err)
		}
		timers = append(timers, t)
	}
	return timers, rows.Err()
}
