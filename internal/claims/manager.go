// Package claims enforces exclusive, time-bounded ownership of workers by supervisors.
package claims

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/geo"
	"github.com/AltairaLabs/lead-oversight/internal/keylock"
	"github.com/AltairaLabs/lead-oversight/internal/storage"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// AlertTypeLeadConflict is the alert type of a competing claim attempt
const AlertTypeLeadConflict = string(types.ReasonConflictDetected)

// RouteTracker starts in-route monitoring once a claim succeeds
type RouteTracker interface {
	StartRoute(workerID string, from types.LatLng, travel time.Duration, now time.Time) error
}

// TimerClearer drops every session-scoped timer of a worker
type TimerClearer interface {
	ClearSession(workerID string) int
}

// AlertSink receives advisory alerts. Delivery failures are logged and never affect claims.
type AlertSink interface {
	Notify(ctx context.Context, alert types.Alert) error
}

// Request is one claim attempt
type Request struct {
	WorkerID      string
	SupervisorID  string
	DistanceMiles float64
	LeadLocation  types.LatLng
	AdminOverride bool
}

// Result is a successful claim
type Result struct {
	Record         types.ClaimRecord `json:"record"`
	Proximity      geo.TierInfo      `json:"proximity"`
	TravelEstimate time.Duration     `json:"travel_estimate"`
	Warning        string            `json:"warning,omitempty"`
}

// Option configures a Manager
type Option func(*Manager)

// WithRouteTracker sets the in-route monitor started on every successful claim
func WithRouteTracker(t RouteTracker) Option {
	return func(m *Manager) { m.routes = t }
}

// WithTimerClearer sets the timer family cleared on release
func WithTimerClearer(c TimerClearer) Option {
	return func(m *Manager) { m.timers = c }
}

// WithAlertSink sets the receiver of conflict alerts
func WithAlertSink(s AlertSink) Option {
	return func(m *Manager) { m.alerts = s }
}

// Manager serializes claim and release operations per worker
type Manager struct {
	store      storage.ClaimStore
	classifier *geo.Classifier
	cfg        config.ClaimConfig
	logger     *slog.Logger
	locks      *keylock.Locker

	routes RouteTracker
	timers TimerClearer
	alerts AlertSink
}

// NewManager creates a claim manager
func NewManager(
	store storage.ClaimStore,
	classifier *geo.Classifier,
	cfg config.ClaimConfig,
	logger *slog.Logger,
	opts ...Option,
) *Manager {
	m := &Manager{
		store:      store,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
		locks:      keylock.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TryClaim grants req.SupervisorID exclusive ownership of req.WorkerID
func (m *Manager) TryClaim(ctx context.Context, req Request, now time.Time) (*Result, error) {
	if req.WorkerID == "" || req.SupervisorID == "" {
		return nil, types.NewError(types.ErrInvalidArgument, "worker and supervisor are required")
	}

	info := m.classifier.Classify(req.DistanceMiles)

	unlock := m.locks.Lock(req.WorkerID)
	existing, err := m.store.GetClaim(ctx, req.WorkerID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	if existing != nil {
		unlock()
		m.detectConflict(ctx, existing, req.SupervisorID, now)
		return nil, types.NewError(types.ErrAlreadyClaimed,
			"worker %s is already claimed by %s", req.WorkerID, existing.SupervisorID)
	}

	if err := geo.CheckSelectable(info, req.AdminOverride); err != nil {
		unlock()
		return nil, err
	}

	rec := types.ClaimRecord{
		WorkerID:      req.WorkerID,
		SupervisorID:  req.SupervisorID,
		ClaimedAt:     now,
		DistanceMiles: req.DistanceMiles,
		Tier:          info.Tier,
	}
	if err := m.store.PutClaim(ctx, &rec); err != nil {
		unlock()
		return nil, fmt.Errorf("failed to store claim: %w", err)
	}

	travel := geo.TravelEstimate(req.DistanceMiles, m.cfg.TravelMinutesPerMile)
	if m.routes != nil {
		if err := m.routes.StartRoute(req.WorkerID, req.LeadLocation, travel, now); err != nil {
			m.logger.Warn("Failed to start route tracking",
				"worker_id", req.WorkerID,
				"error", err,
			)
		}
	}
	unlock()

	m.logger.Info("Worker claimed",
		"worker_id", req.WorkerID,
		"supervisor_id", req.SupervisorID,
		"distance_miles", req.DistanceMiles,
		"tier", info.Tier,
		"admin_override", req.AdminOverride,
	)

	return &Result{
		Record:         rec,
		Proximity:      info,
		TravelEstimate: travel,
		Warning:        info.Warning,
	}, nil
}

func (m *Manager) detectConflict(ctx context.Context, existing *types.ClaimRecord, attempter string, now time.Time) {
	if existing.SupervisorID == attempter {
		return
	}
	elapsed := now.Sub(existing.ClaimedAt)
	if elapsed < 0 || elapsed > m.cfg.ConflictWindow {
		return
	}

	alert := types.Alert{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Type:      AlertTypeLeadConflict,
		Message:   fmt.Sprintf(config.MsgLeadConflict, existing.WorkerID, existing.SupervisorID, attempter, elapsed.Round(time.Second)),
		Priority:  types.AlertHigh,
		Trigger:   "claim_attempt_within_window",
		WorkerID:  existing.WorkerID,
		CreatedAt: now,
		Context: map[string]string{
			"claimed_by":   existing.SupervisorID,
			"attempted_by": attempter,
			"elapsed":      elapsed.String(),
		},
	}

	m.logger.Warn("Lead conflict detected",
		"worker_id", existing.WorkerID,
		"claimed_by", existing.SupervisorID,
		"attempted_by", attempter,
		"elapsed", elapsed,
	)

	if m.alerts == nil {
		return
	}
	if err := m.alerts.Notify(ctx, alert); err != nil {
		m.logger.Error("Failed to deliver conflict alert",
			"worker_id", existing.WorkerID,
			"error", err,
		)
	}
}

// Release ends the worker's claim and clears its session timers.
// Releasing an unclaimed worker is a no-op and returns nil.
func (m *Manager) Release(ctx context.Context, workerID string, reason types.ReleaseReason) (*types.ClaimRecord, error) {
	unlock := m.locks.Lock(workerID)
	defer unlock()
	return m.releaseLocked(ctx, workerID, reason)
}

func (m *Manager) releaseLocked(ctx context.Context, workerID string, reason types.ReleaseReason) (*types.ClaimRecord, error) {
	existing, err := m.store.GetClaim(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	if existing == nil {
		return nil, nil
	}
	if _, err := m.store.DeleteClaim(ctx, workerID); err != nil {
		return nil, fmt.Errorf("failed to delete claim: %w", err)
	}

	cleared := 0
	if m.timers != nil {
		cleared = m.timers.ClearSession(workerID)
	}

	m.logger.Info("Worker released",
		"worker_id", workerID,
		"supervisor_id", existing.SupervisorID,
		"reason", reason,
		"timers_cleared", cleared,
	)
	return existing, nil
}

// Unselect releases a worker on behalf of its owner without penalizing the worker
func (m *Manager) Unselect(
	ctx context.Context,
	workerID, supervisorID string,
	reason types.ReleaseReason,
) (*types.ClaimRecord, error) {
	switch reason {
	case types.ReleaseError, types.ReleaseEmergency, types.ReleaseReassignment:
	default:
		return nil, types.NewError(types.ErrInvalidArgument,
			"unselect reason must be error, emergency or reassignment, got %q", reason)
	}

	unlock := m.locks.Lock(workerID)
	defer unlock()

	existing, err := m.store.GetClaim(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	if existing == nil {
		return nil, nil
	}
	if existing.SupervisorID != supervisorID {
		return nil, types.NewError(types.ErrNotClaimOwner,
			"worker %s is claimed by %s", workerID, existing.SupervisorID)
	}
	return m.releaseLocked(ctx, workerID, reason)
}

// Get returns the live claim of a worker, or nil
func (m *Manager) Get(ctx context.Context, workerID string) (*types.ClaimRecord, error) {
	return m.store.GetClaim(ctx, workerID)
}

// List returns every live claim
func (m *Manager) List(ctx context.Context) ([]*types.ClaimRecord, error) {
	return m.store.ListClaims(ctx)
}

// ExpireStale releases every claim older than the configured timeout
func (m *Manager) ExpireStale(ctx context.Context, now time.Time) ([]types.ClaimRecord, error) {
	workers, err := m.StaleWorkers(ctx, now)
	if err != nil {
		return nil, err
	}

	var expired []types.ClaimRecord
	for _, workerID := range workers {
		rec, err := m.ExpireIfStale(ctx, workerID, now)
		if err != nil {
			return expired, err
		}
		if rec != nil {
			expired = append(expired, *rec)
		}
	}
	return expired, nil
}

// StaleWorkers lists workers whose claim is older than the configured timeout
func (m *Manager) StaleWorkers(ctx context.Context, now time.Time) ([]string, error) {
	claims, err := m.store.ListClaims(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	var out []string
	for _, c := range claims {
		if now.Sub(c.ClaimedAt) >= m.cfg.Timeout {
			out = append(out, c.WorkerID)
		}
	}
	return out, nil
}

// ExpireIfStale releases the worker's claim when it is past the timeout. Age is re-checked
// under the lock so a fresh re-claim is never expired.
func (m *Manager) ExpireIfStale(ctx context.Context, workerID string, now time.Time) (*types.ClaimRecord, error) {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	current, err := m.store.GetClaim(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	if current == nil || now.Sub(current.ClaimedAt) < m.cfg.Timeout {
		return nil, nil
	}
	return m.releaseLocked(ctx, workerID, types.ReleaseTimeout)
}
