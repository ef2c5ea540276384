// Package session orchestrates one supervision session per claimed worker, tying
// claims, timers, workflow ordering and check-in validation together.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AltairaLabs/lead-oversight/internal/checkin"
	"github.com/AltairaLabs/lead-oversight/internal/claims"
	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/countdown"
	"github.com/AltairaLabs/lead-oversight/internal/geo"
	"github.com/AltairaLabs/lead-oversight/internal/keylock"
	"github.com/AltairaLabs/lead-oversight/internal/roster"
	"github.com/AltairaLabs/lead-oversight/internal/storage"
	"github.com/AltairaLabs/lead-oversight/internal/types"
	"github.com/AltairaLabs/lead-oversight/internal/workflow"
)

// MaxLocationSamples bounds the location history kept on a session
const MaxLocationSamples = 500

// SelectRequest asks to claim a worker and open a session
type SelectRequest struct {
	Lead          types.Lead
	WorkerID      string
	AdminOverride bool
}

// SelectResult is an opened session and its claim
type SelectResult struct {
	Session *types.SupervisionSession `json:"session"`
	Claim   *claims.Result            `json:"claim"`
	Next    types.WorkflowStep        `json:"next"`
}

// StepResult is a session after a successful step change
type StepResult struct {
	Session *types.SupervisionSession `json:"session"`
	Next    types.WorkflowStep        `json:"next"`
}

// SubmitResult is the frozen session and any non-blocking validation warnings
type SubmitResult struct {
	Session  *types.SupervisionSession `json:"session"`
	Warnings []string                  `json:"warnings,omitempty"`
}

// TickReport is the outcome of ticking one session's timers
type TickReport struct {
	SessionID string              `json:"session_id"`
	WorkerID  string              `json:"worker_id"`
	Billing   types.BillingStatus `json:"billing"`
	Events    []countdown.Event   `json:"events,omitempty"`
}

// Manager owns the lifecycle of supervision sessions
type Manager struct {
	store   storage.SessionStore
	claims  *claims.Manager
	timers  *countdown.Timers
	roster  roster.Source
	prompts config.PromptConfig
	logger  *slog.Logger
	locks   *keylock.Locker
	newID   func() string
}

// NewManager creates a session manager
func NewManager(
	store storage.SessionStore,
	claimManager *claims.Manager,
	timers *countdown.Timers,
	source roster.Source,
	prompts config.PromptConfig,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		store:   store,
		claims:  claimManager,
		timers:  timers,
		roster:  source,
		prompts: prompts,
		logger:  logger,
		locks:   keylock.New(),
		newID:   uuid.NewString,
	}
}

// Select claims the worker for the lead and opens an en-route session
func (m *Manager) Select(ctx context.Context, req SelectRequest, now time.Time) (*SelectResult, error) {
	worker, err := m.roster.Worker(ctx, req.WorkerID)
	if err != nil {
		return nil, err
	}
	if !leadCanServe(req.Lead, worker) {
		return nil, types.NewError(types.ErrNotSelectable,
			"lead %s does not handle any service offered by worker %s", req.Lead.ID, worker.ID)
	}

	unlock := m.locks.Lock(req.WorkerID)
	defer unlock()

	if err := m.clearPrevious(ctx, req.WorkerID); err != nil {
		return nil, err
	}

	miles := geo.Distance(req.Lead.Location, worker.Location)
	claim, err := m.claims.TryClaim(ctx, claims.Request{
		WorkerID:      worker.ID,
		SupervisorID:  req.Lead.ID,
		DistanceMiles: miles,
		LeadLocation:  req.Lead.Location,
		AdminOverride: req.AdminOverride,
	}, now)
	if err != nil {
		return nil, err
	}

	step, err := workflow.Advance(types.StepBubblerSelected, types.StepEnRoute, workflow.State{})
	if err != nil {
		m.rollbackClaim(ctx, worker.ID)
		return nil, err
	}

	s := &types.SupervisionSession{
		ID:             m.newID(),
		WorkerID:       worker.ID,
		SupervisorID:   req.Lead.ID,
		Step:           types.StepEnRoute,
		StartedAt:      now,
		Locations:      []types.LocationSample{{Position: req.Lead.Location, At: now}},
		Billing:        types.BillingActive,
		TravelEstimate: claim.TravelEstimate,
	}
	if err := m.store.CreateSession(ctx, s); err != nil {
		m.rollbackClaim(ctx, worker.ID)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.logger.Info("Session opened",
		"session_id", s.ID,
		"worker_id", s.WorkerID,
		"supervisor_id", s.SupervisorID,
		"travel_estimate", s.TravelEstimate,
	)
	return &SelectResult{Session: s, Claim: claim, Next: step}, nil
}

// clearPrevious removes a submitted session, or an unsubmitted one whose claim is gone,
// before the worker is claimed again
func (m *Manager) clearPrevious(ctx context.Context, workerID string) error {
	prev, err := m.store.GetSessionByWorker(ctx, workerID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if prev == nil {
		return nil
	}
	if !prev.Submitted {
		claim, err := m.claims.Get(ctx, workerID)
		if err != nil {
			return err
		}
		if claim != nil {
			return nil
		}
		m.logger.Warn("Dropping orphaned session", "session_id", prev.ID, "worker_id", workerID)
	}
	if err := m.store.DeleteSession(ctx, prev.ID); err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}
	return nil
}

func leadCanServe(lead types.Lead, w *types.Worker) bool {
	for _, s := range lead.Services {
		if w.Offers(s) {
			return true
		}
	}
	return false
}

func (m *Manager) rollbackClaim(ctx context.Context, workerID string) {
	if _, err := m.claims.Release(ctx, workerID, types.ReleaseError); err != nil {
		m.logger.Error("Failed to roll back claim", "worker_id", workerID, "error", err)
	}
}

// load fetches the active session of a worker; callers must hold the worker lock.
// Mutations are only accepted from the supervisor that owns the session.
func (m *Manager) load(ctx context.Context, workerID, supervisorID string, mutating bool) (*types.SupervisionSession, error) {
	if mutating && supervisorID == "" {
		return nil, types.NewError(types.ErrInvalidArgument, "lead_id is required")
	}
	s, err := m.store.GetSessionByWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil {
		return nil, types.NewError(types.ErrSessionNotFound, "no session for worker %s", workerID)
	}
	if mutating && s.SupervisorID != supervisorID {
		return nil, types.NewError(types.ErrNotClaimOwner,
			"session %s of worker %s belongs to %s", s.ID, workerID, s.SupervisorID)
	}
	if mutating && s.Submitted {
		return nil, types.NewError(types.ErrSessionFrozen, "session %s was submitted", s.ID)
	}
	return s, nil
}

// RecordLocation appends a GPS sample and runs stall detection while en route
func (m *Manager) RecordLocation(
	ctx context.Context,
	workerID, supervisorID string,
	sample types.LocationSample,
) (*countdown.MovementStatus, []countdown.Event, error) {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	s, err := m.load(ctx, workerID, supervisorID, true)
	if err != nil {
		return nil, nil, err
	}

	s.Locations = append(s.Locations, sample)
	if n := len(s.Locations); n > MaxLocationSamples {
		s.Locations = s.Locations[n-MaxLocationSamples:]
	}

	var status *countdown.MovementStatus
	var events []countdown.Event
	if s.Step == types.StepEnRoute && m.timers.Movement.Active(workerID) {
		st, evs, err := m.timers.Movement.Observe(workerID, sample)
		if err != nil {
			return nil, nil, err
		}
		status, events = &st, evs
		s.Billing = st.Billing
	}

	if err := m.store.UpdateSession(ctx, s); err != nil {
		return nil, nil, fmt.Errorf("failed to update session: %w", err)
	}
	return status, events, nil
}

// Advance moves the session to target. Submission goes through Submit.
func (m *Manager) Advance(ctx context.Context, workerID, supervisorID string, target types.WorkflowStep, now time.Time) (*StepResult, error) {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	s, err := m.load(ctx, workerID, supervisorID, true)
	if err != nil {
		return nil, err
	}
	return m.advanceLocked(ctx, s, target, now)
}

func (m *Manager) advanceLocked(
	ctx context.Context,
	s *types.SupervisionSession,
	target types.WorkflowStep,
	now time.Time,
) (*StepResult, error) {
	next, err := workflow.Advance(s.Step, target, workflow.StateOf(s))
	if err != nil {
		return nil, err
	}

	switch target {
	case types.StepSubmitted:
		return nil, types.NewError(types.ErrInvalidArgument, "submission requires a check-in report")
	case types.StepArrived:
		m.timers.Movement.Stop(s.WorkerID)
		s.Billing = types.BillingActive
	case types.StepWrapUpStarted:
		if err := m.timers.WrapUp.Start(s.WorkerID, now); err != nil {
			return nil, err
		}
		started := now
		s.WrapUpStartedAt = &started
	}

	prev := s.Step
	s.Step = target
	if err := m.store.UpdateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	m.logger.Info("Session advanced",
		"session_id", s.ID,
		"worker_id", s.WorkerID,
		"from", prev,
		"to", target,
	)
	return &StepResult{Session: s, Next: next}, nil
}

// AddEvaluation records or replaces a room evaluation. The first evaluation moves an
// arrived session into room evaluation.
func (m *Manager) AddEvaluation(ctx context.Context, workerID, supervisorID string, eval types.RoomEvaluation, now time.Time) (*types.SupervisionSession, error) {
	if strings.TrimSpace(eval.Room) == "" {
		return nil, types.NewError(types.ErrInvalidArgument, "room is required")
	}
	if !eval.Classification.Valid() {
		return nil, types.NewError(types.ErrInvalidArgument, "unknown classification %q", eval.Classification)
	}

	unlock := m.locks.Lock(workerID)
	defer unlock()

	s, err := m.load(ctx, workerID, supervisorID, true)
	if err != nil {
		return nil, err
	}

	if s.Step == types.StepArrived {
		if _, err := workflow.Advance(s.Step, types.StepRoomEvaluationStarted, workflow.StateOf(s)); err != nil {
			return nil, err
		}
		s.Step = types.StepRoomEvaluationStarted
	}
	if s.Step != types.StepRoomEvaluationStarted {
		return nil, types.NewError(types.ErrWorkflowOrderViolation,
			"room evaluations are recorded during room evaluation, session is %s", s.Step)
	}

	eval.RequiresPhoto = eval.Classification == types.RoomNeedsRedo
	eval.Locked = eval.RequiresPhoto && eval.Documented()
	eval.RecordedAt = now

	replaced := false
	for i := range s.Evaluations {
		if s.Evaluations[i].Room != eval.Room {
			continue
		}
		if s.Evaluations[i].Locked {
			return nil, types.NewError(types.ErrInvalidArgument, "room %q is documented for redo and locked", eval.Room)
		}
		s.Evaluations[i] = eval
		replaced = true
		break
	}
	if !replaced {
		s.Evaluations = append(s.Evaluations, eval)
	}

	if err := m.store.UpdateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return s, nil
}

// StartAssistance opens an assistance entry and its timer
func (m *Manager) StartAssistance(
	ctx context.Context,
	workerID, supervisorID string,
	kind types.AssistanceType,
	notes string,
	now time.Time,
) (*types.AssistanceEntry, error) {
	if !kind.Valid() {
		return nil, types.NewError(types.ErrInvalidArgument, "unknown assistance type %q", kind)
	}

	unlock := m.locks.Lock(workerID)
	defer unlock()

	s, err := m.load(ctx, workerID, supervisorID, true)
	if err != nil {
		return nil, err
	}
	switch s.Step {
	case types.StepRoomEvaluationStarted, types.StepRoomEvaluationCompleted, types.StepAssistanceLogged:
	default:
		return nil, types.NewError(types.ErrWorkflowOrderViolation,
			"assistance is logged on site before wrap-up, session is %s", s.Step)
	}

	entry := types.AssistanceEntry{ID: m.newID(), Type: kind, StartedAt: now, Notes: notes}
	if err := m.timers.Assistance.Start(workerID, entry.ID, now); err != nil {
		return nil, err
	}
	s.Assistance = append(s.Assistance, entry)

	if err := m.store.UpdateSession(ctx, s); err != nil {
		m.timers.Engine.Clear(countdown.AssistanceKey(workerID, entry.ID))
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return &entry, nil
}

// EndAssistance closes an assistance entry. Entries that ran past the justification
// mark must carry a justification.
func (m *Manager) EndAssistance(
	ctx context.Context,
	workerID, supervisorID, entryID, notes string,
	justification types.AssistanceType,
	now time.Time,
) (*countdown.AssistanceStatus, error) {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	s, err := m.load(ctx, workerID, supervisorID, true)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range s.Assistance {
		if s.Assistance[i].ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, types.NewError(types.ErrInvalidArgument, "unknown assistance entry %s", entryID)
	}
	entry := &s.Assistance[idx]
	if entry.EndedAt != nil {
		return nil, types.NewError(types.ErrInvalidArgument, "assistance entry %s already ended", entryID)
	}

	status, err := m.timers.Assistance.Status(workerID, entryID, now)
	if err != nil && !errors.Is(err, types.ErrTimerNotFound) {
		return nil, err
	}
	if err != nil {
		status = countdown.AssistanceStatus{Elapsed: now.Sub(entry.StartedAt)}
	}
	if status.JustificationRequired && !justification.Valid() {
		return nil, &types.ValidationError{Errors: []string{
			fmt.Sprintf("assistance ran %s; justification required: setup, demonstration, task_completion or equipment_delivery",
				status.Elapsed.Round(time.Minute)),
		}}
	}

	if _, err := m.timers.Assistance.Stop(workerID, entryID, now); err != nil && !errors.Is(err, types.ErrTimerNotFound) {
		return nil, err
	}

	ended := now
	entry.EndedAt = &ended
	if strings.TrimSpace(notes) != "" {
		entry.Notes = notes
	}
	entry.Justification = justification

	if s.Step == types.StepRoomEvaluationCompleted {
		if _, err := workflow.Advance(s.Step, types.StepAssistanceLogged, workflow.StateOf(s)); err == nil {
			s.Step = types.StepAssistanceLogged
		}
	}

	if err := m.store.UpdateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return &status, nil
}

// StartWrapUp opens the capped documentation window
func (m *Manager) StartWrapUp(ctx context.Context, workerID, supervisorID string, now time.Time) (*StepResult, error) {
	return m.Advance(ctx, workerID, supervisorID, types.StepWrapUpStarted, now)
}

// Submit validates the check-in, freezes the session and releases the claim
func (m *Manager) Submit(ctx context.Context, workerID, supervisorID string, report checkin.CheckIn, now time.Time) (*SubmitResult, error) {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	s, err := m.load(ctx, workerID, supervisorID, true)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.Advance(s.Step, types.StepSubmitted, workflow.StateOf(s)); err != nil {
		return nil, err
	}

	result := checkin.Validate(report).
		Merge(checkin.FinalGate(s.Evaluations, s.Assistance)).
		Merge(checkin.PartialTakeover(s.Evaluations, m.prompts.PartialTakeoverRooms))
	if err := result.Err(); err != nil {
		return nil, err
	}

	if wrap, err := m.timers.Engine.Peek(countdown.WrapUpKey(workerID), now); err == nil && wrap.PastDeadline {
		result.Warnings = append(result.Warnings, "wrap-up exceeded its window; time past the cap is not billable")
	}

	submitted := now
	s.Step = types.StepSubmitted
	s.Submitted = true
	s.SubmittedAt = &submitted
	s.Billing = types.BillingEnded
	if err := m.store.UpdateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	m.timers.Laundry.RecordLeadCheckIn(workerID)
	if _, err := m.claims.Release(ctx, workerID, types.ReleaseCheckInComplete); err != nil {
		return nil, err
	}

	m.logger.Info("Session submitted",
		"session_id", s.ID,
		"worker_id", s.WorkerID,
		"evaluations", len(s.Evaluations),
		"assistance", len(s.Assistance),
		"locked_redos", s.LockedRedoCount(),
		"warnings", len(result.Warnings),
	)
	return &SubmitResult{Session: s, Warnings: result.Warnings}, nil
}

// Cancel unselects the worker. The claim, the session and every session timer are dropped.
func (m *Manager) Cancel(ctx context.Context, workerID, supervisorID string, reason types.ReleaseReason) error {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	s, err := m.store.GetSessionByWorker(ctx, workerID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if s != nil && s.Submitted {
		return types.NewError(types.ErrSessionFrozen, "session %s was submitted", s.ID)
	}

	if _, err := m.claims.Unselect(ctx, workerID, supervisorID, reason); err != nil {
		return err
	}
	m.timers.ClearSession(workerID)

	if s != nil {
		if err := m.store.DeleteSession(ctx, s.ID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		m.logger.Info("Session cancelled",
			"session_id", s.ID,
			"worker_id", workerID,
			"reason", reason,
		)
	}
	return nil
}

// Get returns the session of a worker
func (m *Manager) Get(ctx context.Context, workerID string) (*types.SupervisionSession, error) {
	unlock := m.locks.Lock(workerID)
	defer unlock()
	return m.load(ctx, workerID, "", false)
}

// List returns every session
func (m *Manager) List(ctx context.Context) ([]*types.SupervisionSession, error) {
	return m.store.ListSessions(ctx)
}

// Tick advances every session timer and reports billing status and alert edges
func (m *Manager) Tick(ctx context.Context, now time.Time) ([]TickReport, error) {
	sessions, err := m.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	reports := make([]TickReport, 0, len(sessions))
	for _, listed := range sessions {
		if listed.Submitted {
			continue
		}
		report, err := m.tickOne(ctx, listed.WorkerID, now)
		if err != nil {
			m.logger.Error("Failed to tick session",
				"session_id", listed.ID,
				"worker_id", listed.WorkerID,
				"error", err,
			)
			continue
		}
		if report != nil {
			reports = append(reports, *report)
		}
	}
	return reports, nil
}

func (m *Manager) tickOne(ctx context.Context, workerID string, now time.Time) (*TickReport, error) {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	s, err := m.store.GetSessionByWorker(ctx, workerID)
	if err != nil || s == nil || s.Submitted {
		return nil, err
	}

	report := &TickReport{SessionID: s.ID, WorkerID: workerID, Billing: types.BillingActive}

	if s.Step == types.StepEnRoute && m.timers.Movement.Active(workerID) {
		st, events, err := m.timers.Movement.Check(workerID, now)
		if err != nil {
			return nil, err
		}
		report.Billing = st.Billing
		report.Events = append(report.Events, events...)
	}

	for _, a := range s.Assistance {
		if a.EndedAt != nil {
			continue
		}
		_, events, err := m.timers.Assistance.Check(workerID, a.ID, now)
		if errors.Is(err, types.ErrTimerNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		report.Events = append(report.Events, events...)
	}

	if s.WrapUpStartedAt != nil {
		st, events, err := m.timers.WrapUp.Check(workerID, now)
		if err != nil && !errors.Is(err, types.ErrTimerNotFound) {
			return nil, err
		}
		if err == nil {
			report.Billing = st.Billing
			report.Events = append(report.Events, events...)
		}
	}

	if s.Billing != report.Billing {
		s.Billing = report.Billing
		if err := m.store.UpdateSession(ctx, s); err != nil {
			return nil, fmt.Errorf("failed to update session: %w", err)
		}
	}
	return report, nil
}

// ExpireStale releases claims past the claim timeout and drops their sessions
func (m *Manager) ExpireStale(ctx context.Context, now time.Time) ([]types.ClaimRecord, error) {
	workers, err := m.claims.StaleWorkers(ctx, now)
	if err != nil {
		return nil, err
	}

	var expired []types.ClaimRecord
	for _, workerID := range workers {
		rec, err := m.expire(ctx, workerID, now)
		if err != nil {
			return expired, err
		}
		if rec != nil {
			expired = append(expired, *rec)
		}
	}
	return expired, nil
}

// expire releases a stale claim and drops its session under one worker lock, so a
// concurrent Select sees either both or neither
func (m *Manager) expire(ctx context.Context, workerID string, now time.Time) (*types.ClaimRecord, error) {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	rec, err := m.claims.ExpireIfStale(ctx, workerID, now)
	if err != nil || rec == nil {
		return rec, err
	}
	m.dropSession(ctx, workerID)
	return rec, nil
}

// dropSession deletes the worker's unsubmitted session; callers must hold the worker lock
func (m *Manager) dropSession(ctx context.Context, workerID string) {
	s, err := m.store.GetSessionByWorker(ctx, workerID)
	if err != nil || s == nil || s.Submitted {
		return
	}
	if err := m.store.DeleteSession(ctx, s.ID); err != nil {
		m.logger.Error("Failed to drop expired session", "session_id", s.ID, "error", err)
		return
	}
	m.logger.Info("Session expired", "session_id", s.ID, "worker_id", workerID)
}

// Recover rebuilds timer state after a restart from persisted timers and sessions
func (m *Manager) Recover(ctx context.Context, timers []countdown.Timer) error {
	sessions, err := m.store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	anchors := make(map[string]types.LocationSample)
	for _, s := range sessions {
		if s.Submitted || s.Step != types.StepEnRoute || len(s.Locations) == 0 {
			continue
		}
		anchors[s.WorkerID] = s.Locations[len(s.Locations)-1]
	}
	m.timers.Recover(timers, anchors)

	m.logger.Info("Timers recovered",
		"timers", len(timers),
		"sessions", len(sessions),
		"en_route", len(anchors),
	)
	return nil
}
