// Package scheduler drives the engine's timers from a single ticker loop.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/countdown"
	"github.com/AltairaLabs/lead-oversight/internal/notify"
	"github.com/AltairaLabs/lead-oversight/internal/session"
	"github.com/AltairaLabs/lead-oversight/internal/storage"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Scheduler ticks session and laundry timers, delivers their alerts and expires stale claims
type Scheduler struct {
	sessions *session.Manager
	timers   *countdown.Timers
	notifier notify.Notifier
	store    storage.TimerStore
	cfg      config.SchedulerConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewScheduler creates a scheduler; store may be nil when timers are not persisted
func NewScheduler(
	sessions *session.Manager,
	timers *countdown.Timers,
	notifier notify.Notifier,
	store storage.TimerStore,
	cfg config.SchedulerConfig,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		sessions: sessions,
		timers:   timers,
		notifier: notifier,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the loops until ctx is canceled
func (s *Scheduler) Start(ctx context.Context) {
	tick := time.NewTicker(s.cfg.TickInterval)
	defer tick.Stop()
	sweep := time.NewTicker(s.cfg.ClaimSweepInterval)
	defer sweep.Stop()

	s.logger.Info("Scheduler started",
		"tick_interval", s.cfg.TickInterval,
		"claim_sweep_interval", s.cfg.ClaimSweepInterval,
	)

	for {
		select {
		case <-tick.C:
			if err := s.Tick(ctx, s.now()); err != nil {
				s.logger.Error("Failed to tick timers", "error", err)
			}
		case <-sweep.C:
			if err := s.Sweep(ctx, s.now()); err != nil {
				s.logger.Error("Failed to expire stale claims", "error", err)
			}
		case <-ctx.Done():
			s.persist(context.WithoutCancel(ctx))
			s.logger.Info("Scheduler stopped")
			return
		}
	}
}

// Tick runs one pass over every session and laundry timer
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	reports, err := s.sessions.Tick(ctx, now)
	if err != nil {
		return err
	}
	for _, r := range reports {
		for _, ev := range r.Events {
			s.deliver(ctx, ev, r.SessionID)
		}
	}

	for _, ev := range s.tickLaundry(now) {
		s.deliver(ctx, ev, "")
	}

	s.persist(ctx)
	return nil
}

func (s *Scheduler) tickLaundry(now time.Time) []countdown.Event {
	var events []countdown.Event
	for _, jobID := range s.timers.Laundry.Jobs() {
		_, evs, err := s.timers.Laundry.CheckJob(jobID, now)
		if err != nil {
			if !errors.Is(err, types.ErrTimerNotFound) {
				s.logger.Error("Failed to check laundry job", "job_id", jobID, "error", err)
			}
			continue
		}
		events = append(events, evs...)
	}
	for _, workerID := range s.timers.Laundry.Shifts() {
		_, evs, err := s.timers.Laundry.CheckFirstWash(workerID, now)
		if err != nil {
			if !errors.Is(err, types.ErrTimerNotFound) {
				s.logger.Error("Failed to check first wash", "worker_id", workerID, "error", err)
			}
			continue
		}
		events = append(events, evs...)
	}
	return events
}

func (s *Scheduler) deliver(ctx context.Context, ev countdown.Event, sessionID string) {
	alert := notify.FromEvent(ev, sessionID)
	if err := s.notifier.Notify(ctx, alert); err != nil {
		s.logger.Error("Failed to deliver alert",
			"alert_type", alert.Type,
			"worker_id", alert.WorkerID,
			"error", err,
		)
	}
}

// Sweep releases claims past the claim timeout
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) error {
	expired, err := s.sessions.ExpireStale(ctx, now)
	if len(expired) > 0 {
		s.logger.Info("Expired stale claims", "count", len(expired))
	}
	return err
}

func (s *Scheduler) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveTimers(ctx, s.timers.Snapshot()); err != nil {
		s.logger.Error("Failed to persist timers", "error", err)
	}
}
