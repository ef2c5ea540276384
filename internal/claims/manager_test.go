package claims

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/countdown"
	"github.com/AltairaLabs/lead-oversight/internal/geo"
	"github.com/AltairaLabs/lead-oversight/internal/storage/memory"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

var t0 = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu     sync.Mutex
	alerts []types.Alert
	err    error
}

func (s *recordingSink) Notify(_ context.Context, a types.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *memory.Store) {
	t.Helper()
	classifier, err := geo.NewClassifier(config.DefaultProximityConfig())
	require.NoError(t, err)
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(store, classifier, config.DefaultClaimConfig(), logger, opts...), store
}

func TestTryClaim_ProximityScenarios(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		miles    float64
		override bool
		wantErr  error
		wantTier types.ProximityTier
	}{
		{"close", 18, false, nil, types.ProximityClose},
		{"medium", 25, false, nil, types.ProximityMedium},
		{"far without override", 35, false, types.ErrAdminApprovalRequired, ""},
		{"far with override", 35, true, nil, types.ProximityFar},
		{"out of range", 50, false, types.ErrNotSelectable, ""},
		{"out of range with override", 50, true, types.ErrNotSelectable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store := newTestManager(t)
			res, err := m.TryClaim(ctx, Request{
				WorkerID: "w1", SupervisorID: "lead-a", DistanceMiles: tt.miles, AdminOverride: tt.override,
			}, t0)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				rec, _ := store.GetClaim(ctx, "w1")
				assert.Nil(t, rec, "rejected claims must not be stored")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, res.Record.Tier)
			assert.Equal(t, geo.TravelEstimate(tt.miles, 2), res.TravelEstimate)
		})
	}
}

func TestTryClaim_ConcurrentAttemptsExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, already := 0, 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.TryClaim(ctx, Request{
				WorkerID: "w1", SupervisorID: fmt.Sprintf("lead-%d", i), DistanceMiles: 5,
			}, t0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, types.ErrAlreadyClaimed):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, already)
}

func TestTryClaim_DifferentWorkersDoNotContend(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.TryClaim(ctx, Request{WorkerID: fmt.Sprintf("w%d", i), SupervisorID: "lead-a", DistanceMiles: 1}, t0)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	claims, err := store.ListClaims(ctx)
	require.NoError(t, err)
	assert.Len(t, claims, 20)
}

func TestTryClaim_ConflictAlertWithinWindow(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{err: errors.New("push gateway down")}
	m, _ := newTestManager(t, WithAlertSink(sink))

	_, err := m.TryClaim(ctx, Request{WorkerID: "w1", SupervisorID: "lead-a", DistanceMiles: 3}, t0)
	require.NoError(t, err)

	_, err = m.TryClaim(ctx, Request{WorkerID: "w1", SupervisorID: "lead-a", DistanceMiles: 3}, t0.Add(time.Minute))
	assert.ErrorIs(t, err, types.ErrAlreadyClaimed)
	assert.Equal(t, 0, sink.count(), "same supervisor is not a conflict")

	_, err = m.TryClaim(ctx, Request{WorkerID: "w1", SupervisorID: "lead-b", DistanceMiles: 3}, t0.Add(2*time.Minute))
	assert.ErrorIs(t, err, types.ErrAlreadyClaimed)
	require.Equal(t, 1, sink.count())
	alert := sink.alerts[0]
	assert.Equal(t, "LEAD_CONFLICT", alert.Type)
	assert.Equal(t, "lead-a", alert.Context["claimed_by"])
	assert.Equal(t, "lead-b", alert.Context["attempted_by"])
	assert.Contains(t, alert.Message, "2m0s")

	_, err = m.TryClaim(ctx, Request{WorkerID: "w1", SupervisorID: "lead-c", DistanceMiles: 3}, t0.Add(6*time.Minute))
	assert.ErrorIs(t, err, types.ErrAlreadyClaimed)
	assert.Equal(t, 1, sink.count(), "attempts outside the window are not conflicts")

	rec, err := m.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "lead-a", rec.SupervisorID, "conflicts never roll back the claim")
}

func TestRelease_IdempotentAndClearsTimers(t *testing.T) {
	ctx := context.Background()
	timers := countdown.NewTimers(config.DefaultTimerConfig())
	m, store := newTestManager(t, WithRouteTracker(timers), WithTimerClearer(timers))

	_, err := m.TryClaim(ctx, Request{WorkerID: "w1", SupervisorID: "lead-a", DistanceMiles: 10}, t0)
	require.NoError(t, err)
	assert.True(t, timers.Movement.Active("w1"))
	require.NoError(t, timers.WrapUp.Start("w1", t0))
	require.NoError(t, timers.Laundry.Pickup("w1", "job-1", countdown.LaundryExpress, t0))

	rec, err := m.Release(ctx, "w1", types.ReleaseCheckInComplete)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, timers.Movement.Active("w1"))
	_, ok := timers.Engine.Get(countdown.WrapUpKey("w1"))
	assert.False(t, ok)
	_, ok = timers.Engine.Get(countdown.LaundryKey("w1", "job-1"))
	assert.True(t, ok, "shift timers survive a claim release")

	before, _ := store.ListClaims(ctx)
	rec, err = m.Release(ctx, "w1", types.ReleaseCheckInComplete)
	assert.NoError(t, err)
	assert.Nil(t, rec)
	after, _ := store.ListClaims(ctx)
	assert.Equal(t, before, after)

	_, err = m.TryClaim(ctx, Request{WorkerID: "w1", SupervisorID: "lead-b", DistanceMiles: 10}, t0.Add(time.Minute))
	assert.NoError(t, err, "released worker can be claimed again")
}

func TestUnselect(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	_, err := m.Unselect(ctx, "w1", "lead-a", types.ReleaseEmergency)
	assert.NoError(t, err, "unselecting an unclaimed worker is a no-op")

	_, err = m.TryClaim(ctx, Request{WorkerID: "w1", SupervisorID: "lead-a", DistanceMiles: 1}, t0)
	require.NoError(t, err)

	_, err = m.Unselect(ctx, "w1", "lead-a", types.ReleaseTimeout)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	_, err = m.Unselect(ctx, "w1", "lead-b", types.ReleaseError)
	assert.ErrorIs(t, err, types.ErrNotClaimOwner)

	rec, err := m.Unselect(ctx, "w1", "lead-a", types.ReleaseReassignment)
	require.NoError(t, err)
	assert.Equal(t, "lead-a", rec.SupervisorID)

	got, _ := m.Get(ctx, "w1")
	assert.Nil(t, got)
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	_, err := m.TryClaim(ctx, Request{WorkerID: "old", SupervisorID: "lead-a", DistanceMiles: 1}, t0)
	require.NoError(t, err)
	_, err = m.TryClaim(ctx, Request{WorkerID: "fresh", SupervisorID: "lead-a", DistanceMiles: 1}, t0.Add(3*time.Hour))
	require.NoError(t, err)

	expired, err := m.ExpireStale(ctx, t0.Add(4*time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "old", expired[0].WorkerID)

	remaining, _ := m.List(ctx)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].WorkerID)
}
