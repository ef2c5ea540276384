package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/claims"
	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/countdown"
	"github.com/AltairaLabs/lead-oversight/internal/geo"
	"github.com/AltairaLabs/lead-oversight/internal/roster"
	"github.com/AltairaLabs/lead-oversight/internal/session"
	"github.com/AltairaLabs/lead-oversight/internal/storage/memory"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

var t0 = time.Date(2026, 9, 7, 7, 0, 0, 0, time.UTC)

type captureNotifier struct {
	mu     sync.Mutex
	alerts []types.Alert
}

func (c *captureNotifier) Notify(_ context.Context, a types.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *captureNotifier) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.alerts))
	for i, a := range c.alerts {
		out[i] = a.Type
	}
	return out
}

func newTestScheduler(t *testing.T) (*Scheduler, *session.Manager, *countdown.Timers, *memory.Store, *captureNotifier) {
	t.Helper()
	cfg := config.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	prox, err := geo.NewClassifier(cfg.Proximity)
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}
	store := memory.NewStore()
	timers := countdown.NewTimers(cfg.Timers)
	cm := claims.NewManager(store, prox, cfg.Claims, logger,
		claims.WithRouteTracker(timers), claims.WithTimerClearer(timers))
	src := roster.NewStatic(&roster.File{Workers: []types.Worker{
		{ID: "w1", Services: []types.ServiceType{types.ServiceLaundry}, Location: types.LatLng{Lat: 40.05, Lng: -75}},
	}})
	mgr := session.NewManager(store, cm, timers, src, cfg.Prompts, logger)
	n := &captureNotifier{}

	return NewScheduler(mgr, timers, n, store, cfg.Scheduler, logger), mgr, timers, store, n
}

func TestTick_DeliversSessionAndLaundryAlerts(t *testing.T) {
	s, mgr, timers, store, n := newTestScheduler(t)
	ctx := context.Background()

	lead := types.Lead{ID: "lead-a", Services: []types.ServiceType{types.ServiceLaundry}, Location: types.LatLng{Lat: 40, Lng: -75}}
	if _, err := mgr.Select(ctx, session.SelectRequest{Lead: lead, WorkerID: "w1"}, t0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if err := timers.Laundry.Pickup("w1", "bag-1", countdown.LaundryExpress, t0); err != nil {
		t.Fatalf("Pickup failed: %v", err)
	}

	if err := s.Tick(ctx, t0.Add(time.Minute)); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if len(n.kinds()) != 0 {
		t.Errorf("Expected no alerts yet, got %v", n.kinds())
	}

	if err := s.Tick(ctx, t0.Add(91*time.Minute)); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	got := n.kinds()
	want := []string{"stall_warning", "stall_paused", "laundry_warning"}
	if len(got) != len(want) {
		t.Fatalf("Expected alerts %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected alert %d to be %s, got %s", i, want[i], got[i])
		}
	}
	if n.alerts[0].SessionID == "" {
		t.Error("Expected session alerts to carry the session ID")
	}

	if err := s.Tick(ctx, t0.Add(92*time.Minute)); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if len(n.kinds()) != 3 {
		t.Errorf("Expected alerts to fire once, got %v", n.kinds())
	}

	saved, err := store.LoadTimers(ctx)
	if err != nil {
		t.Fatalf("LoadTimers failed: %v", err)
	}
	if len(saved) != 4 {
		t.Errorf("Expected 4 persisted records (en route, laundry, first wash, shift), got %d", len(saved))
	}
}

func TestSweep_ExpiresStaleClaims(t *testing.T) {
	s, mgr, _, _, _ := newTestScheduler(t)
	ctx := context.Background()

	lead := types.Lead{ID: "lead-a", Services: []types.ServiceType{types.ServiceLaundry}, Location: types.LatLng{Lat: 40, Lng: -75}}
	if _, err := mgr.Select(ctx, session.SelectRequest{Lead: lead, WorkerID: "w1"}, t0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if err := s.Sweep(ctx, t0.Add(time.Hour)); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if _, err := mgr.Get(ctx, "w1"); err != nil {
		t.Errorf("Expected session to survive a sweep before the timeout, got %v", err)
	}

	if err := s.Sweep(ctx, t0.Add(5*time.Hour)); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if _, err := mgr.Get(ctx, "w1"); err == nil {
		t.Error("Expected session to be dropped after the claim timeout")
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	s, _, _, _, _ := newTestScheduler(t)
	s.cfg.TickInterval = time.Millisecond
	s.cfg.ClaimSweepInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected scheduler to stop after cancel")
	}
}
