package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/countdown"
	"github.com/AltairaLabs/lead-oversight/internal/storage"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

func TestNewStore(t *testing.T) {
	s := NewStore()
	if s == nil {
		t.Fatal("expected non-nil store")
	}
	if s.claims == nil {
		t.Error("claims map should be initialized")
	}
	if s.sessions == nil {
		t.Error("sessions map should be initialized")
	}
	if s.workerSessions == nil {
		t.Error("workerSessions map should be initialized")
	}
}

func TestClaims(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	rec, err := s.GetClaim(ctx, "w1")
	if err != nil || rec != nil {
		t.Fatalf("Expected nil, nil for unclaimed worker, got %v, %v", rec, err)
	}

	if err := s.PutClaim(ctx, nil); !errors.Is(err, storage.ErrClaimNil) {
		t.Errorf("Expected ErrClaimNil, got %v", err)
	}
	if err := s.PutClaim(ctx, &types.ClaimRecord{}); !errors.Is(err, storage.ErrWorkerIDEmpty) {
		t.Errorf("Expected ErrWorkerIDEmpty, got %v", err)
	}

	claim := &types.ClaimRecord{WorkerID: "w1", SupervisorID: "lead-a", ClaimedAt: time.Now(), Tier: types.ProximityClose}
	if err := s.PutClaim(ctx, claim); err != nil {
		t.Fatalf("PutClaim failed: %v", err)
	}
	claim.SupervisorID = "mutated"

	got, err := s.GetClaim(ctx, "w1")
	if err != nil {
		t.Fatalf("GetClaim failed: %v", err)
	}
	if got.SupervisorID != "lead-a" {
		t.Errorf("Expected stored copy to be isolated, got supervisor %s", got.SupervisorID)
	}

	_ = s.PutClaim(ctx, &types.ClaimRecord{WorkerID: "w0", SupervisorID: "lead-b"})
	list, _ := s.ListClaims(ctx)
	if len(list) != 2 || list[0].WorkerID != "w0" {
		t.Errorf("Expected claims ordered by worker, got %+v", list)
	}

	deleted, err := s.DeleteClaim(ctx, "w1")
	if err != nil || !deleted {
		t.Errorf("Expected delete to report true, got %v, %v", deleted, err)
	}
	deleted, err = s.DeleteClaim(ctx, "w1")
	if err != nil || deleted {
		t.Errorf("Expected second delete to report false, got %v, %v", deleted, err)
	}
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session *types.SupervisionSession
		wantErr error
	}{
		{name: "nil session", session: nil, wantErr: storage.ErrSessionNil},
		{name: "empty ID", session: &types.SupervisionSession{}, wantErr: storage.ErrSessionIDEmpty},
		{name: "valid", session: &types.SupervisionSession{ID: "s1", WorkerID: "w1", StartedAt: start}},
		{name: "duplicate ID", session: &types.SupervisionSession{ID: "s1", WorkerID: "w2"}, wantErr: storage.ErrSessionExists},
		{name: "worker busy", session: &types.SupervisionSession{ID: "s2", WorkerID: "w1"}, wantErr: storage.ErrWorkerHasActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CreateSession(ctx, tt.session)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	got, _ := s.GetSessionByWorker(ctx, "w1")
	if got == nil || got.ID != "s1" {
		t.Fatalf("Expected session s1 for worker w1, got %+v", got)
	}

	got.Evaluations = append(got.Evaluations, types.RoomEvaluation{Room: "kitchen"})
	again, _ := s.GetSession(ctx, "s1")
	if len(again.Evaluations) != 0 {
		t.Error("Expected returned session to be a copy")
	}

	if err := s.UpdateSession(ctx, got); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	again, _ = s.GetSession(ctx, "s1")
	if len(again.Evaluations) != 1 {
		t.Errorf("Expected 1 evaluation after update, got %d", len(again.Evaluations))
	}

	missing := &types.SupervisionSession{ID: "nope"}
	if err := s.UpdateSession(ctx, missing); !errors.Is(err, types.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	_ = s.CreateSession(ctx, &types.SupervisionSession{ID: "s0", WorkerID: "w0", StartedAt: start.Add(-time.Hour)})
	list, _ := s.ListSessions(ctx)
	if len(list) != 2 || list[0].ID != "s0" {
		t.Errorf("Expected sessions ordered by start, got %d sessions", len(list))
	}

	if err := s.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if err := s.DeleteSession(ctx, "s1"); err != nil {
		t.Errorf("Expected deleting a missing session to succeed, got %v", err)
	}
	if got, _ := s.GetSessionByWorker(ctx, "w1"); got != nil {
		t.Error("Expected worker index to be cleared")
	}
}

func TestTimers(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	timers := []countdown.Timer{{Key: "session/w1/wrap_up", Duration: time.Minute, Active: true}}
	if err := s.SaveTimers(ctx, timers); err != nil {
		t.Fatalf("SaveTimers failed: %v", err)
	}
	timers[0].Key = "mutated"

	loaded, err := s.LoadTimers(ctx)
	if err != nil {
		t.Fatalf("LoadTimers failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Key != "session/w1/wrap_up" {
		t.Errorf("Expected saved timer, got %+v", loaded)
	}
}
