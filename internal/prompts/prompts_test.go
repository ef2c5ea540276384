package prompts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

var refresh = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func promptTypes(ps []Prompt) []Type {
	out := make([]Type, len(ps))
	for i, p := range ps {
		out[i] = p.Type
	}
	return out
}

func TestAggregate_NoSignals(t *testing.T) {
	a := NewAggregator(config.DefaultPromptConfig())
	assert.Empty(t, a.Aggregate(nil, refresh))
}

func TestAggregate_AtMostOnePromptPerRule(t *testing.T) {
	a := NewAggregator(config.DefaultPromptConfig())
	ps := a.Aggregate(Signals{
		JobDelay{WorkerID: "w1", JobID: "j1", DelayMinutes: 20},
		JobDelay{WorkerID: "w2", JobID: "j2", DelayMinutes: 40},
		JobDelay{WorkerID: "w1", JobID: "j3", DelayMinutes: 16},
	}, refresh)

	require.Len(t, ps, 1)
	assert.Equal(t, TypeJobDelay, ps[0].Type)
	assert.Equal(t, []string{"w1", "w2"}, ps[0].WorkerIDs)
	assert.Contains(t, ps[0].Message, "3 jobs")
}

func TestAggregate_Thresholds(t *testing.T) {
	a := NewAggregator(config.DefaultPromptConfig())

	tests := []struct {
		name   string
		signal Signal
		want   bool
	}{
		{"idle below", Idle{Minutes: 44}, false},
		{"idle at", Idle{Minutes: 45}, true},
		{"no gps below", NoGPSMovement{WorkerID: "w", Minutes: 2.9}, false},
		{"no gps at", NoGPSMovement{WorkerID: "w", Minutes: 3}, true},
		{"hoarding below", LaundryHoarding{WorkerID: "w", Bags: 2}, false},
		{"hoarding at", LaundryHoarding{WorkerID: "w", Bags: 3}, true},
		{"delay below", JobDelay{WorkerID: "w", DelayMinutes: 10}, false},
		{"low ratings once", RepeatLowRatings{WorkerID: "w", Count: 1}, false},
		{"low ratings twice", RepeatLowRatings{WorkerID: "w", Count: 2}, true},
		{"deadline far", LaundryDeadline{WorkerID: "w", MinutesRemaining: 90}, false},
		{"deadline near", LaundryDeadline{WorkerID: "w", MinutesRemaining: 10}, true},
		{"critical zero", CriticalWorkers{Count: 0}, false},
		{"critical some", CriticalWorkers{Count: 2}, true},
		{"takeover one room", PartialTakeover{WorkerID: "w", Rooms: 1}, false},
		{"takeover two rooms", PartialTakeover{WorkerID: "w", Rooms: 2}, true},
		{"abandoned", JobAbandoned{WorkerID: "w", JobID: "j"}, true},
		{"flagged", RecentlyFlagged{WorkerID: "w"}, true},
		{"qa", EnvironmentalQAFailure{WorkerID: "w", Failures: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := a.Aggregate(Signals{tt.signal}, refresh)
			assert.Equal(t, tt.want, len(ps) == 1)
		})
	}
}

func TestAggregate_RankedByPriority(t *testing.T) {
	a := NewAggregator(config.DefaultPromptConfig())
	ps := a.Aggregate(Signals{
		Idle{Minutes: 60},
		NoGPSMovement{WorkerID: "w3", Minutes: 5},
		CriticalWorkers{Count: 1},
		LaundryDeadline{WorkerID: "w4", MinutesRemaining: 5},
	}, refresh)

	assert.Equal(t, []Type{TypeCriticalWorkers, TypeLaundryDeadline, TypeNoGPSMovement, TypeIdle}, promptTypes(ps))
	assert.Equal(t, types.AlertHigh, ps[0].Priority)
	assert.Equal(t, types.AlertLow, ps[3].Priority)
}

func TestAggregate_NoCrossRefreshDedup(t *testing.T) {
	a := NewAggregator(config.DefaultPromptConfig())
	signals := Signals{CriticalWorkers{Count: 1}}

	first := a.Aggregate(signals, refresh)
	second := a.Aggregate(signals, refresh.Add(time.Minute))
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.Equal(t, refresh.Add(time.Minute), second[0].CreatedAt)
}

func TestPromptAlert(t *testing.T) {
	single := Prompt{ID: "p1", Type: TypeJobAbandoned, WorkerIDs: []string{"w1"}, Priority: types.AlertHigh}
	a := single.Alert()
	assert.Equal(t, "w1", a.WorkerID)
	assert.Equal(t, "job_abandoned", a.Type)

	multi := Prompt{ID: "p2", WorkerIDs: []string{"w1", "w2"}}
	assert.Equal(t, "w1,w2", multi.Alert().Context["worker_ids"])
}
