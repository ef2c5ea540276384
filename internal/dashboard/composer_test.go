package dashboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/geo"
	"github.com/AltairaLabs/lead-oversight/internal/priority"
	"github.com/AltairaLabs/lead-oversight/internal/prompts"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// origin and milesNorth place workers on a meridian so distances are easy to reason about
var origin = types.LatLng{Lat: 40.0, Lng: -75.0}

func milesNorth(m float64) types.LatLng {
	return types.LatLng{Lat: origin.Lat + m/69.09, Lng: origin.Lng}
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func established() types.Performance {
	return types.Performance{Rating: floatPtr(4.8), CompletedJobs: intPtr(40)}
}

func newComposer(t *testing.T) *Composer {
	t.Helper()
	cfg := config.Default()
	prox, err := geo.NewClassifier(cfg.Proximity)
	require.NoError(t, err)
	return NewComposer(prox, priority.NewClassifier(cfg.Priority), prompts.NewAggregator(cfg.Prompts))
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Worker.ID
	}
	return out
}

func TestCompose_FilterSortGroup(t *testing.T) {
	c := newComposer(t)
	lead := types.Lead{ID: "lead-a", Services: []types.ServiceType{types.ServiceHomeCleaning}, Location: origin}

	complaint := established()
	complaint.Complaints = 1
	newbie := types.Performance{CompletedJobs: intPtr(1)}
	help := types.Performance{HelpRequested: true}

	roster := []types.Worker{
		{ID: "green-far", Services: []types.ServiceType{types.ServiceHomeCleaning}, Location: milesNorth(15), Performance: established()},
		{ID: "red", Services: []types.ServiceType{types.ServiceHomeCleaning}, Location: milesNorth(12), Performance: complaint},
		{ID: "carwash", Services: []types.ServiceType{types.ServiceCarWash}, Location: milesNorth(1), Performance: complaint},
		{ID: "green-near", Services: []types.ServiceType{types.ServiceHomeCleaning}, Location: milesNorth(2), Performance: established()},
		{ID: "orange", Services: []types.ServiceType{types.ServiceHomeCleaning}, Location: milesNorth(25), Performance: newbie},
		{ID: "blue", Services: []types.ServiceType{types.ServiceHomeCleaning, types.ServiceLaundry}, Location: milesNorth(8), Performance: help},
		{ID: "taken", Services: []types.ServiceType{types.ServiceHomeCleaning}, Location: milesNorth(3), Performance: established()},
		{ID: "mine", Services: []types.ServiceType{types.ServiceHomeCleaning}, Location: milesNorth(4), Performance: established()},
		{ID: "gone", Services: []types.ServiceType{types.ServiceHomeCleaning}, Location: milesNorth(60), Performance: complaint},
	}
	claims := []types.ClaimRecord{
		{WorkerID: "taken", SupervisorID: "lead-b"},
		{WorkerID: "mine", SupervisorID: "lead-a"},
	}

	view, err := c.Compose(context.Background(), Request{Lead: lead, Roster: roster, Claims: claims, Now: now})
	require.NoError(t, err)

	assert.Equal(t, []string{"red", "orange", "blue", "green-near", "mine", "green-far"}, ids(view.Entries))
	assert.Equal(t, 1, view.Counts[types.PriorityRed])
	assert.Equal(t, 3, view.Counts[types.PriorityGreen])
	assert.Equal(t, 0, view.Counts[types.PriorityGray])

	require.Len(t, view.Groups, 4)
	assert.Equal(t, types.PriorityGreen, view.Groups[3].Tier)
	assert.Len(t, view.Groups[3].Entries, 3)

	assert.Equal(t, ClaimMine, view.Entries[4].ClaimStatus)
	assert.Equal(t, types.ProximityMedium, view.Entries[1].Proximity.Tier)

	require.NotEmpty(t, view.Prompts)
	assert.Equal(t, prompts.TypeCriticalWorkers, view.Prompts[0].Type)
}

func TestCompose_IncludeOutOfRangeIsGray(t *testing.T) {
	c := newComposer(t)
	lead := types.Lead{ID: "lead-a", Services: []types.ServiceType{types.ServiceCarWash}, Location: origin}
	bad := established()
	bad.Complaints = 3
	roster := []types.Worker{
		{ID: "far-away", Services: []types.ServiceType{types.ServiceCarWash}, Location: milesNorth(80), Performance: bad},
		{ID: "near", Services: []types.ServiceType{types.ServiceCarWash}, Location: milesNorth(5), Performance: established()},
	}

	view, err := c.Compose(context.Background(), Request{Lead: lead, Roster: roster, IncludeOutOfRange: true, Now: now})
	require.NoError(t, err)

	assert.Equal(t, []string{"near", "far-away"}, ids(view.Entries))
	assert.Equal(t, types.PriorityGray, view.Entries[1].Priority)
	assert.Equal(t, 5, view.Entries[1].Rank)
	assert.Equal(t, 0, view.Counts[types.PriorityRed])
	assert.Empty(t, view.Prompts, "gray workers do not count as critical")
}

func TestCompose_StableForTies(t *testing.T) {
	c := newComposer(t)
	lead := types.Lead{ID: "lead-a", Services: []types.ServiceType{types.ServiceLaundry}, Location: origin}

	var roster []types.Worker
	for i := 0; i < 5; i++ {
		roster = append(roster, types.Worker{
			ID: fmt.Sprintf("w%d", i), Services: []types.ServiceType{types.ServiceLaundry},
			Location: origin, Performance: established(),
		})
	}

	view, err := c.Compose(context.Background(), Request{Lead: lead, Roster: roster, Now: now})
	require.NoError(t, err)
	assert.Equal(t, []string{"w0", "w1", "w2", "w3", "w4"}, ids(view.Entries))
}

func TestCompose_ParallelMatchesSequential(t *testing.T) {
	lead := types.Lead{ID: "lead-a", Services: []types.ServiceType{types.ServiceHomeCleaning}, Location: origin}
	var roster []types.Worker
	for i := 0; i < 300; i++ {
		p := established()
		if i%7 == 0 {
			p.Redos = 3
		}
		roster = append(roster, types.Worker{
			ID: fmt.Sprintf("w%03d", i), Services: []types.ServiceType{types.ServiceHomeCleaning},
			Location: milesNorth(float64(i%40) + 0.5), Performance: p,
		})
	}
	req := Request{Lead: lead, Roster: roster, Now: now}

	seq := newComposer(t)
	seq.SetParallelThreshold(len(roster) + 1)
	par := newComposer(t)
	par.SetParallelThreshold(10)

	a, err := seq.Compose(context.Background(), req)
	require.NoError(t, err)
	b, err := par.Compose(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, ids(a.Entries), ids(b.Entries))
	assert.Equal(t, a.Counts, b.Counts)
}

func TestCompose_CriticalCountComesFromView(t *testing.T) {
	c := newComposer(t)
	lead := types.Lead{ID: "lead-a", Services: []types.ServiceType{types.ServiceHomeCleaning}, Location: origin}
	complaint := established()
	complaint.Complaints = 1

	view, err := c.Compose(context.Background(), Request{
		Lead: lead,
		Roster: []types.Worker{
			{ID: "red", Services: []types.ServiceType{types.ServiceHomeCleaning}, Location: milesNorth(2), Performance: complaint},
		},
		Signals: prompts.Signals{prompts.CriticalWorkers{Count: 4}},
		Now:     now,
	})
	require.NoError(t, err)
	require.Equal(t, 1, view.Counts[types.PriorityRed])
	var critical []prompts.Prompt
	for _, p := range view.Prompts {
		if p.Type == prompts.TypeCriticalWorkers {
			critical = append(critical, p)
		}
	}
	require.Len(t, critical, 1)
	assert.Contains(t, critical[0].Message, "1 critical worker ")
}

func TestCompose_SignalsFeedPrompts(t *testing.T) {
	c := newComposer(t)
	lead := types.Lead{ID: "lead-a", Services: []types.ServiceType{types.ServiceLaundry}, Location: origin}

	view, err := c.Compose(context.Background(), Request{
		Lead:    lead,
		Signals: prompts.Signals{prompts.LaundryHoarding{WorkerID: "w1", Bags: 4}},
		Now:     now,
	})
	require.NoError(t, err)
	require.Len(t, view.Prompts, 1)
	assert.Equal(t, prompts.TypeLaundryHoarding, view.Prompts[0].Type)
}
