package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

func TestTimers_ClearSessionKeepsShiftTimers(t *testing.T) {
	tm := NewTimers(config.DefaultTimerConfig())
	require.NoError(t, tm.StartRoute("w1", types.LatLng{}, 20*time.Minute, t0))
	require.NoError(t, tm.WrapUp.Start("w1", t0))
	require.NoError(t, tm.Assistance.Start("w1", "as-1", t0))
	require.NoError(t, tm.Laundry.Pickup("w1", "job-1", LaundryStandard, t0))
	require.NoError(t, tm.WrapUp.Start("w2", t0))

	assert.Equal(t, 3, tm.ClearSession("w1"))
	assert.False(t, tm.Movement.Active("w1"))
	assert.ElementsMatch(t, []string{
		LaundryKey("w1", "job-1"),
		FirstWashKey("w1"),
		WrapUpKey("w2"),
	}, tm.Engine.Keys())

	assert.Equal(t, 0, tm.ClearSession("w1"))
}

func TestTimers_Recover(t *testing.T) {
	cfg := config.DefaultTimerConfig()
	before := NewTimers(cfg)
	from := types.LatLng{Lat: 40, Lng: -75}

	require.NoError(t, before.StartRoute("w1", from, 30*time.Minute, t0))
	require.NoError(t, before.StartRoute("ghost", from, 30*time.Minute, t0))
	require.NoError(t, before.Laundry.Pickup("w2", "job-x", LaundryExpress, t0))
	_, _, err := before.Laundry.CheckJob("job-x", t0.Add(91*time.Minute))
	require.NoError(t, err)

	after := NewTimers(cfg)
	after.Recover(before.Engine.Snapshot(), map[string]types.LocationSample{
		"w1": {Position: from, At: t0},
	})

	assert.True(t, after.Movement.Active("w1"))
	assert.False(t, after.Movement.Active("ghost"))
	_, ok := after.Engine.Get(EnRouteKey("ghost"))
	assert.False(t, ok, "orphaned en-route timers are dropped")

	assert.Equal(t, []string{"job-x"}, after.Laundry.Jobs())
	status, events, err := after.Laundry.CheckJob("job-x", t0.Add(121*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, LaundryExpress, status.Tier)
	assert.Equal(t, []EventKind{EventLaundryViolation}, kinds(events), "warning already fired before the restart")

	mv, events, err := after.Movement.Check("w1", t0.Add(4*time.Minute))
	require.NoError(t, err)
	assert.True(t, mv.Warned)
	assert.Equal(t, []EventKind{EventStallWarning}, kinds(events))
}

func TestTimers_RecoverKeepsShiftProgress(t *testing.T) {
	cfg := config.DefaultTimerConfig()
	before := NewTimers(cfg)

	require.NoError(t, before.Laundry.Pickup("w1", "job-1", LaundryStandard, t0))
	before.Laundry.RecordLeadCheckIn("w1")

	require.NoError(t, before.Laundry.Pickup("w2", "job-2", LaundryStandard, t0))
	require.NoError(t, before.Laundry.StartWash("w2", "job-2", t0.Add(10*time.Minute)))

	snapshot := before.Snapshot()
	assert.Len(t, snapshot, len(before.Engine.Keys())+2, "one shift record per open shift")

	after := NewTimers(cfg)
	after.Recover(snapshot, nil)
	for _, key := range after.Engine.Keys() {
		assert.NotContains(t, key, shiftPrefix, "shift records are not timers")
	}

	late := t0.Add(cfg.FirstWashDeadline + time.Hour)
	assert.NoError(t, after.Laundry.AuthorizeWash("w1", late), "lead check-in survives the restart")
	status, _, err := after.Laundry.CheckFirstWash("w1", late)
	require.NoError(t, err)
	assert.True(t, status.LeadCheckedIn)
	assert.False(t, status.CheckInRequired)

	require.NoError(t, after.Laundry.Pickup("w2", "job-3", LaundryStandard, t0.Add(time.Hour)))
	_, ok := after.Engine.Get(FirstWashKey("w2"))
	assert.False(t, ok, "a shift that already washed does not restart its first-wash timer")
}
