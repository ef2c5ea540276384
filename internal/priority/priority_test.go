package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

func rating(v float64) *float64 { return &v }
func jobs(v int) *int            { return &v }

func TestClassify_Cascade(t *testing.T) {
	c := NewClassifier(config.DefaultPriorityThresholds())

	tests := []struct {
		name     string
		perf     types.Performance
		wantTier types.PriorityTier
		wantRule string
	}{
		{
			name:     "complaint overrides otherwise green profile",
			perf:     types.Performance{Complaints: 1, Rating: rating(4.9), CompletedJobs: jobs(40)},
			wantTier: types.PriorityRed,
			wantRule: "complaints",
		},
		{"low rating", types.Performance{Rating: rating(4.2), CompletedJobs: jobs(20)}, types.PriorityRed, "low_rating"},
		{"rating at red threshold is not red", types.Performance{Rating: rating(4.3), CompletedJobs: jobs(20)}, types.PriorityGreen, DefaultRule},
		{"two redos", types.Performance{Redos: 2}, types.PriorityRed, "repeat_redos"},
		{"one redo", types.Performance{Redos: 1}, types.PriorityGreen, DefaultRule},
		{"lag over 30", types.Performance{TimeLagMinutes: 31}, types.PriorityRed, "time_lag"},
		{"lag of exactly 30", types.Performance{TimeLagMinutes: 30}, types.PriorityGreen, DefaultRule},
		{"reassigned", types.Performance{Reassignments: 1}, types.PriorityRed, "reassignments"},
		{"new worker", types.Performance{CompletedJobs: jobs(4), Rating: rating(5)}, types.PriorityOrange, "new_worker"},
		{"overdue", types.Performance{CheckInOverdue: true}, types.PriorityOrange, "check_in_overdue"},
		{"mild warning", types.Performance{MildWarnings: 1}, types.PriorityOrange, "mild_warnings"},
		{"established", types.Performance{CompletedJobs: jobs(5), Rating: rating(4.5)}, types.PriorityGreen, "established"},
		{
			name:     "established with help request stays green",
			perf:     types.Performance{CompletedJobs: jobs(12), Rating: rating(4.8), HelpRequested: true},
			wantTier: types.PriorityGreen,
			wantRule: "established",
		},
		{"help requested", types.Performance{HelpRequested: true}, types.PriorityBlue, "assistance_requested"},
		{"equipment requested", types.Performance{EquipmentRequested: true}, types.PriorityBlue, "assistance_requested"},
		{
			name:     "complaint and help is red not blue",
			perf:     types.Performance{Complaints: 2, HelpRequested: true},
			wantTier: types.PriorityRed,
			wantRule: "complaints",
		},
		{"nothing known", types.Performance{}, types.PriorityGreen, DefaultRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, rule := c.Classify(tt.perf)
			assert.Equal(t, tt.wantTier, tier)
			assert.Equal(t, tt.wantRule, rule)
		})
	}
}

func TestClassify_MissingRatingIsLenient(t *testing.T) {
	c := NewClassifier(config.DefaultPriorityThresholds())
	tier, _ := c.Classify(types.Performance{CompletedJobs: jobs(30)})
	assert.Equal(t, types.PriorityGreen, tier)
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewClassifier(config.DefaultPriorityThresholds())
	p := types.Performance{MildWarnings: 2, HelpRequested: true, Rating: rating(4.4)}
	first, _ := c.Classify(p)
	for i := 0; i < 100; i++ {
		got, _ := c.Classify(p)
		assert.Equal(t, first, got)
	}
}

func TestRank(t *testing.T) {
	assert.Equal(t, 1, Rank(types.PriorityRed))
	assert.Equal(t, 2, Rank(types.PriorityOrange))
	assert.Equal(t, 3, Rank(types.PriorityBlue))
	assert.Equal(t, 4, Rank(types.PriorityGreen))
	assert.Equal(t, 5, Rank(types.PriorityGray))

	prev := 0
	for _, tier := range Tiers() {
		assert.Greater(t, Rank(tier), prev)
		prev = Rank(tier)
	}
}
