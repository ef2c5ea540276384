package prompts

// Signal is one discrete condition input of a refresh. The concrete types below are the
// complete set; the aggregator switches on them rather than reading an open-ended bag.
type Signal interface {
	signal()
}

// CriticalWorkers is the number of RED workers on the lead's dashboard
type CriticalWorkers struct {
	Count int
}

// JobDelay reports a job running behind schedule
type JobDelay struct {
	WorkerID     string
	JobID        string
	DelayMinutes float64
}

// RepeatLowRatings reports consecutive low customer ratings of a worker
type RepeatLowRatings struct {
	WorkerID string
	Count    int
}

// RecentlyFlagged reports a worker flagged by a previous check-in
type RecentlyFlagged struct {
	WorkerID string
	Reason   string
}

// Idle reports how long the lead has gone without an active session
type Idle struct {
	Minutes float64
}

// NoGPSMovement reports a worker whose device has not moved
type NoGPSMovement struct {
	WorkerID string
	Minutes  float64
}

// JobAbandoned reports a job the worker left before completion
type JobAbandoned struct {
	WorkerID string
	JobID    string
}

// EnvironmentalQAFailure reports failed environmental QA checks on a worker's jobs
type EnvironmentalQAFailure struct {
	WorkerID string
	Failures int
}

// LaundryHoarding reports a worker holding picked-up bags without washing them
type LaundryHoarding struct {
	WorkerID string
	Bags     int
}

// LaundryDeadline reports a laundry job approaching its pickup-to-start deadline
type LaundryDeadline struct {
	WorkerID         string
	JobID            string
	MinutesRemaining float64
}

// PartialTakeover reports a session with enough redo rooms for a partial takeover
type PartialTakeover struct {
	WorkerID string
	Rooms    int
}

func (CriticalWorkers) signal()        {}
func (JobDelay) signal()               {}
func (RepeatLowRatings) signal()       {}
func (RecentlyFlagged) signal()        {}
func (Idle) signal()                   {}
func (NoGPSMovement) signal()          {}
func (JobAbandoned) signal()           {}
func (EnvironmentalQAFailure) signal() {}
func (LaundryHoarding) signal()        {}
func (LaundryDeadline) signal()        {}
func (PartialTakeover) signal()        {}

// Signals is the condition set of one refresh
type Signals []Signal

func collect[T Signal](signals Signals) []T {
	var out []T
	for _, s := range signals {
		if v, ok := s.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
