// Package dashboard composes the ordered, grouped worker view of a lead.
package dashboard

import (
	"context"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AltairaLabs/lead-oversight/internal/geo"
	"github.com/AltairaLabs/lead-oversight/internal/priority"
	"github.com/AltairaLabs/lead-oversight/internal/prompts"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// DefaultParallelThreshold is the roster size above which annotation fans out
const DefaultParallelThreshold = 256

// ClaimStatus is a worker's claim state relative to the requesting lead
type ClaimStatus string

const (
	ClaimUnclaimed ClaimStatus = "unclaimed"
	ClaimMine      ClaimStatus = "mine"
	ClaimOther     ClaimStatus = "other"
)

// Request is the snapshot one dashboard refresh is computed from
type Request struct {
	Lead              types.Lead
	Roster            []types.Worker
	Claims            []types.ClaimRecord
	Signals           prompts.Signals // CriticalWorkers entries are ignored
	IncludeOutOfRange bool
	Now               time.Time
}

// Entry is one annotated worker
type Entry struct {
	Worker        types.Worker       `json:"worker"`
	DistanceMiles float64            `json:"distance_miles"`
	Proximity     geo.TierInfo       `json:"proximity"`
	Priority      types.PriorityTier `json:"priority"`
	PriorityRule  string             `json:"priority_rule"`
	Rank          int                `json:"rank"`
	ClaimStatus   ClaimStatus        `json:"claim_status"`
}

// Group is the workers of one priority tier in display order
type Group struct {
	Tier    types.PriorityTier `json:"tier"`
	Entries []Entry            `json:"entries"`
}

// View is the composed dashboard
type View struct {
	LeadID      string                     `json:"lead_id"`
	Entries     []Entry                    `json:"entries"`
	Groups      []Group                    `json:"groups"`
	Counts      map[types.PriorityTier]int `json:"counts"`
	Prompts     []prompts.Prompt           `json:"prompts"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// Composer wires the classifiers and the prompt aggregator into one refresh
type Composer struct {
	proximity         *geo.Classifier
	priority          *priority.Classifier
	prompts           *prompts.Aggregator
	parallelThreshold int
}

// NewComposer creates a dashboard composer
func NewComposer(proximity *geo.Classifier, prio *priority.Classifier, agg *prompts.Aggregator) *Composer {
	return &Composer{
		proximity:         proximity,
		priority:          prio,
		prompts:           agg,
		parallelThreshold: DefaultParallelThreshold,
	}
}

// SetParallelThreshold changes the roster size above which annotation runs in parallel
func (c *Composer) SetParallelThreshold(n int) {
	c.parallelThreshold = n
}

// Compose filters, annotates, sorts and groups the roster, then evaluates prompts
func (c *Composer) Compose(ctx context.Context, req Request) (*View, error) {
	eligible := filterByService(req.Lead, req.Roster)

	owners := make(map[string]string, len(req.Claims))
	for _, claim := range req.Claims {
		owners[claim.WorkerID] = claim.SupervisorID
	}

	annotated, err := c.annotate(ctx, req.Lead, eligible, owners)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(annotated))
	for _, e := range annotated {
		if e.ClaimStatus == ClaimOther {
			continue
		}
		if !e.Proximity.Visible && !req.IncludeOutOfRange {
			continue
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Rank != entries[j].Rank {
			return entries[i].Rank < entries[j].Rank
		}
		return entries[i].DistanceMiles < entries[j].DistanceMiles
	})

	view := &View{
		LeadID:      req.Lead.ID,
		Entries:     entries,
		Counts:      make(map[types.PriorityTier]int, len(priority.Tiers())),
		GeneratedAt: req.Now,
	}
	for _, tier := range priority.Tiers() {
		view.Counts[tier] = 0
	}
	for _, e := range entries {
		view.Counts[e.Priority]++
	}
	view.Groups = group(entries)

	signals := make(prompts.Signals, 0, len(req.Signals)+1)
	signals = append(signals, prompts.CriticalWorkers{Count: view.Counts[types.PriorityRed]})
	for _, s := range req.Signals {
		// the RED count comes from the composed view only
		if _, ok := s.(prompts.CriticalWorkers); ok {
			continue
		}
		signals = append(signals, s)
	}
	view.Prompts = c.prompts.Aggregate(signals, req.Now)

	return view, nil
}

func filterByService(lead types.Lead, roster []types.Worker) []types.Worker {
	out := make([]types.Worker, 0, len(roster))
	for _, w := range roster {
		for _, s := range lead.Services {
			if w.Offers(s) {
				out = append(out, w)
				break
			}
		}
	}
	return out
}

func (c *Composer) annotate(
	ctx context.Context,
	lead types.Lead,
	workers []types.Worker,
	owners map[string]string,
) ([]Entry, error) {
	out := make([]Entry, len(workers))
	if len(workers) <= c.parallelThreshold {
		for i := range workers {
			out[i] = c.annotateOne(lead, workers[i], owners)
		}
		return out, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range workers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = c.annotateOne(lead, workers[i], owners)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Composer) annotateOne(lead types.Lead, w types.Worker, owners map[string]string) Entry {
	miles, info := c.proximity.Between(lead.Location, w.Location)

	tier, rule := c.priority.Classify(w.Performance)
	if info.Tier == types.ProximityOutOfRange {
		tier, rule = types.PriorityGray, "out_of_range"
	}

	status := ClaimUnclaimed
	if owner, ok := owners[w.ID]; ok {
		status = ClaimOther
		if owner == lead.ID {
			status = ClaimMine
		}
	}

	return Entry{
		Worker:        w,
		DistanceMiles: miles,
		Proximity:     info,
		Priority:      tier,
		PriorityRule:  rule,
		Rank:          priority.Rank(tier),
		ClaimStatus:   status,
	}
}

func group(entries []Entry) []Group {
	var groups []Group
	for _, e := range entries {
		if n := len(groups); n > 0 && groups[n-1].Tier == e.Priority {
			groups[n-1].Entries = append(groups[n-1].Entries, e)
			continue
		}
		groups = append(groups, Group{Tier: e.Priority, Entries: []Entry{e}})
	}
	return groups
}
