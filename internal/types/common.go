// Package types provides the shared domain model used across the oversight engine
package types

import (
	"time"
)

// ServiceType is a kind of job a worker or lead can handle
type ServiceType string

const (
	// ServiceHomeCleaning covers in-home cleaning jobs
	ServiceHomeCleaning ServiceType = "home_cleaning"
	// ServiceCarWash covers mobile car wash jobs
	ServiceCarWash ServiceType = "car_wash"
	// ServiceLaundry covers pickup/wash/return laundry jobs
	ServiceLaundry ServiceType = "laundry"
)

// LatLng is a WGS84 coordinate pair
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Performance is the per-refresh performance snapshot of a worker.
// Pointer fields are optional; nil means the signal is unknown and is treated leniently.
type Performance struct {
	Complaints         int      `json:"complaints" yaml:"complaints"`
	Rating             *float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	Redos              int      `json:"redos" yaml:"redos"`
	TimeLagMinutes     float64  `json:"time_lag_minutes" yaml:"time_lag_minutes"`
	Reassignments      int      `json:"reassignments" yaml:"reassignments"`
	CompletedJobs      *int     `json:"completed_jobs,omitempty" yaml:"completed_jobs,omitempty"`
	CheckInOverdue     bool     `json:"check_in_overdue" yaml:"check_in_overdue"`
	MildWarnings       int      `json:"mild_warnings" yaml:"mild_warnings"`
	HelpRequested      bool     `json:"help_requested" yaml:"help_requested"`
	EquipmentRequested bool     `json:"equipment_requested" yaml:"equipment_requested"`
}

// Worker is a service provider ("Bubbler") as supplied by the roster source
type Worker struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name,omitempty" yaml:"name,omitempty"`
	Services    []ServiceType `json:"services" yaml:"services"`
	Location    LatLng        `json:"location" yaml:"location"`
	Performance Performance   `json:"performance" yaml:"performance"`
}

// Offers reports whether the worker can perform the given service
func (w *Worker) Offers(service ServiceType) bool {
	for _, s := range w.Services {
		if s == service {
			return true
		}
	}
	return false
}

// Lead is a field-oversight supervisor
type Lead struct {
	ID       string        `json:"id" yaml:"id"`
	Services []ServiceType `json:"services" yaml:"services"`
	Location LatLng        `json:"location" yaml:"location"`
}

// ProximityTier is a distance band between a lead and a worker
type ProximityTier string

const (
	ProximityClose      ProximityTier = "CLOSE"
	ProximityMedium     ProximityTier = "MEDIUM"
	ProximityFar        ProximityTier = "FAR"
	ProximityOutOfRange ProximityTier = "OUT_OF_RANGE"
)

// PriorityTier is the urgency classification of a worker
type PriorityTier string

const (
	// PriorityRed is critical
	PriorityRed PriorityTier = "RED"
	// PriorityOrange is high
	PriorityOrange PriorityTier = "ORANGE"
	// PriorityGreen is routine
	PriorityGreen PriorityTier = "GREEN"
	// PriorityBlue means the worker asked for assistance
	PriorityBlue PriorityTier = "BLUE"
	// PriorityGray is out of range or excluded
	PriorityGray PriorityTier = "GRAY"
)

// ClaimRecord is the exclusive ownership of a worker by one supervisor
type ClaimRecord struct {
	WorkerID      string        `json:"worker_id"`
	SupervisorID  string        `json:"supervisor_id"`
	ClaimedAt     time.Time     `json:"claimed_at"`
	DistanceMiles float64       `json:"distance_miles"`
	Tier          ProximityTier `json:"tier"`
}

// ReleaseReason records why a claim ended
type ReleaseReason string

const (
	ReleaseCheckInComplete ReleaseReason = "check_in_complete"
	ReleaseCancelled       ReleaseReason = "cancelled"
	ReleaseTimeout         ReleaseReason = "timeout"
	ReleaseError           ReleaseReason = "error"
	ReleaseEmergency       ReleaseReason = "emergency"
	ReleaseReassignment    ReleaseReason = "reassignment"
)

// BillingStatus is the billing eligibility reported to the payroll collaborator
type BillingStatus string

const (
	BillingActive BillingStatus = "billable"
	BillingPaused BillingStatus = "paused"
	BillingEnded  BillingStatus = "ended"
)
