package types

import (
	"time"
)

// AlertPriority orders operator-facing alerts
type AlertPriority string

const (
	AlertHigh   AlertPriority = "high"
	AlertMedium AlertPriority = "medium"
	AlertLow    AlertPriority = "low"
)

// Rank returns 0 for high, 1 for medium, 2 for low
func (p AlertPriority) Rank() int {
	switch p {
	case AlertHigh:
		return 0
	case AlertMedium:
		return 1
	default:
		return 2
	}
}

// Alert is an operator-facing notification handed to the delivery collaborator
type Alert struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Priority  AlertPriority     `json:"priority"`
	Trigger   string            `json:"trigger"`
	WorkerID  string            `json:"worker_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Context   map[string]string `json:"context,omitempty"`
}
