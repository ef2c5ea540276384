// Package notify delivers alerts to the notification collaborator.
package notify

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/AltairaLabs/lead-oversight/internal/countdown"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Notifier delivers one alert
type Notifier interface {
	Notify(ctx context.Context, alert types.Alert) error
}

// LogNotifier writes alerts to a structured logger
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs every alert
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the alert at a level matching its priority
func (n *LogNotifier) Notify(ctx context.Context, alert types.Alert) error {
	level := slog.LevelInfo
	switch alert.Priority {
	case types.AlertHigh:
		level = slog.LevelWarn
	case types.AlertLow:
		level = slog.LevelDebug
	}
	n.logger.Log(ctx, level, "Alert",
		"alert_id", alert.ID,
		"alert_type", alert.Type,
		"priority", alert.Priority,
		"trigger", alert.Trigger,
		"worker_id", alert.WorkerID,
		"session_id", alert.SessionID,
		"message", alert.Message,
	)
	return nil
}

// StreamNotifier writes alerts as protojson-encoded lines
type StreamNotifier struct {
	mu  sync.Mutex
	w   io.Writer
	opt protojson.MarshalOptions
}

// NewStreamNotifier creates a notifier writing one JSON object per line to w
func NewStreamNotifier(w io.Writer) *StreamNotifier {
	return &StreamNotifier{w: w, opt: protojson.MarshalOptions{UseProtoNames: true}}
}

// Notify encodes and writes the alert
func (n *StreamNotifier) Notify(ctx context.Context, alert types.Alert) error {
	msg, err := Encode(alert)
	if err != nil {
		return err
	}
	data, err := n.opt.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: marshal alert %s: %w", alert.ID, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := n.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("notify: write alert %s: %w", alert.ID, err)
	}
	return nil
}

// Encode converts an alert into its wire struct
func Encode(alert types.Alert) (*structpb.Struct, error) {
	fields := map[string]any{
		"id":         alert.ID,
		"type":       alert.Type,
		"message":    alert.Message,
		"priority":   string(alert.Priority),
		"trigger":    alert.Trigger,
		"created_at": alert.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if alert.WorkerID != "" {
		fields["worker_id"] = alert.WorkerID
	}
	if alert.SessionID != "" {
		fields["session_id"] = alert.SessionID
	}
	if len(alert.Context) > 0 {
		ctx := make(map[string]any, len(alert.Context))
		for k, v := range alert.Context {
			ctx[k] = v
		}
		fields["context"] = ctx
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("notify: encode alert %s: %w", alert.ID, err)
	}
	return s, nil
}

// Decode parses one protojson line back into an alert
func Decode(line []byte) (types.Alert, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(line, &s); err != nil {
		return types.Alert{}, fmt.Errorf("notify: decode alert: %w", err)
	}
	f := s.GetFields()
	str := func(k string) string { return f[k].GetStringValue() }

	alert := types.Alert{
		ID:        str("id"),
		Type:      str("type"),
		Message:   str("message"),
		Priority:  types.AlertPriority(str("priority")),
		Trigger:   str("trigger"),
		WorkerID:  str("worker_id"),
		SessionID: str("session_id"),
	}
	if ts := str("created_at"); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return types.Alert{}, fmt.Errorf("notify: decode created_at: %w", err)
		}
		alert.CreatedAt = t
	}
	if c := f["context"].GetStructValue(); c != nil {
		alert.Context = make(map[string]string, len(c.GetFields()))
		for k, v := range c.GetFields() {
			alert.Context[k] = v.GetStringValue()
		}
	}
	return alert, nil
}

// ReadAll decodes every alert line from r
func ReadAll(r io.Reader) ([]types.Alert, error) {
	var alerts []types.Alert
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		a, err := Decode(line)
		if err != nil {
			return alerts, err
		}
		alerts = append(alerts, a)
	}
	return alerts, sc.Err()
}

// Fanout delivers every alert to each notifier and joins their errors
type Fanout []Notifier

// Notify delivers to all notifiers even when one fails
func (f Fanout) Notify(ctx context.Context, alert types.Alert) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromEvent converts a timer event into an alert for delivery
func FromEvent(ev countdown.Event, sessionID string) types.Alert {
	return types.Alert{
		ID:        ulid.MustNew(ulid.Timestamp(ev.At), ulid.DefaultEntropy()).String(),
		Type:      string(ev.Kind),
		Message:   ev.Message,
		Priority:  ev.Priority,
		Trigger:   ev.Key,
		WorkerID:  ev.WorkerID,
		SessionID: sessionID,
		CreatedAt: ev.At,
	}
}
