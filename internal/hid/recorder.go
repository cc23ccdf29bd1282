package hid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/dshills/taphold/internal/key"
	"github.com/dshills/taphold/internal/timing"
)

// Recorder is a Sink that keeps every action in order. Tests compare its
// trace against expected sequences; the playground tails it on screen and
// can export it as JSON.
type Recorder struct {
	session string
	clock   timing.Clock
	events  []Event
	waits   int
}

// NewRecorder creates a recorder stamping events from clock. A nil clock
// stamps zero times.
func NewRecorder(clock timing.Clock) *Recorder {
	return &Recorder{
		session: uuid.NewString(),
		clock:   clock,
	}
}

// Session returns the recorder's session id.
func (r *Recorder) Session() string {
	return r.session
}

func (r *Recorder) record(op Op, code key.Code) {
	var now uint16
	if r.clock != nil {
		now = r.clock.Now()
	}
	r.events = append(r.events, Event{Op: op, Code: code, Time: now})
}

// Register implements Sink.
func (r *Recorder) Register(code key.Code) {
	r.record(OpRegister, code)
}

// Unregister implements Sink.
func (r *Recorder) Unregister(code key.Code) {
	r.record(OpUnregister, code)
}

// Tap implements Sink.
func (r *Recorder) Tap(code key.Code) {
	r.record(OpTap, code)
}

// Wait implements Sink. The recorder only counts waits; there is no host
// to pace.
func (r *Recorder) Wait() {
	r.waits++
}

// Waits returns how many guard waits the engine requested.
func (r *Recorder) Waits() int {
	return r.waits
}

// Events returns the recorded actions in emission order.
func (r *Recorder) Events() []Event {
	return r.events
}

// Reset clears the trace but keeps the session id.
func (r *Recorder) Reset() {
	r.events = r.events[:0]
	r.waits = 0
}

// Trace returns the actions as a compact string such as
// "A down, A up, LCtrl down".
func (r *Recorder) Trace() string {
	parts := make([]string, len(r.events))
	for i, e := range r.events {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// ExportJSON renders the session and its events as a JSON document.
func (r *Recorder) ExportJSON() (string, error) {
	out, err := sjson.Set("", "session", r.session)
	if err != nil {
		return "", fmt.Errorf("trace export: %w", err)
	}
	for i, e := range r.events {
		prefix := fmt.Sprintf("events.%d.", i)
		if out, err = sjson.Set(out, prefix+"op", e.Op.String()); err != nil {
			return "", fmt.Errorf("trace export: %w", err)
		}
		if out, err = sjson.Set(out, prefix+"code", e.Code.String()); err != nil {
			return "", fmt.Errorf("trace export: %w", err)
		}
		if out, err = sjson.Set(out, prefix+"time", e.Time); err != nil {
			return "", fmt.Errorf("trace export: %w", err)
		}
	}
	return out, nil
}
