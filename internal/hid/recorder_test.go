package hid

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dshills/taphold/internal/key"
	"github.com/dshills/taphold/internal/timing"
)

func TestRecorderTrace(t *testing.T) {
	now := uint16(0)
	r := NewRecorder(timing.ClockFunc(func() uint16 { return now }))

	r.Register(key.LeftCtrl)
	now = 40
	r.Register(key.C)
	now = 90
	r.Unregister(key.C)
	r.Unregister(key.LeftCtrl)

	events := r.Events()
	if len(events) != 4 {
		t.Fatalf("Events() has %d entries, want 4", len(events))
	}
	if events[1].Time != 40 {
		t.Errorf("events[1].Time = %d, want 40", events[1].Time)
	}
	if got, want := r.Trace(), "LCtrl down, C down, C up, LCtrl up"; got != want {
		t.Errorf("Trace() = %q, want %q", got, want)
	}
}

func TestRecorderWaits(t *testing.T) {
	r := NewRecorder(nil)
	r.Wait()
	r.Wait()
	if got := r.Waits(); got != 2 {
		t.Errorf("Waits() = %d, want 2", got)
	}
}

func TestRecorderReset(t *testing.T) {
	r := NewRecorder(nil)
	session := r.Session()

	r.Register(key.A)
	r.Reset()

	if len(r.Events()) != 0 {
		t.Error("Reset should clear the trace")
	}
	if r.Session() != session {
		t.Error("Reset should keep the session id")
	}
}

func TestExportJSON(t *testing.T) {
	now := uint16(10)
	r := NewRecorder(timing.ClockFunc(func() uint16 { return now }))
	r.Register(key.A)
	r.Tap(key.F23)

	out, err := r.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}

	if got := gjson.Get(out, "session").String(); got != r.Session() {
		t.Errorf("session = %q, want %q", got, r.Session())
	}
	if got := gjson.Get(out, "events.#").Int(); got != 2 {
		t.Fatalf("events length = %d, want 2", got)
	}
	if got := gjson.Get(out, "events.0.code").String(); got != "A" {
		t.Errorf("events.0.code = %q, want A", got)
	}
	if got := gjson.Get(out, "events.1.op").String(); got != "tap" {
		t.Errorf("events.1.op = %q, want tap", got)
	}
	if got := gjson.Get(out, "events.0.time").Int(); got != 10 {
		t.Errorf("events.0.time = %d, want 10", got)
	}
}
