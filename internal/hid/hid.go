// Package hid is the engine's egress: the sink interface key actions are
// emitted through, and a recording sink used by tests and the playground.
package hid

import "github.com/dshills/taphold/internal/key"

// Op is the kind of a sink action.
type Op uint8

// Sink operations.
const (
	// OpRegister reports a key down to the host.
	OpRegister Op = iota

	// OpUnregister reports a key up to the host.
	OpUnregister

	// OpTap reports a down immediately followed by an up.
	OpTap
)

// String returns the op symbol used in traces.
func (o Op) String() string {
	switch o {
	case OpRegister:
		return "down"
	case OpUnregister:
		return "up"
	case OpTap:
		return "tap"
	}
	return "?"
}

// Sink receives the key actions the engine decides to emit. Composite
// codes (such as Ctrl+C packed into one keycode) register and unregister
// as a unit.
type Sink interface {
	// Register reports a key down.
	Register(code key.Code)

	// Unregister reports a key up.
	Unregister(code key.Code)

	// Tap reports a down and an up as one action.
	Tap(code key.Code)

	// Wait flushes the pending report and gives the host a beat before
	// the next action. The engine calls it whenever a register and an
	// unregister could otherwise land inside one scan cycle.
	Wait()
}

// Event is one recorded sink action.
type Event struct {
	Op   Op
	Code key.Code
	Time uint16
}

// String renders an event like "A down" or "LCtrl up".
func (e Event) String() string {
	return e.Code.String() + " " + e.Op.String()
}
