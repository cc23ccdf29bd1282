package key

// Pos identifies a physical key by its matrix coordinates.
type Pos struct {
	Row uint8
	Col uint8
}

// EmptyPos marks the absence of a matrix position, as on synthetic events.
var EmptyPos = Pos{Row: 0xFF, Col: 0xFF}

// Tap carries the tap-hold resolution of a record. Count zero means hold;
// a count of one with Interrupted set requests tap registration.
type Tap struct {
	Count       uint8
	Interrupted bool
}

// Record is the mutable per-event state that travels with a press or
// release through the engine.
type Record struct {
	// Pos is the matrix position, or EmptyPos for non-matrix events.
	Pos Pos

	// Pressed is true for a press and false for a release.
	Pressed bool

	// Time is the free-running 16-bit millisecond timestamp of the event.
	Time uint16

	// Tap holds the tap-hold resolution once one has been made.
	Tap Tap
}

// IsKeyEvent reports whether the record originates from the matrix scan.
// Combo, tap-dance and programmatic events carry EmptyPos and pass the
// engine untouched.
func (r *Record) IsKeyEvent() bool {
	return r.Pos != EmptyPos
}

// SetTap marks the record to register as a tap.
func (r *Record) SetTap() {
	r.Tap.Count = 1
	r.Tap.Interrupted = true
}

// SetHold marks the record to register as a hold.
func (r *Record) SetHold() {
	r.Tap.Count = 0
}

// IsTap reports whether the record was marked to register as a tap.
func (r *Record) IsTap() bool {
	return r.Tap.Count >= 1
}
