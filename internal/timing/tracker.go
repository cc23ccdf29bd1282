package timing

import "github.com/dshills/taphold/internal/key"

// noSample marks a ring slot that has not been written yet.
const noSample = -1

// Tracker accumulates rolling press-to-press and overlap statistics across
// every key event, independent of what the decision engine is doing.
type Tracker struct {
	downCount uint8

	pressToPress Timer
	overlap      Timer
	release      Timer

	prevPressToPressDur int16
	curPressToPressDur  int16
	prevOverlapDur      int16
	curOverlapDur       int16

	prevPressCode key.Code
	curPressCode  key.Code
}

// NewTracker returns a tracker whose press and release timers are seeded
// far in the past, so the first real measurements read as stale.
func NewTracker(now uint16) *Tracker {
	t := &Tracker{
		prevPressToPressDur: noSample,
		curPressToPressDur:  noSample,
		prevOverlapDur:      noSample,
		curOverlapDur:       noSample,
	}
	t.pressToPress.Seed(now - MaxDur)
	t.release.Seed(now - (MaxDur - 100))
	return t
}

// Observe folds one key event into the rolling statistics. It runs for
// every event, even ones the engine later defers or reorders, because the
// predictors were trained on the real keystroke timeline.
func (t *Tracker) Observe(code key.Code, pressed bool, now uint16) {
	if pressed {
		d := t.pressToPress.Elapsed(now)
		t.prevPressToPressDur = t.curPressToPressDur
		t.curPressToPressDur = int16(d)

		t.pressToPress.Restart(now)
		t.downCount++
		if t.downCount == 2 {
			// Two keys down at the same time: an overlap begins.
			t.overlap.Restart(now)
		}

		t.prevPressCode = t.curPressCode
		t.curPressCode = code
		return
	}

	var overlap uint16
	if t.downCount >= 2 {
		overlap = t.overlap.Elapsed(now)
	}
	if t.downCount > 0 {
		t.downCount--
	}
	t.prevOverlapDur = t.curOverlapDur
	t.curOverlapDur = int16(overlap)

	// Restart rather than stop, so one long overlap is not counted twice.
	t.overlap.Restart(now)
	t.release.Restart(now)
}

// DownCount returns the number of keys physically down.
func (t *Tracker) DownCount() uint8 {
	return t.downCount
}

// PrevPressCode returns the keycode of the press before the current one.
func (t *Tracker) PrevPressCode() key.Code {
	return t.prevPressCode
}

// CurPressCode returns the keycode of the most recent press.
func (t *Tracker) CurPressCode() key.Code {
	return t.curPressCode
}

// Housekeep maintains the saturation flags of the rolling timers. The
// overlap timer only saturates while an overlap is actually running.
func (t *Tracker) Housekeep(now uint16) {
	t.release.Housekeep(now)
	t.pressToPress.Housekeep(now)
	if t.downCount >= 2 {
		t.overlap.Housekeep(now)
	}
}

// Snapshot captures the prediction inputs frozen at the moment a tap-hold
// key is pressed.
type Snapshot struct {
	// PrevPrevPressToPrevPressDur is the press-to-press interval two
	// presses back, or -1 when unknown.
	PrevPrevPressToPrevPressDur int16

	// PrevPressToPTHPressDur is the interval from the previous press to
	// the tap-hold press itself, or -1 when unknown.
	PrevPressToPTHPressDur int16

	// PrevPrevOverlapDur and PrevOverlapDur are the two most recent
	// overlap durations, adjusted for keys still in flight.
	PrevPrevOverlapDur int16
	PrevOverlapDur     int16

	// PressToPressWAvg and OverlapWAvg are the soft-max weighted
	// averages of the respective rings.
	PressToPressWAvg float64
	OverlapWAvg      float64

	// ReleaseBeforePTHToPTHPressDur is the time from the last release to
	// the tap-hold press.
	ReleaseBeforePTHToPTHPressDur uint16
}

// TakeSnapshot derives the snapshot for a tap-hold press. Call it directly
// after Observe has folded that press in, with the same timestamp.
//
// The overlap ring is shifted when other keys were already down: one key
// still in flight contributes a zero newest sample, and with two or more
// in flight the running overlap so far becomes the newest sample while the
// older one is zeroed. Without this the predictors would see overlaps far
// older than the keystrokes they describe.
func (t *Tracker) TakeSnapshot(now uint16) Snapshot {
	s := Snapshot{
		PrevPrevPressToPrevPressDur: t.prevPressToPressDur,
		PrevPressToPTHPressDur:      t.curPressToPressDur,
		PrevPrevOverlapDur:          t.prevOverlapDur,
		PrevOverlapDur:              t.curOverlapDur,
	}

	downBefore := t.downCount - 1
	if downBefore == 1 {
		s.PrevPrevOverlapDur = s.PrevOverlapDur
		s.PrevOverlapDur = 0
	} else if downBefore >= 2 {
		s.PrevPrevOverlapDur = 0
		s.PrevOverlapDur = int16(t.overlap.Elapsed(now))
	}

	s.PressToPressWAvg = WeightedAvg(float64(s.PrevPrevPressToPrevPressDur), float64(s.PrevPressToPTHPressDur))
	s.OverlapWAvg = WeightedAvg(float64(s.PrevPrevOverlapDur), float64(s.PrevOverlapDur))
	s.ReleaseBeforePTHToPTHPressDur = t.release.Elapsed(now)
	return s
}
