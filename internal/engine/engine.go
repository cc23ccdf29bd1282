package engine

import (
	"time"

	"github.com/dshills/taphold/internal/config"
	"github.com/dshills/taphold/internal/hid"
	"github.com/dshills/taphold/internal/key"
	"github.com/dshills/taphold/internal/keymap"
	"github.com/dshills/taphold/internal/policy"
	"github.com/dshills/taphold/internal/predict"
	"github.com/dshills/taphold/internal/side"
	"github.com/dshills/taphold/internal/timing"
)

// Engine owns the complete tap-hold decision state. Create one per
// keyboard half-set with New; it is not safe for concurrent use and does
// not need to be, as dispatch and housekeeping alternate on the firmware
// main loop.
type Engine struct {
	cfg config.Config
	pol *policy.Policy

	sink   hid.Sink
	keymap Keymap
	sides  *side.Resolver
	clock  timing.Clock

	modsFn        func() key.Mods
	capsWordFn    func() bool
	tappingTermFn func(code key.Code, rec *key.Record) uint16

	tracker *timing.Tracker

	status     Status
	prevStatus Status

	pthCode       key.Code
	altTapCode    key.Code
	pthRecord     key.Record
	pthPress      timing.Timer
	pthAtomicSide side.Atom
	pthUserBits   side.Side

	pthHeldInstantly     bool
	secondHeldInstantly  bool
	instantLayerActive   bool
	layerBeforeInstantLT uint8

	hasSecond          bool
	secondCode         key.Code
	secondRecord       key.Record
	secondPress        timing.Timer
	secondIsTapHold    bool
	secondSameSide     bool
	secondToBeReleased bool

	forcingTimeout     int16
	chosenAfterTimeout bool

	minOverlapForHold uint16

	snap                          timing.Snapshot
	pthPressToSecondPressDur      uint16
	pthPressToSecondReleaseDur    uint16
	pthSecondDur                  uint16
	pthSecondPressToThirdPressDur uint16

	cache  releaseCache
	tapSet tapSet

	stats Stats
}

// New builds an engine. Supply at least a sink, a keymap and a side
// resolver; everything else has workable defaults.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:        config.Default(),
		capsWordFn: func() bool { return false },
		modsFn:     func() key.Mods { return 0 },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = wallClock{start: time.Now()}
	}
	if e.pol == nil {
		e.pol = policy.Default()
	} else {
		e.pol.FillDefaults()
	}
	if e.sides == nil {
		e.sides = &side.Resolver{}
	}
	if e.keymap == nil {
		e.keymap = keymap.New(0, 0)
	}
	e.tracker = timing.NewTracker(e.clock.Now())
	e.resetRecords()
	return e
}

// resetRecords clears the per-cycle records without touching rolling
// state. Timers keep their values: nothing reads them before the next
// cycle restarts them.
func (e *Engine) resetRecords() {
	e.pthCode = key.None
	e.altTapCode = key.None
	e.pthRecord = key.Record{Pos: key.EmptyPos}

	e.pthHeldInstantly = false
	e.secondHeldInstantly = false
	e.instantLayerActive = false
	e.layerBeforeInstantLT = 0

	e.hasSecond = false
	e.secondCode = key.None
	e.secondRecord = key.Record{Pos: key.EmptyPos}
	e.secondIsTapHold = false
	e.secondToBeReleased = false

	e.chosenAfterTimeout = false
	e.minOverlapForHold = 0
}

// reset returns to Idle, remembering the outgoing status for the
// fast-streak gate.
func (e *Engine) reset() {
	e.prevStatus = e.status
	e.status = Idle
	e.resetRecords()
}

// Status returns the current decision state.
func (e *Engine) Status() Status {
	return e.status
}

// PrevStatus returns the state the last cycle ended in.
func (e *Engine) PrevStatus() Status {
	return e.prevStatus
}

// PTHRecord returns a copy of the active tap-hold record.
func (e *Engine) PTHRecord() key.Record {
	return e.pthRecord
}

// SecondRecord returns a copy of the second-key record.
func (e *Engine) SecondRecord() key.Record {
	return e.secondRecord
}

// SecondKeycodeOnPTHLayer resolves the second key's position on the layer
// that held the tap-hold key before its instant layer switch. It returns
// key.None unless the tap-hold key is a layer-tap that was held
// instantly.
func (e *Engine) SecondKeycodeOnPTHLayer() key.Code {
	if !e.pthHeldInstantly || !e.pthCode.IsLayerTap() || e.keymap == nil {
		return key.None
	}
	return e.keymap.KeycodeAt(e.layerBeforeInstantLT, e.secondRecord.Pos)
}

// PTHAtomicSide returns the resolved side atom of the tap-hold key.
func (e *Engine) PTHAtomicSide() side.Atom {
	return e.pthAtomicSide
}

// Stats returns a copy of the counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// MinOverlapForHold returns the clamped predicted overlap for the current
// cycle, or zero when none was predicted.
func (e *Engine) MinOverlapForHold() uint16 {
	return e.minOverlapForHold
}

// isSameSideAsPTH resolves whether a record's key is on the same side as
// the active tap-hold key.
func (e *Engine) isSameSideAsPTH(rec *key.Record) bool {
	other := e.sides.Side(rec.Pos).OtherAtom()
	return side.IsSame(e.pthAtomicSide, other)
}

// Policy context. The hooks see the engine itself, read-only.

// PTHCode returns the active tap-hold keycode, or key.None. It also
// implements policy.Context.
func (e *Engine) PTHCode() key.Code { return e.pthCode }

// SecondCode returns the second keycode, or key.None. It also implements
// policy.Context.
func (e *Engine) SecondCode() key.Code { return e.secondCode }

// HasSecond implements policy.Context.
func (e *Engine) HasSecond() bool { return e.hasSecond }

// SecondIsTapHold implements policy.Context.
func (e *Engine) SecondIsTapHold() bool { return e.secondIsTapHold }

// SecondIsSameSide implements policy.Context.
func (e *Engine) SecondIsSameSide() bool { return e.secondSameSide }

// PrevDecisionWasHold implements policy.Context.
func (e *Engine) PrevDecisionWasHold() bool { return e.prevStatus == DecidedHold }

// PrevPressCode implements policy.Context.
func (e *Engine) PrevPressCode() key.Code { return e.tracker.PrevPressCode() }

// PrevPressToPTHPressDur implements policy.Context.
func (e *Engine) PrevPressToPTHPressDur() int16 { return e.snap.PrevPressToPTHPressDur }

// PTHUserBits implements policy.Context.
func (e *Engine) PTHUserBits() side.Side { return e.pthUserBits }

// Mods implements policy.Context.
func (e *Engine) Mods() key.Mods { return e.modsFn() }

// CapsWord implements policy.Context.
func (e *Engine) CapsWord() bool { return e.capsWordFn() }

// Features implements policy.Context: the prediction inputs as captured
// so far this cycle. The second-key release columns stay -1 until the
// second key is released, as in training.
func (e *Engine) Features() predict.Features {
	f := predict.Features{
		PrevPrevPressToPrevPressDur:   float64(e.snap.PrevPrevPressToPrevPressDur),
		PrevPressToPTHPressDur:        float64(e.snap.PrevPressToPTHPressDur),
		PrevPrevOverlapDur:            float64(e.snap.PrevPrevOverlapDur),
		PrevOverlapDur:                float64(e.snap.PrevOverlapDur),
		PressToPressWAvg:              e.snap.PressToPressWAvg,
		OverlapWAvg:                   e.snap.OverlapWAvg,
		ReleaseBeforePTHToPTHPressDur: float64(e.snap.ReleaseBeforePTHToPTHPressDur),
		PressToSecondPressDur:         float64(e.pthPressToSecondPressDur),
		SecondPressToThirdPressDur:    float64(e.pthSecondPressToThirdPressDur),
		DownCount:                     float64(e.tracker.DownCount()),
		PressToSecondReleaseDur:       -1,
		SecondDur:                     -1,
	}
	if e.secondToBeReleased {
		f.PressToSecondReleaseDur = float64(e.pthPressToSecondReleaseDur)
		f.SecondDur = float64(e.pthSecondDur)
	}
	return f
}
