package engine

import (
	"testing"

	"github.com/dshills/taphold/internal/config"
	"github.com/dshills/taphold/internal/hid"
	"github.com/dshills/taphold/internal/key"
	"github.com/dshills/taphold/internal/keymap"
	"github.com/dshills/taphold/internal/policy"
	"github.com/dshills/taphold/internal/side"
)

// scriptClock is a 16-bit clock the tests advance by hand.
type scriptClock struct {
	now uint16
}

func (c *scriptClock) Now() uint16 { return c.now }

// Demo matrix: row 0 is the left hand, row 1 the right hand.
var (
	posMT    = key.Pos{Row: 0, Col: 0} // tap-hold under test, left
	posLT    = key.Pos{Row: 0, Col: 1} // layer-tap, left
	posSameA = key.Pos{Row: 0, Col: 2} // left-hand letter
	posSameB = key.Pos{Row: 0, Col: 3} // left-hand letter
	posShift = key.Pos{Row: 0, Col: 4} // left-hand bare shift
	posOppC  = key.Pos{Row: 1, Col: 0} // right-hand letter
	posOppD  = key.Pos{Row: 1, Col: 1} // right-hand letter
	posOppMT = key.Pos{Row: 1, Col: 2} // right-hand tap-hold
)

var (
	codeMT    = key.ModTap(key.PackedCtrl, key.A)
	codeLT    = key.LayerTap(1, key.E)
	codeOppMT = key.ModTap(key.PackedShift, key.O)
)

func testLayout() [][]key.Code {
	return [][]key.Code{
		{codeMT, codeLT, key.S, key.D, key.LeftShift, key.None},
		{key.C, key.K, codeOppMT, key.None, key.None, key.None},
	}
}

func testSides() [][]side.Side {
	return [][]side.Side{
		{side.LL, side.LL, side.LL, side.LL, side.LL, side.LL},
		{side.RR, side.RR, side.RR, side.RR, side.RR, side.RR},
	}
}

// harness drives an engine the way the firmware integration would: it
// resolves keycodes through the keymap, feeds events, ticks housekeeping
// every millisecond, and applies pass-through events itself.
type harness struct {
	t     *testing.T
	clock *scriptClock
	rec   *hid.Recorder
	km    *keymap.Keymap
	eng   *Engine
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	clock := &scriptClock{}
	rec := hid.NewRecorder(clock)

	km := keymap.New(2, 6)
	if err := km.DefineLayer(0, testLayout()); err != nil {
		t.Fatalf("DefineLayer(0) failed: %v", err)
	}

	all := append([]Option{
		WithSink(rec),
		WithKeymap(km),
		WithSides(&side.Resolver{Layout: testSides()}),
		WithClock(clock),
	}, opts...)

	return &harness{
		t:     t,
		clock: clock,
		rec:   rec,
		km:    km,
		eng:   New(all...),
	}
}

// noInstantHold turns the provisional hold off, as the plain scenarios
// expect.
func noInstantHold() *policy.Policy {
	return &policy.Policy{
		ShouldHoldInstantly: func(policy.Context, key.Code, *key.Record) bool { return false },
	}
}

// tickTo advances the clock one millisecond at a time, running the
// housekeeping tick at each step.
func (h *harness) tickTo(t uint16) {
	for h.clock.now != t {
		h.clock.now++
		h.eng.Tick()
	}
}

func (h *harness) event(pos key.Pos, pressed bool, at uint16) {
	h.tickTo(at)
	code := h.km.CurrentKeycode(pos)
	rec := &key.Record{Pos: pos, Pressed: pressed, Time: at}
	if h.eng.ProcessRecord(code, rec) {
		h.eng.Apply(code, rec)
	}
}

func (h *harness) press(pos key.Pos, at uint16)   { h.event(pos, true, at) }
func (h *harness) release(pos key.Pos, at uint16) { h.event(pos, false, at) }

// expect compares the recorded trace against op/code pairs.
func (h *harness) expect(want ...hid.Event) {
	h.t.Helper()
	got := h.rec.Events()
	if len(got) != len(want) {
		h.t.Fatalf("trace = %q, want %d events", h.rec.Trace(), len(want))
	}
	for i := range want {
		if got[i].Op != want[i].Op || got[i].Code != want[i].Code {
			h.t.Fatalf("trace[%d] = %s, want %s (full trace: %q)", i, got[i], want[i], h.rec.Trace())
		}
	}
}

func down(code key.Code) hid.Event { return hid.Event{Op: hid.OpRegister, Code: code} }
func up(code key.Code) hid.Event   { return hid.Event{Op: hid.OpUnregister, Code: code} }

// S1: a lone press and release of a tap-hold key is exactly one tap,
// regardless of duration below the forced-choice timeout.
func TestScenarioPureTap(t *testing.T) {
	h := newHarness(t, WithPolicy(noInstantHold()))

	h.press(posMT, 100)
	h.release(posMT, 180)

	h.expect(down(key.A), up(key.A))
	if h.eng.Status() != Idle {
		t.Errorf("Status() = %v, want Idle", h.eng.Status())
	}
}

// S2: an opposite-side key held past the predicted minimum overlap turns
// the decision into hold, with the second key registered after it.
func TestScenarioHoldViaOppositeOverlap(t *testing.T) {
	pol := noInstantHold()
	pol.PredictMinOverlapForHold = func(policy.Context) uint16 { return 80 }
	h := newHarness(t, WithPolicy(pol))

	h.press(posMT, 0)
	h.press(posOppC, 50)
	h.release(posOppC, 400)
	h.release(posMT, 450)

	h.expect(down(key.LeftCtrl), down(key.C), up(key.C), up(key.LeftCtrl))

	if h.eng.Stats().OverlapHolds != 1 {
		t.Errorf("OverlapHolds = %d, want 1", h.eng.Stats().OverlapHolds)
	}
}

// S3: a same-side roll with a plain key resolves as tap immediately.
func TestScenarioSameSideRollIsTap(t *testing.T) {
	h := newHarness(t, WithPolicy(noInstantHold()))

	h.press(posMT, 0)
	h.press(posSameA, 30)
	h.release(posSameA, 90)
	h.release(posMT, 120)

	h.expect(down(key.A), down(key.S), up(key.S), up(key.A))
}

// S4: a Shift released between the tap-hold press and the decision is
// replayed after the tap register, preserving the uppercase.
func TestScenarioShiftWrapPreservesOrder(t *testing.T) {
	h := newHarness(t, WithPolicy(noInstantHold()))

	h.press(posShift, 0)
	h.press(posMT, 40)
	h.release(posShift, 60)
	h.release(posMT, 120)

	h.expect(down(key.LeftShift), down(key.A), up(key.LeftShift), up(key.A))
}

// S5: with no second key, the forced-choice timeout commits hold at
// roughly the configured 700 ms.
func TestScenarioForcedHoldOnTimeout(t *testing.T) {
	h := newHarness(t, WithPolicy(noInstantHold()))

	h.press(posMT, 0)
	h.tickTo(750)

	h.expect(down(key.LeftCtrl))
	if h.eng.Status() != DecidedHold {
		t.Fatalf("Status() = %v, want DecidedHold", h.eng.Status())
	}

	// The register must have landed at the timeout, not at the tick we
	// stopped on.
	if at := h.rec.Events()[0].Time; at != 700 {
		t.Errorf("hold registered at %d ms, want 700", at)
	}

	h.release(posMT, 900)
	h.expect(down(key.LeftCtrl), up(key.LeftCtrl))

	if h.eng.Stats().ForcedChoices != 1 {
		t.Errorf("ForcedChoices = %d, want 1", h.eng.Stats().ForcedChoices)
	}
}

// S6: instant hold registers the modifier at press time and rolls it
// back cleanly when the decision lands on tap.
func TestScenarioInstantHoldThenTap(t *testing.T) {
	h := newHarness(t)

	h.press(posMT, 0)
	h.expect(down(key.LeftCtrl))

	h.press(posOppC, 10)
	h.release(posOppC, 30)
	h.release(posMT, 45)

	h.expect(
		down(key.LeftCtrl),
		up(key.LeftCtrl),
		down(key.A),
		down(key.C),
		up(key.C),
		up(key.A),
	)
}

// A fast opposite-hand roll, released before the minimum overlap, must
// resolve as tap.
func TestFastOppositeRollIsTap(t *testing.T) {
	pol := noInstantHold()
	pol.PredictMinOverlapForHold = func(policy.Context) uint16 { return 80 }
	h := newHarness(t, WithPolicy(pol))

	h.press(posMT, 0)
	h.press(posOppC, 20)
	h.release(posOppC, 40)
	h.release(posMT, 55)

	h.expect(down(key.A), down(key.C), up(key.C), up(key.A))
}

// After a tap decision, further overlapping tap-hold presses resolve as
// taps until the deciding key is released.
func TestDecidedTapTurnsOverlappingTapHoldsIntoTaps(t *testing.T) {
	h := newHarness(t, WithPolicy(noInstantHold()))

	h.press(posMT, 0)
	h.press(posSameA, 30) // same-side roll: tap decided
	h.press(posOppMT, 60) // tap-hold pressed after the decision
	h.release(posOppMT, 110)
	h.release(posSameA, 120)
	h.release(posMT, 130)

	h.expect(
		down(key.A),
		down(key.S),
		down(key.O), // the second tap-hold's tap code, not Shift
		up(key.O),
		up(key.S),
		up(key.A),
	)
}

// After a hold decision, a same-side tap-hold press resolves as hold.
func TestDecidedHoldSameSideTapHoldBecomesHold(t *testing.T) {
	pol := noInstantHold()
	pol.PredictMinOverlapForHold = func(policy.Context) uint16 { return 40 }
	h := newHarness(t, WithPolicy(pol))

	h.press(posMT, 0)
	h.press(posOppC, 20)
	h.tickTo(100) // minimum overlap reached: hold decided
	h.press(posLT, 120)

	if h.eng.Status() != DecidedHold {
		t.Fatalf("Status() = %v, want DecidedHold", h.eng.Status())
	}
	if !h.km.IsActive(1) {
		t.Error("same-side layer-tap after hold decision should activate its layer")
	}

	h.release(posLT, 200)
	h.release(posOppC, 210)
	h.release(posMT, 220)

	h.expect(down(key.LeftCtrl), down(key.C), up(key.C), up(key.LeftCtrl))
	if h.km.IsActive(1) {
		t.Error("layer should deactivate when the held layer-tap is released")
	}
}

// The tap-release set outlives the decision cycle: a tap-hold key that
// was committed as tap while still down must release as tap even after
// the engine has reset.
func TestTapReleaseSurvivesReset(t *testing.T) {
	h := newHarness(t, WithPolicy(noInstantHold()))

	h.press(posMT, 0)
	h.press(posOppMT, 30) // second, opposite tap-hold
	h.release(posMT, 60)  // predictors see a short roll: tap

	// Cycle over; opposite tap-hold was registered as tap (O down) and
	// is still physically down.
	if h.eng.Status() != Idle {
		t.Fatalf("Status() = %v, want Idle after PTH release", h.eng.Status())
	}

	h.release(posOppMT, 300)

	h.expect(down(key.A), down(key.O), up(key.A), up(key.O))
}

// Releases beyond the cache capacity are processed immediately; every
// release is still emitted exactly once.
func TestReleaseCacheOverflowDegradesGracefully(t *testing.T) {
	h := newHarness(t, WithPolicy(noInstantHold()))

	// Nine plain keys go down, then the tap-hold key.
	positions := make([]key.Pos, 9)
	for i := range positions {
		positions[i] = key.Pos{Row: 1, Col: uint8(3 + i)}
	}
	layout := testLayout()
	for i := 0; i < 7; i++ {
		layout[0] = append(layout[0], key.None)
		layout[1] = append(layout[1], key.None)
	}
	for i := range positions {
		layout[1][3+i] = key.B + key.Code(i)
	}
	km := keymap.New(2, 13)
	if err := km.DefineLayer(0, layout); err != nil {
		t.Fatalf("DefineLayer(0) failed: %v", err)
	}
	h.km = km
	h.eng = New(
		WithSink(h.rec),
		WithKeymap(km),
		WithSides(&side.Resolver{Lookup: func(pos key.Pos) side.Side {
			if pos.Row == 0 {
				return side.LL
			}
			return side.RR
		}}),
		WithClock(h.clock),
		WithPolicy(noInstantHold()),
	)

	at := uint16(0)
	for _, pos := range positions {
		at += 10
		h.press(pos, at)
	}
	h.press(posMT, 100)
	for _, pos := range positions {
		at = max(at, 100) + 10
		h.release(pos, at)
	}
	h.release(posMT, 300)

	if h.eng.Stats().CacheOverflows == 0 {
		t.Error("CacheOverflows = 0, want at least one")
	}

	// Every pressed key must be released exactly once.
	balance := map[key.Code]int{}
	for _, e := range h.rec.Events() {
		switch e.Op {
		case hid.OpRegister:
			balance[e.Code]++
		case hid.OpUnregister:
			balance[e.Code]--
		}
	}
	for code, n := range balance {
		if n != 0 {
			t.Errorf("code %s register/unregister balance = %d, want 0", code, n)
		}
	}
}

// Apply never mutates decision state: the synthetic path cannot corrupt
// the machine the way re-entrant dispatch could.
func TestApplyDoesNotTouchState(t *testing.T) {
	h := newHarness(t, WithPolicy(noInstantHold()))

	h.press(posMT, 0)
	before := h.eng.Status()

	rec := &key.Record{Pos: posOppC, Pressed: true, Time: 5}
	h.eng.Apply(key.C, rec)

	if h.eng.Status() != before {
		t.Errorf("Status() = %v after Apply, want %v", h.eng.Status(), before)
	}
	if got := h.eng.Stats().Events; got != 1 {
		t.Errorf("Events = %d, want 1 (Apply must not count as dispatch)", got)
	}
}

// A forced-choice timeout of zero decides at press time; a negative one
// never forces.
func TestForcedChoiceTimeoutEdges(t *testing.T) {
	t.Run("zero decides on press", func(t *testing.T) {
		pol := noInstantHold()
		pol.TimeoutForForcingChoice = func(policy.Context) int16 { return 0 }
		h := newHarness(t, WithPolicy(pol))

		h.press(posMT, 10)
		h.expect(down(key.LeftCtrl))
		if h.eng.Status() != DecidedHold {
			t.Errorf("Status() = %v, want DecidedHold", h.eng.Status())
		}
	})

	t.Run("negative never forces", func(t *testing.T) {
		pol := noInstantHold()
		pol.TimeoutForForcingChoice = func(policy.Context) int16 { return -1 }
		h := newHarness(t, WithPolicy(pol))

		h.press(posMT, 0)
		h.tickTo(2000)
		h.expect()
		if h.eng.Status() != Pressed {
			t.Errorf("Status() = %v, want Pressed", h.eng.Status())
		}
	})
}

// With an alternative hold code configured, hold registers that code and
// instant hold stays off.
func TestAltHoldCode(t *testing.T) {
	pol := &policy.Policy{
		HoldCodeOverride: func(policy.Context) key.Code {
			return key.WithMods(key.PackedCtrl, key.C)
		},
	}
	h := newHarness(t, WithPolicy(pol))

	h.press(posMT, 0)
	h.expect() // no instant hold despite the default predicate

	h.tickTo(750) // forced hold
	h.release(posMT, 800)

	alt := key.WithMods(key.PackedCtrl, key.C)
	h.expect(down(alt), up(alt))
}

// An instantly-held layer-tap re-resolves the second key on the pre-tap
// layer when the decision is tap.
func TestInstantLayerTapRollback(t *testing.T) {
	h := newHarness(t)

	// Layer 1 remaps the opposite letter position.
	layer1 := [][]key.Code{
		{key.None, key.None, key.None, key.None, key.None, key.None},
		{key.F, key.None, key.None, key.None, key.None, key.None},
	}
	if err := h.km.DefineLayer(1, layer1); err != nil {
		t.Fatalf("DefineLayer(1) failed: %v", err)
	}

	h.press(posLT, 0)
	if !h.km.IsActive(1) {
		t.Fatal("instant hold of a layer-tap should activate its layer")
	}

	// The second key resolves to F on the instant layer.
	h.press(posOppC, 15)
	if got := h.eng.SecondCode(); got != key.F {
		t.Fatalf("SecondCode() = %s, want F (captured on the instant layer)", got)
	}
	if got := h.eng.SecondKeycodeOnPTHLayer(); got != key.C {
		t.Fatalf("SecondKeycodeOnPTHLayer() = %s, want C", got)
	}

	h.release(posOppC, 30)
	h.release(posLT, 45)

	// Tap decision: layer rolled back, second replayed as C, not F.
	h.expect(down(key.E), down(key.C), up(key.C), up(key.E))
	if h.km.IsActive(1) {
		t.Error("layer 1 should be off after the tap rollback")
	}
}

// With an instantly-held layer-tap, a committed hold keeps the layer on
// and the second key's instant-layer resolution.
func TestInstantLayerTapHold(t *testing.T) {
	pol := &policy.Policy{
		PredictMinOverlapForHold: func(policy.Context) uint16 { return 50 },
	}
	h := newHarness(t, WithPolicy(pol))

	layer1 := [][]key.Code{
		{key.None, key.None, key.None, key.None, key.None, key.None},
		{key.F, key.None, key.None, key.None, key.None, key.None},
	}
	if err := h.km.DefineLayer(1, layer1); err != nil {
		t.Fatalf("DefineLayer(1) failed: %v", err)
	}

	h.press(posLT, 0)
	h.press(posOppC, 20)
	h.tickTo(100) // overlap reached: hold

	h.release(posOppC, 150)
	h.release(posLT, 200)

	// The layer-tap was already held instantly, so no extra register; the
	// second stays F from the instant layer.
	h.expect(down(key.F), up(key.F))
	if h.km.IsActive(1) {
		t.Error("layer 1 should be off after release")
	}
}

// The neutralization tap defeats a lone Alt left behind by an instant
// hold that rolls back to tap.
func TestModNeutralization(t *testing.T) {
	h := newHarness(t)

	altPos := key.Pos{Row: 0, Col: 5}
	layout := testLayout()
	layout[0][5] = key.ModTap(key.PackedAlt, key.B)
	if err := h.km.DefineLayer(0, layout); err != nil {
		t.Fatalf("DefineLayer(0) failed: %v", err)
	}

	h.press(altPos, 0)
	h.release(altPos, 50)

	want := []hid.Event{
		down(key.LeftAlt),
		{Op: hid.OpTap, Code: key.F23},
		up(key.LeftAlt),
		down(key.B),
		up(key.B),
	}
	h.expect(want...)
}

// Instant-hold rollback is idempotent: after the cycle, the net register
// balance is zero for every code, and the logical tap sequence matches a
// cycle without instant hold.
func TestInstantHoldRollbackIdempotent(t *testing.T) {
	run := func(instant bool) []hid.Event {
		opts := []Option{}
		if !instant {
			opts = append(opts, WithPolicy(noInstantHold()))
		}
		h := newHarness(t, opts...)
		h.press(posMT, 0)
		h.press(posOppC, 10)
		h.release(posOppC, 30)
		h.release(posMT, 45)
		return h.rec.Events()
	}

	withInstant := run(true)
	without := run(false)

	balance := map[key.Code]int{}
	for _, e := range withInstant {
		switch e.Op {
		case hid.OpRegister:
			balance[e.Code]++
		case hid.OpUnregister:
			balance[e.Code]--
		}
	}
	for code, n := range balance {
		if n != 0 {
			t.Errorf("net balance for %s = %d, want 0", code, n)
		}
	}

	// Strip the provisional modifier pair; what remains must be the
	// plain tap sequence.
	var stripped []hid.Event
	for _, e := range withInstant {
		if e.Code == key.LeftCtrl {
			continue
		}
		stripped = append(stripped, e)
	}
	if len(stripped) != len(without) {
		t.Fatalf("stripped trace has %d events, want %d", len(stripped), len(without))
	}
	for i := range without {
		if stripped[i].Op != without[i].Op || stripped[i].Code != without[i].Code {
			t.Errorf("stripped[%d] = %s, want %s", i, stripped[i], without[i])
		}
	}
}

// With the immediate-reset flag, a second tap-hold cycle can begin while
// the first tap is still physically down.
func TestResetImmediatelyWhenTapChosen(t *testing.T) {
	cfg := config.Default()
	cfg.ResetImmediatelyWhenTapChosen = true
	h := newHarness(t, WithPolicy(noInstantHold()), WithConfig(cfg))

	h.press(posMT, 0)
	h.press(posSameA, 30) // same-side roll: tap, then immediate reset

	if h.eng.Status() != Idle {
		t.Fatalf("Status() = %v, want Idle right after tap decision", h.eng.Status())
	}

	// A new tap-hold cycle starts while A is still down.
	h.press(posOppMT, 60)
	if h.eng.Status() != Pressed {
		t.Fatalf("Status() = %v, want Pressed for the new cycle", h.eng.Status())
	}

	// The first tap-hold key's release still resolves as tap.
	h.release(posMT, 80)
	h.release(posOppMT, 200)
	h.release(posSameA, 210)

	events := h.rec.Events()
	if len(events) < 2 || events[0].Code != key.A || events[1].Code != key.S {
		t.Fatalf("trace should start with the rolled tap: %q", h.rec.Trace())
	}
}

// Fast streak: two quick eligible presses in a row resolve the second
// tap-hold as tap without consulting the heavier predictors.
func TestFastStreakTap(t *testing.T) {
	cfg := config.Default()
	cfg.FastStreakTap = true
	h := newHarness(t, WithPolicy(noInstantHold()), WithConfig(cfg))

	// A letter press/release, then the tap-hold within the streak gap.
	h.press(posSameA, 0)
	h.release(posSameA, 40)
	h.press(posMT, 80) // 80 ms after the S press, below the 125 ms gate

	if h.eng.Stats().FastStreakTaps != 1 {
		t.Fatalf("FastStreakTaps = %d, want 1 (trace %q)", h.eng.Stats().FastStreakTaps, h.rec.Trace())
	}
	if h.eng.Status() != DecidedTap {
		t.Fatalf("Status() = %v, want DecidedTap", h.eng.Status())
	}

	h.release(posMT, 120)
	h.expect(down(key.S), up(key.S), down(key.A), up(key.A))
}
