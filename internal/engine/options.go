package engine

import (
	"time"

	"github.com/dshills/taphold/internal/config"
	"github.com/dshills/taphold/internal/hid"
	"github.com/dshills/taphold/internal/key"
	"github.com/dshills/taphold/internal/policy"
	"github.com/dshills/taphold/internal/side"
	"github.com/dshills/taphold/internal/timing"
)

// Keymap is the layer service the engine resolves captured positions
// against when a decision changes the effective layer.
type Keymap interface {
	// KeycodeAt returns the keycode at pos on an explicit layer.
	KeycodeAt(layer uint8, pos key.Pos) key.Code

	// LayerFor returns the layer currently supplying pos.
	LayerFor(pos key.Pos) uint8

	// Activate turns a layer on; a layer-tap hold does this.
	Activate(layer uint8)

	// Deactivate turns a layer off again.
	Deactivate(layer uint8)
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the HID sink actions are emitted through.
func WithSink(s hid.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithKeymap sets the layer service.
func WithKeymap(k Keymap) Option {
	return func(e *Engine) { e.keymap = k }
}

// WithSides sets the side resolver.
func WithSides(r *side.Resolver) Option {
	return func(e *Engine) { e.sides = r }
}

// WithPolicy installs override hooks. Nil hook fields keep their
// defaults.
func WithPolicy(p *policy.Policy) Option {
	return func(e *Engine) { e.pol = p }
}

// WithConfig sets the tunables.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithClock sets the 16-bit millisecond clock. Tests script it; the
// default wraps the wall clock.
func WithClock(c timing.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithMods sets the query for the active modifier mask, one-shot mods
// included.
func WithMods(mods func() key.Mods) Option {
	return func(e *Engine) { e.modsFn = mods }
}

// WithCapsWord sets the query for the host-side caps-word state.
func WithCapsWord(capsWord func() bool) Option {
	return func(e *Engine) { e.capsWordFn = capsWord }
}

// WithTappingTerm sets the per-key tapping term query. A keycode with a
// non-zero tapping term is left to the legacy tap-hold logic.
func WithTappingTerm(term func(code key.Code, rec *key.Record) uint16) Option {
	return func(e *Engine) { e.tappingTermFn = term }
}

// wallClock folds the wall clock into the free-running 16-bit counter.
type wallClock struct {
	start time.Time
}

// Now implements timing.Clock.
func (c wallClock) Now() uint16 {
	return uint16(time.Since(c.start).Milliseconds())
}
