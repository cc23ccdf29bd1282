// Package policy is the override surface of the tap-hold engine. The
// firmware original exposed these hooks as weakly-linked functions; here
// they are fields on a Policy supplied at engine construction. Nil fields
// keep the trained defaults. Overrides can also be loaded from a Lua
// script, mirroring how the editor the stack comes from scripts its
// behavior.
package policy

import (
	"github.com/dshills/taphold/internal/key"
	"github.com/dshills/taphold/internal/predict"
	"github.com/dshills/taphold/internal/side"
)

// Choice is a forced decision returned by the timeout hook.
type Choice uint8

// Forced choices.
const (
	// ChoiceNone leaves the decision to the normal logic.
	ChoiceNone Choice = iota

	// ChoiceTap forces a tap.
	ChoiceTap

	// ChoiceHold forces a hold.
	ChoiceHold
)

// Context is the engine state a hook may consult. The engine implements
// it; hooks must treat it as read-only.
type Context interface {
	// PTHCode returns the active tap-hold keycode, or key.None.
	PTHCode() key.Code

	// SecondCode returns the second keycode, or key.None.
	SecondCode() key.Code

	// HasSecond reports whether a second key was pressed.
	HasSecond() bool

	// SecondIsTapHold reports whether the second keycode is tap-hold.
	SecondIsTapHold() bool

	// SecondIsSameSide reports whether the second key is on the same
	// side as the tap-hold key.
	SecondIsSameSide() bool

	// PrevDecisionWasHold reports whether the previous tap-hold key
	// resolved as hold.
	PrevDecisionWasHold() bool

	// PrevPressCode returns the keycode pressed before the current one.
	PrevPressCode() key.Code

	// PrevPressToPTHPressDur returns the interval from the previous
	// press to the tap-hold press, or -1 when unknown.
	PrevPressToPTHPressDur() int16

	// PTHUserBits returns the user bits of the tap-hold key's side.
	PTHUserBits() side.Side

	// Mods returns all active modifiers, including one-shot mods.
	Mods() key.Mods

	// CapsWord reports whether caps-word is active on the host side.
	CapsWord() bool

	// Features returns the prediction inputs as captured so far.
	Features() predict.Features
}

// Policy bundles every override hook. Zero value means all defaults.
type Policy struct {
	// ShouldHoldInstantly decides whether the tap-hold key is
	// provisionally held the moment it is pressed.
	ShouldHoldInstantly func(ctx Context, code key.Code, rec *key.Record) bool

	// SecondShouldHoldInstantly decides the same for the second key.
	SecondShouldHoldInstantly func(ctx Context, code key.Code, rec *key.Record) bool

	// ChooseTapOnSameSideSecondPress resolves the tap-hold key as tap
	// when a same-side second key is pressed.
	ChooseTapOnSameSideSecondPress func(ctx Context) bool

	// ChooseTapOnSameSideSecondRelease resolves the tap-hold key as tap
	// when a same-side second key is released before any decision.
	ChooseTapOnSameSideSecondRelease func(ctx Context) bool

	// TimeoutForForcingChoice returns the forced-choice timeout in
	// milliseconds. Zero decides at press time; negative never forces.
	TimeoutForForcingChoice func(ctx Context) int16

	// ForcedChoiceAfterTimeout picks the decision once the timeout has
	// elapsed.
	ForcedChoiceAfterTimeout func(ctx Context) Choice

	// ShouldNeutralizeMods decides whether a provisionally-held modifier
	// set must be defeated with the suppression key on a tap decision.
	ShouldNeutralizeMods func(mods key.Packed) bool

	// HoldCodeOverride returns a keycode to register instead of the hold
	// action, or key.None. A non-None value disables instant hold.
	HoldCodeOverride func(ctx Context) key.Code

	// RegisterAsHoldWhenSameSide decides whether a same-side tap-hold
	// key pressed after the decision (or as the second/third key of a
	// hold) also resolves as hold.
	RegisterAsHoldWhenSameSide func(ctx Context, code key.Code, rec *key.Record) bool

	// PredictionFactorForHold scales how easy holds are to reach.
	PredictionFactorForHold func(ctx Context) float64

	// PredictHoldOnThirdPress predicts the decision when a third key is
	// pressed.
	PredictHoldOnThirdPress func(ctx Context) bool

	// PredictHoldOnReleaseAfterSecondPress predicts the decision when
	// the tap-hold key is released while the second is down.
	PredictHoldOnReleaseAfterSecondPress func(ctx Context) bool

	// PredictHoldOnReleaseAfterSecondRelease predicts the decision when
	// the tap-hold key is released after the second was released.
	PredictHoldOnReleaseAfterSecondRelease func(ctx Context) bool

	// PredictMinOverlapForHold predicts the minimum overlap, in
	// milliseconds, that turns the decision into hold.
	PredictMinOverlapForHold func(ctx Context) uint16

	// IsFastStreakKey reports whether a keycode participates in
	// fast-streak detection.
	IsFastStreakKey func(ctx Context, code key.Code) bool

	// PredictFastStreakTap decides whether a fast typing streak resolves
	// the tap-hold key as tap immediately.
	PredictFastStreakTap func(ctx Context) bool
}

// Default returns a policy with every hook set to the trained default.
func Default() *Policy {
	p := &Policy{}
	p.FillDefaults()
	return p
}

// FillDefaults replaces nil hooks with the defaults, leaving overrides in
// place. The engine calls this once at construction.
func (p *Policy) FillDefaults() {
	if p.ShouldHoldInstantly == nil {
		p.ShouldHoldInstantly = DefaultShouldHoldInstantly
	}
	if p.SecondShouldHoldInstantly == nil {
		// The default defers to whatever the first-key hook is, override
		// included.
		p.SecondShouldHoldInstantly = func(ctx Context, code key.Code, rec *key.Record) bool {
			return p.ShouldHoldInstantly(ctx, code, rec)
		}
	}
	if p.ChooseTapOnSameSideSecondPress == nil {
		// A same-side non-tap-hold second implies a key roll. The check
		// uses the second keycode on the current layer, so an instant
		// layer-tap can still host mod-taps on its layer.
		p.ChooseTapOnSameSideSecondPress = func(ctx Context) bool {
			return !ctx.SecondIsTapHold()
		}
	}
	if p.ChooseTapOnSameSideSecondRelease == nil {
		// A same-side release before any third press is almost always a
		// roll.
		p.ChooseTapOnSameSideSecondRelease = func(Context) bool { return true }
	}
	if p.TimeoutForForcingChoice == nil {
		p.TimeoutForForcingChoice = func(Context) int16 { return 700 }
	}
	if p.ForcedChoiceAfterTimeout == nil {
		p.ForcedChoiceAfterTimeout = func(ctx Context) Choice {
			if ctx.HasSecond() {
				return ChoiceNone
			}
			return ChoiceHold
		}
	}
	if p.ShouldNeutralizeMods == nil {
		// Ctrl and Shift act on nothing by themselves; everything else
		// (Alt, GUI) does and gets neutralized. Neutralizing Ctrl also
		// produces control characters in some consoles.
		p.ShouldNeutralizeMods = func(mods key.Packed) bool {
			return !mods.Has(key.PackedCtrl | key.PackedShift)
		}
	}
	if p.HoldCodeOverride == nil {
		p.HoldCodeOverride = func(Context) key.Code { return key.None }
	}
	if p.RegisterAsHoldWhenSameSide == nil {
		p.RegisterAsHoldWhenSameSide = func(Context, key.Code, *key.Record) bool { return true }
	}
	if p.PredictionFactorForHold == nil {
		p.PredictionFactorForHold = func(ctx Context) float64 {
			return ctx.PTHUserBits().HoldFactor()
		}
	}
	if p.PredictHoldOnThirdPress == nil {
		p.PredictHoldOnThirdPress = func(ctx Context) bool {
			return predict.ThirdPress.Predict(ctx.Features())*p.PredictionFactorForHold(ctx) > 0.5
		}
	}
	if p.PredictHoldOnReleaseAfterSecondPress == nil {
		p.PredictHoldOnReleaseAfterSecondPress = func(ctx Context) bool {
			return predict.ReleaseAfterSecondPress.Predict(ctx.Features())*p.PredictionFactorForHold(ctx) > 0.5
		}
	}
	if p.PredictHoldOnReleaseAfterSecondRelease == nil {
		p.PredictHoldOnReleaseAfterSecondRelease = func(ctx Context) bool {
			return predict.ReleaseAfterSecondRelease.Predict(ctx.Features())*p.PredictionFactorForHold(ctx) > 0.5
		}
	}
	if p.PredictMinOverlapForHold == nil {
		p.PredictMinOverlapForHold = func(ctx Context) uint16 {
			pf := p.PredictionFactorForHold(ctx)
			if ctx.SecondIsSameSide() {
				// Same-side seconds lean tap, so demand a larger overlap.
				pf -= 0.10
			}
			f := 1.0 + (1.0 - pf)
			return uint16(float64(predict.OverlapForHold(ctx.Features())) * f)
		}
	}
	if p.IsFastStreakKey == nil {
		p.IsFastStreakKey = DefaultIsFastStreakKey
	}
	if p.PredictFastStreakTap == nil {
		p.PredictFastStreakTap = func(ctx Context) bool {
			return p.IsFastStreakKey(ctx, ctx.PTHCode()) &&
				p.IsFastStreakKey(ctx, ctx.PrevPressCode()) &&
				!ctx.PrevDecisionWasHold() &&
				ctx.PrevPressToPTHPressDur() >= 0 &&
				ctx.PrevPressToPTHPressDur() < 125
		}
	}
}

// DefaultShouldHoldInstantly is the stock instant-hold predicate: hold
// instantly unless caps-word is on, or the key is a mod-tap whose
// modifiers are already active or include GUI. Releasing such a mod-tap
// would report the shared modifier as released to the host even though
// the other key holding it is still down.
func DefaultShouldHoldInstantly(ctx Context, code key.Code, rec *key.Record) bool {
	if ctx.CapsWord() {
		return false
	}
	activeOrGUI := ctx.Mods() | key.MaskGUI
	if code.IsModTap() && code.HoldMods().Expand().Has(activeOrGUI) {
		return false
	}
	return true
}

// DefaultIsFastStreakKey admits letters, space and common punctuation, and
// nothing while non-Shift modifiers are active.
func DefaultIsFastStreakKey(ctx Context, code key.Code) bool {
	if ctx.Mods().Has(key.MaskCtrl | key.MaskGUI | key.MaskAlt) {
		return false
	}
	switch tap := code.TapCode(); {
	case tap >= key.A && tap <= key.Z:
		return true
	case tap == key.Space, tap == key.Dot, tap == key.Comma,
		tap == key.Semicolon, tap == key.Slash:
		return true
	}
	return false
}
