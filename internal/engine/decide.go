package engine

import (
	"github.com/dshills/taphold/internal/key"
	"github.com/dshills/taphold/internal/policy"
)

// shouldNeutralize reports whether a provisionally-held mod-tap's
// modifier set must be defeated with the suppression key before the tap
// is sent, so the host does not act on the lone modifier.
func (e *Engine) shouldNeutralize(code key.Code, heldInstantly bool) bool {
	return heldInstantly && code.IsModTap() && e.pol.ShouldNeutralizeMods(code.HoldMods())
}

// commitTap resolves the current tap-hold key as tap. The emission order
// is fixed: neutralize, roll back provisional holds (tap-hold key first,
// then second), register the tap, flush releases cached before the
// second press, register the second, flush the rest, and release the
// second if it is already physically up.
func (e *Engine) commitTap() {
	if e.status.Decided() {
		return
	}
	e.status = DecidedTap
	e.stats.TapDecisions++

	if e.shouldNeutralize(e.pthCode, e.pthHeldInstantly) || e.shouldNeutralize(e.secondCode, e.secondHeldInstantly) {
		e.sink.Tap(e.cfg.SuppressionKey)
	}

	if e.pthHeldInstantly {
		if e.pthCode.IsLayerTap() {
			// The instant layer is about to go away; the second key was
			// captured on it and must be re-resolved on the layer that
			// was active before.
			e.secondCode = e.keymap.KeycodeAt(e.layerBeforeInstantLT, e.secondRecord.Pos)
			e.secondIsTapHold = e.secondCode.IsTapHold()
		}
		e.emitUnregisterAsHold(e.pthCode, &e.pthRecord)
	}
	if e.secondHeldInstantly {
		e.emitUnregisterAsHold(e.secondCode, &e.secondRecord)
	}

	e.emitRegisterAsTap(e.pthCode, &e.pthRecord)
	e.flushReleases(true, true)

	if !e.hasSecond {
		return
	}

	if e.secondIsTapHold {
		if !e.secondToBeReleased {
			// Remember the position, so the release resolves as tap even
			// after the engine has moved on to the next cycle.
			e.addTapRelease(e.secondRecord.Pos)
		}
		e.secondRecord.SetTap()
	}

	e.emitRegister(e.secondCode, &e.secondRecord)
	waited := e.flushReleases(false, true)

	if e.secondToBeReleased {
		if !waited {
			e.sink.Wait()
		}
		e.emitUnregister(e.secondCode, &e.secondRecord)
	}
}

// commitHold resolves the current tap-hold key as hold: register the hold
// action unless it is already provisionally down, flush releases cached
// before the second press, register the second (as hold for approved
// same-side tap-holds, as tap otherwise), flush the rest, and release the
// second if it is already physically up.
//
// One ordering edge is accepted rather than repaired: when both keys were
// held instantly, a release cached before the second press flushes after
// the second's provisional register, although it physically preceded it.
// Modifiers act on keys at press time, not release time, so the
// host-visible effect is unchanged.
func (e *Engine) commitHold() {
	if e.status.Decided() {
		return
	}
	e.status = DecidedHold
	e.stats.HoldDecisions++

	if !e.pthHeldInstantly {
		e.registerPTHHold()
	}
	e.flushReleases(true, !e.pthHeldInstantly)

	if !e.hasSecond {
		return
	}

	if !e.secondHeldInstantly {
		if e.secondIsTapHold {
			if e.secondSameSide && e.pol.RegisterAsHoldWhenSameSide(e, e.secondCode, &e.secondRecord) {
				// Same-side tap-hold becomes hold so several holds can
				// stack, even if the second was already released.
				e.secondRecord.SetHold()
			} else {
				if !e.secondToBeReleased {
					e.addTapRelease(e.secondRecord.Pos)
				}
				e.secondRecord.SetTap()
			}
		}
		e.emitRegister(e.secondCode, &e.secondRecord)
	}

	waited := e.flushReleases(false, !e.secondHeldInstantly)

	if e.secondToBeReleased {
		if !waited {
			e.sink.Wait()
		}
		e.emitUnregister(e.secondCode, &e.secondRecord)
	}
}

// makeForcedChoice runs the timeout policy. ChoiceNone leaves the state
// machine to decide on its own.
func (e *Engine) makeForcedChoice() {
	e.chosenAfterTimeout = true
	switch e.pol.ForcedChoiceAfterTimeout(e) {
	case policy.ChoiceHold:
		e.stats.ForcedChoices++
		e.commitHold()
	case policy.ChoiceTap:
		e.stats.ForcedChoices++
		e.commitTap()
		if e.cfg.ResetImmediatelyWhenTapChosen {
			e.addTapRelease(e.pthRecord.Pos)
			e.reset()
		}
	}
}

// addTapRelease records a position whose release must resolve as tap,
// counting the overflow when the set is full. A dropped position falls
// back to the default hold release.
func (e *Engine) addTapRelease(pos key.Pos) {
	if !e.tapSet.add(pos) {
		e.stats.TapSetOverflows++
	}
}
