package engine

import "github.com/dshills/taphold/internal/key"

// ProcessRecord dispatches one key event with its pre-resolved keycode.
// It returns true when downstream processing should continue normally
// (the host then calls Apply or its own equivalent), and false when the
// event was fully handled or deferred here.
func (e *Engine) ProcessRecord(code key.Code, rec *key.Record) bool {
	if !rec.IsKeyEvent() {
		// Combo, tap-dance and programmatic events are not ours.
		return true
	}
	if e.tappingTermFn != nil && e.tappingTermFn(code, rec) != 0 {
		// A per-key tapping term opts the key out, legacy logic applies.
		return true
	}
	if code.Kind() == key.KindTapDance {
		return true
	}

	e.stats.Events++
	now := e.clock.Now()
	pos := rec.Pos
	pressed := rec.Pressed

	// Collected before anything else, even for events that are deferred
	// or reordered below: the predictors were trained on the real
	// keystroke timeline, not on what the host ends up seeing.
	e.tracker.Observe(code, pressed, now)

	if !pressed {
		// No keycode check here: a position cannot be pressed again
		// before it is released, and a release that resolved on a
		// different layer than its press still matches by position.
		if e.tapSet.remove(pos) {
			if e.status == Pressed || e.status == SecondPressed {
				// Mid-decision the release gets cached; mark it now so
				// the flush sends it as a tap.
				rec.SetTap()
			} else {
				e.emitUnregisterAsTap(code, rec)
				return false
			}
		}
	}

	isTapHold := code.IsTapHold()

	switch e.status {
	case Idle:
		if pressed && isTapHold {
			e.beginCycle(code, rec, now)
			return false
		}

	case Pressed:
		if pressed {
			return e.onSecondPress(code, rec, now, isTapHold)
		}
		if pos == e.pthRecord.Pos {
			// Released with no second press: a lone tap.
			e.commitTap()
			e.sink.Wait()
			e.emitUnregisterAsTap(e.pthCode, &e.pthRecord)
			e.reset()
			return false
		}
		// A release before the second press is cached so it can replay
		// in order once the decision is made: Shift down, tap-hold down,
		// Shift up must still produce an uppercase tap.
		e.cacheRelease(code, rec, true)
		return false

	case SecondPressed:
		if pressed {
			return e.onThirdPress(code, rec, now, isTapHold)
		}
		switch pos {
		case e.pthRecord.Pos:
			return e.onPTHRelease()
		case e.secondRecord.Pos:
			return e.onSecondRelease(now)
		}
		e.cacheRelease(code, rec, false)
		return false

	case DecidedTap:
		if pressed {
			if isTapHold {
				// Overlapping tap-holds after a tap decision are taps.
				e.addTapRelease(pos)
				e.emitRegisterAsTap(code, rec)
				return false
			}
		} else if pos == e.pthRecord.Pos {
			// The tap may have been sent just now; give the host a beat
			// so it is observed before the release.
			e.sink.Wait()
			e.emitUnregisterAsTap(e.pthCode, &e.pthRecord)
			e.reset()
			return false
		}

	case DecidedHold:
		if pressed {
			if isTapHold {
				if e.isSameSideAsPTH(rec) && e.pol.RegisterAsHoldWhenSameSide(e, code, rec) {
					e.emitRegisterAsHold(code, rec)
				} else {
					e.addTapRelease(pos)
					e.emitRegisterAsTap(code, rec)
				}
				return false
			}
		} else if pos == e.pthRecord.Pos {
			e.unregisterPTHHold()
			e.reset()
			return false
		}
	}

	if !pressed && !e.secondHeldInstantly && pos == e.secondRecord.Pos {
		// The second's press may have been registered only moments ago
		// at decision time; pace its release so the host keeps the tap.
		e.sink.Wait()
	}

	// Hold is the default downstream resolution, and releases that had
	// to be taps were already handled above.
	return true
}

// beginCycle starts a new decision cycle for a tap-hold press.
func (e *Engine) beginCycle(code key.Code, rec *key.Record, now uint16) {
	e.status = Pressed

	e.pthPress.Restart(now)
	e.pthCode = code
	e.pthRecord = *rec

	s := e.sides.Side(rec.Pos)
	e.pthUserBits = s.UserBits()
	e.pthAtomicSide = s.PTHAtom()

	e.snap = e.tracker.TakeSnapshot(now)

	e.altTapCode = e.pol.HoldCodeOverride(e)
	e.forcingTimeout = e.pol.TimeoutForForcingChoice(e)

	if e.forcingTimeout == 0 {
		e.makeForcedChoice()
		if e.status.Decided() {
			return
		}
	}

	if e.cfg.FastStreakTap && e.pol.PredictFastStreakTap(e) {
		e.stats.FastStreakTaps++
		if e.cfg.FastStreakTapResetImmediately {
			e.emitRegisterAsTap(e.pthCode, &e.pthRecord)
			// The release arrives after the reset; remember it as tap.
			e.addTapRelease(e.pthRecord.Pos)
			e.reset()
		} else {
			e.commitTap()
		}
		return
	}

	e.pthHeldInstantly = e.altTapCode == key.None && e.pol.ShouldHoldInstantly(e, code, rec)
	if e.pthHeldInstantly {
		if code.IsLayerTap() {
			e.instantLayerActive = true
			e.layerBeforeInstantLT = e.keymap.LayerFor(rec.Pos)
		}
		e.emitRegisterAsHold(e.pthCode, &e.pthRecord)
	}
}

// onSecondPress handles the first key pressed while a tap-hold key is
// undecided.
func (e *Engine) onSecondPress(code key.Code, rec *key.Record, now uint16, isTapHold bool) bool {
	e.status = SecondPressed

	e.hasSecond = true
	e.secondPress.Restart(now)
	e.secondCode = code
	e.secondRecord = *rec
	e.secondIsTapHold = isTapHold
	e.secondSameSide = e.isSameSideAsPTH(rec)

	e.pthPressToSecondPressDur = e.pthPress.Elapsed(now)

	if e.pthHeldInstantly && e.instantLayerActive && code == key.None {
		// The instant layer mapped the second position to nothing; the
		// user meant the tap layer, so this is a tap.
		e.chooseTap()
		return false
	}

	// The overlap prediction is better trained than the third-press one,
	// so it runs for tap-hold seconds even on the same side.
	if e.secondIsTapHold || !e.secondSameSide {
		e.minOverlapForHold = clampOverlap(e.pol.PredictMinOverlapForHold(e), e.cfg.MinOverlap, e.cfg.MaxOverlap)
	}

	if !e.secondSameSide {
		return false
	}

	if e.pol.ChooseTapOnSameSideSecondPress(e) {
		e.chooseTap()
		return false
	}

	if e.secondIsTapHold && e.pol.SecondShouldHoldInstantly(e, code, rec) {
		if !e.instantLayerActive && code.IsLayerTap() {
			// Remember where to come back to if tap undoes the switch.
			e.layerBeforeInstantLT = e.keymap.LayerFor(rec.Pos)
			e.instantLayerActive = true
		}
		e.secondHeldInstantly = true
		e.emitRegisterAsHold(e.secondCode, &e.secondRecord)
	}

	return false
}

// onThirdPress handles a press while a second key is already in flight.
// It is always time to decide now.
func (e *Engine) onThirdPress(code key.Code, rec *key.Record, now uint16, isTapHold bool) bool {
	e.pthSecondPressToThirdPressDur = e.secondPress.Elapsed(now)

	hold := e.pol.PredictHoldOnThirdPress(e)

	thirdIsTapHold := isTapHold
	if hold {
		e.commitHold()
	} else {
		e.commitTap()
		if e.instantLayerActive {
			// The tap decision restored the previous layer; the third
			// keycode was resolved on the instant layer and is stale.
			code = e.keymap.KeycodeAt(e.layerBeforeInstantLT, rec.Pos)
			thirdIsTapHold = code.IsTapHold()
		}
	}

	if thirdIsTapHold {
		if hold && e.isSameSideAsPTH(rec) && e.pol.RegisterAsHoldWhenSameSide(e, code, rec) {
			e.emitRegisterAsHold(code, rec)
		} else {
			e.addTapRelease(rec.Pos)
			e.emitRegisterAsTap(code, rec)
		}
	} else {
		// Registers above took time; re-stamp rather than pass through.
		e.emitRecord(code, rec)
	}

	if !hold && e.cfg.ResetImmediatelyWhenTapChosen {
		e.addTapRelease(e.pthRecord.Pos)
		e.reset()
	}
	return false
}

// onPTHRelease handles the tap-hold key's own release after a second key
// was pressed. The cycle always ends here.
func (e *Engine) onPTHRelease() bool {
	hold := false
	if !e.secondSameSide {
		if e.secondToBeReleased {
			hold = e.pol.PredictHoldOnReleaseAfterSecondRelease(e)
		} else {
			hold = e.pol.PredictHoldOnReleaseAfterSecondPress(e)
		}
	}

	if hold {
		e.commitHold()
		e.unregisterPTHHold()
	} else {
		e.commitTap()
		e.sink.Wait()
		e.emitUnregisterAsTap(e.pthCode, &e.pthRecord)
	}

	// The key is up: nothing further may be influenced by it, and the
	// next tap-hold press needs a clean engine.
	e.reset()
	return false
}

// onSecondRelease handles the second key going up before any decision.
func (e *Engine) onSecondRelease(now uint16) bool {
	// Not set when the second is released after a third press, but by
	// then the decision is made and the release paths handle it anyway.
	e.secondToBeReleased = true

	if e.secondSameSide && e.pol.ChooseTapOnSameSideSecondRelease(e) {
		e.chooseTap()
		return false
	}

	e.pthPressToSecondReleaseDur = e.pthPress.Elapsed(now)
	e.pthSecondDur = e.secondPress.Elapsed(now)

	// The decision paths emit this release themselves; nothing more to
	// do until the tap-hold key comes up or a third key goes down.
	return false
}

// chooseTap commits a tap and honors the immediate-reset flag.
func (e *Engine) chooseTap() {
	e.commitTap()
	if e.cfg.ResetImmediatelyWhenTapChosen {
		e.addTapRelease(e.pthRecord.Pos)
		e.reset()
	}
}

// cacheRelease defers a release until decision time, or processes it
// immediately when the cache is full. An out-of-order release is the
// accepted degradation.
func (e *Engine) cacheRelease(code key.Code, rec *key.Record, beforeSecond bool) {
	if !e.cache.add(code, *rec, beforeSecond) {
		e.stats.CacheOverflows++
		e.Apply(code, rec)
	}
}

// clampOverlap bounds a predicted overlap to the configured envelope.
func clampOverlap(v, lo, hi uint16) uint16 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
