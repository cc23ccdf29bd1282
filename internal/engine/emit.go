package engine

import "github.com/dshills/taphold/internal/key"

// Apply performs the default downstream action for an event the engine
// passed through (ProcessRecord returned true). Hosts call it in place of
// the firmware's normal key processing; the engine uses the same path for
// every synthetic action it emits, so ordering is identical either way.
//
// A tap-hold record resolves by its tap state: a tap registers the tap
// keycode, a hold registers the modifier set or activates the layer; a
// swap-hands hold emits nothing. Hold is the default.
func (e *Engine) Apply(code key.Code, rec *key.Record) {
	if code == key.None {
		return
	}
	if code.IsTapHold() && !rec.IsTap() {
		e.applyHold(code, rec.Pressed)
		return
	}
	emit := code
	if code.IsTapHold() {
		emit = code.TapCode()
	}
	if rec.Pressed {
		e.sink.Register(emit)
	} else {
		e.sink.Unregister(emit)
	}
}

// applyHold performs the hold action of a tap-hold keycode.
func (e *Engine) applyHold(code key.Code, pressed bool) {
	switch {
	case code.IsModTap():
		for _, mod := range code.HoldMods().Expand().Codes() {
			if pressed {
				e.sink.Register(mod)
			} else {
				e.sink.Unregister(mod)
			}
		}
	case code.IsLayerTap():
		if e.keymap == nil {
			return
		}
		if pressed {
			e.keymap.Activate(code.HoldLayer())
		} else {
			e.keymap.Deactivate(code.HoldLayer())
		}
	}
	// A swap-hands hold has no HID-visible action of its own.
}

// emitRecord re-emits a captured record as-is with a fresh timestamp.
func (e *Engine) emitRecord(code key.Code, rec *key.Record) {
	rec.Time = e.clock.Now()
	e.Apply(code, rec)
}

func (e *Engine) emitRegisterAsHold(code key.Code, rec *key.Record) {
	rec.SetHold()
	rec.Pressed = true
	e.emitRecord(code, rec)
}

func (e *Engine) emitUnregisterAsHold(code key.Code, rec *key.Record) {
	rec.SetHold()
	rec.Pressed = false
	e.emitRecord(code, rec)
}

func (e *Engine) emitRegisterAsTap(code key.Code, rec *key.Record) {
	rec.SetTap()
	rec.Pressed = true
	e.emitRecord(code, rec)
}

func (e *Engine) emitUnregisterAsTap(code key.Code, rec *key.Record) {
	rec.SetTap()
	rec.Pressed = false
	e.emitRecord(code, rec)
}

func (e *Engine) emitRegister(code key.Code, rec *key.Record) {
	rec.Pressed = true
	e.emitRecord(code, rec)
}

func (e *Engine) emitUnregister(code key.Code, rec *key.Record) {
	rec.Pressed = false
	e.emitRecord(code, rec)
}

// registerPTHHold commits the hold action of the tap-hold key itself,
// or the configured alternative code. Only called when the key was not
// already held instantly.
func (e *Engine) registerPTHHold() {
	if e.altTapCode != key.None {
		e.sink.Register(e.altTapCode)
		return
	}
	e.emitRegisterAsHold(e.pthCode, &e.pthRecord)

	// If the tap-hold key is a layer-tap and the second key was captured
	// before its layer came on, the captured keycode is out of date:
	// re-resolve it on the hold layer. A second that was held instantly
	// is already from the right layer and keeps its registration; it
	// will simply sit below the tap-hold key in host order.
	if e.hasSecond && !e.secondHeldInstantly && e.pthCode.IsLayerTap() {
		e.secondCode = e.keymap.KeycodeAt(e.pthCode.HoldLayer(), e.secondRecord.Pos)
		e.secondIsTapHold = e.secondCode.IsTapHold()
	}
}

// unregisterPTHHold mirrors registerPTHHold on release.
func (e *Engine) unregisterPTHHold() {
	if e.altTapCode != key.None {
		e.sink.Unregister(e.altTapCode)
		return
	}
	e.emitUnregisterAsHold(e.pthCode, &e.pthRecord)
}

// flushReleases emits one cached partition in insertion order. When
// waitBeforeFirst is set and the partition is non-empty, a guard wait
// precedes the first release so a register emitted just before is not
// collapsed with it inside one scan cycle. Reports whether anything was
// flushed; a flushed partition already provides the separation a
// follow-up unregister needs.
func (e *Engine) flushReleases(beforeSecond, waitBeforeFirst bool) bool {
	mask := e.cache.take(beforeSecond)
	if mask == 0 {
		return false
	}

	waited := !waitBeforeFirst
	for i := 0; i < releaseCacheSize; i++ {
		if mask&(1<<i) == 0 {
			continue
		}
		if !waited {
			e.sink.Wait()
			waited = true
		}
		cr := &e.cache.records[i]
		e.emitRecord(cr.code, &cr.rec)
	}
	return true
}
