package engine

// Tick is the housekeeping entry point. Invoke it from the main loop
// between scans, at millisecond scale; it maintains timer saturation and
// may itself commit a decision when a threshold is crossed.
func (e *Engine) Tick() {
	now := e.clock.Now()

	e.tracker.Housekeep(now)

	if e.status == Idle || e.status.Decided() {
		return
	}

	if e.status == SecondPressed {
		e.secondPress.Housekeep(now)
		if e.minOverlapForHold > 0 && e.secondPress.Elapsed(now) >= e.minOverlapForHold {
			// The keys have overlapped long enough: the user means hold.
			e.stats.OverlapHolds++
			e.commitHold()
			return
		}
	}

	e.pthPress.Housekeep(now)
	if !e.pthPress.Exceeded() && !e.chosenAfterTimeout && e.forcingTimeout > 0 &&
		e.pthPress.Elapsed(now) >= uint16(e.forcingTimeout) {
		e.makeForcedChoice()
	}
}
