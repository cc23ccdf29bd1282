package predict

// Features is the vector the predictors consume. Fields mirror the
// training data columns; durations are milliseconds. Values that are not
// known yet (the rings at boot, the second-key release columns before the
// second key is released) are -1, exactly as in training.
type Features struct {
	// PrevPrevPressToPrevPressDur is the press-to-press interval two
	// presses before the tap-hold press.
	PrevPrevPressToPrevPressDur float64

	// PrevPressToPTHPressDur is the interval from the previous press to
	// the tap-hold press.
	PrevPressToPTHPressDur float64

	// PrevPrevOverlapDur and PrevOverlapDur are the two overlap samples
	// captured at the tap-hold press.
	PrevPrevOverlapDur float64
	PrevOverlapDur     float64

	// PressToPressWAvg and OverlapWAvg are the weighted ring averages.
	PressToPressWAvg float64
	OverlapWAvg      float64

	// ReleaseBeforePTHToPTHPressDur is the time from the last release to
	// the tap-hold press.
	ReleaseBeforePTHToPTHPressDur float64

	// PressToSecondPressDur is the time from the tap-hold press to the
	// second press.
	PressToSecondPressDur float64

	// PressToSecondReleaseDur is the time from the tap-hold press to the
	// second release, or -1 while the second key is still down.
	PressToSecondReleaseDur float64

	// SecondDur is how long the second key was down, or -1 while it
	// still is.
	SecondDur float64

	// SecondPressToThirdPressDur is the time from the second press to
	// the third press.
	SecondPressToThirdPressDur float64

	// DownCount is the number of keys physically down at prediction
	// time.
	DownCount float64
}

// featureColumns maps training artifact column names onto the vector.
var featureColumns = map[string]func(*Features) float64{
	"pth_prev_prev_press_to_prev_press_dur":   func(f *Features) float64 { return f.PrevPrevPressToPrevPressDur },
	"pth_prev_press_to_pth_press_dur":         func(f *Features) float64 { return f.PrevPressToPTHPressDur },
	"pth_prev_prev_overlap_dur":               func(f *Features) float64 { return f.PrevPrevOverlapDur },
	"pth_prev_overlap_dur":                    func(f *Features) float64 { return f.PrevOverlapDur },
	"pth_press_to_press_w_avg":                func(f *Features) float64 { return f.PressToPressWAvg },
	"pth_overlap_w_avg":                       func(f *Features) float64 { return f.OverlapWAvg },
	"key_release_before_pth_to_pth_press_dur": func(f *Features) float64 { return f.ReleaseBeforePTHToPTHPressDur },
	"pth_press_to_second_press_dur":           func(f *Features) float64 { return f.PressToSecondPressDur },
	"opt_th_down_next_up_dur":                 func(f *Features) float64 { return f.PressToSecondReleaseDur },
	"opt_next_dur":                            func(f *Features) float64 { return f.SecondDur },
	"pth_second_press_to_third_press_dur":     func(f *Features) float64 { return f.SecondPressToThirdPressDur },
	"down_count":                              func(f *Features) float64 { return f.DownCount },
}
