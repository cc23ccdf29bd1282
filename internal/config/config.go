// Package config holds the engine tunables and loads them from TOML or
// YAML files. Missing files are not an error; the defaults match the
// values the predictors were trained against.
package config

import (
	"fmt"

	"github.com/dshills/taphold/internal/key"
	"github.com/dshills/taphold/internal/timing"
)

// Default tunable values.
const (
	// DefaultMinOverlap and DefaultMaxOverlap clamp the predicted
	// minimum overlap for hold. The bounds come from the training data:
	// over 90 percent of modifier-first overlaps are longer than the
	// floor and 99.9 percent are shorter than the ceiling.
	DefaultMinOverlap = 39
	DefaultMaxOverlap = 232

	// DefaultForcedChoiceTimeout is how long a tap-hold key may stay
	// undecided before the forced-choice policy runs, in milliseconds.
	DefaultForcedChoiceTimeout = 700
)

// DefaultSuppressionKey defeats lone-modifier host semantics when an
// instantly-held modifier set is rolled back. F24 is avoided because
// GUI+F24 takes a screenshot on some hosts.
const DefaultSuppressionKey = key.F23

// Config carries the engine tunables and feature flags.
type Config struct {
	// MinOverlap and MaxOverlap clamp the predicted minimum overlap for
	// hold, in milliseconds.
	MinOverlap uint16 `toml:"min_overlap" yaml:"min_overlap"`
	MaxOverlap uint16 `toml:"max_overlap" yaml:"max_overlap"`

	// ForcedChoiceTimeout is a forced-choice timeout in milliseconds,
	// validated against the timer cap. The engine does not read it: its
	// timeout comes from the policy's TimeoutForForcingChoice hook, whose
	// default returns 700.
	ForcedChoiceTimeout int16 `toml:"forced_choice_timeout" yaml:"forced_choice_timeout"`

	// SuppressionKey is tapped to neutralize a lone modifier.
	SuppressionKey key.Code `toml:"suppression_key" yaml:"suppression_key"`

	// ResetImmediatelyWhenTapChosen resets the engine as soon as tap is
	// chosen instead of entering the decided-tap state that turns
	// subsequent overlapping tap-holds into taps.
	ResetImmediatelyWhenTapChosen bool `toml:"reset_immediately_when_tap_chosen" yaml:"reset_immediately_when_tap_chosen"`

	// FastStreakTap enables the fast-streak tap shortcut.
	FastStreakTap bool `toml:"fast_streak_tap" yaml:"fast_streak_tap"`

	// FastStreakTapResetImmediately resets right after a fast-streak tap
	// instead of entering the decided-tap state.
	FastStreakTapResetImmediately bool `toml:"fast_streak_tap_reset_immediately" yaml:"fast_streak_tap_reset_immediately"`
}

// Default returns the trained defaults.
func Default() Config {
	return Config{
		MinOverlap:          DefaultMinOverlap,
		MaxOverlap:          DefaultMaxOverlap,
		ForcedChoiceTimeout: DefaultForcedChoiceTimeout,
		SuppressionKey:      DefaultSuppressionKey,
	}
}

// Validate checks the tunables against the engine's envelope.
func (c Config) Validate() error {
	if c.MinOverlap > c.MaxOverlap {
		return fmt.Errorf("min_overlap %d exceeds max_overlap %d", c.MinOverlap, c.MaxOverlap)
	}
	if c.MaxOverlap >= timing.MaxDur {
		return fmt.Errorf("max_overlap %d must be below the timer cap %d", c.MaxOverlap, timing.MaxDur)
	}
	if int(c.ForcedChoiceTimeout) >= timing.MaxDur {
		return fmt.Errorf("forced_choice_timeout %d must be below the timer cap %d", c.ForcedChoiceTimeout, timing.MaxDur)
	}
	if c.SuppressionKey != key.None && !c.SuppressionKey.IsBasic() {
		return fmt.Errorf("suppression_key %s must be a basic keycode", c.SuppressionKey)
	}
	return nil
}
