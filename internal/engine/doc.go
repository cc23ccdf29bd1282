// Package engine is the predictive tap-hold decision core. It receives
// every matrix key event with its pre-resolved keycode, tracks rolling
// typing statistics, and classifies each tap-hold key as tap or hold from
// the context of the surrounding keystrokes, consulting the trained
// predictors only when the context alone does not decide.
//
// The engine runs single-threaded and cooperative: ProcessRecord is
// invoked synchronously per matrix event and Tick between scans; the two
// never overlap and no locks exist. All synthetic actions are emitted
// through an internal path straight to the HID sink, so the dispatcher
// never re-enters itself.
package engine
