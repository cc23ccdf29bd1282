// Package timing maintains the rolling keystroke statistics the prediction
// functions consume: press-to-press and overlap durations measured on a
// free-running 16-bit millisecond clock, and the snapshot taken the moment
// a tap-hold key goes down.
//
// All duration arithmetic is modular 16-bit subtraction saturated at
// MaxDur. Timers that outlive MaxDur are marked exceeded by the
// housekeeping tick and read as MaxDur until restarted.
package timing
