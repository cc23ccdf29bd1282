// Package key defines the keycode vocabulary shared by the tap-hold engine:
// 16-bit keycodes with their tap-hold ranges, packed and expanded modifier
// encodings, matrix positions, and the mutable key record that travels with
// every press and release event.
package key
