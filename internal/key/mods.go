package key

import "strings"

// Packed is the 5-bit modifier encoding used inside composite keycodes:
// bits 0-3 select Ctrl, Shift, Alt and GUI, bit 4 selects the right-hand
// variants of all of them.
type Packed uint8

// Packed modifier bits.
const (
	PackedCtrl Packed = 1 << iota
	PackedShift
	PackedAlt
	PackedGUI
	PackedRight
)

// Mods is the expanded 8-bit modifier mask reported by the host protocol:
// the low nibble holds the left modifiers, the high nibble the right ones.
type Mods uint8

// Expanded modifier bits.
const (
	ModLCtrl Mods = 1 << iota
	ModLShift
	ModLAlt
	ModLGUI
	ModRCtrl
	ModRShift
	ModRAlt
	ModRGUI
)

// Masks covering both hands of each modifier.
const (
	MaskCtrl  = ModLCtrl | ModRCtrl
	MaskShift = ModLShift | ModRShift
	MaskAlt   = ModLAlt | ModRAlt
	MaskGUI   = ModLGUI | ModRGUI
)

// Expand converts the packed 5-bit encoding to the 8-bit mask. Left
// modifiers map straight through; the right-hand bit shifts them into the
// high nibble.
func (p Packed) Expand() Mods {
	if p&PackedRight == 0 {
		return Mods(p)
	}
	return Mods(p&^PackedRight) << 4
}

// Has reports whether p contains any of the given packed bits.
func (p Packed) Has(bits Packed) bool {
	return p&bits != 0
}

// String returns a compact form such as "C", "CS" or "RA".
func (p Packed) String() string {
	var b strings.Builder
	if p.Has(PackedRight) {
		b.WriteByte('R')
	}
	if p.Has(PackedCtrl) {
		b.WriteByte('C')
	}
	if p.Has(PackedShift) {
		b.WriteByte('S')
	}
	if p.Has(PackedAlt) {
		b.WriteByte('A')
	}
	if p.Has(PackedGUI) {
		b.WriteByte('G')
	}
	return b.String()
}

// Has reports whether m contains any of the given bits.
func (m Mods) Has(bits Mods) bool {
	return m&bits != 0
}

// With returns m with the given bits added.
func (m Mods) With(bits Mods) Mods {
	return m | bits
}

// Without returns m with the given bits removed.
func (m Mods) Without(bits Mods) Mods {
	return m &^ bits
}

// IsEmpty reports whether no modifier is set.
func (m Mods) IsEmpty() bool {
	return m == 0
}

// Codes returns the modifier keycodes for every set bit, left hand first.
// A hold commitment registers exactly these codes.
func (m Mods) Codes() []Code {
	var codes []Code
	for _, mc := range modBitCodes {
		if m.Has(mc.bit) {
			codes = append(codes, mc.code)
		}
	}
	return codes
}

// modBitCodes is ordered so Codes() emits left modifiers before right ones.
var modBitCodes = []struct {
	bit  Mods
	code Code
}{
	{ModLCtrl, LeftCtrl},
	{ModLShift, LeftShift},
	{ModLAlt, LeftAlt},
	{ModLGUI, LeftGUI},
	{ModRCtrl, RightCtrl},
	{ModRShift, RightShift},
	{ModRAlt, RightAlt},
	{ModRGUI, RightGUI},
}
