// Package side classifies keys as left or right hand, or as relative
// (opposite/same) sides, and answers the one question the engine asks:
// is this key on the same side as the active tap-hold key?
package side

import "github.com/dshills/taphold/internal/key"

// Atom is a 2-bit side behavior. Left and Right are absolute; Opposite and
// Same are relative and resolve during the comparison.
type Atom uint8

// Side atoms.
const (
	Left Atom = iota
	Right
	Opposite
	Same
)

// String returns the one-letter atom name.
func (a Atom) String() string {
	switch a {
	case Left:
		return "L"
	case Right:
		return "R"
	case Opposite:
		return "O"
	case Same:
		return "S"
	}
	return "?"
}

// Side encodes the two side behaviors of a key plus four user bits into a
// single byte. Bits 2-3 describe the key when it is the active tap-hold
// key, bits 0-1 when it is any other key, and bits 4-7 are user bits.
type Side uint8

// Encode packs the two atoms into a Side with zero user bits.
func Encode(pthRole, otherRole Atom) Side {
	return Side(pthRole&0b11)<<2 | Side(otherRole&0b11)
}

// The sixteen atom combinations, named by role: the first letter is the
// behavior in the tap-hold role, the second in the other role.
var (
	LL = Encode(Left, Left)
	LR = Encode(Left, Right)
	LO = Encode(Left, Opposite)
	LS = Encode(Left, Same)
	RL = Encode(Right, Left)
	RR = Encode(Right, Right)
	RO = Encode(Right, Opposite)
	RS = Encode(Right, Same)
	OL = Encode(Opposite, Left)
	OR = Encode(Opposite, Right)
	OO = Encode(Opposite, Opposite)
	OS = Encode(Opposite, Same)
	SL = Encode(Same, Left)
	SR = Encode(Same, Right)
	SO = Encode(Same, Opposite)
	SS = Encode(Same, Same)
)

// PTHAtom returns the behavior of the key in the tap-hold role.
func (s Side) PTHAtom() Atom {
	return Atom(s >> 2 & 0b11)
}

// OtherAtom returns the behavior of the key in the other role.
func (s Side) OtherAtom() Atom {
	return Atom(s & 0b11)
}

// UserBits returns the user bits with the atom bits cleared, comparable to
// values built with ToUserBits.
func (s Side) UserBits() Side {
	return s & 0b11110000
}

// UserValue returns the numeric value stored in the user bits.
func (s Side) UserValue() uint8 {
	return uint8(s >> 4 & 0b1111)
}

// ToUserBits shifts a small value into the user-bit field.
func ToUserBits(v uint8) Side {
	return Side(v) << 4
}

// Hold-difficulty user bits: holds become 5, 10 or 15 percent harder on
// keys carrying them.
var (
	Harder5  = ToUserBits(1)
	Harder10 = ToUserBits(2)
	Harder15 = ToUserBits(3)
)

// HoldFactor returns the hold-difficulty multiplier encoded in the user
// bits: 0.95, 0.90 or 0.85 for the three graded values, 1.0 otherwise.
func (s Side) HoldFactor() float64 {
	v := s.UserValue()
	if v == 0 || v > 3 {
		return 1.0
	}
	return 1.0 - float64(v)*0.05
}

// sameSideTruth answers IsSame for every (pth, other) atom pair. The index
// is (pth << 2) | other. The rules it encodes:
// other Opposite is never same, other Same always is; then pth Opposite is
// never same, pth Same always is; otherwise the absolute atoms must match.
const sameSideTruth = 0b1011100010101001

// IsSame resolves whether a key with the other atom is on the same side as
// a tap-hold key with the pth atom.
func IsSame(pth, other Atom) bool {
	index := pth&0b11<<2 | other&0b11
	return sameSideTruth>>index&1 == 1
}

// String renders a Side such as "LR" or "OS+2" for debugging and traces.
func (s Side) String() string {
	out := s.PTHAtom().String() + s.OtherAtom().String()
	if v := s.UserValue(); v != 0 {
		out += "+" + string(rune('0'+v))
	}
	return out
}

// Resolver yields the side descriptor for a matrix position. A Lookup
// callback takes precedence over the Layout table, mirroring the weak
// override in the firmware original.
type Resolver struct {
	// Layout is the per-position side table, indexed [row][col].
	Layout [][]Side

	// Lookup overrides Layout when non-nil.
	Lookup func(pos key.Pos) Side
}

// Side resolves the descriptor for pos. Positions outside the layout
// resolve to zero (left/left, no user bits).
func (r *Resolver) Side(pos key.Pos) Side {
	if r.Lookup != nil {
		return r.Lookup(pos)
	}
	if int(pos.Row) < len(r.Layout) && int(pos.Col) < len(r.Layout[pos.Row]) {
		return r.Layout[pos.Row][pos.Col]
	}
	return 0
}
