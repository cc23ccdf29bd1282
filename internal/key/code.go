package key

import "fmt"

// Code is a 16-bit keycode. The low byte of the basic range holds HID usage
// ids; higher ranges pack composite actions (modified keys, mod-taps,
// layer-taps, swap-hands and tap-dance keys) into the remaining bits.
type Code uint16

// None is the absent keycode.
const None Code = 0x0000

// Letter keycodes (HID usage ids).
const (
	A Code = 0x0004 + iota
	B
	C
	D
	E
	F
	G
	H
	I
	J
	K
	L
	M
	N
	O
	P
	Q
	R
	S
	T
	U
	V
	W
	X
	Y
	Z
)

// More basic keycodes.
const (
	Enter     Code = 0x0028
	Escape    Code = 0x0029
	Backspace Code = 0x002A
	Tab       Code = 0x002B
	Space     Code = 0x002C
	Semicolon Code = 0x0033
	Comma     Code = 0x0036
	Dot       Code = 0x0037
	Slash     Code = 0x0038
	F23       Code = 0x0072
)

// Modifier keycodes. These are what a hold commitment of a mod-tap key
// registers on the HID sink.
const (
	LeftCtrl Code = 0x00E0 + iota
	LeftShift
	LeftAlt
	LeftGUI
	RightCtrl
	RightShift
	RightAlt
	RightGUI
)

// Composite keycode ranges.
const (
	moddedMin Code = 0x0100
	moddedMax Code = 0x1FFF

	modTapMin Code = 0x2000
	modTapMax Code = 0x3FFF

	layerTapMin Code = 0x4000
	layerTapMax Code = 0x4FFF

	swapHandsMin Code = 0x5600
	swapHandsMax Code = 0x56FF

	// Swap-hands codes at and above this point are one-shot or toggle
	// variants, which are not tap-hold keys.
	swapHandsSpecialMin Code = 0x56F0

	tapDanceMin Code = 0x5700
	tapDanceMax Code = 0x57FF
)

// Kind classifies a keycode for dispatch purposes.
type Kind uint8

const (
	// KindBasic is a plain HID keycode.
	KindBasic Kind = iota

	// KindModded is a basic keycode with packed modifiers, e.g. Ctrl+C as
	// a single code.
	KindModded

	// KindModTap taps a basic keycode or holds a modifier set.
	KindModTap

	// KindLayerTap taps a basic keycode or momentarily activates a layer.
	KindLayerTap

	// KindSwapHands taps a basic keycode or holds a hand swap.
	KindSwapHands

	// KindTapDance is handled outside the tap-hold engine.
	KindTapDance

	// KindOther is anything the engine does not recognize.
	KindOther
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindModded:
		return "modded"
	case KindModTap:
		return "mod-tap"
	case KindLayerTap:
		return "layer-tap"
	case KindSwapHands:
		return "swap-hands"
	case KindTapDance:
		return "tap-dance"
	default:
		return "other"
	}
}

// WithMods packs a modifier set onto a basic keycode, producing a composite
// code such as Ctrl+C that registers and unregisters as one unit.
func WithMods(mods Packed, code Code) Code {
	return Code(mods&0x1F)<<8 | code&0xFF
}

// ModTap builds a mod-tap keycode: tap emits code, hold applies mods.
func ModTap(mods Packed, code Code) Code {
	return modTapMin | Code(mods&0x1F)<<8 | code&0xFF
}

// LayerTap builds a layer-tap keycode: tap emits code, hold activates layer.
// Only layers 0-15 are encodable.
func LayerTap(layer uint8, code Code) Code {
	return layerTapMin | Code(layer&0x0F)<<8 | code&0xFF
}

// SwapHandsTap builds a momentary swap-hands keycode: tap emits code, hold
// swaps hands.
func SwapHandsTap(code Code) Code {
	return swapHandsMin | code&0xFF
}

// TapDance builds a tap-dance keycode for the given dance index.
func TapDance(index uint8) Code {
	return tapDanceMin | Code(index)
}

// Kind returns the classification of c.
func (c Code) Kind() Kind {
	switch {
	case c <= 0x00FF:
		return KindBasic
	case c >= moddedMin && c <= moddedMax:
		return KindModded
	case c >= modTapMin && c <= modTapMax:
		return KindModTap
	case c >= layerTapMin && c <= layerTapMax:
		return KindLayerTap
	case c >= swapHandsMin && c <= swapHandsMax:
		return KindSwapHands
	case c >= tapDanceMin && c <= tapDanceMax:
		return KindTapDance
	default:
		return KindOther
	}
}

// IsTapHold reports whether c is handled by the tap-hold engine: mod-taps,
// layer-taps, and momentary (non-toggle) swap-hands keys.
func (c Code) IsTapHold() bool {
	switch c.Kind() {
	case KindModTap, KindLayerTap:
		return true
	case KindSwapHands:
		return c < swapHandsSpecialMin
	}
	return false
}

// IsBasic reports whether c is a plain HID keycode.
func (c Code) IsBasic() bool {
	return c.Kind() == KindBasic
}

// TapCode returns the basic keycode emitted when c resolves as a tap. For
// basic and modded codes this is the base key itself.
func (c Code) TapCode() Code {
	switch c.Kind() {
	case KindBasic:
		return c
	case KindModded, KindModTap, KindLayerTap, KindSwapHands:
		return c & 0xFF
	}
	return None
}

// HoldMods returns the packed modifier set of a mod-tap (or modded) keycode,
// and zero for anything else.
func (c Code) HoldMods() Packed {
	switch c.Kind() {
	case KindModded, KindModTap:
		return Packed(c >> 8 & 0x1F)
	}
	return 0
}

// HoldLayer returns the layer a layer-tap keycode activates when held, and
// zero for anything else.
func (c Code) HoldLayer() uint8 {
	if c.Kind() == KindLayerTap {
		return uint8(c >> 8 & 0x0F)
	}
	return 0
}

// IsModTap reports whether c is in the mod-tap range.
func (c Code) IsModTap() bool {
	return c.Kind() == KindModTap
}

// IsLayerTap reports whether c is in the layer-tap range.
func (c Code) IsLayerTap() bool {
	return c.Kind() == KindLayerTap
}

// basicNames covers the codes the engine and its traces name explicitly.
var basicNames = map[Code]string{
	None:       "None",
	Enter:      "Enter",
	Escape:     "Esc",
	Backspace:  "BS",
	Tab:        "Tab",
	Space:      "Space",
	Semicolon:  ";",
	Comma:      ",",
	Dot:        ".",
	Slash:      "/",
	F23:        "F23",
	LeftCtrl:   "LCtrl",
	LeftShift:  "LShift",
	LeftAlt:    "LAlt",
	LeftGUI:    "LGUI",
	RightCtrl:  "RCtrl",
	RightShift: "RShift",
	RightAlt:   "RAlt",
	RightGUI:   "RGUI",
}

// String returns a readable form such as "A", "LCtrl", "MT(C,A)" or
// "LT(1,E)".
func (c Code) String() string {
	if name, ok := basicNames[c]; ok {
		return name
	}
	if c >= A && c <= Z {
		return string(rune('A' + c - A))
	}
	switch c.Kind() {
	case KindModded:
		return fmt.Sprintf("%s(%s)", c.HoldMods(), c.TapCode())
	case KindModTap:
		return fmt.Sprintf("MT(%s,%s)", c.HoldMods(), c.TapCode())
	case KindLayerTap:
		return fmt.Sprintf("LT(%d,%s)", c.HoldLayer(), c.TapCode())
	case KindSwapHands:
		if c < swapHandsSpecialMin {
			return fmt.Sprintf("SH(%s)", c.TapCode())
		}
		return fmt.Sprintf("SH[0x%04X]", uint16(c))
	case KindTapDance:
		return fmt.Sprintf("TD(%d)", uint8(c))
	}
	return fmt.Sprintf("0x%04X", uint16(c))
}
