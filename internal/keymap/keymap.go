// Package keymap provides the layered keycode tables the engine resolves
// positions against: which keycode a position yields on a given layer,
// which layer currently supplies a position, and the momentary layer
// activation driven by layer-tap holds.
package keymap

import (
	"fmt"

	"github.com/dshills/taphold/internal/key"
)

// MaxLayers is the number of addressable layers; layer-tap keycodes can
// encode layers 0 through 15.
const MaxLayers = 16

// Keymap holds up to MaxLayers keycode tables over one matrix geometry.
// Layer 0 is the default layer and is always active. A key.None entry is
// transparent: resolution falls through to the next active layer below.
type Keymap struct {
	rows, cols uint8
	layers     [MaxLayers][][]key.Code
	active     uint16
}

// New creates a keymap for a rows-by-cols matrix with only the default
// layer active.
func New(rows, cols uint8) *Keymap {
	return &Keymap{
		rows:   rows,
		cols:   cols,
		active: 1,
	}
}

// DefineLayer installs the keycode table for a layer.
func (k *Keymap) DefineLayer(layer uint8, codes [][]key.Code) error {
	if layer >= MaxLayers {
		return fmt.Errorf("defining layer %d: layer out of range", layer)
	}
	if len(codes) != int(k.rows) {
		return fmt.Errorf("defining layer %d: got %d rows, want %d", layer, len(codes), k.rows)
	}
	for r, row := range codes {
		if len(row) != int(k.cols) {
			return fmt.Errorf("defining layer %d row %d: got %d cols, want %d", layer, r, len(row), k.cols)
		}
	}
	k.layers[layer] = codes
	return nil
}

// KeycodeAt returns the keycode at pos on the given layer, without layer
// resolution. Undefined layers and out-of-range positions yield key.None.
func (k *Keymap) KeycodeAt(layer uint8, pos key.Pos) key.Code {
	if layer >= MaxLayers || k.layers[layer] == nil {
		return key.None
	}
	if int(pos.Row) >= len(k.layers[layer]) || int(pos.Col) >= len(k.layers[layer][pos.Row]) {
		return key.None
	}
	return k.layers[layer][pos.Row][pos.Col]
}

// Activate turns a layer on. Activating layer 0 is a no-op; it is always
// on.
func (k *Keymap) Activate(layer uint8) {
	if layer < MaxLayers {
		k.active |= 1 << layer
	}
}

// Deactivate turns a layer off. Layer 0 cannot be turned off.
func (k *Keymap) Deactivate(layer uint8) {
	if layer > 0 && layer < MaxLayers {
		k.active &^= 1 << layer
	}
}

// IsActive reports whether a layer is currently on.
func (k *Keymap) IsActive(layer uint8) bool {
	return layer < MaxLayers && k.active&(1<<layer) != 0
}

// LayerFor returns the highest active layer that supplies a non-transparent
// keycode for pos, falling back to the default layer.
func (k *Keymap) LayerFor(pos key.Pos) uint8 {
	for layer := MaxLayers - 1; layer > 0; layer-- {
		l := uint8(layer)
		if k.IsActive(l) && k.KeycodeAt(l, pos) != key.None {
			return l
		}
	}
	return 0
}

// CurrentKeycode resolves pos through the active layer stack.
func (k *Keymap) CurrentKeycode(pos key.Pos) key.Code {
	return k.KeycodeAt(k.LayerFor(pos), pos)
}
