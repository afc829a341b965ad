package keyboard

import (
	"io"
)

// InputState is the full keyboard state sent on every change.
// Internally uses a 256-bit bitmap for N-key rollover.
//
// Wire format:
//
//	Byte 0:   Modifiers
//	Byte 1:   Key count
//	Bytes 2+: HID usage codes of pressed keys, ascending
type InputState struct {
	Modifiers uint8
	KeyBitmap [32]uint8
}

// Press sets a key. Modifier usage codes set the modifier bit instead.
func (st *InputState) Press(code uint8) {
	if bit, ok := modifierBits[code]; ok {
		st.Modifiers |= bit
		return
	}
	st.KeyBitmap[code/8] |= 1 << (code % 8)
}

// Release clears a key or modifier.
func (st *InputState) Release(code uint8) {
	if bit, ok := modifierBits[code]; ok {
		st.Modifiers &^= bit
		return
	}
	st.KeyBitmap[code/8] &^= 1 << (code % 8)
}

// IsPressed reports whether a key or modifier is set.
func (st *InputState) IsPressed(code uint8) bool {
	if bit, ok := modifierBits[code]; ok {
		return st.Modifiers&bit != 0
	}
	return st.KeyBitmap[code/8]&(1<<(code%8)) != 0
}

// Pressed returns the pressed usage codes in ascending order.
func (st *InputState) Pressed() []uint8 {
	var keys []uint8
	for i := 0; i < 256; i++ {
		if st.KeyBitmap[i/8]&(1<<uint(i%8)) != 0 {
			keys = append(keys, uint8(i))
		}
	}
	return keys
}

// MarshalBinary encodes InputState to the variable-length wire format.
func (st *InputState) MarshalBinary() ([]byte, error) {
	keys := st.Pressed()
	b := make([]byte, 2+len(keys))
	b[0] = st.Modifiers
	b[1] = uint8(len(keys))
	copy(b[2:], keys)
	return b, nil
}

// UnmarshalBinary decodes the variable-length wire format.
func (st *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return io.ErrUnexpectedEOF
	}
	keyCount := int(data[1])
	if len(data) < 2+keyCount {
		return io.ErrUnexpectedEOF
	}
	*st = InputState{Modifiers: data[0]}
	for _, code := range data[2 : 2+keyCount] {
		st.KeyBitmap[code/8] |= 1 << (code % 8)
	}
	return nil
}
