// Package keyboard encodes input for a VIIPER virtual keyboard stream.
package keyboard

// HID usage codes (USB HID Keyboard/Keypad usage page) for the keys a
// controller bridge can emit.
const (
	KeyA = 0x04
	KeyZ = 0x1D
	Key1 = 0x1E
	Key0 = 0x27

	KeyEnter     = 0x28
	KeyEscape    = 0x29
	KeyBackspace = 0x2A
	KeyTab       = 0x2B
	KeySpace     = 0x2C

	KeyRight = 0x4F
	KeyLeft  = 0x50
	KeyDown  = 0x51
	KeyUp    = 0x52

	KeyLeftCtrl  = 0xE0
	KeyLeftShift = 0xE1
	KeyLeftAlt   = 0xE2
)

// Modifier bits in InputState.Modifiers.
const (
	ModLeftCtrl  = 0x01
	ModLeftShift = 0x02
	ModLeftAlt   = 0x04
)

var namedKeys = map[string]uint8{
	"space":     KeySpace,
	"enter":     KeyEnter,
	"escape":    KeyEscape,
	"esc":       KeyEscape,
	"backspace": KeyBackspace,
	"tab":       KeyTab,
	"up":        KeyUp,
	"down":      KeyDown,
	"left":      KeyLeft,
	"right":     KeyRight,
	"ctrl":      KeyLeftCtrl,
	"shift":     KeyLeftShift,
	"alt":       KeyLeftAlt,
}

// modifierBits maps modifier usage codes to their bit in the modifier byte.
var modifierBits = map[uint8]uint8{
	KeyLeftCtrl:  ModLeftCtrl,
	KeyLeftShift: ModLeftShift,
	KeyLeftAlt:   ModLeftAlt,
}

// Lookup resolves a key name ("w", "7", "space", "shift", ...) to its usage code.
func Lookup(name string) (uint8, bool) {
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return KeyA + (c - 'a'), true
		case c >= 'A' && c <= 'Z':
			return KeyA + (c - 'A'), true
		case c == '0':
			return Key0, true
		case c >= '1' && c <= '9':
			return Key1 + (c - '1'), true
		case c == ' ':
			return KeySpace, true
		}
	}
	code, ok := namedKeys[name]
	return code, ok
}
