package translate

import "github.com/Alia5/padbridge/protocol"

// Direction is one of the four logical movement keys.
type Direction uint8

const (
	Forward Direction = iota
	Back
	Left
	Right
	numDirections
)

var directionKeys = [numDirections]string{
	Forward: KeyForward,
	Back:    KeyBack,
	Left:    KeyLeft,
	Right:   KeyRight,
}

// Key returns the key name injected for d.
func (d Direction) Key() string {
	if d >= numDirections {
		return ""
	}
	return directionKeys[d]
}

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Back:
		return "back"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// KeyStateTable tracks which directional keys are currently held.
// The zero value has every key released.
type KeyStateTable struct {
	held [numDirections]bool
}

// Held reports whether d is currently held down.
func (t *KeyStateTable) Held(d Direction) bool {
	if d >= numDirections {
		return false
	}
	return t.held[d]
}

// HeldKeys returns the held directions in Forward, Back, Left, Right order.
func (t *KeyStateTable) HeldKeys() []Direction {
	var out []Direction
	for d := Direction(0); d < numDirections; d++ {
		if t.held[d] {
			out = append(out, d)
		}
	}
	return out
}

func (t *KeyStateTable) set(d Direction, v bool) {
	t.held[d] = v
}

// AxisPair is the pair of opposing directions driven by one movement axis.
type AxisPair struct {
	Positive Direction
	Negative Direction
}

var axisBinding = map[uint8]AxisPair{
	protocol.MoveForwardBack: {Positive: Forward, Negative: Back},
	protocol.MoveLeftRight:   {Positive: Right, Negative: Left},
}

// Binding returns the directions bound to a movement axis.
func Binding(axis uint8) (AxisPair, bool) {
	p, ok := axisBinding[axis]
	return p, ok
}
