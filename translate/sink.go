// Package translate turns decoded controller samples into host input events.
//
// Movement samples become edge-triggered key presses against a KeyStateTable,
// aim samples become relative pointer motion and action codes become one-shot
// clicks or key taps. All output goes through a Sink.
package translate

// Button identifies a pointer button.
type Button uint8

const (
	ButtonPrimary Button = iota + 1
	ButtonSecondary
)

func (b Button) String() string {
	switch b {
	case ButtonPrimary:
		return "primary"
	case ButtonSecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// Sink performs the actual input injection on the host.
// Any returned error is treated as fatal by the control loop.
type Sink interface {
	// PressKey holds a key down until ReleaseKey.
	PressKey(name string) error
	ReleaseKey(name string) error
	// MoveRelative moves the pointer by a relative displacement.
	MoveRelative(dx, dy int) error
	// Click presses and releases a pointer button.
	Click(button Button) error
	// PressOnce taps a key.
	PressOnce(name string) error
}

// Key names emitted to the sink.
const (
	KeyForward  = "w"
	KeyBack     = "s"
	KeyLeft     = "a"
	KeyRight    = "d"
	KeyInteract = "e"
	KeyJump     = "space"
)
