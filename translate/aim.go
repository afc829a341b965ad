package translate

import "github.com/Alia5/padbridge/protocol"

// Aim maps an aim sample to a pointer displacement. The horizontal axis is
// inverted to match the stick's mounting. Unknown axes yield ok=false.
func Aim(axis uint8, value int16) (dx, dy int, ok bool) {
	switch axis {
	case protocol.AimHorizontal:
		return -int(value), 0, true
	case protocol.AimVertical:
		return 0, int(value), true
	default:
		return 0, 0, false
	}
}

// ApplyAim forwards an aim sample to the sink.
func ApplyAim(sink Sink, axis uint8, value int16) error {
	dx, dy, ok := Aim(axis, value)
	if !ok {
		return nil
	}
	return sink.MoveRelative(dx, dy)
}
