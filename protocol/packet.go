// Package protocol implements the controller's serial wire format: sync-delimited
// frames carrying one aim sample and one movement sample each.
//
// Frame layout (6 bytes, device -> host, no checksum):
//
//	Byte 0:    Sync marker (0xFF)
//	Byte 1:    Aim axis (0=horizontal, 1=vertical)
//	Bytes 2-3: Aim value (int16 little-endian)
//	Byte 4:    Move axis (0=forward/back, 1=left/right)
//	Byte 5:    Move value (0=neutral, 1=positive, 2=negative)
package protocol

import (
	"io"
)

const (
	// SyncByte starts every frame.
	SyncByte = 0xFF
	// PayloadSize is the number of bytes following the sync marker.
	PayloadSize = 5
	// FrameSize is sync marker plus payload.
	FrameSize = 1 + PayloadSize
)

// Aim axis identifiers.
const (
	AimHorizontal = 0
	AimVertical   = 1
)

// Move axis identifiers.
const (
	MoveForwardBack = 0
	MoveLeftRight   = 1
)

// Move value codes. Anything else is treated as neutral.
const (
	MoveNeutral  = 0
	MovePositive = 1
	MoveNegative = 2
)

// Packet is one decoded frame. Axis and value codes are not validated here;
// consumers ignore codes they do not know.
type Packet struct {
	AimAxis   uint8
	AimValue  int16
	MoveAxis  uint8
	MoveValue uint8
}

// Decode interprets a frame payload (sync byte already stripped).
func Decode(payload [PayloadSize]byte) Packet {
	return Packet{
		AimAxis:   payload[0],
		AimValue:  int16(payload[1]) | int16(payload[2])<<8,
		MoveAxis:  payload[3],
		MoveValue: payload[4],
	}
}

// MarshalBinary encodes the packet as a complete frame including the sync byte.
func (p *Packet) MarshalBinary() ([]byte, error) {
	b := make([]byte, FrameSize)
	b[0] = SyncByte
	b[1] = p.AimAxis
	b[2] = byte(p.AimValue)
	b[3] = byte(p.AimValue >> 8)
	b[4] = p.MoveAxis
	b[5] = p.MoveValue
	return b, nil
}

// UnmarshalBinary decodes a complete frame. The first byte must be SyncByte.
func (p *Packet) UnmarshalBinary(data []byte) error {
	if len(data) < FrameSize {
		return io.ErrUnexpectedEOF
	}
	if data[0] != SyncByte {
		return ErrNoSync
	}
	var payload [PayloadSize]byte
	copy(payload[:], data[1:FrameSize])
	*p = Decode(payload)
	return nil
}
