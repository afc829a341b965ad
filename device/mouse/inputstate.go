// Package mouse encodes input for a VIIPER virtual mouse stream.
package mouse

import (
	"io"
	"math"
)

// Button bit masks for InputState.Buttons.
const (
	Btn_Left   = 0x01
	Btn_Right  = 0x02
	Btn_Middle = 0x04
)

// InputState is one mouse report. DX/DY/Wheel/Pan are relative and apply
// once per report.
//
// Wire format (9 bytes):
//
//	Byte 0:    Button bitfield
//	Bytes 1-2: DX (int16 little-endian)
//	Bytes 3-4: DY (int16 little-endian)
//	Bytes 5-6: Wheel (int16 little-endian)
//	Bytes 7-8: Pan (int16 little-endian)
type InputState struct {
	Buttons uint8
	DX, DY  int16
	Wheel   int16
	Pan     int16
}

// MarshalBinary encodes InputState to 9 bytes.
func (m *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, 9)
	b[0] = m.Buttons
	b[1] = byte(m.DX)
	b[2] = byte(m.DX >> 8)
	b[3] = byte(m.DY)
	b[4] = byte(m.DY >> 8)
	b[5] = byte(m.Wheel)
	b[6] = byte(m.Wheel >> 8)
	b[7] = byte(m.Pan)
	b[8] = byte(m.Pan >> 8)
	return b, nil
}

// UnmarshalBinary decodes 9 bytes into InputState.
func (m *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < 9 {
		return io.ErrUnexpectedEOF
	}
	m.Buttons = data[0]
	m.DX = int16(data[1]) | int16(data[2])<<8
	m.DY = int16(data[3]) | int16(data[4])<<8
	m.Wheel = int16(data[5]) | int16(data[6])<<8
	m.Pan = int16(data[7]) | int16(data[8])<<8
	return nil
}

// Clamp16 saturates v to the int16 range of a report delta.
func Clamp16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
