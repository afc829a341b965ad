package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alia5/padbridge/internal/log"
)

// ErrNoSync is returned when a complete frame does not start with SyncByte.
var ErrNoSync = errors.New("frame does not start with sync byte")

// ByteSource is the serial link as seen by the framer.
// A read that times out without data returns (0, nil). Any error is terminal.
type ByteSource interface {
	Read(p []byte) (int, error)
}

// Framer scans a ByteSource for sync bytes and extracts fixed-size payloads.
// It is not restartable and not safe for concurrent use.
type Framer struct {
	src ByteSource
	raw log.RawLogger
	one [1]byte
}

// NewFramer creates a Framer over src. raw may be nil.
func NewFramer(src ByteSource, raw log.RawLogger) *Framer {
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Framer{src: src, raw: raw}
}

// Next blocks until a complete payload is read, the source fails or ctx is done.
// Frames cut short by a read timeout are dropped and scanning resumes at the
// next sync byte.
func (f *Framer) Next(ctx context.Context) ([PayloadSize]byte, error) {
	var payload [PayloadSize]byte
	for {
		if err := ctx.Err(); err != nil {
			return payload, err
		}
		n, err := f.src.Read(f.one[:])
		if err != nil {
			return payload, fmt.Errorf("read sync: %w", err)
		}
		if n == 0 || f.one[0] != SyncByte {
			continue
		}
		complete, err := f.readPayload(payload[:])
		if err != nil {
			return payload, fmt.Errorf("read payload: %w", err)
		}
		if !complete {
			continue
		}
		f.raw.Log(payload[:])
		return payload, nil
	}
}

// NextPacket is Next followed by Decode.
func (f *Framer) NextPacket(ctx context.Context) (Packet, error) {
	payload, err := f.Next(ctx)
	if err != nil {
		return Packet{}, err
	}
	return Decode(payload), nil
}

func (f *Framer) readPayload(p []byte) (bool, error) {
	got := 0
	for got < len(p) {
		n, err := f.src.Read(p[got:])
		got += n
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
	}
	return true, nil
}
