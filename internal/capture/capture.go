// Package capture records the serial byte stream to a zstd-compressed file
// and replays it later as a byte source.
//
// A capture is a header followed by records. Each record is a little-endian
// uint16 length and that many bytes; a zero-length record is a read that
// timed out, so replays reproduce dropped partial frames exactly.
package capture

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/Alia5/padbridge/protocol"
)

// Magic starts every record-format capture.
var Magic = []byte("PBCAP\x01")

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

const maxRecord = 0xFFFF

// Recorder writes a compressed capture. Byte sources wrapped with Tee feed
// it, so one capture can span several serial connections. Capture write
// failures never affect reads; the first one is reported by Close.
type Recorder struct {
	enc   *zstd.Encoder
	owned io.Closer

	mu     sync.Mutex
	err    error
	closed bool
}

// NewRecorder writes a capture to w.
func NewRecorder(w io.Writer) (*Recorder, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := enc.Write(Magic); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("write capture header: %w", err)
	}
	return &Recorder{enc: enc}, nil
}

// Create starts a capture in a new file at path.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture: %w", err)
	}
	r, err := NewRecorder(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.owned = f
	return r, nil
}

// Tee returns a byte source that records every read of src.
func (r *Recorder) Tee(src protocol.ByteSource) protocol.ByteSource {
	return &tee{src: src, rec: r}
}

type tee struct {
	src protocol.ByteSource
	rec *Recorder
}

func (t *tee) Read(p []byte) (int, error) {
	n, err := t.src.Read(p)
	if n > 0 || err == nil {
		t.rec.record(p[:n])
	}
	return n, err
}

func (r *Recorder) record(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.err != nil {
		return
	}
	for {
		chunk := data
		if len(chunk) > maxRecord {
			chunk = chunk[:maxRecord]
		}
		var hdr [2]byte
		binary.LittleEndian.PutUint16(hdr[:], uint16(len(chunk)))
		if _, err := r.enc.Write(hdr[:]); err != nil {
			r.err = err
			return
		}
		if _, err := r.enc.Write(chunk); err != nil {
			r.err = err
			return
		}
		data = data[len(chunk):]
		if len(data) == 0 {
			return
		}
	}
}

// Close finishes the compressed stream. Wrapped sources are not closed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	errs := []error{r.err, r.enc.Close()}
	if r.owned != nil {
		errs = append(errs, r.owned.Close())
	}
	return errors.Join(errs...)
}

// Replay is a protocol.ByteSource over a capture. It returns io.EOF once the
// capture is exhausted.
type Replay struct {
	r       *bufio.Reader
	records bool
	pending []byte
	closers []io.Closer
}

// NewReplay reads a capture from r. Both compressed and uncompressed input
// are accepted; input without the capture header is replayed as plain bytes
// with no timeouts.
func NewReplay(r io.Reader) (*Replay, error) {
	br := bufio.NewReader(r)
	rp := &Replay{}
	if head, _ := br.Peek(len(zstdMagic)); bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		rp.closers = append(rp.closers, closerFunc(func() error { dec.Close(); return nil }))
		br = bufio.NewReader(dec)
	}
	if head, _ := br.Peek(len(Magic)); bytes.Equal(head, Magic) {
		_, _ = br.Discard(len(Magic))
		rp.records = true
	}
	rp.r = br
	return rp, nil
}

// OpenReplay opens the capture file at path.
func OpenReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	rp, err := NewReplay(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	rp.closers = append(rp.closers, f)
	return rp, nil
}

func (rp *Replay) Read(p []byte) (int, error) {
	if !rp.records {
		return rp.r.Read(p)
	}
	if len(rp.pending) == 0 {
		var hdr [2]byte
		if _, err := io.ReadFull(rp.r, hdr[:]); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return 0, fmt.Errorf("truncated capture: %w", err)
			}
			return 0, err
		}
		size := binary.LittleEndian.Uint16(hdr[:])
		if size == 0 {
			return 0, nil
		}
		rp.pending = make([]byte, size)
		if _, err := io.ReadFull(rp.r, rp.pending); err != nil {
			return 0, fmt.Errorf("truncated capture: %w", err)
		}
	}
	n := copy(p, rp.pending)
	rp.pending = rp.pending[n:]
	return n, nil
}

func (rp *Replay) Close() error {
	var errs []error
	for _, c := range rp.closers {
		errs = append(errs, c.Close())
	}
	rp.closers = nil
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
