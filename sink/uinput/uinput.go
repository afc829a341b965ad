// Package uinput injects input through Linux /dev/uinput virtual devices: one
// keyboard and one relative mouse.
package uinput

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/Alia5/padbridge/translate"
)

// ErrUnsupported is returned by Open on platforms without uinput.
var ErrUnsupported = errors.New("uinput is only available on linux")

// ErrUnknownKey is returned for key names without a Linux key code.
var ErrUnknownKey = errors.New("unknown key")

// ErrClosed is returned by every input method after Close.
var ErrClosed = errors.New("uinput sink closed")

type keyboardDevice interface {
	KeyDown(key int) error
	KeyUp(key int) error
	KeyPress(key int) error
	io.Closer
}

type mouseDevice interface {
	Move(x, y int32) error
	LeftClick() error
	RightClick() error
	io.Closer
}

// Sink is a translate.Sink backed by a virtual keyboard and mouse.
// It is safe for concurrent use.
type Sink struct {
	mu     sync.Mutex
	kbd    keyboardDevice
	ptr    mouseDevice
	codes  func(name string) (int, bool)
	closed bool
}

var _ translate.Sink = (*Sink)(nil)

func newSink(kbd keyboardDevice, ptr mouseDevice, codes func(string) (int, bool)) *Sink {
	return &Sink{kbd: kbd, ptr: ptr, codes: codes}
}

func (s *Sink) key(name string, fn func(keyboardDevice, int) error) error {
	code, ok := s.codes(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := fn(s.kbd, code); err != nil {
		return fmt.Errorf("uinput key %q: %w", name, err)
	}
	return nil
}

func (s *Sink) PressKey(name string) error {
	return s.key(name, keyboardDevice.KeyDown)
}

func (s *Sink) ReleaseKey(name string) error {
	return s.key(name, keyboardDevice.KeyUp)
}

func (s *Sink) PressOnce(name string) error {
	return s.key(name, keyboardDevice.KeyPress)
}

func (s *Sink) Click(button translate.Button) error {
	var click func(mouseDevice) error
	switch button {
	case translate.ButtonPrimary:
		click = mouseDevice.LeftClick
	case translate.ButtonSecondary:
		click = mouseDevice.RightClick
	default:
		return fmt.Errorf("unsupported button %s", button)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := click(s.ptr); err != nil {
		return fmt.Errorf("uinput click %s: %w", button, err)
	}
	return nil
}

// MoveRelative is a no-op for (0, 0).
func (s *Sink) MoveRelative(dx, dy int) error {
	if dx == 0 && dy == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.ptr.Move(clamp32(dx), clamp32(dy)); err != nil {
		return fmt.Errorf("uinput move: %w", err)
	}
	return nil
}

// Close destroys both virtual devices. It is safe to call more than once.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.kbd.Close(), s.ptr.Close())
}

func clamp32(v int) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}
