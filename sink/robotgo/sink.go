// Package robotgo injects input into the desktop session through robotgo,
// the native path on Windows and macOS.
package robotgo

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Alia5/padbridge/internal/log"
	"github.com/Alia5/padbridge/translate"
)

// ErrUnsupported is returned by Open on builds without the robotgo backend.
var ErrUnsupported = errors.New("robotgo sink is not built for this platform (use -tags robotgo, or the uinput sink on linux)")

// ErrClosed is returned by every input method after Close.
var ErrClosed = errors.New("robotgo sink closed")

type backend interface {
	KeyToggle(key string, down bool) error
	KeyTap(key string) error
	MoveRelative(dx, dy int)
	Click(button string)
}

// Sink is a translate.Sink driving the host's keyboard and mouse.
// It is safe for concurrent use.
type Sink struct {
	mu     sync.Mutex
	b      backend
	logger *slog.Logger
	held   map[string]struct{}
	closed bool
}

var _ translate.Sink = (*Sink)(nil)

func newSink(b backend, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = log.Discard()
	}
	return &Sink{b: b, logger: logger, held: make(map[string]struct{})}
}

func (s *Sink) PressKey(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.b.KeyToggle(name, true); err != nil {
		return fmt.Errorf("key down %q: %w", name, err)
	}
	s.held[name] = struct{}{}
	return nil
}

func (s *Sink) ReleaseKey(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.b.KeyToggle(name, false); err != nil {
		return fmt.Errorf("key up %q: %w", name, err)
	}
	delete(s.held, name)
	return nil
}

func (s *Sink) PressOnce(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.b.KeyTap(name); err != nil {
		return fmt.Errorf("key tap %q: %w", name, err)
	}
	return nil
}

func (s *Sink) Click(button translate.Button) error {
	var name string
	switch button {
	case translate.ButtonPrimary:
		name = "left"
	case translate.ButtonSecondary:
		name = "right"
	default:
		return fmt.Errorf("unsupported button %s", button)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.b.Click(name)
	return nil
}

func (s *Sink) MoveRelative(dx, dy int) error {
	if dx == 0 && dy == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.b.MoveRelative(dx, dy)
	return nil
}

// Close releases every key still held through this sink, so the desktop is
// not left with a stuck key. It is safe to call more than once.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	keys := make([]string, 0, len(s.held))
	for k := range s.held {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var errs []error
	for _, k := range keys {
		s.logger.Debug("releasing held key", "key", k)
		if err := s.b.KeyToggle(k, false); err != nil {
			errs = append(errs, fmt.Errorf("key up %q: %w", k, err))
		}
	}
	clear(s.held)
	return errors.Join(errs...)
}
