// Package dryrun provides a Sink that only logs what it would inject.
package dryrun

import (
	"log/slog"
	"sync"

	"github.com/Alia5/padbridge/translate"
)

// Sink logs every event at info level and tracks held keys so callers can
// inspect the final state.
type Sink struct {
	logger *slog.Logger

	mu   sync.Mutex
	held map[string]bool
}

// New creates a dry-run sink.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger, held: map[string]bool{}}
}

func (s *Sink) PressKey(name string) error {
	s.mu.Lock()
	s.held[name] = true
	s.mu.Unlock()
	s.logger.Info("key down", "key", name)
	return nil
}

func (s *Sink) ReleaseKey(name string) error {
	s.mu.Lock()
	delete(s.held, name)
	s.mu.Unlock()
	s.logger.Info("key up", "key", name)
	return nil
}

func (s *Sink) MoveRelative(dx, dy int) error {
	if dx == 0 && dy == 0 {
		return nil
	}
	s.logger.Info("pointer move", "dx", dx, "dy", dy)
	return nil
}

func (s *Sink) Click(button translate.Button) error {
	s.logger.Info("click", "button", button.String())
	return nil
}

func (s *Sink) PressOnce(name string) error {
	s.logger.Info("key tap", "key", name)
	return nil
}

// Held returns the number of keys currently held.
func (s *Sink) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

func (s *Sink) Close() error { return nil }
