//go:build !windows && !darwin && !robotgo

package robotgo

import "log/slog"

// Open always fails on builds without the robotgo backend.
func Open(logger *slog.Logger) (*Sink, error) {
	return nil, ErrUnsupported
}
