//go:build windows || darwin || robotgo

package robotgo

import (
	"log/slog"

	"github.com/go-vgo/robotgo"
)

type native struct{}

func (native) KeyToggle(key string, down bool) error {
	if down {
		return robotgo.KeyToggle(key, "down")
	}
	return robotgo.KeyToggle(key, "up")
}

func (native) KeyTap(key string) error { return robotgo.KeyTap(key) }

func (native) MoveRelative(dx, dy int) { robotgo.MoveRelative(dx, dy) }

func (native) Click(button string) { robotgo.Click(button) }

// Open returns a sink driving the current desktop session.
func Open(logger *slog.Logger) (*Sink, error) {
	// no per-call delay, frames arrive at about 100 Hz
	robotgo.KeySleep = 0
	robotgo.MouseSleep = 0
	return newSink(native{}, logger), nil
}
