//go:build linux

package uinput

import (
	"fmt"
	"strings"

	uidev "github.com/bendahl/uinput"
	"golang.org/x/sys/unix"
)

// DevicePath is the uinput control node.
const DevicePath = "/dev/uinput"

var keyCodes = map[string]int{
	"a": uidev.KeyA, "b": uidev.KeyB, "c": uidev.KeyC, "d": uidev.KeyD,
	"e": uidev.KeyE, "f": uidev.KeyF, "g": uidev.KeyG, "h": uidev.KeyH,
	"i": uidev.KeyI, "j": uidev.KeyJ, "k": uidev.KeyK, "l": uidev.KeyL,
	"m": uidev.KeyM, "n": uidev.KeyN, "o": uidev.KeyO, "p": uidev.KeyP,
	"q": uidev.KeyQ, "r": uidev.KeyR, "s": uidev.KeyS, "t": uidev.KeyT,
	"u": uidev.KeyU, "v": uidev.KeyV, "w": uidev.KeyW, "x": uidev.KeyX,
	"y": uidev.KeyY, "z": uidev.KeyZ,

	"1": uidev.Key1, "2": uidev.Key2, "3": uidev.Key3, "4": uidev.Key4,
	"5": uidev.Key5, "6": uidev.Key6, "7": uidev.Key7, "8": uidev.Key8,
	"9": uidev.Key9, "0": uidev.Key0,

	"space":     uidev.KeySpace,
	"enter":     uidev.KeyEnter,
	"escape":    uidev.KeyEsc,
	"esc":       uidev.KeyEsc,
	"backspace": uidev.KeyBackspace,
	"tab":       uidev.KeyTab,
	"up":        uidev.KeyUp,
	"left":      uidev.KeyLeft,
	"right":     uidev.KeyRight,
	"down":      uidev.KeyDown,
	"ctrl":      uidev.KeyLeftctrl,
	"shift":     uidev.KeyLeftshift,
	"alt":       uidev.KeyLeftalt,
}

// KeyCode resolves a key name to its Linux KEY_* code. Single letters are
// case-insensitive.
func KeyCode(name string) (int, bool) {
	if len(name) == 1 {
		name = strings.ToLower(name)
	}
	code, ok := keyCodes[name]
	return code, ok
}

// Open creates the virtual keyboard and mouse. The mouse is named after the
// keyboard with a " mouse" suffix.
func Open(name string) (*Sink, error) {
	if err := unix.Access(DevicePath, unix.W_OK); err != nil {
		return nil, fmt.Errorf("%s is not writable, load the uinput module or grant access via udev: %w", DevicePath, err)
	}
	kbd, err := uidev.CreateKeyboard(DevicePath, []byte(name))
	if err != nil {
		return nil, fmt.Errorf("create uinput keyboard: %w", err)
	}
	ptr, err := uidev.CreateMouse(DevicePath, []byte(name+" mouse"))
	if err != nil {
		_ = kbd.Close()
		return nil, fmt.Errorf("create uinput mouse: %w", err)
	}
	return newSink(kbd, ptr, KeyCode), nil
}
