// Package viiper injects input through virtual USB devices on a VIIPER server.
//
// One keyboard and one mouse are attached to a bus. Every change writes the
// complete device state to the device stream, the way VIIPER input reports
// work: keyboard reports carry all held keys, mouse reports carry the held
// buttons plus a one-shot relative delta.
package viiper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Alia5/padbridge/apiclient"
	"github.com/Alia5/padbridge/device/keyboard"
	"github.com/Alia5/padbridge/device/mouse"
	"github.com/Alia5/padbridge/translate"
)

// ErrUnknownKey is returned for key names with no HID usage code.
var ErrUnknownKey = errors.New("unknown key")

// Config selects the VIIPER server.
type Config struct {
	Addr     string        `help:"VIIPER API server address" default:"localhost:3242" env:"PADBRIDGE_VIIPER_ADDR"`
	Password string        `help:"VIIPER API password, empty for an unauthenticated server" env:"PADBRIDGE_VIIPER_PASSWORD"`
	Timeout  time.Duration `help:"Timeout for management requests" default:"5s" env:"PADBRIDGE_VIIPER_TIMEOUT"`
}

// Sink is a translate.Sink backed by a VIIPER keyboard and mouse.
// It is safe for concurrent use.
type Sink struct {
	client  *apiclient.Client
	logger  *slog.Logger
	timeout time.Duration

	busID   uint32
	ownsBus bool
	kbd     *apiclient.DeviceStream
	ptr     *apiclient.DeviceStream

	mu      sync.Mutex
	keys    keyboard.InputState
	buttons uint8
	closed  bool
}

var _ translate.Sink = (*Sink)(nil)

// Open connects to the server, picks or creates a bus and attaches the
// devices. On failure everything created so far is removed again.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	tcfg := apiclient.Config{
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		Password:     cfg.Password,
	}
	s := &Sink{
		client:  apiclient.NewWithConfig(cfg.Addr, &tcfg),
		logger:  logger,
		timeout: cfg.Timeout,
	}

	busID, created, err := s.client.EnsureBus(ctx)
	if err != nil {
		return nil, fmt.Errorf("viiper bus: %w", err)
	}
	s.busID, s.ownsBus = busID, created

	s.kbd, _, err = s.client.AddDeviceAndConnect(ctx, busID, "keyboard")
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("viiper keyboard: %w", err)
	}
	s.ptr, _, err = s.client.AddDeviceAndConnect(ctx, busID, "mouse")
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("viiper mouse: %w", err)
	}

	logger.Info("VIIPER devices attached",
		"addr", cfg.Addr, "bus", busID, "keyboard", s.kbd.DevID, "mouse", s.ptr.DevID)
	return s, nil
}

// BusID returns the bus the devices live on.
func (s *Sink) BusID() uint32 { return s.busID }

func (s *Sink) PressKey(name string) error {
	code, ok := keyboard.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.keys
	next.Press(code)
	if err := s.writeKeys(&next); err != nil {
		return err
	}
	s.keys = next
	return nil
}

func (s *Sink) ReleaseKey(name string) error {
	code, ok := keyboard.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.keys
	next.Release(code)
	if err := s.writeKeys(&next); err != nil {
		return err
	}
	s.keys = next
	return nil
}

// PressOnce writes a report with the key held followed by one without it.
func (s *Sink) PressOnce(name string) error {
	code, ok := keyboard.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	down := s.keys
	down.Press(code)
	if err := s.writeKeys(&down); err != nil {
		return err
	}
	return s.writeKeys(&s.keys)
}

// MoveRelative writes one mouse report with the delta saturated to int16.
func (s *Sink) MoveRelative(dx, dy int) error {
	if dx == 0 && dy == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeMouse(&mouse.InputState{
		Buttons: s.buttons,
		DX:      mouse.Clamp16(dx),
		DY:      mouse.Clamp16(dy),
	})
}

func (s *Sink) Click(button translate.Button) error {
	var bit uint8
	switch button {
	case translate.ButtonPrimary:
		bit = mouse.Btn_Left
	case translate.ButtonSecondary:
		bit = mouse.Btn_Right
	default:
		return fmt.Errorf("unsupported button %s", button)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeMouse(&mouse.InputState{Buttons: s.buttons | bit}); err != nil {
		return err
	}
	return s.writeMouse(&mouse.InputState{Buttons: s.buttons})
}

func (s *Sink) writeKeys(st *keyboard.InputState) error {
	if s.closed {
		return apiclient.ErrStreamClosed
	}
	if err := s.kbd.WriteBinary(st); err != nil {
		return fmt.Errorf("keyboard report: %w", err)
	}
	return nil
}

func (s *Sink) writeMouse(st *mouse.InputState) error {
	if s.closed {
		return apiclient.ErrStreamClosed
	}
	if err := s.ptr.WriteBinary(st); err != nil {
		return fmt.Errorf("mouse report: %w", err)
	}
	return nil
}

// Close detaches the devices and removes the bus if Open created it.
// It is safe to call more than once.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var errs []error
	for _, st := range []*apiclient.DeviceStream{s.kbd, s.ptr} {
		if st == nil {
			continue
		}
		if err := st.Close(); err != nil {
			errs = append(errs, err)
		}
		if _, err := s.client.DeviceRemoveCtx(ctx, s.busID, st.DevID); err != nil {
			errs = append(errs, fmt.Errorf("remove device %s: %w", st.DevID, err))
		}
	}
	if s.ownsBus {
		if _, err := s.client.BusRemoveCtx(ctx, s.busID); err != nil {
			errs = append(errs, fmt.Errorf("remove bus %d: %w", s.busID, err))
		}
	}
	s.logger.Debug("VIIPER devices detached", "bus", s.busID)
	return errors.Join(errs...)
}
