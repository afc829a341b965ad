// Package bridge owns the serial connection lifecycle: open the link, run the
// translation loop (and the action loop when configured), report status and
// reconnect after the link drops.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Alia5/padbridge/internal/log"
	"github.com/Alia5/padbridge/protocol"
	"github.com/Alia5/padbridge/translate"
)

// Status is the connection state reported through Session.OnStatus.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
)

func (s Status) String() string {
	if s == StatusConnected {
		return "connected"
	}
	return "disconnected"
}

// Port is an open link. Closing it must unblock a pending Read.
type Port interface {
	protocol.ByteSource
	io.Closer
}

// Opener opens a link. It is called again for every reconnect attempt.
type Opener func(ctx context.Context) (Port, error)

// Session runs the controller link against a sink.
type Session struct {
	Open Opener
	// OpenActions opens the optional action-code link.
	OpenActions Opener
	Sink        translate.Sink

	Logger *slog.Logger
	Raw    log.RawLogger
	// Tee wraps the main link before framing, e.g. to record it.
	Tee func(protocol.ByteSource) protocol.ByteSource

	OnStatus   func(Status)
	Reconnect  bool
	RetryDelay time.Duration
}

// Run connects and translates until ctx is cancelled, or until the link
// fails when Reconnect is off. Cancellation is a clean stop and returns nil.
func (s *Session) Run(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = log.Discard()
	}
	delay := s.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	for {
		err := s.runOnce(ctx, logger)
		if ctx.Err() != nil {
			return nil
		}
		var sinkErr *SinkError
		if !s.Reconnect || errors.As(err, &sinkErr) {
			return err
		}
		logger.Warn("serial link lost, retrying", "error", err, "delay", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (s *Session) runOnce(ctx context.Context, logger *slog.Logger) error {
	port, err := s.Open(ctx)
	if err != nil {
		return fmt.Errorf("open serial link: %w", err)
	}
	var actions Port
	if s.OpenActions != nil {
		actions, err = s.OpenActions(ctx)
		if err != nil {
			_ = port.Close()
			return fmt.Errorf("open action link: %w", err)
		}
	}

	var closeOnce sync.Once
	closeAll := func() {
		closeOnce.Do(func() {
			_ = port.Close()
			if actions != nil {
				_ = actions.Close()
			}
		})
	}
	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(runCtx, closeAll)
	defer func() {
		stop()
		closeAll()
	}()

	s.setStatus(logger, StatusConnected)
	defer s.setStatus(logger, StatusDisconnected)

	var src protocol.ByteSource = port
	if s.Tee != nil {
		src = s.Tee(src)
	}
	loop := translate.Loop{Logger: logger, Raw: s.Raw}
	sink := sinkGuard{s.Sink}

	errCh := make(chan error, 2)
	running := 1
	go func() { errCh <- loop.Run(runCtx, src, sink) }()
	if actions != nil {
		running++
		go func() { errCh <- translate.RunActions(runCtx, actions, sink) }()
	}

	err = <-errCh
	cancel()
	for i := 1; i < running; i++ {
		<-errCh
	}
	return err
}

func (s *Session) setStatus(logger *slog.Logger, st Status) {
	logger.Info("serial link " + st.String())
	if s.OnStatus != nil {
		s.OnStatus(st)
	}
}

// SinkError marks a failure of the injection side. Reconnecting the serial
// link cannot fix it, so Run returns it even when Reconnect is set.
type SinkError struct {
	Err error
}

func (e *SinkError) Error() string { return "sink: " + e.Err.Error() }
func (e *SinkError) Unwrap() error { return e.Err }

type sinkGuard struct {
	translate.Sink
}

func guard(err error) error {
	if err == nil {
		return nil
	}
	return &SinkError{Err: err}
}

func (g sinkGuard) PressKey(name string) error { return guard(g.Sink.PressKey(name)) }
func (g sinkGuard) ReleaseKey(name string) error { return guard(g.Sink.ReleaseKey(name)) }
func (g sinkGuard) MoveRelative(dx, dy int) error { return guard(g.Sink.MoveRelative(dx, dy)) }
func (g sinkGuard) Click(b translate.Button) error { return guard(g.Sink.Click(b)) }
func (g sinkGuard) PressOnce(name string) error { return guard(g.Sink.PressOnce(name)) }
