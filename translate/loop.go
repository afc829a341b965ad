package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Alia5/padbridge/internal/log"
	"github.com/Alia5/padbridge/protocol"
)

// ErrSourceClosed is returned (wrapped) when the byte source reports EOF or
// was closed underneath the loop.
var ErrSourceClosed = errors.New("byte source closed")

// Loop drives Framer -> Decode -> Movement -> Aim for every packet.
// The zero value is ready to use.
type Loop struct {
	Logger *slog.Logger
	Raw    log.RawLogger
}

// Run translates packets from src into sink events until src fails or ctx is
// done. Cancellation is observed between reads; close src to interrupt a
// blocked read. Keys still held when the loop ends are released before Run
// returns.
func Run(ctx context.Context, src protocol.ByteSource, sink Sink) error {
	return (&Loop{}).Run(ctx, src, sink)
}

// Run is the configurable form of the package-level Run.
func (l *Loop) Run(ctx context.Context, src protocol.ByteSource, sink Sink) (err error) {
	logger := l.Logger
	if logger == nil {
		logger = log.Discard()
	}
	framer := protocol.NewFramer(src, l.Raw)
	movement := NewMovement(sink, nil)

	logger.Debug("translation loop started")
	defer func() {
		held := movement.State().HeldKeys()
		if len(held) > 0 {
			logger.Debug("releasing held keys", "count", len(held))
		}
		if rerr := movement.ReleaseAll(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("release held keys: %w", rerr))
		}
		logger.Debug("translation loop stopped", "error", err)
	}()

	for {
		pkt, err := framer.NextPacket(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return ctxErr
			}
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return fmt.Errorf("%w: %w", ErrSourceClosed, err)
			}
			return err
		}
		if err := movement.Apply(pkt.MoveAxis, pkt.MoveValue); err != nil {
			return fmt.Errorf("movement: %w", err)
		}
		if err := ApplyAim(sink, pkt.AimAxis, pkt.AimValue); err != nil {
			return fmt.Errorf("aim: %w", err)
		}
	}
}
