package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alia5/padbridge/internal/capture"
	"github.com/Alia5/padbridge/internal/log"
	"github.com/Alia5/padbridge/translate"
)

type Replay struct {
	File     string      `arg:"" help:"Capture file written by run --record, or a raw byte dump"`
	Sink     string      `help:"Input injection backend" enum:"viiper,uinput,robotgo,dryrun" default:"dryrun" env:"PADBRIDGE_SINK"`
	SinkOpts SinkOptions `embed:""`
}

// Run is called by Kong when the replay command is executed.
func (r *Replay) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.Start(ctx, logger, rawLogger)
}

func (r *Replay) Start(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	src, err := capture.OpenReplay(r.File)
	if err != nil {
		return err
	}
	defer src.Close()

	sink, err := openSink(ctx, r.Sink, r.SinkOpts, logger)
	if err != nil {
		return fmt.Errorf("open %s sink: %w", r.Sink, err)
	}
	defer sink.Close()

	logger.Info("Replaying capture", "file", r.File, "sink", r.Sink)
	loop := translate.Loop{Logger: logger, Raw: rawLogger}
	err = loop.Run(ctx, src, sink)
	switch {
	case errors.Is(err, translate.ErrSourceClosed):
		logger.Info("Replay finished", "file", r.File)
		return nil
	case err != nil && ctx.Err() != nil:
		logger.Info("Replay interrupted", "file", r.File)
		return nil
	}
	return err
}
