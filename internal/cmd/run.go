package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/padbridge/internal/bridge"
	"github.com/Alia5/padbridge/internal/capture"
	"github.com/Alia5/padbridge/internal/log"
	"github.com/Alia5/padbridge/internal/serialport"
)

type Run struct {
	Port       string            `help:"Serial port of the controller; defaults to the first available port" env:"PADBRIDGE_PORT"`
	ActionPort string            `help:"Optional serial port carrying one action code per byte" env:"PADBRIDGE_ACTION_PORT"`
	Serial     serialport.Config `embed:"" prefix:"serial."`
	Sink       string            `help:"Input injection backend" enum:"viiper,uinput,robotgo,dryrun" default:"viiper" env:"PADBRIDGE_SINK"`
	SinkOpts   SinkOptions       `embed:""`
	Record     string            `help:"Record the serial stream to this zstd capture file" env:"PADBRIDGE_RECORD"`
	Reconnect  bool              `help:"Reopen the serial port after it drops" default:"true" negatable:"" env:"PADBRIDGE_RECONNECT"`
	RetryDelay time.Duration     `help:"Delay between reconnect attempts" default:"2s" env:"PADBRIDGE_RETRY_DELAY"`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.Start(ctx, logger, rawLogger)
}

func (r *Run) Start(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	portName := r.Port
	if portName == "" {
		name, err := serialport.Default()
		if err != nil {
			return fmt.Errorf("no --port given: %w", err)
		}
		portName = name
	}

	sink, err := openSink(ctx, r.Sink, r.SinkOpts, logger)
	if err != nil {
		return fmt.Errorf("open %s sink: %w", r.Sink, err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("failed to close sink", "sink", r.Sink, "error", err)
		}
	}()

	session := &bridge.Session{
		Open:       r.opener(portName),
		Sink:       sink,
		Logger:     logger.With("port", portName),
		Raw:        rawLogger,
		Reconnect:  r.Reconnect,
		RetryDelay: r.RetryDelay,
	}
	if r.ActionPort != "" {
		session.OpenActions = r.opener(r.ActionPort)
	}
	if r.Record != "" {
		rec, err := capture.Create(r.Record)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logger.Warn("failed to finish capture", "file", r.Record, "error", err)
			}
		}()
		session.Tee = rec.Tee
		logger.Info("Recording serial stream", "file", r.Record)
	}

	logger.Info("Starting padbridge", "port", portName, "sink", r.Sink, "baud", r.Serial.Baud)
	return session.Run(ctx)
}

func (r *Run) opener(name string) bridge.Opener {
	return func(context.Context) (bridge.Port, error) {
		return serialport.Open(name, r.Serial)
	}
}
