package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Alia5/padbridge/sink/dryrun"
	"github.com/Alia5/padbridge/sink/robotgo"
	"github.com/Alia5/padbridge/sink/uinput"
	"github.com/Alia5/padbridge/sink/viiper"
	"github.com/Alia5/padbridge/translate"
)

// SinkOptions configures every injection backend; the command picks one.
type SinkOptions struct {
	Viiper     viiper.Config `embed:"" prefix:"viiper."`
	UinputName string        `help:"Name of the uinput device" default:"padbridge" env:"PADBRIDGE_UINPUT_NAME"`
}

type closingSink interface {
	translate.Sink
	io.Closer
}

func openSink(ctx context.Context, kind string, opts SinkOptions, logger *slog.Logger) (closingSink, error) {
	switch kind {
	case "viiper":
		s, err := viiper.Open(ctx, opts.Viiper, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "uinput":
		s, err := uinput.Open(opts.UinputName)
		if err != nil {
			return nil, err
		}
		logger.Info("uinput device created", "name", opts.UinputName)
		return s, nil
	case "robotgo":
		s, err := robotgo.Open(logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "dryrun":
		return dryrun.New(logger), nil
	default:
		return nil, fmt.Errorf("unknown sink %q", kind)
	}
}
