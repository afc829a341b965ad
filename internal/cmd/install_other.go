//go:build !linux

package cmd

import (
	"errors"
	"log/slog"
)

var errServiceUnsupported = errors.New("service installation is only supported with systemd on linux")

func install(*slog.Logger, []string) error { return errServiceUnsupported }

func uninstall(*slog.Logger) error { return errServiceUnsupported }
