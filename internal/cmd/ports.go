package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Alia5/padbridge/internal/serialport"
)

type Ports struct {
	All bool `help:"Also list ports that cannot be opened right now"`

	out io.Writer
}

// Run is called by Kong when the ports command is executed.
func (p *Ports) Run(logger *slog.Logger) error {
	ports, err := serialport.List()
	if err != nil {
		return err
	}
	if !p.All {
		ports = serialport.Available(ports)
	}
	if len(ports) == 0 {
		logger.Warn("No serial ports found")
		return nil
	}
	out := p.out
	if out == nil {
		out = os.Stdout
	}
	for _, name := range ports {
		if _, err := fmt.Fprintln(out, name); err != nil {
			return err
		}
	}
	return nil
}
