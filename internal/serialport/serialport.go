// Package serialport opens the controller's serial link as a byte source.
package serialport

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"go.bug.st/serial"
)

// Config is the serial line setup. Zero fields take the controller defaults.
type Config struct {
	Baud        int           `help:"Serial baud rate" default:"115200" env:"PADBRIDGE_BAUD"`
	ReadTimeout time.Duration `help:"Serial read timeout; a timed-out read drops any partial frame" default:"1s" env:"PADBRIDGE_READ_TIMEOUT"`
}

const (
	DefaultBaud        = 115200
	DefaultReadTimeout = time.Second
)

func (c Config) mode() *serial.Mode {
	baud := c.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

func (c Config) readTimeout() time.Duration {
	if c.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return c.ReadTimeout
}

// Port is an open serial line. Read returns (0, nil) when the read timeout
// expires without data. Reads after Close fail with an error matching
// os.ErrClosed.
type Port struct {
	name string
	p    serial.Port
}

var openPort = serial.Open

// Open opens name with 8N1 framing at the configured baud rate.
func Open(name string, cfg Config) (*Port, error) {
	p, err := openPort(name, cfg.mode())
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := p.SetReadTimeout(cfg.readTimeout()); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return &Port{name: name, p: p}, nil
}

func (p *Port) Name() string { return p.name }

func (p *Port) Read(b []byte) (int, error) {
	n, err := p.p.Read(b)
	if err != nil && isClosed(err) {
		return n, fmt.Errorf("%s: %w", p.name, os.ErrClosed)
	}
	return n, err
}

func (p *Port) Write(b []byte) (int, error) { return p.p.Write(b) }

// Close closes the port and unblocks a pending Read.
func (p *Port) Close() error { return p.p.Close() }

func isClosed(err error) bool {
	var perr *serial.PortError
	if errors.As(err, &perr) {
		return perr.Code() == serial.PortClosed
	}
	return errors.Is(err, os.ErrClosed)
}

var portsList = serial.GetPortsList

// List returns the serial ports present on the system, sorted by name.
func List() ([]string, error) {
	ports, err := portsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// Available returns the subset of ports that can currently be opened.
func Available(ports []string) []string {
	var out []string
	for _, name := range ports {
		p, err := openPort(name, Config{}.mode())
		if err != nil {
			continue
		}
		_ = p.Close()
		out = append(out, name)
	}
	return out
}

// Default picks the port used when none is configured: the first available one.
func Default() (string, error) {
	ports, err := List()
	if err != nil {
		return "", err
	}
	avail := Available(ports)
	if len(avail) == 0 {
		return "", errors.New("no serial port available")
	}
	return avail[0], nil
}
