package apiclient

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Alia5/padbridge/apitypes"
)

// ErrStreamClosed is returned by writes on a closed DeviceStream.
var ErrStreamClosed = errors.New("stream closed")

// DeviceStream is the input channel of one virtual device (client -> device).
type DeviceStream struct {
	conn         net.Conn
	writeTimeout time.Duration
	BusID        uint32
	DevID        string

	mu     sync.Mutex
	closed bool
}

// OpenStream connects to an existing device's stream channel.
func (c *Client) OpenStream(ctx context.Context, busID uint32, devID string) (*DeviceStream, error) {
	if c.transport.mock != nil {
		return nil, fmt.Errorf("stream connections not supported with mock transport")
	}
	conn, err := c.transport.dial(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write([]byte(fmt.Sprintf("bus/%d/%s\x00", busID, devID))); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	return &DeviceStream{
		conn:         conn,
		writeTimeout: c.transport.cfg.WriteTimeout,
		BusID:        busID,
		DevID:        devID,
	}, nil
}

// AddDeviceAndConnect creates a device on the bus and opens its stream.
func (c *Client) AddDeviceAndConnect(ctx context.Context, busID uint32, devType string) (*DeviceStream, *apitypes.Device, error) {
	resp, err := c.DeviceAddCtx(ctx, busID, devType)
	if err != nil {
		return nil, nil, err
	}
	stream, err := c.OpenStream(ctx, busID, resp.DevId)
	if err != nil {
		return nil, resp, err
	}
	return stream, resp, nil
}

// WriteBinary marshals v and sends it as one input report.
func (s *DeviceStream) WriteBinary(v encoding.BinaryMarshaler) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	_, err = s.conn.Write(data)
	return err
}

// Close closes the stream connection. It is safe to call more than once.
func (s *DeviceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
