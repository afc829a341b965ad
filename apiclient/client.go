// Package apiclient is a small client for the VIIPER management API: it
// manages virtual buses and devices and opens input streams to them.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Alia5/padbridge/apitypes"
)

// Client wraps a Transport with typed requests and responses.
type Client struct{ transport *Transport }

// New constructs a client for the API server at addr (host:port).
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client that authenticates with the given password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport, mainly for tests.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// BusListCtx lists the active virtual bus numbers.
func (c *Client) BusListCtx(ctx context.Context) (*apitypes.BusListResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/list", nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.BusListResponse](raw)
}

// BusCreateCtx creates a bus with the given number.
func (c *Client) BusCreateCtx(ctx context.Context, busID uint32) (*apitypes.BusCreateResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/create", fmt.Sprintf("%d", busID), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.BusCreateResponse](raw)
}

// BusRemoveCtx removes a bus and every device on it.
func (c *Client) BusRemoveCtx(ctx context.Context, busID uint32) (*apitypes.BusRemoveResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/remove", fmt.Sprintf("%d", busID), nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.BusRemoveResponse](raw)
}

// DeviceAddCtx adds a device of devType ("keyboard", "mouse", ...) to a bus.
func (c *Client) DeviceAddCtx(ctx context.Context, busID uint32, devType string) (*apitypes.Device, error) {
	req := apitypes.DeviceCreateRequest{Type: &devType}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal device create request: %w", err)
	}
	raw, err := c.transport.DoCtx(ctx, "bus/{id}/add", string(payload), map[string]string{"id": fmt.Sprintf("%d", busID)})
	if err != nil {
		return nil, err
	}
	return parse[apitypes.Device](raw)
}

// DeviceRemoveCtx removes a device from a bus.
func (c *Client) DeviceRemoveCtx(ctx context.Context, busID uint32, devID string) (*apitypes.DeviceRemoveResponse, error) {
	raw, err := c.transport.DoCtx(ctx, "bus/{id}/remove", devID, map[string]string{"id": fmt.Sprintf("%d", busID)})
	if err != nil {
		return nil, err
	}
	return parse[apitypes.DeviceRemoveResponse](raw)
}

// EnsureBus returns the lowest existing bus, or creates the first free one.
// created reports whether the caller now owns a new bus.
func (c *Client) EnsureBus(ctx context.Context) (busID uint32, created bool, err error) {
	list, err := c.BusListCtx(ctx)
	if err != nil {
		return 0, false, err
	}
	if len(list.Buses) > 0 {
		busID = list.Buses[0]
		for _, b := range list.Buses[1:] {
			busID = min(busID, b)
		}
		return busID, false, nil
	}
	var createErr error
	for try := uint32(1); try <= 100; try++ {
		r, err := c.BusCreateCtx(ctx, try)
		if err == nil {
			return r.BusID, true, nil
		}
		createErr = err
	}
	return 0, false, fmt.Errorf("create bus: %w", createErr)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
