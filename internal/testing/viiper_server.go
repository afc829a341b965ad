// Package testing provides an in-process fake of the VIIPER API server for
// exercising the API client and the VIIPER sink without a real USB-IP stack.
package testing

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Alia5/padbridge/apitypes"
	"github.com/Alia5/padbridge/internal/auth"
)

// Report is one decoded input report received on a device stream.
type Report struct {
	BusID uint32
	DevID string
	Type  string
	Data  []byte
}

// FakeServer implements the management requests the client uses
// (bus/list, bus/create, bus/remove, bus/{id}/add, bus/{id}/remove) and
// accepts device streams, splitting keyboard and mouse input into reports.
type FakeServer struct {
	ln       net.Listener
	password string

	mu       sync.Mutex
	buses    map[uint32]bool
	devices  map[string]string // "bus-dev" -> type
	nextDev  map[uint32]int
	requests []string

	Reports chan Report
}

// NewFakeServer starts a fake server on a random local port. An empty
// password disables authentication. The server is closed with the test.
func NewFakeServer(t *testing.T, password string, buses ...uint32) *FakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &FakeServer{
		ln:       ln,
		password: password,
		buses:    map[uint32]bool{},
		devices:  map[string]string{},
		nextDev:  map[uint32]int{},
		Reports:  make(chan Report, 256),
	}
	for _, b := range buses {
		s.buses[b] = true
	}
	go s.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

// Addr returns the listen address.
func (s *FakeServer) Addr() string { return s.ln.Addr().String() }

// Requests returns the request paths seen so far, payload excluded.
func (s *FakeServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Devices returns the number of devices currently registered.
func (s *FakeServer) Devices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

// HasBus reports whether the bus exists.
func (s *FakeServer) HasBus(id uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buses[id]
}

func (s *FakeServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *FakeServer) handle(raw net.Conn) {
	defer raw.Close()
	var conn net.Conn = raw
	r := bufio.NewReader(raw)

	if s.password != "" {
		key, err := auth.DeriveKey(s.password)
		if err != nil {
			return
		}
		clientNonce, serverNonce, err := auth.ServerHandshake(r, raw, key)
		if err != nil {
			var apiErr apitypes.ApiError
			if errors.As(err, &apiErr) {
				if line, merr := apiErr.MarshalLine(); merr == nil {
					_, _ = raw.Write(line)
				}
			}
			return
		}
		conn, err = auth.WrapConn(raw, auth.DeriveSessionKey(key, serverNonce, clientNonce))
		if err != nil {
			return
		}
		r = bufio.NewReader(conn)
	}

	line, err := r.ReadString('\x00')
	if err != nil {
		return
	}
	line = strings.TrimSuffix(line, "\x00")
	path, payload, _ := strings.Cut(line, " ")

	s.mu.Lock()
	s.requests = append(s.requests, path)
	s.mu.Unlock()

	parts := strings.Split(path, "/")
	if len(parts) == 3 && parts[0] == "bus" && parts[2] != "add" && parts[2] != "remove" && parts[2] != "list" {
		s.stream(r, parts[1], parts[2])
		return
	}

	resp := s.respond(parts, payload)
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_, _ = conn.Write(append(b, '\n'))
}

func (s *FakeServer) respond(parts []string, payload string) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case len(parts) == 2 && parts[1] == "list":
		out := apitypes.BusListResponse{Buses: []uint32{}}
		for id := range s.buses {
			out.Buses = append(out.Buses, id)
		}
		return out
	case len(parts) == 2 && parts[1] == "create":
		id, err := strconv.ParseUint(payload, 10, 32)
		if err != nil {
			return apitypes.ErrBadRequest("invalid busId")
		}
		if s.buses[uint32(id)] {
			return apitypes.ApiError{Status: 409, Title: "Conflict", Detail: "bus exists"}
		}
		s.buses[uint32(id)] = true
		return apitypes.BusCreateResponse{BusID: uint32(id)}
	case len(parts) == 2 && parts[1] == "remove":
		id, _ := strconv.ParseUint(payload, 10, 32)
		if !s.buses[uint32(id)] {
			return apitypes.ApiError{Status: 404, Title: "Not Found", Detail: "bus not found"}
		}
		delete(s.buses, uint32(id))
		for k := range s.devices {
			if strings.HasPrefix(k, payload+"-") {
				delete(s.devices, k)
			}
		}
		return apitypes.BusRemoveResponse{BusID: uint32(id)}
	case len(parts) == 3 && parts[2] == "add":
		bus, _ := strconv.ParseUint(parts[1], 10, 32)
		if !s.buses[uint32(bus)] {
			return apitypes.ApiError{Status: 404, Title: "Not Found", Detail: "bus not found"}
		}
		var req apitypes.DeviceCreateRequest
		if err := json.Unmarshal([]byte(payload), &req); err != nil || req.Type == nil {
			return apitypes.ErrBadRequest("invalid device request")
		}
		s.nextDev[uint32(bus)]++
		dev := strconv.Itoa(s.nextDev[uint32(bus)])
		s.devices[parts[1]+"-"+dev] = *req.Type
		return apitypes.Device{BusID: uint32(bus), DevId: dev, Vid: "0x0000", Pid: "0x0000", Type: *req.Type}
	case len(parts) == 3 && parts[2] == "remove":
		bus, _ := strconv.ParseUint(parts[1], 10, 32)
		key := parts[1] + "-" + payload
		if _, ok := s.devices[key]; !ok {
			return apitypes.ApiError{Status: 404, Title: "Not Found", Detail: "device not found"}
		}
		delete(s.devices, key)
		return apitypes.DeviceRemoveResponse{BusID: uint32(bus), DevId: payload}
	default:
		return apitypes.ErrBadRequest(fmt.Sprintf("unknown path %q", strings.Join(parts, "/")))
	}
}

// stream splits the device input into reports based on the device type.
func (s *FakeServer) stream(r *bufio.Reader, bus, dev string) {
	s.mu.Lock()
	typ, ok := s.devices[bus+"-"+dev]
	s.mu.Unlock()
	if !ok {
		return
	}
	busID, _ := strconv.ParseUint(bus, 10, 32)
	for {
		var data []byte
		switch typ {
		case "keyboard":
			hdr := make([]byte, 2)
			if _, err := io.ReadFull(r, hdr); err != nil {
				return
			}
			keys := make([]byte, hdr[1])
			if _, err := io.ReadFull(r, keys); err != nil {
				return
			}
			data = append(hdr, keys...)
		case "mouse":
			data = make([]byte, 9)
			if _, err := io.ReadFull(r, data); err != nil {
				return
			}
		default:
			return
		}
		s.Reports <- Report{BusID: uint32(busID), DevID: dev, Type: typ, Data: data}
	}
}
