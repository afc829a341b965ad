package bridge_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padbridge/internal/bridge"
	"github.com/Alia5/padbridge/protocol"
	"github.com/Alia5/padbridge/translate"
)

// fakePort serves chunks from a channel. A closed channel is EOF; Close
// unblocks a pending Read with os.ErrClosed.
type fakePort struct {
	data    chan []byte
	done    chan struct{}
	once    sync.Once
	pending []byte
}

func newPort(chunks ...[]byte) *fakePort {
	p := &fakePort{data: make(chan []byte, len(chunks)+1), done: make(chan struct{})}
	for _, c := range chunks {
		p.data <- c
	}
	return p
}

func (p *fakePort) eof() *fakePort {
	close(p.data)
	return p
}

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		select {
		case c, ok := <-p.data:
			if !ok {
				return 0, io.EOF
			}
			p.pending = c
		case <-p.done:
			return 0, os.ErrClosed
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

func (p *fakePort) isClosed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
	failOn string
	seen   chan string
}

func newSink() *recordingSink { return &recordingSink{seen: make(chan string, 64)} }

func (s *recordingSink) add(ev string) error {
	if ev == s.failOn {
		return errors.New("injection failed")
	}
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	s.seen <- ev
	return nil
}

func (s *recordingSink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *recordingSink) PressKey(name string) error   { return s.add("down:" + name) }
func (s *recordingSink) ReleaseKey(name string) error { return s.add("up:" + name) }
func (s *recordingSink) MoveRelative(dx, dy int) error {
	return s.add(fmt.Sprintf("move:%d,%d", dx, dy))
}
func (s *recordingSink) Click(b translate.Button) error { return s.add("click:" + b.String()) }
func (s *recordingSink) PressOnce(name string) error    { return s.add("tap:" + name) }

func forwardFrame(t *testing.T) []byte {
	p := protocol.Packet{AimAxis: 9, MoveAxis: protocol.MoveForwardBack, MoveValue: protocol.MovePositive}
	b, err := p.MarshalBinary()
	require.NoError(t, err)
	return b
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

type statusLog struct {
	mu  sync.Mutex
	all []bridge.Status
}

func newStatusLog() *statusLog { return &statusLog{} }

func (l *statusLog) record(s bridge.Status) {
	l.mu.Lock()
	l.all = append(l.all, s)
	l.mu.Unlock()
}

func (l *statusLog) get() []bridge.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bridge.Status(nil), l.all...)
}

func opener(p *fakePort) bridge.Opener {
	return func(context.Context) (bridge.Port, error) { return p, nil }
}

func TestSessionEndsWhenLinkLost(t *testing.T) {
	port := newPort(forwardFrame(t)).eof()
	sink := newSink()
	statuses := newStatusLog()
	s := &bridge.Session{Open: opener(port), Sink: sink, OnStatus: statuses.record}

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, translate.ErrSourceClosed)
	assert.Equal(t, []string{"down:w", "up:w"}, sink.Events(), "held key is released when the link drops")
	assert.Equal(t, []bridge.Status{bridge.StatusConnected, bridge.StatusDisconnected}, statuses.get())
	assert.True(t, port.isClosed())
}

func TestSessionCancelClosesPort(t *testing.T) {
	port := newPort(forwardFrame(t))
	sink := newSink()
	ctx, cancel := context.WithCancel(context.Background())
	s := &bridge.Session{Open: opener(port), Sink: sink, Reconnect: true}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	waitFor(t, sink.seen, "down:w")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
	assert.True(t, port.isClosed())
	assert.Equal(t, []string{"down:w", "up:w"}, sink.Events())
}

func TestSessionReconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var opens int
	statuses := newStatusLog()
	s := &bridge.Session{
		Open: func(context.Context) (bridge.Port, error) {
			opens++
			switch opens {
			case 1:
				return nil, errors.New("no such device")
			case 2:
				return newPort().eof(), nil
			default:
				cancel()
				return nil, errors.New("no such device")
			}
		},
		Sink:       newSink(),
		OnStatus:   statuses.record,
		Reconnect:  true,
		RetryDelay: time.Millisecond,
	}

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 3, opens)
	assert.Equal(t, []bridge.Status{bridge.StatusConnected, bridge.StatusDisconnected}, statuses.get())
}

func TestSessionSinkErrorIsFatal(t *testing.T) {
	var opens int
	sink := newSink()
	sink.failOn = "down:w"
	s := &bridge.Session{
		Open: func(context.Context) (bridge.Port, error) {
			opens++
			return newPort(forwardFrame(t)), nil
		},
		Sink:       sink,
		Reconnect:  true,
		RetryDelay: time.Millisecond,
	}

	err := s.Run(context.Background())
	var sinkErr *bridge.SinkError
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, 1, opens)
	assert.Contains(t, err.Error(), "injection failed")
}

func TestSessionActions(t *testing.T) {
	port := newPort()
	actions := newPort([]byte{byte(translate.ActionInteract), 0x7F, byte(translate.ActionPrimaryClick)})
	sink := newSink()
	ctx, cancel := context.WithCancel(context.Background())
	s := &bridge.Session{Open: opener(port), OpenActions: opener(actions), Sink: sink}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	waitFor(t, sink.seen, "click:primary")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
	assert.Equal(t, []string{"tap:e", "click:primary"}, sink.Events())
	assert.True(t, port.isClosed())
	assert.True(t, actions.isClosed())
}

func TestSessionActionOpenFailure(t *testing.T) {
	port := newPort()
	s := &bridge.Session{
		Open: opener(port),
		OpenActions: func(context.Context) (bridge.Port, error) {
			return nil, errors.New("busy")
		},
		Sink: newSink(),
	}
	err := s.Run(context.Background())
	assert.EqualError(t, err, "open action link: busy")
	assert.True(t, port.isClosed())
}

func TestSessionTee(t *testing.T) {
	var teed int
	s := &bridge.Session{
		Open: opener(newPort(forwardFrame(t)).eof()),
		Sink: newSink(),
		Tee: func(src protocol.ByteSource) protocol.ByteSource {
			teed++
			return src
		},
	}
	_ = s.Run(context.Background())
	assert.Equal(t, 1, teed)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "connected", bridge.StatusConnected.String())
	assert.Equal(t, "disconnected", bridge.StatusDisconnected.String())
}
