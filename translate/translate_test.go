package translate_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/Alia5/padbridge/protocol"
	"github.com/Alia5/padbridge/translate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Sink that records events as short strings.
type recorder struct {
	events []string
	failOn string
}

func (r *recorder) emit(ev string) error {
	if r.failOn != "" && r.failOn == ev {
		return errors.New("sink failed")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) PressKey(name string) error   { return r.emit("down:" + name) }
func (r *recorder) ReleaseKey(name string) error { return r.emit("up:" + name) }
func (r *recorder) MoveRelative(dx, dy int) error {
	return r.emit(fmt.Sprintf("move:%d,%d", dx, dy))
}
func (r *recorder) Click(b translate.Button) error { return r.emit("click:" + b.String()) }
func (r *recorder) PressOnce(name string) error    { return r.emit("tap:" + name) }

func (r *recorder) take() []string {
	out := r.events
	r.events = nil
	return out
}

// chunkSource replays byte chunks; an empty chunk is a read timeout.
type chunkSource struct {
	chunks [][]byte
	err    error
}

func (s *chunkSource) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	c := s.chunks[0]
	if len(c) == 0 {
		s.chunks = s.chunks[1:]
		return 0, nil
	}
	n := copy(p, c)
	if n == len(c) {
		s.chunks = s.chunks[1:]
	} else {
		s.chunks[0] = c[n:]
	}
	return n, nil
}

func frame(t *testing.T, p protocol.Packet) []byte {
	b, err := p.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestMovement(t *testing.T) {
	type sample struct{ axis, value uint8 }
	cases := []struct {
		name    string
		samples []sample
		want    [][]string
	}{
		{
			name:    "idempotent forward",
			samples: []sample{{0, 1}, {0, 1}},
			want:    [][]string{{"down:w"}, nil},
		},
		{
			name:    "mutual exclusion forward to back",
			samples: []sample{{0, 1}, {0, 2}},
			want:    [][]string{{"down:w"}, {"up:w", "down:s"}},
		},
		{
			name:    "neutral release",
			samples: []sample{{0, 1}, {0, 0}},
			want:    [][]string{{"down:w"}, {"up:w"}},
		},
		{
			name:    "left right axis",
			samples: []sample{{1, 1}, {1, 2}, {1, 2}, {1, 0}},
			want:    [][]string{{"down:d"}, {"up:d", "down:a"}, nil, {"up:a"}},
		},
		{
			name:    "axes are independent",
			samples: []sample{{0, 1}, {1, 2}, {1, 0}},
			want:    [][]string{{"down:w"}, {"down:a"}, {"up:a"}},
		},
		{
			name:    "unknown value is neutral",
			samples: []sample{{0, 9}, {0, 2}, {0, 9}},
			want:    [][]string{nil, {"down:s"}, {"up:s"}},
		},
		{
			name:    "unknown axis is ignored",
			samples: []sample{{2, 1}, {255, 2}},
			want:    [][]string{nil, nil},
		},
		{
			name:    "neutral with nothing held",
			samples: []sample{{0, 0}, {1, 0}},
			want:    [][]string{nil, nil},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			m := translate.NewMovement(rec, nil)
			for i, s := range tc.samples {
				require.NoError(t, m.Apply(s.axis, s.value))
				assert.Equal(t, tc.want[i], rec.take(), "sample %d", i)

				st := m.State()
				assert.False(t, st.Held(translate.Forward) && st.Held(translate.Back))
				assert.False(t, st.Held(translate.Left) && st.Held(translate.Right))
			}
		})
	}
}

func TestMovementSinkFailureKeepsState(t *testing.T) {
	rec := &recorder{failOn: "down:w"}
	m := translate.NewMovement(rec, nil)
	err := m.Apply(0, 1)
	assert.ErrorContains(t, err, "press forward")
	assert.False(t, m.State().Held(translate.Forward))

	rec.failOn = ""
	require.NoError(t, m.Apply(0, 1))
	assert.Equal(t, []string{"down:w"}, rec.take())
}

func TestReleaseAll(t *testing.T) {
	rec := &recorder{}
	state := &translate.KeyStateTable{}
	m := translate.NewMovement(rec, state)
	require.NoError(t, m.Apply(0, 2))
	require.NoError(t, m.Apply(1, 1))
	assert.Equal(t, []translate.Direction{translate.Back, translate.Right}, state.HeldKeys())
	rec.take()

	require.NoError(t, m.ReleaseAll())
	assert.Equal(t, []string{"up:s", "up:d"}, rec.take())
	assert.Empty(t, state.HeldKeys())

	require.NoError(t, m.ReleaseAll())
	assert.Empty(t, rec.take())
}

func TestAim(t *testing.T) {
	cases := []struct {
		axis   uint8
		value  int16
		dx, dy int
		ok     bool
	}{
		{axis: 0, value: 5, dx: -5, ok: true},
		{axis: 0, value: -7, dx: 7, ok: true},
		{axis: 1, value: 5, dy: 5, ok: true},
		{axis: 1, value: -5, dy: -5, ok: true},
		{axis: 0, value: -32768, dx: 32768, ok: true},
		{axis: 2, value: 5},
	}
	for _, tc := range cases {
		dx, dy, ok := translate.Aim(tc.axis, tc.value)
		assert.Equal(t, tc.ok, ok)
		assert.Equal(t, tc.dx, dx)
		assert.Equal(t, tc.dy, dy)
	}

	rec := &recorder{}
	require.NoError(t, translate.ApplyAim(rec, 2, 100))
	require.NoError(t, translate.ApplyAim(rec, 0, 3))
	assert.Equal(t, []string{"move:-3,0"}, rec.take())
}

func TestDispatch(t *testing.T) {
	rec := &recorder{}
	for code := uint8(0); code <= 6; code++ {
		require.NoError(t, translate.Dispatch(rec, code))
	}
	assert.Equal(t, []string{"click:primary", "click:secondary", "tap:e", "tap:space"}, rec.take())
}

func TestRunActions(t *testing.T) {
	rec := &recorder{}
	src := &chunkSource{chunks: [][]byte{{1}, {}, {9, 3}, {4, 2}}}
	err := translate.RunActions(context.Background(), src, rec)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"click:primary", "tap:e", "tap:space", "click:secondary"}, rec.take())

	rec.failOn = "tap:space"
	err = translate.RunActions(context.Background(), &chunkSource{chunks: [][]byte{{4}}}, rec)
	assert.ErrorContains(t, err, "dispatch jump")
}

func TestLoop(t *testing.T) {
	t.Run("movement before aim per packet", func(t *testing.T) {
		rec := &recorder{}
		src := &chunkSource{chunks: [][]byte{
			frame(t, protocol.Packet{AimAxis: 0, AimValue: 5, MoveAxis: 0, MoveValue: 1}),
			frame(t, protocol.Packet{AimAxis: 1, AimValue: 5, MoveAxis: 0, MoveValue: 1}),
			frame(t, protocol.Packet{AimAxis: 2, AimValue: 5, MoveAxis: 0, MoveValue: 0}),
		}}
		err := translate.Run(context.Background(), src, rec)
		assert.ErrorIs(t, err, translate.ErrSourceClosed)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, []string{"down:w", "move:-5,0", "move:0,5", "up:w"}, rec.take())
	})

	t.Run("torn frame does not emit", func(t *testing.T) {
		rec := &recorder{}
		src := &chunkSource{chunks: [][]byte{
			{0xFF, 0x00, 0x05, 0x00}, {},
			frame(t, protocol.Packet{AimAxis: 1, AimValue: 2, MoveAxis: 1, MoveValue: 9}),
		}}
		err := translate.Run(context.Background(), src, rec)
		assert.ErrorIs(t, err, translate.ErrSourceClosed)
		assert.Equal(t, []string{"move:0,2"}, rec.take())
	})

	t.Run("held keys released on source failure", func(t *testing.T) {
		rec := &recorder{}
		boom := errors.New("i/o error")
		src := &chunkSource{
			chunks: [][]byte{
				frame(t, protocol.Packet{MoveAxis: 0, MoveValue: 2}),
				frame(t, protocol.Packet{MoveAxis: 1, MoveValue: 1}),
			},
			err: boom,
		}
		err := translate.Run(context.Background(), src, rec)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, translate.ErrSourceClosed)
		assert.Equal(t, []string{"down:s", "move:0,0", "down:d", "move:0,0", "up:s", "up:d"}, rec.take())
	})

	t.Run("cancelled context", func(t *testing.T) {
		rec := &recorder{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := translate.Run(ctx, &chunkSource{}, rec)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, rec.take())
	})

	t.Run("sink failure stops the loop", func(t *testing.T) {
		rec := &recorder{failOn: "move:-1,0"}
		src := &chunkSource{chunks: [][]byte{
			frame(t, protocol.Packet{AimAxis: 0, AimValue: 1, MoveAxis: 0, MoveValue: 1}),
			frame(t, protocol.Packet{MoveAxis: 0, MoveValue: 2}),
		}}
		err := translate.Run(context.Background(), src, rec)
		assert.ErrorContains(t, err, "aim: sink failed")
		assert.Equal(t, []string{"down:w", "up:w"}, rec.take())
	})
}
