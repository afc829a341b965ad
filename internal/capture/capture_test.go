package capture_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padbridge/internal/capture"
)

// chunkSource returns each chunk in turn; an empty chunk is a read timeout.
type chunkSource struct {
	chunks [][]byte
}

func (s *chunkSource) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		return 0, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return copy(p, c), nil
}

type read struct {
	data []byte
	err  error
}

func drain(t *testing.T, src interface{ Read([]byte) (int, error) }) []read {
	t.Helper()
	var out []read
	buf := make([]byte, 64)
	for i := 0; i < 100; i++ {
		n, err := src.Read(buf)
		out = append(out, read{data: append([]byte{}, buf[:n]...), err: err})
		if err != nil {
			return out
		}
	}
	t.Fatal("source never ended")
	return nil
}

func TestRecordAndReplay(t *testing.T) {
	chunks := [][]byte{
		{0xFF, 0x00, 0x10},
		{},
		{0x00, 0x01, 0x02},
		{0xFF},
	}
	var buf bytes.Buffer
	rec, err := capture.NewRecorder(&buf)
	require.NoError(t, err)
	live := drain(t, rec.Tee(&chunkSource{chunks: chunks}))
	require.NoError(t, rec.Close())

	assert.Equal(t, zstdMagic(), buf.Bytes()[:4], "capture is zstd compressed")

	rp, err := capture.NewReplay(&buf)
	require.NoError(t, err)
	replayed := drain(t, rp)
	require.NoError(t, rp.Close())

	require.Len(t, replayed, len(live))
	for i := range live {
		assert.Equal(t, live[i].data, replayed[i].data, "read %d", i)
	}
	assert.ErrorIs(t, replayed[len(replayed)-1].err, io.EOF)
	assert.Empty(t, replayed[1].data, "timeout is preserved")
	assert.NoError(t, replayed[1].err)
}

func zstdMagic() []byte { return []byte{0x28, 0xB5, 0x2F, 0xFD} }

func TestReplaySplitsLargeRecordAcrossReads(t *testing.T) {
	var buf bytes.Buffer
	rec, err := capture.NewRecorder(&buf)
	require.NoError(t, err)
	drain(t, rec.Tee(&chunkSource{chunks: [][]byte{{1, 2, 3, 4, 5, 6}}}))
	require.NoError(t, rec.Close())

	rp, err := capture.NewReplay(&buf)
	require.NoError(t, err)
	small := make([]byte, 4)
	n, err := rp.Read(small)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, small[:n])
	n, err = rp.Read(small)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6}, small[:n])
	_, err = rp.Read(small)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReplayPlainBytes(t *testing.T) {
	rp, err := capture.NewReplay(bytes.NewReader([]byte{0xFF, 1, 2, 3, 4, 5}))
	require.NoError(t, err)
	got, err := io.ReadAll(rp)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 1, 2, 3, 4, 5}, got)
}

func TestReplayCompressedPlainBytes(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte{0xFF, 9, 8, 7, 6, 5})
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	rp, err := capture.NewReplay(&buf)
	require.NoError(t, err)
	defer rp.Close()
	got, err := io.ReadAll(rp)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 9, 8, 7, 6, 5}, got)
}

func TestReplayTruncated(t *testing.T) {
	data := append(append([]byte{}, capture.Magic...), 0x05, 0x00, 0xFF, 0x01)
	rp, err := capture.NewReplay(bytes.NewReader(data))
	require.NoError(t, err)
	_, err = rp.Read(make([]byte, 8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated capture")
}

func TestCaptureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.pbcap")
	rec, err := capture.Create(path)
	require.NoError(t, err)
	drain(t, rec.Tee(&chunkSource{chunks: [][]byte{{0xFF, 1}}}))
	drain(t, rec.Tee(&chunkSource{chunks: [][]byte{{0, 0, 0, 1}}}))
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	rp, err := capture.OpenReplay(path)
	require.NoError(t, err)
	defer rp.Close()
	got := drain(t, rp)
	require.Len(t, got, 3, "both connections end up in one capture")
	assert.Equal(t, []byte{0xFF, 1}, got[0].data)
	assert.Equal(t, []byte{0, 0, 0, 1}, got[1].data)
	assert.ErrorIs(t, got[2].err, io.EOF)
}

func TestOpenReplayMissing(t *testing.T) {
	_, err := capture.OpenReplay(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
