package filesystem

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkrasnow/memtree/config"
)

// faultyReader serves its data on the first call and then fails, simulating a
// host-side transfer interrupted partway through.
type faultyReader struct {
	data   []byte
	err    error
	served bool
}

func (r *faultyReader) Read(p []byte) (int, error) {
	if r.served {
		return 0, r.err
	}
	r.served = true
	return copy(p, r.data), nil
}

func newTestFile(t *testing.T, fs *FileSystem, name string) *Node {
	t.Helper()
	node, err := fs.Create(fs.Root(), name, 0o644)
	require.NoError(t, err)
	return node
}

func TestWriteRead_RoundTrip(t *testing.T) {
	fs := newTestFS(t)
	node := newTestFile(t, fs, "f")

	payload := []byte("the quick brown fox")
	n, err := node.Write(payload, 0, false)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, int64(len(payload)), node.Size())

	buf := make([]byte, len(payload))
	n, err = node.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])

	// Offset reads return the tail only
	buf = make([]byte, 64)
	n, err = node.ReadAt(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, payload[10:], buf[:n])
}

func TestRead_PastEndIsEmpty(t *testing.T) {
	fs := newTestFS(t)
	node := newTestFile(t, fs, "f")

	buf := make([]byte, 8)

	// No buffer at all yet
	n, err := node.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = node.Write([]byte("abc"), 0, false)
	require.NoError(t, err)

	n, err = node.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = node.ReadAt(buf, 1000)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRead_NegativeOffset(t *testing.T) {
	fs := newTestFS(t)
	node := newTestFile(t, fs, "f")

	_, err := node.ReadAt(make([]byte, 4), -1)
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestWrite_HoleIsZeroFilled(t *testing.T) {
	fs := newTestFS(t)
	node := newTestFile(t, fs, "f")

	payload := []byte("abc")
	n, err := node.Write(payload, 100, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(103), node.Size())

	// The seek-past-EOF gap reads back as zeros
	gap := make([]byte, 100)
	n, err = node.ReadAt(gap, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, make([]byte, 100), gap)

	tail := make([]byte, 3)
	n, err = node.ReadAt(tail, 100)
	require.NoError(t, err)
	assert.Equal(t, payload, tail[:n])
}

func TestWrite_AppendModeForcesOffset(t *testing.T) {
	fs := newTestFS(t)
	node := newTestFile(t, fs, "f")

	_, err := node.Write([]byte("hello"), 0, false)
	require.NoError(t, err)

	// Caller-supplied offset is ignored in append mode
	_, err = node.Write([]byte(" world"), 0, true)
	require.NoError(t, err)

	buf := make([]byte, 11)
	n, err := node.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(buf[:n]))
}

func TestWrite_ZeroLength(t *testing.T) {
	fs := newTestFS(t)
	node := newTestFile(t, fs, "f")

	n, err := node.Write(nil, 0, false)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, node.Size())
}

func TestWrite_NegativeOffset(t *testing.T) {
	fs := newTestFS(t)
	node := newTestFile(t, fs, "f")

	_, err := node.Write([]byte("x"), -5, false)
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestWrite_GrowthScenario(t *testing.T) {
	// Create /d, create /d/f, write 5000 bytes at offset 0 (crosses the
	// initial page unit), read back byte-for-byte.
	fs := newTestFS(t)
	dir, err := fs.Mkdir(fs.Root(), "d", 0o755)
	require.NoError(t, err)
	node, err := fs.Create(dir, "f", 0o644)
	require.NoError(t, err)

	payload := make([]byte, 5000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	n, err := node.Write(payload, 0, false)
	require.NoError(t, err)
	require.Equal(t, 5000, n)
	assert.Equal(t, int64(5000), node.Size())

	// Capacity doubled past the write: 4096 -> 8192
	node.mu.Lock()
	assert.Equal(t, 8192, len(node.data))
	node.mu.Unlock()

	buf := make([]byte, 5000)
	n, err = node.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 5000, n)
	assert.True(t, bytes.Equal(payload, buf))
}

func TestWrite_TooLarge(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.MaxFileSize = 1024
	fs := NewFS(cfg)
	node := newTestFile(t, fs, "f")

	_, err := node.Write(make([]byte, 64), 2000, false)
	assert.ErrorIs(t, err, ErrTooLarge)

	// Right at the bound is still fine
	_, err = node.Write(make([]byte, 64), 960, false)
	assert.NoError(t, err)
}

func TestWriteFrom_PartialTransfer(t *testing.T) {
	fs := newTestFS(t)
	node := newTestFile(t, fs, "f")

	// Source dies after delivering 3 of 10 bytes: the write is reported as a
	// successful short transfer and bookkeeping covers exactly those bytes.
	r := &faultyReader{data: []byte("abc"), err: errors.New("transfer interrupted")}
	n, err := node.WriteFrom(r, 0, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(3), node.Size())
	assert.Equal(t, uint64(3), node.CopyAttr().Size)

	buf := make([]byte, 10)
	n, err = node.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf[:n]))
}

func TestWriteFrom_NothingCopiedIsError(t *testing.T) {
	fs := newTestFS(t)
	node := newTestFile(t, fs, "f")

	boom := errors.New("transfer failed")
	r := &faultyReader{served: true, err: boom}
	n, err := node.WriteFrom(r, 0, 10, false)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
	assert.Zero(t, node.Size())
}

func TestTruncate(t *testing.T) {
	fs := newTestFS(t)
	node := newTestFile(t, fs, "f")

	_, err := node.Write([]byte("some content"), 0, false)
	require.NoError(t, err)
	require.NotZero(t, node.Size())

	require.NoError(t, node.Truncate())
	assert.Zero(t, node.Size())
	assert.Zero(t, node.CopyAttr().Size)

	n, err := node.ReadAt(make([]byte, 8), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBufferOps_OnDirectory(t *testing.T) {
	fs := newTestFS(t)
	dir, err := fs.Mkdir(fs.Root(), "d", 0o755)
	require.NoError(t, err)

	_, err = dir.ReadAt(make([]byte, 4), 0)
	assert.ErrorIs(t, err, ErrIsDirectory)
	_, err = dir.Write([]byte("x"), 0, false)
	assert.ErrorIs(t, err, ErrIsDirectory)
	assert.ErrorIs(t, dir.Truncate(), ErrIsDirectory)
}

func TestWrite_SizeSyncedToAttr(t *testing.T) {
	fs := newTestFS(t)
	node := newTestFile(t, fs, "f")

	_, err := node.Write([]byte("12345"), 0, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), node.CopyAttr().Size)

	// Rewriting inside the file does not shrink it
	_, err = node.Write([]byte("x"), 1, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), node.CopyAttr().Size)
}
