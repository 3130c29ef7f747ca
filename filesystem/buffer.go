package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/dkrasnow/memtree/internal/util"
)

// Buffer engine. Every operation resolves the data owner first (hard link
// aliases never touch their own unused buffer fields), takes that node's
// exclusive lock, and releases it on every exit path. No operation ever holds
// more than one node's lock, so there is no lock ordering to violate.

// ReadAt copies up to len(p) bytes starting at off into p. Reading past the
// end of data, or from a file that has no buffer yet, returns (0, nil): an
// empty result is the correct, non-exceptional outcome.
func (n *Node) ReadAt(p []byte, off int64) (int, error) {
	d := n.DataNode()
	if d.isDir {
		return 0, fmt.Errorf("read ino=%d: %w", d.Ino(), ErrIsDirectory)
	}
	if off < 0 {
		return 0, fmt.Errorf("read ino=%d off=%d: %w", d.Ino(), off, ErrInvalidOffset)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.data == nil || off >= int64(d.size) {
		return 0, nil
	}

	copied := copy(p, d.data[off:d.size])
	bytesRead.Add(float64(copied))
	return copied, nil
}

// Write places p at off, growing the buffer as needed. When appendMode is
// set the effective offset is forced to the current size regardless of off.
func (n *Node) Write(p []byte, off int64, appendMode bool) (int, error) {
	return n.WriteFrom(bytes.NewReader(p), off, len(p), appendMode)
}

// WriteFrom copies count bytes from r into the buffer at off (or at the
// current size when appendMode is set).
//
// The copy-in can stop early when r fails mid-transfer. A partial copy is
// still a successful short write: size advances over exactly the bytes that
// arrived and the byte count is returned with a nil error. Only a copy that
// transferred nothing is reported as a failure. Capacity grows from one page
// and doubles until the write fits; the grown region is zero-filled, as is
// any gap left by a seek-past-EOF write.
func (n *Node) WriteFrom(r io.Reader, off int64, count int, appendMode bool) (int, error) {
	logger := util.GetLogger("Node.WriteFrom")
	d := n.DataNode()
	if d.isDir {
		return 0, fmt.Errorf("write ino=%d: %w", d.Ino(), ErrIsDirectory)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if appendMode {
		off = int64(d.size)
	}
	if off < 0 || count < 0 {
		return 0, fmt.Errorf("write ino=%d off=%d: %w", d.Ino(), off, ErrInvalidOffset)
	}
	if count == 0 {
		return 0, nil
	}

	if off > math.MaxInt64-int64(count) {
		return 0, fmt.Errorf("write ino=%d off=%d count=%d: %w", d.Ino(), off, count, ErrTooLarge)
	}
	end := off + int64(count)
	if end > d.maxSize {
		return 0, fmt.Errorf("write ino=%d end=%d max=%d: %w", d.Ino(), end, d.maxSize, ErrTooLarge)
	}

	if err := d.growLocked(end); err != nil {
		return 0, err
	}

	// Any gap between the old size and off is already zero: allocations are
	// zero-filled and size never retreats past written bytes.

	copied := 0
	for copied < count {
		m, err := r.Read(d.data[int(off)+copied : int(off)+count])
		copied += m
		if err != nil {
			if copied == 0 {
				return 0, fmt.Errorf("write ino=%d: copy in: %w", d.Ino(), err)
			}
			logger.Debug().Uint64("ino", d.Ino()).Int("copied", copied).Int("count", count).
				Err(err).Msg("Short transfer, keeping copied bytes")
			break
		}
		if m == 0 {
			break
		}
	}

	if newSize := int(off) + copied; newSize > d.size {
		d.size = newSize
	}
	d.UpdateAttr(func(attr *fuse.Attr) { attr.Size = uint64(d.size) })
	bytesWritten.Add(float64(copied))

	logger.Trace().Uint64("ino", d.Ino()).Int64("off", off).Int("n", copied).Int("size", d.size).Msg("Wrote bytes")
	return copied, nil
}

// growLocked ensures capacity for end bytes. Caller holds d.mu. Capacity
// starts at one page and doubles; the new region is zero by allocation.
func (d *Node) growLocked(end int64) error {
	if end <= int64(len(d.data)) {
		return nil
	}

	newCap := int64(len(d.data))
	if newCap == 0 {
		newCap = int64(d.pageSize)
	}
	for newCap < end {
		if newCap > math.MaxInt64/2 {
			return fmt.Errorf("grow ino=%d end=%d: %w", d.Ino(), end, ErrTooLarge)
		}
		newCap *= 2
	}

	grown := make([]byte, newCap)
	copy(grown, d.data[:d.size])
	d.data = grown
	return nil
}

// Truncate releases the buffer and resets the size to zero, the
// open-with-truncate path.
func (n *Node) Truncate() error {
	d := n.DataNode()
	if d.isDir {
		return fmt.Errorf("truncate ino=%d: %w", d.Ino(), ErrIsDirectory)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.data = nil
	d.size = 0
	d.UpdateAttr(func(attr *fuse.Attr) { attr.Size = 0 })
	return nil
}

// Size returns the current data size of the owning buffer.
func (n *Node) Size() int64 {
	d := n.DataNode()
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.size)
}
