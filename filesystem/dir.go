package filesystem

import (
	"fmt"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// ReadDir enumerates dir's children starting at *pos, calling emit for each
// entry until the chain is exhausted or emit returns false.
//
// The cursor protocol: positions 0 and 1 are the conventional "." and ".."
// entries; position n >= 2 is the (n-2)-th child in the chain's current
// order. *pos advances by one after each accepted entry, so the value left
// behind when emit declines (e.g. the host's output buffer is full) is
// exactly the cursor to resume from. Resumption is only exact if the
// directory's child order did not change in between; ReadDir takes no locks
// and provides no snapshot isolation.
func (fs *FileSystem) ReadDir(dir *Node, pos *uint64, emit func(fuse.DirEntry) bool) error {
	if dir == nil || !dir.isDir {
		return fmt.Errorf("readdir: %w", ErrNotDirectory)
	}

	if *pos == 0 {
		if !emit(fuse.DirEntry{Name: ".", Ino: dir.Ino(), Mode: syscall.S_IFDIR}) {
			return nil
		}
		*pos++
	}
	if *pos == 1 {
		parentIno := dir.Ino() // the root is its own parent
		if dir.parent != nil {
			parentIno = dir.parent.Ino()
		}
		if !emit(fuse.DirEntry{Name: "..", Ino: parentIno, Mode: syscall.S_IFDIR}) {
			return nil
		}
		*pos++
	}

	child := dir.firstChild
	for skip := *pos - 2; child != nil && skip > 0; skip-- {
		child = child.nextSibling
	}

	for ; child != nil; child = child.nextSibling {
		mode := uint32(syscall.S_IFREG)
		if child.isDir {
			mode = syscall.S_IFDIR
		}
		if !emit(fuse.DirEntry{Name: child.name, Ino: child.Ino(), Mode: mode}) {
			return nil
		}
		*pos++
	}
	return nil
}
