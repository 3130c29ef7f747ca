package filesystem

import (
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/dkrasnow/memtree/config"
)

// MaxNameLen is the byte bound on a node name. Longer names are silently
// truncated at allocation; callers that need strict semantics must validate
// before calling in.
const MaxNameLen = 255

// Node is one namespace entry: a file or a directory. Files either own a
// byte buffer (data owner) or alias another node's buffer (hard link).
//
// Tree linkage (parent, firstChild, nextSibling) is not locked by the engine;
// the host must serialize structural mutations per directory. Buffer state
// (data, size) of a data owner is guarded by that node's mu.
type Node struct {
	name  string
	isDir bool

	// Low-level attribute record (ino, mode, size, nlink); Only access
	// directly if handling attrMu manually
	attr   *fuse.Attr
	attrMu sync.RWMutex

	parent      *Node
	firstChild  *Node
	nextSibling *Node

	// linkTarget is nil on data owners. A hard link alias points at the
	// data-owning node; aliases never chain.
	linkTarget *Node

	mu   sync.Mutex // guards data and size on the data owner
	data []byte     // len(data) is the buffer capacity, zero-filled on growth
	size int

	pageSize int
	maxSize  int64
}

// newNode allocates a node with a zeroed buffer and default type bits applied
// into mode when the caller supplied none. The name is truncated at
// [MaxNameLen] bytes.
func newNode(name string, isDir bool, mode uint32) *Node {
	if len(name) > MaxNameLen {
		name = name[:MaxNameLen]
	}

	if mode&syscall.S_IFMT == 0 {
		if isDir {
			mode |= syscall.S_IFDIR
		} else {
			mode |= syscall.S_IFREG
		}
	}

	nlink := uint32(1)
	if isDir {
		// "." plus the parent's entry, by filesystem convention
		nlink = 2
	}

	return &Node{
		name:  name,
		isDir: isDir,
		attr: &fuse.Attr{
			Mode:    mode,
			Nlink:   nlink,
			Blksize: config.DefaultPageSize,
		},
		pageSize: config.DefaultPageSize,
		maxSize:  config.DefaultMaxFileSize,
	}
}

// DataNode resolves the node that owns the underlying buffer: the node
// itself, or the hard link target for aliases.
func (n *Node) DataNode() *Node {
	if n.linkTarget != nil {
		return n.linkTarget
	}
	return n
}

// Name returns the node's immutable name.
func (n *Node) Name() string {
	return n.name
}

// IsDir reports whether the node is a directory. Fixed at creation.
func (n *Node) IsDir() bool {
	return n.isDir
}

// Parent returns the containing directory, or nil for the root and for
// detached nodes.
func (n *Node) Parent() *Node {
	return n.parent
}

// Ino returns the node identifier; 0 if not yet registered.
func (n *Node) Ino() uint64 {
	n.attrMu.RLock()
	defer n.attrMu.RUnlock()
	return n.attr.Ino
}

// Mode returns the node's permission/type bits.
func (n *Node) Mode() uint32 {
	n.attrMu.RLock()
	defer n.attrMu.RUnlock()
	return n.attr.Mode
}

// Nlink returns the number of namespace entries resolving to this node.
// For hard-linked files the authoritative count lives on the data owner.
func (n *Node) Nlink() uint32 {
	n.attrMu.RLock()
	defer n.attrMu.RUnlock()
	return n.attr.Nlink
}

// CopyAttr returns a thread-safe copy of the node's attributes.
func (n *Node) CopyAttr() fuse.Attr {
	n.attrMu.RLock()
	defer n.attrMu.RUnlock()
	return *n.attr
}

// UpdateAttr runs fn under the attribute write-lock for atomic modifications.
func (n *Node) UpdateAttr(fn func(attr *fuse.Attr)) {
	n.attrMu.Lock()
	defer n.attrMu.Unlock()
	fn(n.attr)
}

// addChild inserts child at the head of n's children chain and sets the
// back-reference. Enumeration order is most-recently-created first.
func (n *Node) addChild(child *Node) {
	child.parent = n
	child.nextSibling = n.firstChild
	n.firstChild = child
}

// detachChild unsplices child from n's sibling chain by identity and clears
// its linkage. Returns false if child is not under n. Detach never releases
// memory; that is Evict's or Teardown's job.
func (n *Node) detachChild(child *Node) bool {
	var prev *Node
	for cur := n.firstChild; cur != nil; cur = cur.nextSibling {
		if cur == child {
			if prev != nil {
				prev.nextSibling = cur.nextSibling
			} else {
				n.firstChild = cur.nextSibling
			}
			child.parent = nil
			child.nextSibling = nil
			return true
		}
		prev = cur
	}
	return false
}
