package filesystem

import (
	"fmt"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/dkrasnow/memtree/internal/util"
)

// Tree operations resolve a single name within an already-located parent.
// Multi-segment path resolution is the host's job, as is serializing
// structural mutations per directory.

// Lookup scans parent's children for an exact, case-sensitive name match.
// A miss is not an error; it is reported through the boolean result so the
// host can decide whether it becomes a negative cache entry or an error.
func (fs *FileSystem) Lookup(parent *Node, name string) (*Node, bool) {
	if parent == nil || !parent.isDir {
		return nil, false
	}
	for child := parent.firstChild; child != nil; child = child.nextSibling {
		if child.name == name {
			return child, true
		}
	}
	return nil, false
}

// Create allocates a new file node under parent and issues its identifier.
//
// Create does not check for an existing entry of the same name; the host
// contract is that the name was already resolved as absent (typically via
// Lookup) before calling in. Mkdir, by contrast, does its own collision scan.
func (fs *FileSystem) Create(parent *Node, name string, mode uint32) (*Node, error) {
	logger := util.GetLogger("FS.Create")
	if parent == nil {
		return nil, fmt.Errorf("create %q: %w", name, ErrNotFound)
	}
	if !parent.isDir {
		return nil, fmt.Errorf("create %q: %w", name, ErrNotDirectory)
	}

	node := newNode(name, false, mode)
	fs.register(node)
	parent.addChild(node)

	logger.Debug().Str("name", node.name).Uint64("ino", node.Ino()).Uint64("parent", parent.Ino()).Msg("Created file")
	return node, nil
}

// Mkdir allocates a new directory node under parent. Unlike Create it scans
// for a name collision first and fails with ErrExist. The parent's link count
// rises by one per immediate subdirectory, by filesystem convention.
func (fs *FileSystem) Mkdir(parent *Node, name string, mode uint32) (*Node, error) {
	logger := util.GetLogger("FS.Mkdir")
	if parent == nil {
		return nil, fmt.Errorf("mkdir %q: %w", name, ErrNotFound)
	}
	if !parent.isDir {
		return nil, fmt.Errorf("mkdir %q: %w", name, ErrNotDirectory)
	}
	if _, ok := fs.Lookup(parent, name); ok {
		return nil, fmt.Errorf("mkdir %q: %w", name, ErrExist)
	}

	node := newNode(name, true, mode)
	fs.register(node)
	parent.addChild(node)

	parent.UpdateAttr(func(attr *fuse.Attr) { attr.Nlink++ })

	logger.Debug().Str("name", node.name).Uint64("ino", node.Ino()).Uint64("parent", parent.Ino()).Msg("Created directory")
	return node, nil
}

// Link creates a hard link alias for existing under parent. Directories
// cannot be hard-linked. Linking to an already-aliased node re-targets to the
// true data owner, so aliases never chain. The alias reuses the owner's
// identifier and is not registered separately; the authoritative link count
// lives on the owner.
func (fs *FileSystem) Link(parent *Node, newName string, existing *Node) (*Node, error) {
	logger := util.GetLogger("FS.Link")
	if parent == nil || existing == nil {
		return nil, fmt.Errorf("link %q: %w", newName, ErrNotFound)
	}
	if !parent.isDir {
		return nil, fmt.Errorf("link %q: %w", newName, ErrNotDirectory)
	}
	if existing.isDir {
		return nil, fmt.Errorf("link %q: %w", newName, ErrIsDirectory)
	}

	target := existing.DataNode()

	alias := newNode(newName, false, target.Mode())
	alias.linkTarget = target
	alias.attr.Ino = target.Ino()
	parent.addChild(alias)

	target.UpdateAttr(func(attr *fuse.Attr) { attr.Nlink++ })

	logger.Debug().Str("name", alias.name).Str("target", target.name).
		Uint64("ino", target.Ino()).Uint32("nlink", target.Nlink()).Msg("Created hard link")
	return alias, nil
}

// Unlink detaches a file node from parent. The scan is by node identity, not
// name, so renamed-in-flight hosts cannot detach the wrong sibling. Detach
// clears the node's linkage but never releases memory: the host triggers
// Evict once the node's link count has reached zero.
func (fs *FileSystem) Unlink(parent *Node, node *Node) error {
	logger := util.GetLogger("FS.Unlink")
	if parent == nil || node == nil {
		return fmt.Errorf("unlink: %w", ErrNotFound)
	}
	if node.isDir {
		return fmt.Errorf("unlink %q: %w", node.name, ErrIsDirectory)
	}

	if !parent.detachChild(node) {
		return fmt.Errorf("unlink %q: %w", node.name, ErrNotFound)
	}

	owner := node.DataNode()
	owner.UpdateAttr(func(attr *fuse.Attr) {
		if attr.Nlink > 0 {
			attr.Nlink--
		}
	})

	logger.Debug().Str("name", node.name).Uint64("ino", node.Ino()).
		Uint64("parent", parent.Ino()).Uint32("nlink", owner.Nlink()).Msg("Unlinked file")
	return nil
}

// Rmdir detaches an empty directory from parent and gives back the link count
// Mkdir took from the parent.
func (fs *FileSystem) Rmdir(parent *Node, node *Node) error {
	logger := util.GetLogger("FS.Rmdir")
	if parent == nil || node == nil {
		return fmt.Errorf("rmdir: %w", ErrNotFound)
	}
	if !node.isDir {
		return fmt.Errorf("rmdir %q: %w", node.name, ErrNotDirectory)
	}
	if node.firstChild != nil {
		return fmt.Errorf("rmdir %q: %w", node.name, ErrNotEmpty)
	}

	if !parent.detachChild(node) {
		return fmt.Errorf("rmdir %q: %w", node.name, ErrNotFound)
	}

	node.UpdateAttr(func(attr *fuse.Attr) { attr.Nlink = 0 })
	parent.UpdateAttr(func(attr *fuse.Attr) {
		if attr.Nlink > 0 {
			attr.Nlink--
		}
	})

	logger.Debug().Str("name", node.name).Uint64("ino", node.Ino()).Uint64("parent", parent.Ino()).Msg("Removed directory")
	return nil
}
