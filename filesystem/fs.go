package filesystem

import (
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/dkrasnow/memtree/config"
	"github.com/dkrasnow/memtree/internal/util"
)

// RootIno is the identifier assigned to the root directory of every instance.
const RootIno uint64 = fuse.FUSE_ROOT_ID

// FileSystem owns the root of the node tree and the monotonically increasing
// identifier counter for one mounted instance. It is the registry the host
// uses to translate identifiers back into nodes, and the owner of the two
// memory-release paths: single-node Evict and whole-tree Teardown.
type FileSystem struct {
	cfg          *config.Config
	instanceID   uuid.UUID
	root         *Node
	lastIno      atomic.Uint64             // Last identifier assigned; incremented when new nodes are created
	nodeRegistry *xsync.Map[uint64, *Node] // maps identifiers to their data-owning Node
	onEvict      func(*Node)
}

// NewFS creates a fresh instance with an empty root directory. The identifier
// counter starts above RootIno and is never reset for the instance lifetime.
func NewFS(cfg *config.Config) *FileSystem {
	logger := util.GetLogger("FS.NewFS")
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	root := newNode("", true, uint32(syscall.S_IFDIR|0o777))
	root.attr.Ino = RootIno
	root.pageSize = cfg.PageSize
	root.maxSize = cfg.MaxFileSize

	fs := FileSystem{
		cfg:        cfg,
		instanceID: uuid.New(),
		root:       root,
	}
	fs.lastIno.Store(RootIno)
	fs.nodeRegistry = xsync.NewMap[uint64, *Node]()
	fs.nodeRegistry.Store(RootIno, root)

	logger.Debug().Str("instance", fs.instanceID.String()).Msg("Created filesystem instance")
	return &fs
}

// Root returns the root directory node.
func (fs *FileSystem) Root() *Node {
	return fs.root
}

// InstanceID returns the unique identity of this mounted instance.
func (fs *FileSystem) InstanceID() uuid.UUID {
	return fs.instanceID
}

// register issues a fresh identifier for node and stores it in the registry.
// Identifiers are strictly increasing and never reused within one instance.
func (fs *FileSystem) register(node *Node) {
	ino := fs.lastIno.Add(1)
	node.attr.Ino = ino
	node.pageSize = fs.cfg.PageSize
	node.maxSize = fs.cfg.MaxFileSize
	fs.nodeRegistry.Store(ino, node)
	nodesCreated.Inc()
}

// GetNode resolves a previously issued identifier, or nil if the identifier
// was never issued or its node has been evicted.
func (fs *FileSystem) GetNode(ino uint64) *Node {
	node, ok := fs.nodeRegistry.Load(ino)
	if !ok {
		return nil
	}
	return node
}

// Forget removes the registry entry for an identifier without releasing the
// node. Hosts use it when their own handle table drops an identifier that is
// still reachable from the tree.
func (fs *FileSystem) Forget(ino uint64) {
	logger := util.GetLogger("FS.Forget")
	logger.Trace().Uint64("ino", ino).Msg("Forget called")
	fs.nodeRegistry.Delete(ino)
}

// SetEvictHook installs a callback fired after each successful eviction.
// Intended for hosts that mirror node lifetimes in their own caches.
func (fs *FileSystem) SetEvictHook(fn func(*Node)) {
	fs.onEvict = fn
}

// Evict releases a single detached node once the host reports that no
// namespace entry resolves to it anymore. The buffer is freed only when the
// node owns it; hard link aliases never free the shared buffer. Evicting a
// node that is still linked, still attached, or already evicted is a no-op.
//
// Evict and Teardown are disjoint release paths: Teardown only visits nodes
// still reachable from the root, Evict only accepts detached ones.
func (fs *FileSystem) Evict(node *Node) {
	logger := util.GetLogger("FS.Evict")
	if node == nil || node == fs.root {
		return
	}
	if node.parent != nil {
		logger.Warn().Uint64("ino", node.Ino()).Str("name", node.name).Msg("Evict called on attached node")
		return
	}

	owner := node.DataNode()
	if owner.Nlink() > 0 {
		logger.Trace().Uint64("ino", node.Ino()).Uint32("nlink", owner.Nlink()).Msg("Node still linked, not evicting")
		return
	}

	if node == owner {
		// The registry maps the identifier to the data owner; a missing or
		// replaced entry means this owner was already evicted.
		if cur, ok := fs.nodeRegistry.Load(node.Ino()); !ok || cur != node {
			return
		}
		node.mu.Lock()
		node.data = nil
		node.size = 0
		node.mu.Unlock()
		fs.nodeRegistry.Delete(node.Ino())
	}

	nodesEvicted.Inc()
	logger.Debug().Uint64("ino", node.Ino()).Str("name", node.name).Msg("Evicted node")

	if fs.onEvict != nil {
		fs.onEvict(node)
	}
}

// Teardown releases every node still reachable from the root, dismounting the
// instance. Nodes the host detached earlier are not visited here; those go
// through Evict. The FileSystem must not be used afterwards.
func (fs *FileSystem) Teardown() {
	logger := util.GetLogger("FS.Teardown")
	if fs.root == nil {
		return
	}
	logger.Debug().Str("instance", fs.instanceID.String()).Msg("Tearing down node tree")

	releaseSubtree(fs.root)
	fs.root = nil
	fs.nodeRegistry.Range(func(ino uint64, _ *Node) bool {
		fs.nodeRegistry.Delete(ino)
		return true
	})
}

// releaseSubtree drops buffers bottom-up. Buffers are freed only on data
// owners; aliases reference a buffer they never owned.
func releaseSubtree(node *Node) {
	for child := node.firstChild; child != nil; {
		next := child.nextSibling
		releaseSubtree(child)
		child = next
	}
	if node.linkTarget == nil {
		node.data = nil
		node.size = 0
	}
	node.parent = nil
	node.firstChild = nil
	node.nextSibling = nil
}

// FSStat describes instance-level limits and occupancy.
type FSStat struct {
	InstanceID uuid.UUID
	NameLen    uint32 // maximum entry name length in bytes
	NodeCount  int    // live registry entries, root included
}

// Stat reports the instance's static limits and current registry size.
func (fs *FileSystem) Stat() FSStat {
	return FSStat{
		InstanceID: fs.instanceID,
		NameLen:    MaxNameLen,
		NodeCount:  fs.nodeRegistry.Size(),
	}
}
