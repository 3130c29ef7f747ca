// Package memtree holds the request types shared by entrypoints (cli, test
// harnesses) that seed a filesystem instance. The engine itself lives in the
// filesystem package and never sees paths; entrypoints resolve them.
package memtree

// NodeCreateRequestType discriminates seed definition entries.
type NodeCreateRequestType string

const (
	FileNodeType     NodeCreateRequestType = "file"
	DirNodeType      NodeCreateRequestType = "dir"
	HardlinkNodeType NodeCreateRequestType = "hardlink"
)

// NodeRequest represents user input for node creation. It is passed from
// entrypoints to the seeding layer, which resolves Path against an instance.
type NodeRequest struct {
	Path string
	Type NodeCreateRequestType
	UUID string // request correlation id, generated when absent
	Mode uint32 // permission bits, e.g. 0o644
}

// FileCreateRequest seeds a file node, optionally with initial contents.
type FileCreateRequest struct {
	NodeRequest
	Contents []byte
}

// DirCreateRequest seeds a directory node.
type DirCreateRequest struct {
	NodeRequest
}

// LinkCreateRequest seeds a hard link at Path aliasing the file at Target.
type LinkCreateRequest struct {
	NodeRequest
	Target string
}
