package requests

import (
	"github.com/dkrasnow/memtree"
)

// NodeRequestDTO is the JSON representation of [memtree.NodeRequest]
type NodeRequestDTO struct {
	Path string                        `json:"path"`
	Type memtree.NodeCreateRequestType `json:"type"`
	UUID *string                       `json:"uuid,omitempty"` // Optional correlation id
	Mode *uint32                       `json:"mode,omitempty"` // i.e. 0644
}

// FileRequestDTO adds optional inline contents for file entries
type FileRequestDTO struct {
	NodeRequestDTO
	Contents *string `json:"contents,omitempty"`
}

// DirRequestDTO is an explicit directory entry (no contents)
type DirRequestDTO struct {
	NodeRequestDTO
}

// LinkRequestDTO names the existing file the new entry should alias
type LinkRequestDTO struct {
	NodeRequestDTO
	Target string `json:"target"`
}
