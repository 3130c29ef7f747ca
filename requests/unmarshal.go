package requests

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dkrasnow/memtree"
)

// GetNodeType extracts the node type from JSON without full unmarshaling
func GetNodeType(data []byte) (memtree.NodeCreateRequestType, error) {
	var meta struct {
		Type memtree.NodeCreateRequestType `json:"type"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", err
	}
	return meta.Type, nil
}

// UnmarshalFileRequest handles file-specific unmarshaling with optional contents
func UnmarshalFileRequest(data []byte) (*memtree.FileCreateRequest, error) {
	var dto FileRequestDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, err
	}

	var contents []byte
	if dto.Contents != nil {
		contents = []byte(*dto.Contents)
	}

	return &memtree.FileCreateRequest{
		NodeRequest: convertNodeDTO(dto.NodeRequestDTO, 0o644),
		Contents:    contents,
	}, nil
}

// UnmarshalDirRequest handles explicit directory unmarshaling
func UnmarshalDirRequest(data []byte) (*memtree.DirCreateRequest, error) {
	var dto DirRequestDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, err
	}

	return &memtree.DirCreateRequest{
		NodeRequest: convertNodeDTO(dto.NodeRequestDTO, 0o755),
	}, nil
}

// UnmarshalLinkRequest handles hard link entries, which must name a target
func UnmarshalLinkRequest(data []byte) (*memtree.LinkCreateRequest, error) {
	var dto LinkRequestDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, err
	}
	if dto.Target == "" {
		return nil, fmt.Errorf("hardlink request %q missing target", dto.Path)
	}

	return &memtree.LinkCreateRequest{
		NodeRequest: convertNodeDTO(dto.NodeRequestDTO, 0o644),
		Target:      dto.Target,
	}, nil
}

// Conversion logic with defaults applied in the unmarshaling layer
func convertNodeDTO(dto NodeRequestDTO, defaultMode uint32) memtree.NodeRequest {
	return memtree.NodeRequest{
		Path: dto.Path,
		Type: dto.Type,
		UUID: valueOrDefault(dto.UUID, uuid.New().String()),
		Mode: valueOrDefault(dto.Mode, defaultMode),
	}
}

func valueOrDefault[T any](ptr *T, defaultVal T) T {
	if ptr != nil {
		return *ptr
	}
	return defaultVal
}
