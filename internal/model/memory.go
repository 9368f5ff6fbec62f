// Package model defines the persisted history records, the transient views
// built over them, and the long-term memory record types.
package model

import "time"

// Memory is a record in the long-term memory index.
type Memory struct {
	ID         string            `json:"id"`
	Typ        string            `json:"typ"`
	Text       string            `json:"text"`
	TS         string            `json:"ts,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	ChunkCount int               `json:"chunks,omitempty"`
}

// Chunk represents an internal text chunk of a memory.
type Chunk struct {
	ID        string `json:"id"`
	MemoryID  string `json:"memory_id"`
	Seq       int    `json:"seq"`
	Text      string `json:"text"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

// Memory record types.
const (
	MemoryTypeHistory = "history"
	MemoryTypeWorld   = "world"
)

// ValidMemoryTypes are the allowed memory record types.
var ValidMemoryTypes = map[string]bool{
	MemoryTypeHistory: true,
	MemoryTypeWorld:   true,
}
