// Package memory provides the long-term memory index that keeps history
// entries searchable, and its SQLite implementation.
package memory

import (
	"context"

	"github.com/rcliao/story-history/internal/model"
)

// Filter selects memory records by metadata. The keys "id" and "typ" match
// record columns; any other key matches the record's meta map.
type Filter map[string]string

// SearchParams holds parameters for searching memories.
type SearchParams struct {
	Typ   string
	Query string
	Limit int
}

// ListParams holds parameters for listing memories.
type ListParams struct {
	Typ   string
	Limit int
}

// Index defines the memory index interface.
type Index interface {
	// AddMany inserts or replaces the given records, keyed by ID.
	AddMany(ctx context.Context, items []model.Memory) error

	// Delete removes every record matching filter and returns how many were removed.
	Delete(ctx context.Context, filter Filter) (int, error)

	// Get retrieves a record by id.
	Get(ctx context.Context, id string) (*model.Memory, error)

	// List lists records, most recently updated first.
	List(ctx context.Context, p ListParams) ([]model.Memory, error)

	// Close closes the index.
	Close() error
}
