package memory

import (
	"context"

	"github.com/rcliao/story-history/internal/model"
)

// ExportAll returns all memories, optionally filtered by type, ordered by
// story time.
func (s *SQLiteIndex) ExportAll(ctx context.Context, typ string) ([]model.Memory, error) {
	filter := Filter{}
	if typ != "" {
		filter["typ"] = typ
	}
	where, args, err := filter.where("m.")
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories m WHERE `+where+` ORDER BY m.typ, m.ts, m.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// Import stores memories from an export, replacing records with the same id.
func (s *SQLiteIndex) Import(ctx context.Context, memories []model.Memory) (int, error) {
	if err := s.AddMany(ctx, memories); err != nil {
		return 0, err
	}
	return len(memories), nil
}
