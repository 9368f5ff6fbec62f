package memory

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string      `json:"db_path"`
	DBSizeBytes int64       `json:"db_size_bytes"`
	Total       int         `json:"total_memories"`
	TotalChunks int         `json:"total_chunks"`
	Types       []TypeStats `json:"types"`
}

// TypeStats holds per-type counts.
type TypeStats struct {
	Typ   string `json:"typ"`
	Count int    `json:"count"`
}

// Stats returns database statistics.
func (s *SQLiteIndex) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.Total)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&st.TotalChunks)

	rows, err := s.db.QueryContext(ctx, `
		SELECT typ, COUNT(*) as cnt
		FROM memories
		GROUP BY typ ORDER BY cnt DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ts TypeStats
		rows.Scan(&ts.Typ, &ts.Count)
		st.Types = append(st.Types, ts)
	}

	return st, rows.Err()
}
