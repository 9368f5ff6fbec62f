package memory

import (
	"context"

	"github.com/rcliao/story-history/internal/model"
)

// SearchResult wraps a memory with optional chunk match info.
type SearchResult struct {
	model.Memory
	MatchChunk *model.Chunk `json:"match_chunk,omitempty"`
}

// Search finds memories whose text or chunks contain the query substring.
func (s *SQLiteIndex) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	query := "%" + p.Query + "%"

	filter := Filter{}
	if p.Typ != "" {
		filter["typ"] = p.Typ
	}
	where, args, err := filter.where("m.")
	if err != nil {
		return nil, err
	}

	sql := `
		SELECT ` + memoryColumns + `, c.id, c.seq, c.text, c.start_line, c.end_line
		FROM memories m
		LEFT JOIN chunks c ON c.memory_id = m.id AND c.text LIKE ?
		WHERE ` + where + ` AND (m.text LIKE ? OR c.id IS NOT NULL)
		ORDER BY m.updated_at DESC, m.id, c.seq`

	args = append([]interface{}{query}, args...)
	args = append(args, query)

	rows, err := s.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	seen := map[string]bool{}
	for rows.Next() {
		var m model.Memory
		var chunkID, chunkText *string
		var seq, startLine, endLine *int
		row := &joinedRow{chunkID: &chunkID, seq: &seq, text: &chunkText, start: &startLine, end: &endLine}
		m, err = scanMemory(row.with(rows))
		if err != nil {
			return nil, err
		}
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		r := SearchResult{Memory: m}
		if chunkID != nil {
			r.MatchChunk = &model.Chunk{ID: *chunkID, MemoryID: m.ID, Text: deref(chunkText)}
			if seq != nil {
				r.MatchChunk.Seq = *seq
			}
			if startLine != nil {
				r.MatchChunk.StartLine = *startLine
			}
			if endLine != nil {
				r.MatchChunk.EndLine = *endLine
			}
		}
		results = append(results, r)
		if len(results) >= limit {
			break
		}
	}

	return results, rows.Err()
}

// joinedRow appends the chunk columns of a search row to a memory scan.
type joinedRow struct {
	rows    scanner
	chunkID **string
	seq     **int
	text    **string
	start   **int
	end     **int
}

func (j *joinedRow) with(rows scanner) *joinedRow {
	j.rows = rows
	return j
}

func (j *joinedRow) Scan(dest ...interface{}) error {
	dest = append(dest, j.chunkID, j.seq, j.text, j.start, j.end)
	return j.rows.Scan(dest...)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
