package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/story-history/internal/chunker"
	"github.com/rcliao/story-history/internal/model"
)

// SQLiteIndex implements Index using SQLite.
type SQLiteIndex struct {
	db      *sql.DB
	mu      sync.Mutex
	entropy *rand.Rand
	chunk   chunker.Options
}

// NewSQLiteIndex opens or creates a SQLite database at the given path.
func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteIndex{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		chunk:   chunker.DefaultOptions(),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteIndex) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteIndex) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id          TEXT PRIMARY KEY,
		typ         TEXT NOT NULL,
		text        TEXT NOT NULL,
		ts          TEXT,
		meta        TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_typ ON memories(typ);
	CREATE INDEX IF NOT EXISTS idx_memories_updated ON memories(updated_at DESC);

	CREATE TABLE IF NOT EXISTS chunks (
		id          TEXT PRIMARY KEY,
		memory_id   TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		text        TEXT NOT NULL,
		start_line  INTEGER,
		end_line    INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_memory ON chunks(memory_id);

	CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		text,
		content=chunks,
		content_rowid=rowid
	);

	CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
		INSERT INTO chunks_fts(rowid, text) VALUES (new.rowid, new.text);
	END;
	CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
		INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
	END;
	CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
		INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		INSERT INTO chunks_fts(rowid, text) VALUES (new.rowid, new.text);
	END;
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteIndex) AddMany(ctx context.Context, items []model.Memory) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range items {
		if m.ID == "" {
			return fmt.Errorf("add memory: %w: empty id", model.ErrValidation)
		}
		typ := m.Typ
		if typ == "" {
			typ = model.MemoryTypeHistory
		}
		if !model.ValidMemoryTypes[typ] {
			return fmt.Errorf("add memory %s: %w: invalid type %q", m.ID, model.ErrValidation, typ)
		}

		var metaJSON *string
		if len(m.Meta) > 0 {
			b, _ := json.Marshal(m.Meta)
			s := string(b)
			metaJSON = &s
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO memories (id, typ, text, ts, meta, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   typ = excluded.typ, text = excluded.text, ts = excluded.ts,
			   meta = excluded.meta, updated_at = excluded.updated_at`,
			m.ID, typ, m.Text, m.TS, metaJSON, now, now)
		if err != nil {
			return fmt.Errorf("upsert memory: %w", err)
		}

		if _, err = tx.ExecContext(ctx, `DELETE FROM chunks WHERE memory_id = ?`, m.ID); err != nil {
			return fmt.Errorf("clear chunks: %w", err)
		}
		for i, c := range chunker.Chunk(m.Text, s.chunk) {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO chunks (id, memory_id, seq, text, start_line, end_line)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				s.newID(), m.ID, i, c.Text, c.StartLine, c.EndLine)
			if err != nil {
				return fmt.Errorf("insert chunk: %w", err)
			}
		}
	}

	return tx.Commit()
}

var metaKeyRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// where builds a WHERE clause for filter against the memories table.
func (f Filter) where(alias string) (string, []interface{}, error) {
	clauses := []string{"1 = 1"}
	var args []interface{}
	for k, v := range f {
		switch k {
		case "id", "typ", "ts":
			clauses = append(clauses, fmt.Sprintf("%s%s = ?", alias, k))
		default:
			if !metaKeyRegex.MatchString(k) {
				return "", nil, fmt.Errorf("%w: invalid filter key %q", model.ErrValidation, k)
			}
			clauses = append(clauses, fmt.Sprintf("json_extract(%smeta, '$.%s') = ?", alias, k))
		}
		args = append(args, v)
	}
	return strings.Join(clauses, " AND "), args, nil
}

func (s *SQLiteIndex) Delete(ctx context.Context, filter Filter) (int, error) {
	where, args, err := filter.where("")
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE memory_id IN (SELECT id FROM memories WHERE `+where+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete memories: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), tx.Commit()
}

const memoryColumns = `m.id, m.typ, m.text, m.ts, m.meta, m.created_at, m.updated_at,
	(SELECT COUNT(*) FROM chunks c WHERE c.memory_id = m.id)`

func (s *SQLiteIndex) Get(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories m WHERE m.id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("memory %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteIndex) List(ctx context.Context, p ListParams) ([]model.Memory, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	filter := Filter{}
	if p.Typ != "" {
		filter["typ"] = p.Typ
	}
	where, args, err := filter.where("m.")
	if err != nil {
		return nil, err
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories m WHERE `+where+` ORDER BY m.updated_at DESC, m.id LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var ts, meta sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&m.ID, &m.Typ, &m.Text, &ts, &meta, &createdAt, &updatedAt, &m.ChunkCount)
	if err != nil {
		return m, err
	}

	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if ts.Valid {
		m.TS = ts.String
	}
	if meta.Valid {
		json.Unmarshal([]byte(meta.String), &m.Meta)
	}
	return m, nil
}

func scanMemories(rows *sql.Rows) ([]model.Memory, error) {
	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}
