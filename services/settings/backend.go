package settings

import (
	"context"
	"database/sql"
	"sync"

	_ "modernc.org/sqlite"

	"alertmap-go/errcode"
)

// Memory is a volatile backend, used on hosts without storage and in tests.
type Memory struct {
	mu   sync.Mutex
	recs map[Key]Record
}

func NewMemory() *Memory { return &Memory{recs: make(map[Key]Record)} }

func (m *Memory) Load(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) Put(ctx context.Context, r Record) error {
	m.mu.Lock()
	m.recs[r.Key] = r
	m.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------
// SQLite
// -----------------------------------------------------------------------------

const schema = `CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	type  TEXT NOT NULL,
	value TEXT NOT NULL
)`

// SQLite keeps settings in a single table of a file-backed database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errcode.Wrap(errcode.PersistFailed, "settings.open", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, errcode.Wrap(errcode.PersistFailed, "settings.open", err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, type, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var key, typ, val string
		if err := rows.Scan(&key, &typ, &val); err != nil {
			return nil, err
		}
		t, ok := ParseType(typ)
		if !ok {
			continue
		}
		out = append(out, Record{Key: Key(key), Type: t, Value: val})
	}
	return out, rows.Err()
}

func (s *SQLite) Put(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, type, value) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET type = excluded.type, value = excluded.value`,
		string(r.Key), r.Type.String(), r.Value)
	return err
}
