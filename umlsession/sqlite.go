package umlsession

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/umlcanvas/umlgraph"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	modified_at INTEGER NOT NULL,
	snapshot    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_modified ON sessions(modified_at);
`

// SQLiteStore persists sessions in a SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path, creating its directory
// and schema as needed.
func OpenSQLite(path string) (_ *SQLiteStore, err error) {
	defer xdefer.Errorf(&err, "failed to open session store %q", path)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (st *SQLiteStore) Path() string {
	return st.path
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		s          Session
		typ        string
		createdAt  int64
		modifiedAt int64
		blob       []byte
	)
	if err := row.Scan(&s.ID, &s.Name, &typ, &createdAt, &modifiedAt, &blob); err != nil {
		return nil, err
	}
	s.Type = umlgraph.DiagramType(typ)
	s.CreatedAt = time.Unix(0, createdAt).UTC()
	s.ModifiedAt = time.Unix(0, modifiedAt).UTC()
	snap, err := umlgraph.UnmarshalSnapshot(blob)
	if err != nil {
		return nil, err
	}
	s.Snapshot = snap
	return &s, nil
}

// Get returns ErrNotFound unwrapped so callers can compare it directly.
func (st *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	row := st.db.QueryRowContext(ctx,
		`SELECT id, name, type, created_at, modified_at, snapshot FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %q: %w", id, err)
	}
	return s, nil
}

func (st *SQLiteStore) List(ctx context.Context) (_ []*Session, err error) {
	defer xdefer.Errorf(&err, "failed to list sessions")

	rows, err := st.db.QueryContext(ctx,
		`SELECT id, name, type, created_at, modified_at, snapshot FROM sessions ORDER BY modified_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, rows.Close())
	}()

	var out []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (st *SQLiteStore) Put(ctx context.Context, s *Session) (err error) {
	defer xdefer.Errorf(&err, "failed to save session %q", s.ID)

	snap := s.Snapshot
	if snap == nil {
		snap = &umlgraph.Snapshot{Type: s.Type}
	}
	blob, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = st.db.ExecContext(ctx, `
INSERT INTO sessions (id, name, type, created_at, modified_at, snapshot)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	type = excluded.type,
	modified_at = excluded.modified_at,
	snapshot = excluded.snapshot`,
		s.ID, s.Name, string(s.Type), s.CreatedAt.UnixNano(), s.ModifiedAt.UnixNano(), blob)
	return err
}

func (st *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session %q: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (st *SQLiteStore) Close() error {
	if st.db == nil {
		return nil
	}
	return st.db.Close()
}
