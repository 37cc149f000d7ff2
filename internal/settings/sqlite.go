package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps settings in a single table of a local SQLite file.
type SQLiteStore struct {
	conn *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY from the preference writer and readers.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		name TEXT NOT NULL,
		user_handle TEXT NOT NULL,
		community TEXT NOT NULL DEFAULT '',
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (name, user_handle, community)
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, name Name, scope Scope, dst any) (bool, error) {
	if err := scope.validate(); err != nil {
		return false, wrapErr("get", name, scope, err)
	}

	var val string
	err := s.conn.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE name = ? AND user_handle = ? AND community = ?",
		string(name), scope.UserHandle, scope.Community,
	).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("get", name, scope, err)
	}

	if err := json.Unmarshal([]byte(val), dst); err != nil {
		return false, wrapErr("decode", name, scope, err)
	}
	return true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, name Name, value any, scope Scope) error {
	if err := scope.validate(); err != nil {
		return wrapErr("set", name, scope, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return wrapErr("encode", name, scope, err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO settings (name, user_handle, community, value, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name, user_handle, community) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(name), scope.UserHandle, scope.Community, string(data), time.Now().UTC(),
	)
	if err != nil {
		return wrapErr("set", name, scope, err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *SQLiteStore) Backend() string { return "sqlite" }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
