package kvstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Sqlite persists records in a local SQLite file.
type Sqlite struct {
	sqlDB *sql.DB
	bc    *broadcaster
	log   *slog.Logger
}

var _ Store = (*Sqlite)(nil)

// OpenSqlite opens (creating if needed) the store at path and applies the
// embedded migrations.
func OpenSqlite(path string, log *slog.Logger) (*Sqlite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if log == nil {
		log = slog.Default()
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrations fs: %w", err)
	}
	if err := applyMigrations(sqlDB, sub); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Sqlite{sqlDB: sqlDB, bc: newBroadcaster(), log: log}, nil
}

func (s *Sqlite) Get(ctx context.Context, key string, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var raw string
	err := s.sqlDB.QueryRowContext(ctx, "SELECT value FROM records WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return classifyStorageErr("get", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// self-heal: drop the corrupted record, caller uses its default
		s.log.Warn("discarding corrupted record", slog.String("key", key), slog.Any("err", err))
		if _, delErr := s.sqlDB.ExecContext(ctx, "DELETE FROM records WHERE key = ?", key); delErr != nil {
			s.log.Error("failed to delete corrupted record", slog.String("key", key), slog.Any("err", delErr))
		} else {
			s.bc.publish(key)
		}
		return ErrNotFound
	}
	return nil
}

func (s *Sqlite) Put(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return classifyStorageErr("put", key, err)
	}
	s.bc.publish(key)
	return nil
}

func (s *Sqlite) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, "DELETE FROM records WHERE key = ?", key); err != nil {
		return classifyStorageErr("delete", key, err)
	}
	s.bc.publish(key)
	return nil
}

func (s *Sqlite) Subscribe() (<-chan Change, func()) {
	return s.bc.subscribe()
}

func (s *Sqlite) Close() error {
	s.bc.closeAll()
	return s.sqlDB.Close()
}

// classifyStorageErr maps driver failures onto the store's error taxonomy so
// callers can distinguish "out of space" from "store gone".
func classifyStorageErr(op, key string, err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_FULL:
			return fmt.Errorf("%s %q: %w", op, key, ErrQuotaExceeded)
		}
	}
	return fmt.Errorf("%s %q: %w: %v", op, key, ErrUnavailable, err)
}
