package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"terminus-core/internal/worldgen"
)

// SQLiteStore persists documents as zstd blobs in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path. ":memory:" is accepted.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty db path", ErrPersistence)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrPersistence, path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: pragmas: %w", ErrPersistence, err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: schema: %w", ErrPersistence, err)
	}
	return &SQLiteStore{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS overrides (
			cx INTEGER NOT NULL,
			cy INTEGER NOT NULL,
			z INTEGER NOT NULL,
			doc BLOB NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (cx, cy, z)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			slot INTEGER PRIMARY KEY CHECK (slot = 1),
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			doc BLOB NOT NULL,
			saved_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) LoadOverrides(ctx context.Context, key worldgen.Coord) ([]Override, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM overrides WHERE cx = ? AND cy = ? AND z = ?`,
		key.CX, key.CY, key.Z).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load overrides %v: %w", ErrPersistence, key, err)
	}
	ov, err := DecodeOverrides(key, blob)
	if err != nil {
		return nil, fmt.Errorf("%w: load overrides %v: %w", ErrPersistence, key, err)
	}
	return ov, nil
}

// SaveOverrides replaces the stored overrides for key. An empty list deletes
// the row.
func (s *SQLiteStore) SaveOverrides(ctx context.Context, key worldgen.Coord, overrides []Override) error {
	if len(overrides) == 0 {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM overrides WHERE cx = ? AND cy = ? AND z = ?`,
			key.CX, key.CY, key.Z); err != nil {
			return fmt.Errorf("%w: clear overrides %v: %w", ErrPersistence, key, err)
		}
		return nil
	}
	blob, err := EncodeOverrides(key, overrides)
	if err != nil {
		return fmt.Errorf("%w: save overrides %v: %w", ErrPersistence, key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO overrides (cx, cy, z, doc, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (cx, cy, z) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		key.CX, key.CY, key.Z, blob, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: save overrides %v: %w", ErrPersistence, key, err)
	}
	return nil
}

func (s *SQLiteStore) LoadEntitySnapshot(ctx context.Context) (*EntitySnapshot, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM snapshots WHERE slot = 1`).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load snapshot: %w", ErrPersistence, err)
	}
	snap, err := DecodeSnapshot(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: load snapshot: %w", ErrPersistence, err)
	}
	return snap, nil
}

func (s *SQLiteStore) SaveEntitySnapshot(ctx context.Context, snap *EntitySnapshot) error {
	blob, err := EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("%w: save snapshot: %w", ErrPersistence, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (slot, world_id, tick, doc, saved_at) VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT (slot) DO UPDATE SET world_id = excluded.world_id, tick = excluded.tick,
		   doc = excluded.doc, saved_at = excluded.saved_at`,
		snap.WorldID, int64(snap.Tick), blob, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: save snapshot: %w", ErrPersistence, err)
	}
	return nil
}

// OverrideChunks lists every chunk with stored overrides.
func (s *SQLiteStore) OverrideChunks(ctx context.Context) ([]worldgen.Coord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cx, cy, z FROM overrides ORDER BY z, cy, cx`)
	if err != nil {
		return nil, fmt.Errorf("%w: list overrides: %w", ErrPersistence, err)
	}
	defer rows.Close()
	var out []worldgen.Coord
	for rows.Next() {
		var c worldgen.Coord
		if err := rows.Scan(&c.CX, &c.CY, &c.Z); err != nil {
			return nil, fmt.Errorf("%w: list overrides: %w", ErrPersistence, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list overrides: %w", ErrPersistence, err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
