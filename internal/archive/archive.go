// internal/archive/archive.go
//
// SQLite archive of finished games.
// Responsibilities:
//   - Opening SQLite with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying embedded migrations from schema/*.sql (idempotent, recorded in _migrations).
//   - Recording final standings and serving the leaderboard.
//
// The archive is write-only from the game's point of view: live sessions are
// never restored from it.

package archive

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wortkunst/internal/game"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// DefaultLeaderboardLimit is used when a caller asks for no explicit limit.
const DefaultLeaderboardLimit = 20

// Store records finished games.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if missing) the SQLite database at dsn and applies
// migrations.
func Open(dsn string) (*Store, error) {
	if dsn == MemoryDSN {
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}
		// Every connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
		return New(db)
	}

	if dir := dsnDir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", withDSNDefaults(dsn))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return New(db)
}

// dsnDir is the directory of the database file named by dsn, which may be a
// plain path or a file: URI with a query.
func dsnDir(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return filepath.Dir(p)
}

// withDSNDefaults appends the busy timeout and WAL parameters to dsn.
func withDSNDefaults(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_busy_timeout=5000&_journal_mode=WAL"
}

// New wraps an open database and applies migrations.
func New(db *sql.DB) (*Store, error) {
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("list schema: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("query _migrations: %w", err)
		}

		text, err := schemaFS.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(text)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

// RecordGame stores the final standings of f. Recording the same game twice
// keeps the first rows.
func (s *Store) RecordGame(ctx context.Context, f game.Final) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	started := f.StartedAt.UTC().Format(time.RFC3339)
	ended := f.EndedAt.UTC().Format(time.RFC3339)
	for _, seat := range f.Seats {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO game_results
				(game_id, seat_id, display_name, score, moves, provider, started_at, ended_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			f.GameID, seat.SeatID, seat.DisplayName, seat.Score, seat.Moves, f.Provider, started, ended,
		); err != nil {
			return fmt.Errorf("insert %s/%s: %w", f.GameID, seat.SeatID, err)
		}
	}
	return tx.Commit()
}

// Entry is one leaderboard row.
type Entry struct {
	GameID      string `json:"gameId"`
	SeatID      string `json:"seatId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	Moves       int    `json:"moves"`
	Provider    string `json:"llmProvider"`
	EndedAt     string `json:"endedAt"`
}

// Leaderboard returns the best archived final scores, highest first. Ties go
// to the earlier finish.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, seat_id, display_name, score, moves, provider, ended_at
		FROM game_results
		ORDER BY score DESC, ended_at ASC, game_id ASC, seat_id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.GameID, &e.SeatID, &e.DisplayName, &e.Score, &e.Moves, &e.Provider, &e.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
