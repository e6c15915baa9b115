package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/proposal"
	"github.com/danielpatrickdp/adaptive-coach/internal/workout"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS workouts (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	date           TEXT NOT NULL,
	type           TEXT NOT NULL,
	title          TEXT NOT NULL,
	duration_min   INTEGER NOT NULL DEFAULT 0,
	prescription   TEXT NOT NULL DEFAULT '',
	plan_json      TEXT NOT NULL DEFAULT '',
	ai_source      TEXT NOT NULL DEFAULT '',
	ai_note        TEXT NOT NULL DEFAULT '',
	ai_confidence  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS workouts_user_date ON workouts(user_id, date);

CREATE TABLE IF NOT EXISTS applied_patches (
	id            TEXT PRIMARY KEY,
	workout_id    TEXT NOT NULL,
	forward_json  TEXT NOT NULL,
	inverse_json  TEXT NOT NULL,
	applied_at    TEXT NOT NULL,
	reverted_at   TEXT,
	FOREIGN KEY (workout_id) REFERENCES workouts(id)
);

CREATE TABLE IF NOT EXISTS proposals (
	id                TEXT PRIMARY KEY,
	workout_id        TEXT NOT NULL,
	summary           TEXT NOT NULL,
	patch_json        TEXT NOT NULL,
	before_json       TEXT NOT NULL,
	diff              TEXT,
	confidence        INTEGER NOT NULL,
	source_type       TEXT NOT NULL,
	status            TEXT NOT NULL,
	created_at        TEXT NOT NULL,
	decided_at        TEXT,
	applied_patch_id  TEXT,
	undone_at         TEXT,
	note              TEXT,
	FOREIGN KEY (workout_id) REFERENCES workouts(id),
	FOREIGN KEY (applied_patch_id) REFERENCES applied_patches(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS proposals_one_pending
	ON proposals(workout_id) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	subject_id    TEXT NOT NULL,
	user_id       TEXT,
	trigger_type  TEXT NOT NULL,
	signals_json  TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS signal_sources (
	user_id       TEXT NOT NULL,
	date          TEXT NOT NULL,
	checkin_json  TEXT,
	diary_json    TEXT,
	load_json     TEXT,
	updated_at    TEXT NOT NULL,
	PRIMARY KEY (user_id, date)
);

CREATE TABLE IF NOT EXISTS user_settings (
	user_id          TEXT PRIMARY KEY,
	rigidity         TEXT,
	benchmarks_json  TEXT
);
`
// #endregion schema

// DateLayout is the calendar-date format used for workout and signal dates.
const DateLayout = "2006-01-02"

// #region store-struct
// Store is the SQLite persistence collaborator for workouts, proposals,
// signal sources and per-user settings.
type Store struct {
	db  *sql.DB
	loc *time.Location
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations. Calendar dates are
// read back in time.Local.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and pragmas are per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, loc: time.Local}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region tx
// Tx is one SQLite transaction. It satisfies workout.Tx and proposal.Tx.
type Tx struct {
	tx  *sql.Tx
	loc *time.Location
}

var (
	_ workout.Tx  = (*Tx)(nil)
	_ proposal.Tx = (*Tx)(nil)

	_ workout.Store  = (*Store)(nil)
	_ proposal.Store = (*Store)(nil)
)

func (s *Store) inTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{tx: sqlTx, loc: s.loc}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// InWorkoutTx runs fn in one transaction.
func (s *Store) InWorkoutTx(ctx context.Context, fn func(tx workout.Tx) error) error {
	return s.inTx(ctx, func(tx *Tx) error { return fn(tx) })
}

// InLedgerTx runs fn in one transaction.
func (s *Store) InLedgerTx(ctx context.Context, fn func(tx proposal.Tx) error) error {
	return s.inTx(ctx, func(tx *Tx) error { return fn(tx) })
}
// #endregion tx

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
// #endregion helpers
