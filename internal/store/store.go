package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/mattn/go-sqlite3"    // registers "sqlite3"
	_ "modernc.org/sqlite"             // registers "sqlite"
)

//go:embed schema_sqlite.sql
var schemaSQLite string

//go:embed schema_postgres.sql
var schemaPostgres string

// Supported database/sql driver names.
const (
	DriverSQLite3  = "sqlite3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Schema version tracking:
// 1 - entries + cells tables with per-row digest
const currentSchemaVersion = 1

const (
	cellSchemaVersion = "schema_version"
	cellNextKey       = "next_key"
)

var (
	// ErrCorrupt is returned when a stored row fails its digest check.
	ErrCorrupt = errors.New("store: corrupt entry")

	// ErrKeySpaceExhausted is returned by NextKey once every uint32 key has
	// been handed out.
	ErrKeySpaceExhausted = errors.New("store: key space exhausted")

	// ErrUnsupportedDriver is returned by OpenWith for unknown driver names.
	ErrUnsupportedDriver = errors.New("store: unsupported driver")
)

// dialect captures the per-backend differences.
type dialect struct {
	driver  string
	schema  string
	pragmas []string
	// singleConn limits the pool to one connection (SQLite single writer).
	singleConn bool
	// numbered placeholders ($1, $2, ...) instead of "?"
	numbered bool
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

var dialects = map[string]dialect{
	DriverSQLite3:  {driver: DriverSQLite3, schema: schemaSQLite, pragmas: sqlitePragmas, singleConn: true},
	DriverSQLite:   {driver: DriverSQLite, schema: schemaSQLite, pragmas: sqlitePragmas, singleConn: true},
	DriverPostgres: {driver: DriverPostgres, schema: schemaPostgres, numbered: true},
}

// rebind rewrites "?" placeholders for dialects that number them.
// Queries in this package never contain a literal "?".
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Options selects the backend for OpenWith.
type Options struct {
	// Driver is one of DriverSQLite3 (default), DriverSQLite, DriverPostgres.
	Driver string
	// DSN is a file path (or ":memory:") for SQLite, a connection URL for
	// PostgreSQL.
	DSN string
}

// Store is the durable ordered map.
// It is safe for concurrent use; each method is one atomic unit.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open creates or opens a SQLite database at the given path using the
// default driver. Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	return OpenWith(Options{Driver: DriverSQLite3, DSN: path})
}

// OpenWith opens the store on the backend described by opts.
func OpenWith(opts Options) (*Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite3
	}
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("store: empty DSN")
	}

	db, err := sql.Open(d.driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if d.singleConn {
		// SQLite only supports one writer at a time; an in-memory database
		// also lives and dies with its single connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := applyPragmas(db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, dialect: d}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver reports the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.dialect.driver
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - writing through it bypasses digest maintenance.
func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB, d dialect) error {
	for _, pragma := range d.pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB, d dialect) error {
	if _, err := db.Exec(d.schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db, d); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations records the schema version in the cells table, refusing to
// open databases written by a newer schema.
func runMigrations(db *sql.DB, d dialect) error {
	var version int64
	err := db.QueryRow(d.rebind(`SELECT value FROM cells WHERE name = ?`), cellSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("get schema version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if version == currentSchemaVersion {
		return nil
	}

	if err := setCell(context.Background(), db, d, cellSchemaVersion, currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}

	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setCell(ctx context.Context, e execer, d dialect, name string, value int64) error {
	_, err := e.ExecContext(ctx, d.rebind(`
		INSERT INTO cells (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`), name, value)
	return err
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
