// Package sqlite implements the repository interfaces on SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the binary needs no C toolchain
// and cross-compiles like any other Go program. It registers itself with
// database/sql as the "sqlite" driver.
//
// POOL AND UNITS OF WORK:
// DB is the connection pool (a *sql.DB underneath, which is a pool and not
// a single connection). Repositories never hold a *sql.DB directly. They run
// against a querier, which is one of:
//
//	poolQuerier  any free pooled connection, one statement at a time
//	UnitOfWork   one dedicated connection holding one open transaction
//
// The same SQL therefore works inside and outside a transaction. Services
// use the pool for single reads and writes, and a unit of work when several
// statements must succeed or fail together (bookmark creation, sign-in).
//
// ERRORS:
// Only uniqueness failures are translated, into
// *repository.UniqueConstraintError. Every other driver error is wrapped
// with context and passed up unchanged, so the service decides what it
// means.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tobimarks/tobimarks-api/internal/repository"
)

// DefaultMaxOpenConns is the pool ceiling when Options leaves it unset.
const DefaultMaxOpenConns = 20

// Options configures New.
type Options struct {
	// Path is the database file. The directory must exist.
	Path string
	// MaxOpenConns bounds the pool. Callers needing a connection block until
	// one is released.
	MaxOpenConns int
}

// DB wraps the sql.DB connection pool.
type DB struct {
	pool *sql.DB
}

var _ repository.Repositories = (*DB)(nil)
var _ repository.UnitOfWorkFactory = (*DB)(nil)

// New opens the pool, verifies it with a ping and runs migrations.
//
// PRAGMAs are passed in the DSN rather than executed once, because
// database/sql opens connections lazily and each new connection must get
// the same settings. foreign_keys and busy_timeout are per-connection in
// SQLite; _txlock=immediate makes BEGIN take the write lock up front so
// two read-then-write transactions cannot deadlock on lock upgrade.
// _time_format=sqlite stores timestamps as sortable text.
func New(ctx context.Context, opts Options) (*DB, error) {
	if opts.Path == "" {
		return nil, errors.New("sqlite: database path is required")
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = DefaultMaxOpenConns
	}

	pool, err := sql.Open("sqlite", dsn(opts.Path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	pool.SetMaxOpenConns(opts.MaxOpenConns)
	pool.SetMaxIdleConns(opts.MaxOpenConns)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{pool: pool}

	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	q.Set("_time_format", "sqlite")
	return "file:" + path + "?" + q.Encode()
}

// Close closes every connection in the pool.
func (db *DB) Close() error {
	return db.pool.Close()
}

// Ping checks that a connection can be obtained and used.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.PingContext(ctx)
}

// Stats reports pool usage.
func (db *DB) Stats() sql.DBStats {
	return db.pool.Stats()
}

// Acquire takes a dedicated connection from the pool. The caller must
// Close it to hand it back.
func (db *DB) Acquire(ctx context.Context) (*sql.Conn, error) {
	conn, err := db.pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: acquiring connection: %w", err)
	}
	return conn, nil
}

// ExecContext runs a statement on any pooled connection.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.pool.ExecContext(ctx, query, args...)
}

// QueryContext runs a query on any pooled connection.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.pool.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query on any pooled connection.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.pool.QueryRowContext(ctx, query, args...)
}

// NewUnitOfWork returns an idle unit of work over this pool.
func (db *DB) NewUnitOfWork() repository.UnitOfWork {
	return &UnitOfWork{db: db}
}

func (db *DB) Users() repository.UserRepository       { return &UserRepo{q: poolQuerier{db.pool}} }
func (db *DB) Websites() repository.WebsiteRepository { return &WebsiteRepo{q: poolQuerier{db.pool}} }
func (db *DB) Bookmarks() repository.BookmarkRepository {
	return &BookmarkRepo{q: poolQuerier{db.pool}}
}
func (db *DB) Tags() repository.TagRepository { return &TagRepo{q: poolQuerier{db.pool}} }
func (db *DB) RefreshTokens() repository.RefreshTokenRepository {
	return &RefreshTokenRepo{q: poolQuerier{db.pool}}
}

// row is satisfied by *sql.Row.
type row interface {
	Scan(dest ...any) error
}

// querier is what repositories run SQL against.
type querier interface {
	exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	queryRow(ctx context.Context, query string, args ...any) row
}

type poolQuerier struct {
	db *sql.DB
}

func (p poolQuerier) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.db.ExecContext(ctx, query, args...)
}

func (p poolQuerier) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return p.db.QueryContext(ctx, query, args...)
}

func (p poolQuerier) queryRow(ctx context.Context, query string, args ...any) row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// errRow is a row whose Scan always fails.
type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// mapError turns SQLite uniqueness failures into
// *repository.UniqueConstraintError and leaves everything else alone.
func mapError(err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &repository.UniqueConstraintError{Detail: sqliteErr.Error()}
		}
	}
	return err
}

// migrate creates the schema. Every statement is idempotent.
func (db *DB) migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.pool.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		google_id     TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL,
		display_name  TEXT NOT NULL,
		avatar_url    TEXT,
		is_active     INTEGER NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS websites (
		id             TEXT PRIMARY KEY,
		domain         TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		favicon_url    TEXT,
		bookmark_count INTEGER NOT NULL DEFAULT 0,
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS bookmarks (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		website_id       TEXT NOT NULL REFERENCES websites(id),
		category_id      TEXT,
		url              TEXT NOT NULL,
		title            TEXT,
		description      TEXT,
		og_title         TEXT,
		og_description   TEXT,
		og_image_url     TEXT,
		is_favorite      INTEGER NOT NULL DEFAULT 0,
		is_archived      INTEGER NOT NULL DEFAULT 0,
		access_count     INTEGER NOT NULL DEFAULT 0,
		last_accessed_at DATETIME,
		search_text      TEXT NOT NULL DEFAULT '',
		created_at       DATETIME NOT NULL,
		updated_at       DATETIME NOT NULL,
		deleted_at       DATETIME
	)`,
	// Soft-deleted rows do not block saving the same URL again.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookmarks_user_url
		ON bookmarks(user_id, url) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_bookmarks_user_created
		ON bookmarks(user_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS tags (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		slug        TEXT NOT NULL,
		color       TEXT,
		embedding   BLOB,
		usage_count INTEGER NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL,
		UNIQUE (user_id, slug)
	)`,

	`CREATE TABLE IF NOT EXISTS bookmark_tags (
		bookmark_id TEXT NOT NULL REFERENCES bookmarks(id) ON DELETE CASCADE,
		tag_id      TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (bookmark_id, tag_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookmark_tags_tag ON bookmark_tags(tag_id)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id)`,
}
