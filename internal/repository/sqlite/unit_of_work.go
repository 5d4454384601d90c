package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tobimarks/tobimarks-api/internal/repository"
)

var _ repository.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork holds one pooled connection for the lifetime of one
// transaction. It is not safe for concurrent use; each request builds its
// own via DB.NewUnitOfWork.
//
// Lifecycle:
//
//	idle --Begin--> active --Commit/Rollback--> released
//
// The connection goes back to the pool on Commit or Rollback whether or not
// the statement succeeds.
type UnitOfWork struct {
	db       *DB
	conn     *sql.Conn
	tx       *sql.Tx
	released bool
}

// Begin acquires a connection, unless one is already held, and starts the
// transaction.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.released {
		return repository.ErrReleased
	}
	if u.tx != nil {
		return repository.ErrTransactionActive
	}

	if u.conn == nil {
		conn, err := u.db.Acquire(ctx)
		if err != nil {
			return err
		}
		u.conn = conn
	}

	tx, err := u.conn.BeginTx(ctx, nil)
	if err != nil {
		relErr := u.release()
		return errors.Join(fmt.Errorf("sqlite: beginning transaction: %w", err), relErr)
	}
	u.tx = tx
	return nil
}

// Commit commits the active transaction and releases the connection.
func (u *UnitOfWork) Commit() error {
	return u.finish("committing", (*sql.Tx).Commit)
}

// Rollback aborts the active transaction and releases the connection.
func (u *UnitOfWork) Rollback() error {
	return u.finish("rolling back", (*sql.Tx).Rollback)
}

func (u *UnitOfWork) finish(action string, end func(*sql.Tx) error) error {
	if u.tx == nil {
		return repository.ErrNoActiveTransaction
	}

	tx := u.tx
	u.tx = nil

	var endErr error
	if err := end(tx); err != nil {
		endErr = fmt.Errorf("sqlite: %s transaction: %w", action, err)
	}
	return errors.Join(endErr, u.release())
}

func (u *UnitOfWork) release() error {
	u.released = true
	if u.conn == nil {
		return nil
	}
	conn := u.conn
	u.conn = nil
	if err := conn.Close(); err != nil {
		return fmt.Errorf("sqlite: releasing connection: %w", err)
	}
	return nil
}

// Active reports whether a transaction is open.
func (u *UnitOfWork) Active() bool {
	return u.tx != nil
}

func (u *UnitOfWork) Users() repository.UserRepository       { return &UserRepo{q: u} }
func (u *UnitOfWork) Websites() repository.WebsiteRepository { return &WebsiteRepo{q: u} }
func (u *UnitOfWork) Bookmarks() repository.BookmarkRepository {
	return &BookmarkRepo{q: u}
}
func (u *UnitOfWork) Tags() repository.TagRepository { return &TagRepo{q: u} }
func (u *UnitOfWork) RefreshTokens() repository.RefreshTokenRepository {
	return &RefreshTokenRepo{q: u}
}

// The querier methods run on the transaction and fail when none is open.

func (u *UnitOfWork) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if u.tx == nil {
		return nil, repository.ErrNoActiveTransaction
	}
	return u.tx.ExecContext(ctx, query, args...)
}

func (u *UnitOfWork) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if u.tx == nil {
		return nil, repository.ErrNoActiveTransaction
	}
	return u.tx.QueryContext(ctx, query, args...)
}

func (u *UnitOfWork) queryRow(ctx context.Context, query string, args ...any) row {
	if u.tx == nil {
		return errRow{err: repository.ErrNoActiveTransaction}
	}
	return u.tx.QueryRowContext(ctx, query, args...)
}
