package repository

import (
	"context"
	"errors"
	"fmt"
)

// Unit-of-work state errors.
var (
	ErrTransactionActive   = errors.New("transaction already active")
	ErrNoActiveTransaction = errors.New("no active transaction")
	ErrReleased            = errors.New("unit of work already released")
)

// UnitOfWork binds one transaction to one pooled connection.
//
// Begin starts the transaction. Commit and Rollback end it and always
// hand the connection back to the pool, after which the instance is
// unusable. There is no nesting.
type UnitOfWork interface {
	Repositories
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
}

// UnitOfWorkFactory creates a fresh UnitOfWork per logical operation.
type UnitOfWorkFactory interface {
	NewUnitOfWork() UnitOfWork
}

// WithinTransaction runs fn inside a new unit of work. The transaction is
// committed when fn returns nil and rolled back otherwise, including when
// fn panics.
func WithinTransaction(ctx context.Context, factory UnitOfWorkFactory, fn func(Repositories) error) (err error) {
	uow := factory.NewUnitOfWork()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = uow.Rollback()
			panic(p)
		}
	}()

	if err := fn(uow); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ErrUniqueViolation matches any *UniqueConstraintError.
var ErrUniqueViolation = errors.New("unique constraint violated")

// UniqueConstraintError is returned by repositories when a write breaks a
// uniqueness rule. Detail is the database's own description, for logs.
type UniqueConstraintError struct {
	Detail string
}

func (e *UniqueConstraintError) Error() string {
	if e.Detail == "" {
		return ErrUniqueViolation.Error()
	}
	return ErrUniqueViolation.Error() + ": " + e.Detail
}

func (e *UniqueConstraintError) Is(target error) bool {
	return target == ErrUniqueViolation
}
