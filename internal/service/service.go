// Package service holds the business rules of the API. It sits between the
// HTTP handlers and the repositories:
//
//	handler (HTTP) → service (rules, transactions) → repository (SQL)
//
// Services never read requests or write responses. They take the caller as
// an auth.Principal and return either a value or an *apperror.AppError that
// the handler turns into an envelope. Anything else they return is an
// internal failure and becomes a 500.
//
// ERROR TRANSLATION:
// Repositories report two things services care about: ErrNotFound for a
// mutation that matched no row, and ErrUniqueViolation for a write that
// broke a uniqueness rule. Services turn those into domain codes
// (BOOKMARK_ALREADY_EXISTS, TAG_NOT_FOUND, ...) and wrap anything else with
// the operation that failed.
//
// OWNERSHIP:
// Every lookup of a bookmark or tag is scoped to the caller. A row owned by
// someone else is reported exactly like a missing row, so ids cannot be
// discovered across accounts.
//
// CONCURRENCY:
// There is no application-level locking. Find-or-create paths (websites,
// users) rely on the database's unique indexes; when two requests race, the
// loser sees a unique violation and the request fails rather than retrying.
package service

import (
	"github.com/tobimarks/tobimarks-api/internal/repository"
)

// Store is the persistence surface a service needs: repositories bound to
// the shared pool for single statements, and units of work for anything
// that must happen atomically. *sqlite.DB satisfies it.
type Store interface {
	repository.Repositories
	repository.UnitOfWorkFactory
}

// Pagination is the meta block returned with paged lists.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paging defaults.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// normalizePage clamps page and perPage into their valid ranges.
func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

func newPagination(page, perPage, total int) Pagination {
	pages := 0
	if total > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: pages}
}
