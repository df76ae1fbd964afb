// Package services holds the business logic behind every HTTP operation.
package services

import (
	"context"
	"errors"
	"time"

	"cinema/internal/apperr"
	"cinema/internal/repositories"
)

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListParams are the pagination and date filters shared by list operations.
type ListParams struct {
	Skip      int
	Limit     int
	StartDate time.Time
	EndDate   time.Time
}

func (p ListParams) page() repositories.Page {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	skip := p.Skip
	if skip < 0 {
		skip = 0
	}
	return repositories.Page{Offset: skip, Limit: limit}
}

func (p ListParams) dates() repositories.DateRange {
	return repositories.DateRange{From: p.StartDate, To: p.EndDate}
}

// notFoundAs maps a repository miss to the given domain error.
func notFoundAs(err error, appErr *apperr.Error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return appErr
	}
	return err
}
