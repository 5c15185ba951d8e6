package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx used by the session store.
// *pgxpool.Pool and pgxmock pools both satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var ErrUnavailable = errors.New("postgres unavailable")

// Unavailable is a Querier that fails every call with ErrUnavailable.
// It stands in for the pool when Postgres could not be reached at startup.
type Unavailable struct{}

func (Unavailable) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, ErrUnavailable
}

func (Unavailable) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, ErrUnavailable
}

func (Unavailable) QueryRow(context.Context, string, ...any) pgx.Row {
	return unavailableRow{}
}

type unavailableRow struct{}

func (unavailableRow) Scan(...any) error { return ErrUnavailable }
