package server

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// pgBeginner is the slice of pgxpool.Pool the stores need; tests substitute
// stub transactions through it.
type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
