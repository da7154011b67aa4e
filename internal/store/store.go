// Package store is the pgx-backed persistence layer: users, the vaccine
// inventory ledger, the availability registry and the appointment ledger.
// The contended operations (dose decrement, slot claim) are single
// conditional statements so concurrent callers never see a read-modify-write
// gap.
package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
