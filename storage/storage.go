// Package storage implements Postgres persistence for all entities via sqlx.
// Each repository owns the SQL for one table; services compose them.
package storage

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store aggregates all repositories over a single connection pool.
type Store struct {
	db *sqlx.DB

	Users       *UserRepo
	Bans        *BanRepo
	Offers      *OfferRepo
	Submissions *SubmissionRepo
	Help        *HelpRepo
	Counters    *CounterRepo
}

// New builds the repository set over db.
func New(db *sqlx.DB) *Store {
	return &Store{
		db:          db,
		Users:       &UserRepo{db: db},
		Bans:        &BanRepo{db: db},
		Offers:      &OfferRepo{db: db},
		Submissions: &SubmissionRepo{db: db},
		Help:        &HelpRepo{db: db},
		Counters:    &CounterRepo{db: db},
	}
}

// Ping verifies database connectivity with a short deadline.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}
