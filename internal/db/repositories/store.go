// Package repositories implements the tenancy persistence surface over
// database/sql. One aggregate Store covers every entity the orchestrators
// touch; Begin returns the same Store bound to an open transaction, so the
// per-entity methods in the other files of this package run identically on
// *sql.DB and *sql.Tx.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atriumhq/atrium/internal/tenancy"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store is the production implementation of tenancy.Persistence.
type Store struct {
	db *sql.DB
	q  querier
}

// NewStore creates a store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Begin opens a transaction and returns a store bound to it.
func (s *Store) Begin(ctx context.Context) (tenancy.TxStore, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store is already transaction-bound")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &txStore{Store: Store{q: tx}, tx: tx}, nil
}

// txStore is a Store bound to one open transaction.
type txStore struct {
	Store
	tx *sql.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

var _ tenancy.Persistence = (*Store)(nil)
var _ tenancy.TxStore = (*txStore)(nil)
