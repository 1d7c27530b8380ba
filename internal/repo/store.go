// Package repo is the Postgres persistence layer. Queries are built with the
// ent SQL builder and run on an ent dialect driver.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("repo: not found")
	// ErrInvalidReference is returned when a row points at a client, staff member
	// or service type that does not exist.
	ErrInvalidReference = errors.New("repo: invalid reference")
)

// Store runs every query of the application.
type Store struct {
	drv dialect.Driver
	b   *entsql.DialectBuilder
}

func New(drv dialect.Driver) *Store {
	return &Store{drv: drv, b: entsql.Dialect(dialect.Postgres)}
}

func (s *Store) Close() error {
	return s.drv.Close()
}

// querier is implemented by every ent builder.
type querier interface {
	Query() (string, []any)
}

func execQ(ctx context.Context, ex dialect.ExecQuerier, q querier) (int64, error) {
	query, args := q.Query()
	var res sql.Result
	if err := ex.Exec(ctx, query, args, &res); err != nil {
		return 0, mapError(err)
	}
	if res == nil {
		return 0, nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func queryQ(ctx context.Context, ex dialect.ExecQuerier, q querier, scan func(*entsql.Rows) error) error {
	query, args := q.Query()
	rows := &entsql.Rows{}
	if err := ex.Query(ctx, query, args, rows); err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func rollback(tx dialect.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		err = fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
	}
	return err
}

// withTx runs fn in a transaction, committing when it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		return rollback(tx, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Postgres error classes the store translates.
const (
	pqForeignKeyViolation = "23503"
	pqInvalidText         = "22P02"
)

func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrInvalidReference, pqErr.Constraint)
		case pqInvalidText:
			// a malformed uuid can never match a row
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Message)
		}
	}
	return err
}
