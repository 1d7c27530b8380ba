package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

type recorded struct {
	query string
	args  []any
}

// fakeDriver records statements. Queries are answered from rows in order;
// execs report affected. Reference counts come from refCount, or match every
// requested id when it is nil.
type fakeDriver struct {
	execs    []recorded
	queries  []recorded
	rows     [][]any
	affected int64
	execErr  error
	refCount func(table string, ids []any) int64

	commits   int
	rollbacks int
}

func (d *fakeDriver) Exec(_ context.Context, query string, args, v any) error {
	d.execs = append(d.execs, recorded{query: query, args: args.([]any)})
	if d.execErr != nil {
		return d.execErr
	}
	if res, ok := v.(*sql.Result); ok {
		*res = driver.RowsAffected(d.affected)
	}
	return nil
}

func (d *fakeDriver) Query(_ context.Context, query string, args, v any) error {
	d.queries = append(d.queries, recorded{query: query, args: args.([]any)})
	rows, ok := v.(*entsql.Rows)
	if !ok {
		return fmt.Errorf("unexpected rows type %T", v)
	}
	answer := d.rows
	if strings.HasPrefix(query, "SELECT COUNT(*)") {
		answer = [][]any{{d.countRefs(query, args.([]any))}}
	}
	*rows = entsql.Rows{ColumnScanner: &fakeRows{rows: answer, pos: -1}}
	return nil
}

// countRefs answers the reference checks, whose first argument is the
// facility.
func (d *fakeDriver) countRefs(query string, args []any) int64 {
	ids := args[1:]
	if d.refCount == nil {
		return int64(len(ids))
	}
	_, rest, _ := strings.Cut(query, `FROM "`)
	table, _, _ := strings.Cut(rest, `"`)
	return d.refCount(table, ids)
}

func (d *fakeDriver) Tx(context.Context) (dialect.Tx, error) { return &fakeTx{d}, nil }
func (d *fakeDriver) Close() error                          { return nil }
func (d *fakeDriver) Dialect() string                       { return dialect.Postgres }

type fakeTx struct{ *fakeDriver }

func (t *fakeTx) Commit() error   { t.commits++; return nil }
func (t *fakeTx) Rollback() error { t.rollbacks++; return nil }

type fakeRows struct {
	rows [][]any
	pos  int
}

func (r *fakeRows) Close() error                            { return nil }
func (r *fakeRows) ColumnTypes() ([]*sql.ColumnType, error) { return nil, nil }
func (r *fakeRows) Columns() ([]string, error)              { return nil, nil }
func (r *fakeRows) Err() error                              { return nil }
func (r *fakeRows) NextResultSet() bool                     { return false }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		if sc, ok := d.(sql.Scanner); ok {
			if err := sc.Scan(row[i]); err != nil {
				return err
			}
			continue
		}
		if row[i] == nil {
			return errors.New("scan: NULL into non-nullable destination")
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}
