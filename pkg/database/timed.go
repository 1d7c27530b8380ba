package database

import (
	"context"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
)

// timedDriver logs each statement with its duration, at warn when it ran
// longer than threshold.
type timedDriver struct {
	dialect.Driver
	threshold time.Duration
}

func (d *timedDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	logStatement(ctx, query, time.Since(start), d.threshold, err)
	return err
}

func (d *timedDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	logStatement(ctx, query, time.Since(start), d.threshold, err)
	return err
}

func (d *timedDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &timedTx{Tx: tx, threshold: d.threshold}, nil
}

type timedTx struct {
	dialect.Tx
	threshold time.Duration
}

func (t *timedTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := t.Tx.Exec(ctx, query, args, v)
	logStatement(ctx, query, time.Since(start), t.threshold, err)
	return err
}

func (t *timedTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := t.Tx.Query(ctx, query, args, v)
	logStatement(ctx, query, time.Since(start), t.threshold, err)
	return err
}

func logStatement(ctx context.Context, query string, took, threshold time.Duration, err error) {
	level := slog.LevelDebug
	msg := "sql statement"
	switch {
	case err != nil:
		level = slog.LevelWarn
		msg = "sql statement failed"
	case took > threshold:
		level = slog.LevelWarn
		msg = "slow sql statement"
	}
	slog.Log(ctx, level, msg, "query", query, "duration_ms", took.Milliseconds(), "err", err)
}
