package pgx

import (
	"context"

	"github.com/arloliu/sqltrace"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the statement-execution surface the traced wrapper covers.
// *pgx.Conn, pgx.Tx, and *pgxpool.Pool all satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// TracedQuerier annotates every statement with the active trace context
// via [sqltrace.AddComment] before delegating to the underlying querier.
// It is the pgx counterpart of wrapping a driver's cursor: annotation
// happens once, at execution time, using the context the caller passes in.
type TracedQuerier struct {
	q    Querier
	opts []sqltrace.Option
}

// Wrap returns a TracedQuerier around q. Options are forwarded to
// AddComment on every call, so a custom propagator set here matches one
// set on the notice handler.
func Wrap(q Querier, opts ...sqltrace.Option) *TracedQuerier {
	return &TracedQuerier{q: q, opts: opts}
}

// Exec annotates sql and executes it.
func (t *TracedQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.q.Exec(ctx, sqltrace.AddComment(ctx, sql, t.opts...), args...)
}

// Query annotates sql and executes it, returning the rows.
func (t *TracedQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.q.Query(ctx, sqltrace.AddComment(ctx, sql, t.opts...), args...)
}

// QueryRow annotates sql and executes it, returning a single row.
func (t *TracedQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.q.QueryRow(ctx, sqltrace.AddComment(ctx, sql, t.opts...), args...)
}

// SendBatch annotates every query queued in b, then sends the batch. The
// queued SQL is rewritten in place.
func (t *TracedQuerier) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	for _, q := range b.QueuedQueries {
		q.SQL = sqltrace.AddComment(ctx, q.SQL, t.opts...)
	}

	return t.q.SendBatch(ctx, b)
}

// Unwrap returns the underlying querier.
func (t *TracedQuerier) Unwrap() Querier {
	return t.q
}
