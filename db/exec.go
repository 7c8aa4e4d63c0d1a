package db

import (
	"context"
	"database/sql"
	"time"
)

// sqlConn is what *sql.DB and *sql.Tx have in common.
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// executor runs statements against a pool or a transaction: placeholders are
// rebound for the dialect, hooks wrap the driver call and driver errors come
// back mapped. DB and Tx each embed one.
type executor struct {
	conn    sqlConn
	dialect Dialect
	hooks   hookChain
	errMap  ErrorMapper
	// timeout is the default statement deadline; zero inside transactions,
	// whose context ExecTx has already bounded.
	timeout time.Duration
}

// Dialect reports the SQL dialect statements are rebound for.
func (e *executor) Dialect() Dialect { return e.dialect }

// Exec executes a statement that returns no rows. Queries are written with
// "?" placeholders.
func (e *executor) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	st := e.begin(ctx, query, args)
	defer st.cancel()

	res, err := e.conn.ExecContext(st.ctx, st.query, args...)
	err = e.mapErr(err)
	st.finish(err)
	return res, err
}

// Query executes a query that returns rows. The caller MUST close the rows;
// Close also releases the statement deadline.
func (e *executor) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	st := e.begin(ctx, query, args)

	rows, err := e.conn.QueryContext(st.ctx, st.query, args...)
	err = e.mapErr(err)
	st.finish(err)
	if err != nil {
		st.cancel()
		return nil, err
	}
	return &Rows{Rows: rows, cancel: st.cancel}, nil
}

// QueryRow executes a query expected to return at most one row. The driver
// reports failures at Scan, so hooks observe the statement when Scan returns.
// Row.Scan returns ErrNotFound when nothing matched.
func (e *executor) QueryRow(ctx context.Context, query string, args ...any) *Row {
	st := e.begin(ctx, query, args)
	return &Row{
		raw:    e.conn.QueryRowContext(st.ctx, st.query, args...),
		errMap: e.errMap,
		st:     st,
	}
}

// statement is one in-flight call: its bounded context, the rebound query and
// the bookkeeping the hooks need once the outcome is known.
type statement struct {
	ctx    context.Context
	cancel context.CancelFunc
	query  string
	args   []any
	start  time.Time
	hooks  hookChain
}

func (e *executor) begin(ctx context.Context, query string, args []any) *statement {
	ctx, cancel := e.withTimeout(ctx)
	query = e.dialect.Rebind(query)
	st := &statement{cancel: cancel, query: query, args: args, start: time.Now(), hooks: e.hooks}
	st.ctx = e.hooks.Before(ctx, query, args)
	return st
}

// finish reports the mapped outcome to the hooks.
func (s *statement) finish(err error) {
	s.hooks.After(s.ctx, s.query, s.args, time.Since(s.start), err)
}

// withTimeout applies the default deadline when ctx has none. The returned
// cancel func is always safe to call.
func (e *executor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout == 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *executor) mapErr(err error) error {
	if err == nil {
		return nil
	}
	return e.errMap.Map(err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Row / Rows
// ─────────────────────────────────────────────────────────────────────────────

// Row wraps *sql.Row and maps errors through the unified error mapper.
// Scan must be called exactly once; it completes the statement.
type Row struct {
	raw    *sql.Row
	errMap ErrorMapper
	st     *statement
}

// Scan copies columns from the matched row into dest values.
func (r *Row) Scan(dest ...any) error {
	defer r.st.cancel()

	err := r.raw.Scan(dest...)
	if err != nil {
		err = r.errMap.Map(err)
	}
	r.st.finish(err)
	return err
}

// Rows wraps *sql.Rows so that closing it also releases the statement
// deadline.
type Rows struct {
	*sql.Rows
	cancel context.CancelFunc
}

// Close closes the result set.
func (r *Rows) Close() error {
	err := r.Rows.Close()
	r.cancel()
	return err
}
