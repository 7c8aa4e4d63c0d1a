package db

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Hook
// ─────────────────────────────────────────────────────────────────────────────

// Hook runs around every statement. BeforeQuery may derive a new context
// (for example to carry a tracing span); AfterQuery receives that context.
//
// Implementations must be goroutine-safe. Panics inside a hook are recovered
// and logged.
type Hook interface {
	BeforeQuery(ctx context.Context, query string, args []any) context.Context

	// AfterQuery gets the wall-clock time spent in the driver and the already
	// mapped error (nil on success). For QueryRow it runs when Row.Scan
	// returns, with the error Scan reports.
	AfterQuery(ctx context.Context, query string, args []any, duration time.Duration, err error)
}

// hookChain runs hooks in registration order.
type hookChain []Hook

func newHookChain(hooks []Hook) hookChain {
	var c hookChain
	for _, h := range hooks {
		if h != nil {
			c = append(c, h)
		}
	}
	return c
}

func (c hookChain) Before(ctx context.Context, query string, args []any) context.Context {
	for _, h := range c {
		guard("BeforeQuery", func() {
			if next := h.BeforeQuery(ctx, query, args); next != nil {
				ctx = next
			}
		})
	}
	return ctx
}

func (c hookChain) After(ctx context.Context, query string, args []any, d time.Duration, err error) {
	for _, h := range c {
		guard("AfterQuery", func() { h.AfterQuery(ctx, query, args, d, err) })
	}
}

// guard keeps a misbehaving hook from taking the statement down with it.
func guard(phase string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("memberdir/db: hook panic", "phase", phase, "panic", r)
		}
	}()
	fn()
}

// ─────────────────────────────────────────────────────────────────────────────
// Logging hook
// ─────────────────────────────────────────────────────────────────────────────

// LogHookConfig configures the structured logging hook.
type LogHookConfig struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// SlowQueryThreshold logs a warning above this duration; zero disables it.
	SlowQueryThreshold time.Duration
	// LogArgs includes bound parameters. Member rows carry emails, so keep
	// this off outside development.
	LogArgs bool
}

// NewLogHook returns a Hook that emits one slog record per statement:
// failures at error level, statements above the slow threshold at warn and
// everything else at debug. Not-found lookups are not failures.
func NewLogHook(cfg LogHookConfig) Hook {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return AfterFunc(func(ctx context.Context, query string, args []any, d time.Duration, err error) {
		level, msg := slog.LevelDebug, "memberdir/db: query"
		switch {
		case err != nil && !IsNotFound(err):
			level, msg = slog.LevelError, "memberdir/db: query error"
		case cfg.SlowQueryThreshold > 0 && d > cfg.SlowQueryThreshold:
			level, msg = slog.LevelWarn, "memberdir/db: slow query"
		}
		if !logger.Enabled(ctx, level) {
			return
		}

		attrs := make([]slog.Attr, 0, 4)
		attrs = append(attrs, slog.String("query", trimQuery(query)), slog.Duration("duration", d))
		if cfg.LogArgs && len(args) > 0 {
			attrs = append(attrs, slog.Any("args", args))
		}
		if level == slog.LevelError {
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.LogAttrs(ctx, level, msg, attrs...)
	})
}

// AfterFunc adapts a plain function to a Hook that only observes completed
// statements.
type AfterFunc func(ctx context.Context, query string, args []any, d time.Duration, err error)

// BeforeQuery implements Hook.
func (f AfterFunc) BeforeQuery(ctx context.Context, _ string, _ []any) context.Context { return ctx }

// AfterQuery implements Hook.
func (f AfterFunc) AfterQuery(ctx context.Context, query string, args []any, d time.Duration, err error) {
	f(ctx, query, args, d, err)
}

const maxLoggedQuery = 500

func trimQuery(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	if len(q) > maxLoggedQuery {
		return q[:maxLoggedQuery] + "…"
	}
	return q
}

// ─────────────────────────────────────────────────────────────────────────────
// Metrics hook
// ─────────────────────────────────────────────────────────────────────────────

// MetricsCollector receives one observation per statement.
type MetricsCollector interface {
	RecordQuery(query string, duration time.Duration, success bool)
}

// NewMetricsHook reports every statement to collector. Not-found lookups
// count as successful statements.
func NewMetricsHook(collector MetricsCollector) Hook {
	return AfterFunc(func(_ context.Context, query string, _ []any, d time.Duration, err error) {
		collector.RecordQuery(query, d, err == nil || IsNotFound(err))
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Tracing hook
// ─────────────────────────────────────────────────────────────────────────────

// Tracer opens a span before a statement and closes it afterwards.
type Tracer interface {
	// StartSpan returns a context carrying the new span.
	StartSpan(ctx context.Context, query string) context.Context
	// EndSpan finishes the span carried by ctx.
	EndSpan(ctx context.Context, err error)
}

// NewTracingHook opens a span in BeforeQuery and ends it in AfterQuery.
func NewTracingHook(t Tracer) Hook { return spanHook{t} }

type spanHook struct{ Tracer }

func (h spanHook) BeforeQuery(ctx context.Context, query string, _ []any) context.Context {
	return h.StartSpan(ctx, query)
}

func (h spanHook) AfterQuery(ctx context.Context, _ string, _ []any, _ time.Duration, err error) {
	h.EndSpan(ctx, err)
}

// StatementVerb returns the leading SQL keyword of query in upper case
// ("SELECT", "INSERT", ...). Metrics and span names use it to keep label
// cardinality bounded.
func StatementVerb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}
