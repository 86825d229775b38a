// Package postgres provides a PostgreSQL client with connection pooling
// and OpenTelemetry tracing for the TOSCA platform services.
//
// The client wraps pgxpool. Connection retry for transient failures is
// handled by the pool itself: failed connections are replaced and the
// health check period keeps the pool healthy, so callers do not need
// connection-level retry logic.
//
// Create a client with [NewClient]:
//
//	cfg := postgres.DefaultConfig()
//	cfg.Password = postgres.Secret(os.Getenv("POSTGRES_PASSWORD"))
//	client, err := postgres.NewClient(ctx, *cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// For testing, inject a mock pool with [NewFromPool]:
//
//	mock, _ := pgxmock.NewPool()
//	client := postgres.NewFromPool(mock, &postgres.Config{Database: "testdb"})
//
// All operations create OpenTelemetry spans with standard database
// semantic attributes (db.system, db.name, db.statement). Statements are
// truncated in spans so bound values never reach the telemetry backend.
package postgres

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for this
// package.
const tracerName = "github.com/tosca-platform/tosca-core/pkg/clients/postgres"

// Pool defines the interface for PostgreSQL connection pool operations.
// It is satisfied by [*pgxpool.Pool] and by pgxmock, enabling dependency
// injection via [NewFromPool] for unit testing without a real database.
//
// All methods follow the pgx v5 API signatures exactly.
type Pool interface {
	// Query executes a SQL query that returns rows.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)

	// QueryRow executes a SQL query that returns at most one row.
	// Errors are deferred until the returned pgx.Row is scanned.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row

	// Exec executes a SQL statement that does not return rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// Begin starts a new database transaction.
	Begin(ctx context.Context) (pgx.Tx, error)

	// Ping verifies the connection to the database is alive.
	Ping(ctx context.Context) error

	// Close releases all pool resources.
	Close()
}

// Compile-time check that *pgxpool.Pool satisfies Pool.
var _ Pool = (*pgxpool.Pool)(nil)

// Client is a PostgreSQL client with connection pooling, OpenTelemetry
// tracing, and structured error handling. It is safe for concurrent use;
// create one Client per database and share it across the application.
type Client struct {
	pool         Pool
	config       *Config
	tracer       trace.Tracer
	databaseName string
}

// NewClient creates a PostgreSQL client, establishes the connection pool,
// and verifies connectivity with a ping. The caller must call
// [Client.Close] when done.
//
// Error codes returned:
//   - [tcerr.CodeValidation]: invalid configuration
//   - [tcerr.CodeUnavailableDependency]: cannot connect to the database
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, tcerr.Wrap(err, tcerr.CodeValidation,
			"postgres: invalid configuration")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, tcerr.Wrap(err, tcerr.CodeValidation,
			"postgres: failed to parse connection string")
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, tcerr.Wrap(err, tcerr.CodeUnavailableDependency,
			"postgres: failed to create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, tcerr.Wrap(err, tcerr.CodeUnavailableDependency,
			"postgres: failed to connect to database")
	}

	// Extract the database name for span attributes.
	dbName := cfg.Database
	if cfg.URI != "" {
		if u, parseErr := url.Parse(cfg.URI); parseErr == nil {
			dbName = strings.TrimPrefix(u.Path, "/")
		}
	}

	return &Client{
		pool:         pool,
		config:       &cfg,
		tracer:       otel.Tracer(tracerName),
		databaseName: dbName,
	}, nil
}

// NewFromPool creates a Client around a pre-existing [Pool]. Intended for
// tests with mock pools (pgxmock) and for callers that manage the pool
// themselves. The cfg parameter is stored but not validated; pass nil for
// a zero-value config.
func NewFromPool(pool Pool, cfg *Config) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Client{
		pool:         pool,
		config:       cfg,
		tracer:       otel.Tracer(tracerName),
		databaseName: cfg.Database,
	}
}

// Query executes a SQL query that returns rows. The returned [pgx.Rows]
// must be closed by the caller.
//
// Errors are wrapped as [*tcerr.Error]:
//   - [tcerr.CodeTimeoutDatabase] if the context deadline is exceeded
//   - [tcerr.CodeInternalDatabase] for other database errors
func (c *Client) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	ctx, span := c.startSpan(ctx, "Query", sql)

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		finishSpan(span, err)
		return nil, wrapError(err, "postgres: query failed")
	}
	// Row-level errors surface during iteration, not here.
	finishSpan(span, nil)
	return rows, nil
}

// QueryRow executes a SQL query that returns at most one row. The
// returned [pgx.Row] is never nil; errors are deferred until Scan. The
// span covers only the query dispatch, since pgx reports errors at scan
// time.
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, span := c.startSpan(ctx, "QueryRow", sql)
	defer span.End()

	return c.pool.QueryRow(ctx, sql, args...)
}

// Exec executes a SQL statement that does not return rows (INSERT,
// UPDATE, DELETE, DDL) and returns the command tag.
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	ctx, span := c.startSpan(ctx, "Exec", sql)

	tag, err := c.pool.Exec(ctx, sql, args...)
	finishSpan(span, err)
	if err != nil {
		return tag, wrapError(err, "postgres: exec failed")
	}
	return tag, nil
}

// Begin starts a database transaction. Callers must commit or roll back;
// deferring tx.Rollback(ctx) right after Begin is the recommended
// pattern, as Rollback on a committed transaction is a no-op in pgx.
func (c *Client) Begin(ctx context.Context) (pgx.Tx, error) {
	ctx, span := c.startSpan(ctx, "Begin", "BEGIN")

	tx, err := c.pool.Begin(ctx)
	finishSpan(span, err)
	if err != nil {
		return nil, wrapError(err, "postgres: begin transaction failed")
	}
	return tx, nil
}

// Health verifies that the database is reachable with a ping, applying
// [DefaultHealthTimeout] when the provided context has no deadline.
// Designed for health endpoints and readiness probes.
func (c *Client) Health(ctx context.Context) error {
	ctx, span := c.startSpan(ctx, "Health", "SELECT 1")

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	err := c.pool.Ping(ctx)
	finishSpan(span, err)
	if err != nil {
		return tcerr.Wrap(err, tcerr.CodeUnavailableDependency,
			"postgres: health check failed")
	}
	return nil
}

// Close releases all connection pool resources. Safe to call multiple
// times; the client must not be used afterwards.
func (c *Client) Close() {
	c.pool.Close()
}

// Pool returns the underlying [Pool] for operations not covered by the
// Client's methods (CopyFrom, SendBatch, raw connection acquisition).
// Do not close the returned pool directly; use [Client.Close].
func (c *Client) Pool() Pool {
	return c.pool
}

// startSpan creates a span with database client semantic attributes.
func (c *Client) startSpan(ctx context.Context, operationName, sql string) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "postgres."+operationName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.name", c.databaseName),
		attribute.String("db.statement", truncateSQL(sql)),
	)
	return ctx, span
}

// finishSpan records an error on the span (if any) and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// wrapError converts a database error to a platform [*tcerr.Error],
// distinguishing timeout/cancellation from other failures so callers can
// make retry decisions via [tcerr.IsTimeout] and [tcerr.IsRetryable].
func wrapError(err error, message string) *tcerr.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return tcerr.Wrap(err, tcerr.CodeTimeoutDatabase, message)
	}
	return tcerr.Wrap(err, tcerr.CodeInternalDatabase, message)
}
