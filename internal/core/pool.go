// Package core provides the persistence core: connection pooling, query
// building, record mapping, and transaction management for tolcan.
package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/tolgabayrakdev/tolcan/internal/cache"
	"github.com/tolgabayrakdev/tolcan/internal/logger"
	"github.com/tolgabayrakdev/tolcan/internal/tracer"
)

// Config holds PostgreSQL connection settings.
// Database, User and Password are required; everything else has a default.
type Config struct {
	Host     string // default "localhost"
	Port     int    // default 5432
	Database string
	User     string
	Password string
	SSL      bool // default off (sslmode=disable)

	PoolMax        int           // max open connections, default 20
	IdleTimeout    time.Duration // max idle time per connection, default 30s
	ConnectTimeout time.Duration // dial timeout, default 2s
}

// withDefaults fills unset optional fields.
func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.PoolMax == 0 {
		c.PoolMax = 20
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 30 * time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 2 * time.Second
	}
	return c
}

// validate checks required fields.
func (c Config) validate() error {
	if c.Database == "" {
		return fmt.Errorf("config: Database is required")
	}
	if c.User == "" {
		return fmt.Errorf("config: User is required")
	}
	if c.Password == "" {
		return fmt.Errorf("config: Password is required")
	}
	return nil
}

// dsn renders the lib/pq keyword/value connection string.
func (c Config) dsn() string {
	sslmode := "disable"
	if c.SSL {
		sslmode = "require"
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d",
		c.Host, c.Port, c.Database, c.User, c.Password, sslmode,
		int(c.ConnectTimeout.Seconds()),
	)
}

// Pool is the connection provider. It owns the physical *sql.DB, prepares and
// caches statements for pooled execution, and hands out pinned connections
// for transactional work. A Pool is an explicitly owned value: construct it
// with NewPool, pass it to models and builders, and Close it on shutdown.
type Pool struct {
	db        *sql.DB
	stmtCache *cache.StmtCache
	logger    logger.Logger
	sanitizer *logger.Sanitizer
	tracer    tracer.Tracer
	closed    bool
}

// Option is a functional option for configuring a Pool.
type Option func(*Pool)

// WithLogger sets the structured logger used for statement logging.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		p.logger = l
	}
}

// WithTracer sets the tracer used to emit a span per executed statement.
func WithTracer(t tracer.Tracer) Option {
	return func(p *Pool) {
		p.tracer = t
	}
}

// WithStmtCacheCapacity sets the prepared statement cache capacity.
func WithStmtCacheCapacity(capacity int) Option {
	return func(p *Pool) {
		p.stmtCache = cache.NewStmtCacheWithCapacity(capacity)
	}
}

// NewPool opens a PostgreSQL connection pool from the given config.
func NewPool(cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	db, err := sql.Open("postgres", cfg.dsn())
	if err != nil {
		return nil, WrapError(err, "pool: open")
	}
	db.SetMaxOpenConns(cfg.PoolMax)
	db.SetConnMaxIdleTime(cfg.IdleTimeout)

	return WrapPool(db, opts...), nil
}

// WrapPool wraps an existing *sql.DB in a Pool. The caller keeps ownership of
// nothing: Close closes the wrapped handle. Used by tests to wrap a mock
// driver, and by applications that configure database/sql themselves.
func WrapPool(db *sql.DB, opts ...Option) *Pool {
	p := &Pool{
		db:        db,
		stmtCache: cache.NewStmtCache(),
		logger:    &logger.NoopLogger{},
		sanitizer: logger.NewSanitizer(nil),
		tracer:    &tracer.NoopTracer{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close releases all pool resources. A second Close returns ErrPoolClosed.
func (p *Pool) Close() error {
	if p.closed {
		return ErrPoolClosed
	}
	p.closed = true
	p.stmtCache.Clear()
	return p.db.Close()
}

// Acquire checks a single physical connection out of the pool. The caller
// must hand it back through Release exactly once.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	if p.closed {
		return nil, ErrPoolClosed
	}
	return p.db.Conn(ctx)
}

// Release returns a pinned connection to the pool.
func (p *Pool) Release(conn *sql.Conn) error {
	return conn.Close()
}

// Query runs a rows-returning statement and scans every row into a Row map.
// When pinned is non-nil the statement runs on that connection, so it
// participates in whatever session state (transaction) the connection holds.
// Pooled statements are prepared through the statement cache.
func (p *Pool) Query(ctx context.Context, pinned *sql.Conn, query string, params ...any) (*Result, error) {
	if p.closed {
		return nil, ErrPoolClosed
	}

	ctx, span := p.tracer.StartSpan(ctx, "tolcan.query")
	defer span.End()

	start := time.Now()
	rows, err := p.queryRows(ctx, pinned, query, params)
	if err != nil {
		p.logFailure(query, params, err, time.Since(start))
		p.traceStatement(span, query, params, time.Since(start), 0, err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result, err := scanResult(rows)
	elapsed := time.Since(start)
	if err != nil {
		p.logFailure(query, params, err, elapsed)
		p.traceStatement(span, query, params, elapsed, 0, err)
		return nil, err
	}

	p.logSuccess(query, params, elapsed, result.RowCount)
	p.traceStatement(span, query, params, elapsed, int64(result.RowCount), nil)
	return result, nil
}

// Exec runs a statement for its side effect and reports the affected-row
// count. Used for statements with no RETURNING clause.
func (p *Pool) Exec(ctx context.Context, pinned *sql.Conn, query string, params ...any) (*Result, error) {
	if p.closed {
		return nil, ErrPoolClosed
	}

	ctx, span := p.tracer.StartSpan(ctx, "tolcan.exec")
	defer span.End()

	start := time.Now()
	var (
		res sql.Result
		err error
	)
	if pinned != nil {
		res, err = pinned.ExecContext(ctx, query, params...)
	} else {
		var stmt *sql.Stmt
		stmt, err = p.prepare(ctx, query)
		if err == nil {
			res, err = stmt.ExecContext(ctx, params...)
		}
	}
	elapsed := time.Since(start)

	if err != nil {
		p.logFailure(query, params, err, elapsed)
		p.traceStatement(span, query, params, elapsed, 0, err)
		return nil, err
	}

	affected, _ := res.RowsAffected()
	p.logSuccess(query, params, elapsed, int(affected))
	p.traceStatement(span, query, params, elapsed, affected, nil)
	return &Result{RowCount: int(affected)}, nil
}

// queryRows routes a rows-returning statement to the pinned connection or the
// cached-statement pooled path.
func (p *Pool) queryRows(ctx context.Context, pinned *sql.Conn, query string, params []any) (*sql.Rows, error) {
	if pinned != nil {
		// Pinned connections bypass the statement cache: a cached *sql.Stmt
		// is bound to the pool, not to a single session.
		return pinned.QueryContext(ctx, query, params...)
	}
	stmt, err := p.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	return stmt.QueryContext(ctx, params...)
}

// prepare returns a cached prepared statement, preparing and caching on miss.
func (p *Pool) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := p.stmtCache.Get(query); ok {
		return stmt, nil
	}
	stmt, err := p.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	p.stmtCache.Set(query, stmt)
	return stmt, nil
}

func (p *Pool) logSuccess(query string, params []any, elapsed time.Duration, rowCount int) {
	masked := p.sanitizer.FormatParams(p.sanitizer.MaskParams(query, params))
	p.logger.Info("statement executed",
		"sql", query,
		"params", masked,
		"duration_ms", elapsed.Milliseconds(),
		"rows", rowCount,
	)
}

func (p *Pool) logFailure(query string, params []any, err error, elapsed time.Duration) {
	masked := p.sanitizer.FormatParams(p.sanitizer.MaskParams(query, params))
	p.logger.Error("statement failed",
		"sql", query,
		"params", masked,
		"duration_ms", elapsed.Milliseconds(),
		"error", err,
	)
}

func (p *Pool) traceStatement(span tracer.Span, query string, params []any, elapsed time.Duration, rows int64, err error) {
	tracer.AddQueryAttributes(span, &tracer.QueryMetadata{
		SQL:          query,
		Args:         params,
		Duration:     elapsed,
		RowsAffected: rows,
		Error:        err,
		Database:     "postgres",
		Operation:    tracer.DetectOperation(query),
	})
}
