// Package tolcan is a minimal active-record persistence layer for PostgreSQL.
// It provides a fluent query builder that renders parameterized SQL ($1, $2,
// ...), map-backed record models with find/create/update/delete/save
// lifecycles, and explicit transactions over a pinned pool connection.
package tolcan

import (
	"github.com/tolgabayrakdev/tolcan/internal/core"
	"github.com/tolgabayrakdev/tolcan/internal/logger"
	"github.com/tolgabayrakdev/tolcan/internal/tracer"
)

type (
	// Config holds PostgreSQL connection settings.
	Config = core.Config
	// Pool is the connection provider owning the physical pool.
	Pool = core.Pool
	// Option is a functional option for configuring a Pool.
	Option = core.Option
	// QueryBuilder constructs parameterized SQL fluently.
	QueryBuilder = core.QueryBuilder
	// OrderSpec is a single (column, direction) ordering pair.
	OrderSpec = core.OrderSpec
	// Tx is a transaction over one pinned connection.
	Tx = core.Tx
	// Model binds a table descriptor to builder operations.
	Model = core.Model
	// ModelOption configures a Model at registration time.
	ModelOption = core.ModelOption
	// Descriptor is per-model table metadata.
	Descriptor = core.Descriptor
	// KeyStrategy selects how primary keys are produced.
	KeyStrategy = core.KeyStrategy
	// Options carries the optional pieces of a mapper operation.
	Options = core.Options
	// Record is one row of a model as a mutable column→value bag.
	Record = core.Record
	// Row is a single result row as a column→value map.
	Row = core.Row
	// Result is the outcome of one executed statement.
	Result = core.Result

	// Logger is the structured logging interface.
	Logger = logger.Logger
	// Tracer starts spans around database statements.
	Tracer = tracer.Tracer
)

// Key-generation strategies.
const (
	KeySerial = core.KeySerial
	KeyUUID   = core.KeyUUID
)

// Sort directions.
const (
	Asc  = core.Asc
	Desc = core.Desc
)

// Re-export core functions.
var (
	NewPool  = core.NewPool
	WrapPool = core.WrapPool
	NewModel = core.NewModel

	WithLogger            = core.WithLogger
	WithTracer            = core.WithTracer
	WithStmtCacheCapacity = core.WithStmtCacheCapacity

	WithTable       = core.WithTable
	WithPrimaryKey  = core.WithPrimaryKey
	WithKeyStrategy = core.WithKeyStrategy

	NewSlogAdapter = logger.NewSlogAdapter
	NewOtelTracer  = tracer.NewOtelTracer

	WrapError = core.WrapError
)

// Predefined errors.
var (
	ErrNoRows       = core.ErrNoRows
	ErrPoolClosed   = core.ErrPoolClosed
	ErrMissingWhere = core.ErrMissingWhere
	ErrTxDone       = core.ErrTxDone
	ErrNotPersisted = core.ErrNotPersisted
)
