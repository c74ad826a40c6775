package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
)

// KeyStrategy selects how a model's primary key is produced.
type KeyStrategy int

const (
	// KeySerial leaves key generation to the database (auto-increment).
	KeySerial KeyStrategy = iota
	// KeyUUID generates a random UUIDv4 client-side on insert when the caller
	// supplies none.
	KeyUUID
)

// Descriptor is the per-model table metadata: table name, primary-key column,
// and key-generation strategy. Immutable once the model is registered and
// shared read-only by every operation on that model.
type Descriptor struct {
	Table       string
	PrimaryKey  string
	KeyStrategy KeyStrategy
}

// Model binds a Descriptor to a Pool and turns declarative calls into builder
// operations. Register one Model per record type at startup and share it; the
// Model itself holds no per-operation state.
type Model struct {
	pool *Pool
	name string
	desc Descriptor
}

// ModelOption configures a Model at registration time.
type ModelOption func(*Model)

// WithTable overrides the derived table name.
func WithTable(table string) ModelOption {
	return func(m *Model) {
		m.desc.Table = table
	}
}

// WithPrimaryKey overrides the primary-key column name (default "id").
func WithPrimaryKey(column string) ModelOption {
	return func(m *Model) {
		m.desc.PrimaryKey = column
	}
}

// WithKeyStrategy sets the key-generation strategy (default KeySerial).
func WithKeyStrategy(s KeyStrategy) ModelOption {
	return func(m *Model) {
		m.desc.KeyStrategy = s
	}
}

// NewModel registers a record type. When no table name is given it derives
// one by lower-casing the type name and appending "s" — deliberately naive,
// irregular plurals need WithTable.
func NewModel(pool *Pool, name string, opts ...ModelOption) *Model {
	m := &Model{
		pool: pool,
		name: name,
		desc: Descriptor{PrimaryKey: "id", KeyStrategy: KeySerial},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.desc.Table == "" {
		m.desc.Table = strings.ToLower(name) + "s"
	}
	return m
}

// Name returns the registered type name.
func (m *Model) Name() string { return m.name }

// Descriptor returns the model's table metadata.
func (m *Model) Descriptor() Descriptor { return m.desc }

// Options carries the optional pieces of a mapper operation: a filter,
// ordering, pagination, and the transaction to run inside of.
type Options struct {
	Where   map[string]any
	OrderBy []OrderSpec
	Limit   int // applied when > 0
	Offset  int // applied when > 0
	Tx      *Tx
}

// first returns the leading options value, or nil.
func first(opts []*Options) *Options {
	if len(opts) > 0 {
		return opts[0]
	}
	return nil
}

// builder constructs a query builder for this model, pinned to the options'
// transaction when one is set, with filter/ordering/pagination applied.
func (m *Model) builder(opts *Options) *QueryBuilder {
	var conn *sql.Conn
	if opts != nil && opts.Tx != nil {
		conn = opts.Tx.Conn()
	}
	qb := newBuilder(m.pool, m.desc, conn)
	if opts != nil {
		if len(opts.Where) > 0 {
			qb.Where(opts.Where)
		}
		if len(opts.OrderBy) > 0 {
			qb.OrderByColumns(opts.OrderBy)
		}
		if opts.Limit > 0 {
			qb.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			qb.Offset(opts.Offset)
		}
	}
	return qb
}

// wrap materializes a result row as a record of this model.
func (m *Model) wrap(row Row) *Record {
	if row == nil {
		return nil
	}
	return &Record{model: m, fields: row}
}

// Find fetches one record by primary key. Returns nil when no row matched.
func (m *Model) Find(ctx context.Context, id any, opts ...*Options) (*Record, error) {
	qb := m.builder(first(opts))
	row, err := qb.Where(map[string]any{m.desc.PrimaryKey: id}).First(ctx)
	if err != nil {
		return nil, err
	}
	return m.wrap(row), nil
}

// FindAll fetches every record matching the options' filter, ordering and
// pagination.
func (m *Model) FindAll(ctx context.Context, opts ...*Options) ([]*Record, error) {
	rows, err := m.builder(first(opts)).Select(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]*Record, len(rows))
	for i, row := range rows {
		records[i] = m.wrap(row)
	}
	return records, nil
}

// FindOne is FindAll limited to one row. Returns nil when nothing matched.
func (m *Model) FindOne(ctx context.Context, opts ...*Options) (*Record, error) {
	row, err := m.builder(first(opts)).First(ctx)
	if err != nil {
		return nil, err
	}
	return m.wrap(row), nil
}

// Create inserts data and returns the persisted record including
// server-assigned and generated fields. Generated-identifier keys are
// produced inside the builder.
func (m *Model) Create(ctx context.Context, data map[string]any, opts ...*Options) (*Record, error) {
	var conn *sql.Conn
	if o := first(opts); o != nil && o.Tx != nil {
		conn = o.Tx.Conn()
	}
	row, err := newBuilder(m.pool, m.desc, conn).Insert(ctx, data)
	if err != nil {
		return nil, err
	}
	return m.wrap(row), nil
}

// Update applies data to every record matching opts.Where and returns the
// updated records. Fails with ErrMissingWhere when no filter is given; a
// full-table update must go through the builder deliberately.
func (m *Model) Update(ctx context.Context, data map[string]any, opts *Options) ([]*Record, error) {
	if opts == nil || len(opts.Where) == 0 {
		return nil, ErrMissingWhere
	}
	rows, err := m.builder(opts).Update(ctx, data)
	if err != nil {
		return nil, err
	}
	records := make([]*Record, len(rows))
	for i, row := range rows {
		records[i] = m.wrap(row)
	}
	return records, nil
}

// Delete removes every record matching opts.Where and returns the affected
// count. Fails with ErrMissingWhere when no filter is given.
func (m *Model) Delete(ctx context.Context, opts *Options) (int, error) {
	if opts == nil || len(opts.Where) == 0 {
		return 0, ErrMissingWhere
	}
	return m.builder(opts).Delete(ctx)
}

// Count returns the number of records matching the optional filter.
func (m *Model) Count(ctx context.Context, filter map[string]any, opts ...*Options) (int64, error) {
	qb := m.builder(first(opts))
	if len(filter) > 0 {
		qb.Where(filter)
	}
	return qb.Count(ctx)
}

// Raw passes SQL straight through to the pool and returns unmapped rows. Raw
// results may not match the model's columns, so no records are constructed.
func (m *Model) Raw(ctx context.Context, query string, params []any, opts ...*Options) (*Result, error) {
	var conn *sql.Conn
	if o := first(opts); o != nil && o.Tx != nil {
		conn = o.Tx.Conn()
	}
	return m.pool.Query(ctx, conn, query, params...)
}

// NewRecord constructs an unpersisted record from initial field values. The
// map is copied; the caller keeps ownership of data.
func (m *Model) NewRecord(data map[string]any) *Record {
	fields := make(Row, len(data))
	for k, v := range data {
		fields[k] = v
	}
	return &Record{model: m, fields: fields}
}

// Record is one row of a model as a mutable column→value bag. A record with
// no primary-key value has not been persisted yet.
type Record struct {
	model  *Model
	fields Row
}

// Get returns a field value.
func (r *Record) Get(column string) any {
	return r.fields[column]
}

// Set assigns a field value.
func (r *Record) Set(column string, value any) {
	r.fields[column] = value
}

// PrimaryKey returns the record's primary-key value, or nil when unset.
func (r *Record) PrimaryKey() any {
	return r.fields[r.model.desc.PrimaryKey]
}

// persisted reports whether the primary-key field carries a value.
func (r *Record) persisted() bool {
	v, ok := r.fields[r.model.desc.PrimaryKey]
	return ok && v != nil
}

// Save persists the record: an update keyed on the primary key when it is
// set, an insert otherwise. Every returned column is copied back onto the
// record, picking up generated keys, defaults and timestamps.
func (r *Record) Save(ctx context.Context, opts ...*Options) error {
	var conn *sql.Conn
	if o := first(opts); o != nil && o.Tx != nil {
		conn = o.Tx.Conn()
	}
	qb := newBuilder(r.model.pool, r.model.desc, conn)

	if !r.persisted() {
		data := make(map[string]any, len(r.fields))
		for k, v := range r.fields {
			data[k] = v
		}
		row, err := qb.Insert(ctx, data)
		if err != nil {
			return err
		}
		r.absorb(row)
		return nil
	}

	pk := r.model.desc.PrimaryKey
	data := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		if k != pk {
			data[k] = v
		}
	}
	rows, err := qb.Where(map[string]any{pk: r.fields[pk]}).Update(ctx, data)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		r.absorb(rows[0])
	}
	return nil
}

// absorb copies a returned row's columns onto the record.
func (r *Record) absorb(row Row) {
	for k, v := range row {
		r.fields[k] = v
	}
}

// Delete removes the record by primary key and reports whether a row was
// actually removed. Fails with ErrNotPersisted when the key is unset.
func (r *Record) Delete(ctx context.Context, opts ...*Options) (bool, error) {
	if !r.persisted() {
		return false, ErrNotPersisted
	}
	var conn *sql.Conn
	if o := first(opts); o != nil && o.Tx != nil {
		conn = o.Tx.Conn()
	}
	qb := newBuilder(r.model.pool, r.model.desc, conn)
	count, err := qb.Where(map[string]any{r.model.desc.PrimaryKey: r.PrimaryKey()}).Delete(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ToJSON returns a shallow snapshot of the record's data fields.
func (r *Record) ToJSON() map[string]any {
	snapshot := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		snapshot[k] = v
	}
	return snapshot
}

// MarshalJSON serializes the record as its field snapshot.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}
