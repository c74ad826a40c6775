package core

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Sort directions for OrderBy.
const (
	Asc  = "ASC"
	Desc = "DESC"
)

// OrderSpec is a single (column, direction) ordering pair.
// An empty Direction means ascending.
type OrderSpec struct {
	Column    string
	Direction string
}

// QueryBuilder accumulates filter, ordering, pagination and mutation intent
// and renders it into parameterized PostgreSQL text. A builder belongs to a
// single logical call chain: construct one per operation, never share it.
//
// WHERE conditions are stored as fragments with portable `?` markers and a
// parallel parameter list; markers are renumbered to $1, $2, ... once at
// render time. For UPDATE the SET values are numbered first and the WHERE
// markers continue after them, so the combined parameter list is always
// [setValues..., whereValues...] in left-to-right order.
type QueryBuilder struct {
	pool *Pool
	conn *sql.Conn // pinned connection, nil for pooled execution
	desc Descriptor

	where  []string
	params []any
	order  []OrderSpec
	limit  *int
	offset *int
}

// newBuilder constructs a builder bound to the pool, table descriptor, and
// optional pinned connection.
func newBuilder(pool *Pool, desc Descriptor, conn *sql.Conn) *QueryBuilder {
	return &QueryBuilder{pool: pool, desc: desc, conn: conn}
}

// Table returns a builder for a bare table with the default descriptor
// (primary key "id", auto-increment strategy).
func (p *Pool) Table(table string) *QueryBuilder {
	return newBuilder(p, Descriptor{Table: table, PrimaryKey: "id", KeyStrategy: KeySerial}, nil)
}

// Table returns a builder whose statements run on the transaction's pinned
// connection.
func (tx *Tx) Table(table string) *QueryBuilder {
	return newBuilder(tx.pool, Descriptor{Table: table, PrimaryKey: "id", KeyStrategy: KeySerial}, tx.conn)
}

// Where adds one condition per map entry, ANDed with any previous conditions.
// Keys are sorted so generated SQL is deterministic. Value handling:
//
//	nil value    → column IS NULL
//	slice value  → column IN (...), one placeholder per element
//	scalar value → column = ?
//
// An empty slice renders the always-false condition 0=1.
func (qb *QueryBuilder) Where(conditions map[string]any) *QueryBuilder {
	keys := make([]string, 0, len(conditions))
	for k := range conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fragment, values := buildCondition(key, conditions[key])
		qb.where = append(qb.where, fragment)
		qb.params = append(qb.params, values...)
	}
	return qb
}

// WhereRaw appends a raw SQL fragment as one condition. The fragment uses `?`
// placeholder markers; any supplied params are appended to the parameter list
// in order. The fragment is renumbered together with every other condition at
// render time, for all terminal operations alike.
func (qb *QueryBuilder) WhereRaw(fragment string, params ...any) *QueryBuilder {
	qb.where = append(qb.where, fragment)
	qb.params = append(qb.params, params...)
	return qb
}

// buildCondition renders one field→value pair into a fragment and its values.
func buildCondition(column string, value any) (string, []any) {
	col := quoteIdentifier(column)

	if value == nil {
		return col + " IS NULL", nil
	}

	rv := reflect.ValueOf(value)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type() != reflect.TypeOf([]byte(nil)) {
		n := rv.Len()
		if n == 0 {
			return "0=1", nil
		}
		values := make([]any, n)
		for i := 0; i < n; i++ {
			values[i] = rv.Index(i).Interface()
		}
		return col + " IN (" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")", values
	}

	return col + " = ?", []any{value}
}

// OrderBy sets a single-column ordering, overwriting any previous ordering.
func (qb *QueryBuilder) OrderBy(column, direction string) *QueryBuilder {
	qb.order = []OrderSpec{{Column: column, Direction: direction}}
	return qb
}

// OrderByColumns sets a multi-column ordering, overwriting any previous
// ordering. An unspecified direction defaults to ascending.
func (qb *QueryBuilder) OrderByColumns(specs []OrderSpec) *QueryBuilder {
	qb.order = specs
	return qb
}

// Limit sets the LIMIT clause. A negative value unsets it.
func (qb *QueryBuilder) Limit(n int) *QueryBuilder {
	if n < 0 {
		qb.limit = nil
		return qb
	}
	qb.limit = &n
	return qb
}

// Offset sets the OFFSET clause. A negative value unsets it.
func (qb *QueryBuilder) Offset(n int) *QueryBuilder {
	if n < 0 {
		qb.offset = nil
		return qb
	}
	qb.offset = &n
	return qb
}

// whereClause renders accumulated conditions starting placeholder numbering
// at start. Returns the empty string when no condition was set.
func (qb *QueryBuilder) whereClause(start int) string {
	if len(qb.where) == 0 {
		return ""
	}
	clause := " WHERE " + strings.Join(qb.where, " AND ")
	return numberPlaceholders(clause, start, len(qb.params))
}

// tailClauses renders ORDER BY / LIMIT / OFFSET.
func (qb *QueryBuilder) tailClauses() string {
	var b strings.Builder

	if len(qb.order) > 0 {
		parts := make([]string, len(qb.order))
		for i, spec := range qb.order {
			dir := strings.ToUpper(spec.Direction)
			if dir != Desc {
				dir = Asc
			}
			parts[i] = quoteIdentifier(spec.Column) + " " + dir
		}
		b.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if qb.limit != nil {
		b.WriteString(" LIMIT " + strconv.Itoa(*qb.limit))
	}
	if qb.offset != nil {
		b.WriteString(" OFFSET " + strconv.Itoa(*qb.offset))
	}
	return b.String()
}

// buildSelect renders the SELECT statement and its parameters.
func (qb *QueryBuilder) buildSelect(cols []string) (string, []any) {
	colList := "*"
	if len(cols) > 0 {
		colList = strings.Join(cols, ", ")
	}
	query := "SELECT " + colList + " FROM " + quoteIdentifier(qb.desc.Table) +
		qb.whereClause(1) + qb.tailClauses()
	return query, qb.params
}

// Select executes the accumulated query and returns unmapped rows.
func (qb *QueryBuilder) Select(ctx context.Context, cols ...string) ([]Row, error) {
	query, params := qb.buildSelect(cols)
	result, err := qb.pool.Query(ctx, qb.conn, query, params...)
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// First executes the query with LIMIT 1 and returns the first row, or nil
// when nothing matched.
func (qb *QueryBuilder) First(ctx context.Context, cols ...string) (Row, error) {
	rows, err := qb.Limit(1).Select(ctx, cols...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// buildInsert renders the INSERT statement. When the descriptor uses
// generated-identifier keys and data carries no primary-key value, a fresh
// UUIDv4 is injected before rendering. The caller's map is not mutated.
func (qb *QueryBuilder) buildInsert(data map[string]any) (string, []any) {
	values := make(map[string]any, len(data)+1)
	for k, v := range data {
		values[k] = v
	}
	if qb.desc.KeyStrategy == KeyUUID {
		if _, ok := values[qb.desc.PrimaryKey]; !ok {
			values[qb.desc.PrimaryKey] = uuid.NewString()
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	placeholders := make([]string, len(keys))
	params := make([]any, len(keys))
	for i, col := range keys {
		placeholders[i] = placeholder(i + 1)
		params[i] = values[col]
	}

	query := "INSERT INTO " + quoteIdentifier(qb.desc.Table) +
		" (" + strings.Join(keys, ", ") + ")" +
		" VALUES (" + strings.Join(placeholders, ", ") + ")" +
		" RETURNING *"
	return query, params
}

// Insert executes an INSERT ... RETURNING * and returns the persisted row,
// including server-assigned and generated fields.
func (qb *QueryBuilder) Insert(ctx context.Context, data map[string]any) (Row, error) {
	query, params := qb.buildInsert(data)
	result, err := qb.pool.Query(ctx, qb.conn, query, params...)
	if err != nil {
		return nil, err
	}
	return result.First(), nil
}

// buildUpdate renders the UPDATE statement. SET placeholders take 1..N; WHERE
// markers are renumbered to continue after them, so the combined parameter
// list is [setValues..., whereValues...].
func (qb *QueryBuilder) buildUpdate(data map[string]any) (string, []any) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	setClauses := make([]string, len(keys))
	params := make([]any, 0, len(keys)+len(qb.params))
	for i, col := range keys {
		setClauses[i] = col + " = " + placeholder(i+1)
		params = append(params, data[col])
	}

	query := "UPDATE " + quoteIdentifier(qb.desc.Table) +
		" SET " + strings.Join(setClauses, ", ") +
		qb.whereClause(len(keys)+1) +
		" RETURNING *"
	params = append(params, qb.params...)
	return query, params
}

// Update executes the UPDATE and returns every updated row. An empty WHERE is
// permitted here and updates all rows; the mapper layer carries the safety
// gate for that case.
func (qb *QueryBuilder) Update(ctx context.Context, data map[string]any) ([]Row, error) {
	query, params := qb.buildUpdate(data)
	result, err := qb.pool.Query(ctx, qb.conn, query, params...)
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// buildDelete renders the DELETE statement.
func (qb *QueryBuilder) buildDelete() (string, []any, error) {
	if len(qb.where) == 0 {
		return "", nil, ErrMissingWhere
	}
	query := "DELETE FROM " + quoteIdentifier(qb.desc.Table) + qb.whereClause(1)
	return query, qb.params, nil
}

// Delete executes the DELETE and returns the affected-row count. Fails with
// ErrMissingWhere when no condition has been set.
func (qb *QueryBuilder) Delete(ctx context.Context) (int, error) {
	query, params, err := qb.buildDelete()
	if err != nil {
		return 0, err
	}
	result, err := qb.pool.Exec(ctx, qb.conn, query, params...)
	if err != nil {
		return 0, err
	}
	return result.RowCount, nil
}

// buildCount renders the COUNT statement.
func (qb *QueryBuilder) buildCount() (string, []any) {
	query := "SELECT COUNT(*) FROM " + quoteIdentifier(qb.desc.Table) + qb.whereClause(1)
	return query, qb.params
}

// Count executes SELECT COUNT(*) and returns the matching row count.
func (qb *QueryBuilder) Count(ctx context.Context) (int64, error) {
	query, params := qb.buildCount()
	result, err := qb.pool.Query(ctx, qb.conn, query, params...)
	if err != nil {
		return 0, err
	}
	row := result.First()
	if row == nil {
		return 0, ErrNoRows
	}
	for _, v := range row {
		return toInt64(v)
	}
	return 0, ErrNoRows
}

// Raw bypasses all accumulated state and executes the given SQL directly
// against the builder's binding (pool or pinned connection).
func (qb *QueryBuilder) Raw(ctx context.Context, query string, params ...any) (*Result, error) {
	return qb.pool.Query(ctx, qb.conn, query, params...)
}

// toInt64 converts a scanned count value to int64.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
