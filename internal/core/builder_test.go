package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuilder(table string) *QueryBuilder {
	return newBuilder(nil, Descriptor{Table: table, PrimaryKey: "id", KeyStrategy: KeySerial}, nil)
}

func uuidBuilder(table string) *QueryBuilder {
	return newBuilder(nil, Descriptor{Table: table, PrimaryKey: "id", KeyStrategy: KeyUUID}, nil)
}

// TestWhere_Scalar tests equality conditions from a field map.
func TestWhere_Scalar(t *testing.T) {
	qb := testBuilder("users").Where(map[string]any{"status": "active"})

	query, params := qb.buildSelect(nil)
	assert.Equal(t, `SELECT * FROM "users" WHERE "status" = $1`, query)
	assert.Equal(t, []any{"active"}, params)
}

// TestWhere_SortedKeys tests that map conditions render in sorted key order.
func TestWhere_SortedKeys(t *testing.T) {
	qb := testBuilder("users").Where(map[string]any{
		"name":   "Alice",
		"email":  "alice@example.com",
		"active": true,
	})

	query, params := qb.buildSelect(nil)
	assert.Equal(t, `SELECT * FROM "users" WHERE "active" = $1 AND "email" = $2 AND "name" = $3`, query)
	assert.Equal(t, []any{true, "alice@example.com", "Alice"}, params)
}

// TestWhere_Null tests nil values rendering as IS NULL without a placeholder.
func TestWhere_Null(t *testing.T) {
	qb := testBuilder("users").Where(map[string]any{"deleted_at": nil})

	query, params := qb.buildSelect(nil)
	assert.Equal(t, `SELECT * FROM "users" WHERE "deleted_at" IS NULL`, query)
	assert.Empty(t, params)
}

// TestWhere_In tests slice values expanding to one placeholder per element.
func TestWhere_In(t *testing.T) {
	qb := testBuilder("users").Where(map[string]any{"id": []int{1, 2, 3}})

	query, params := qb.buildSelect(nil)
	assert.Equal(t, `SELECT * FROM "users" WHERE "id" IN ($1, $2, $3)`, query)
	assert.Equal(t, []any{1, 2, 3}, params)
}

// TestWhere_EmptySlice tests that an empty IN list renders an always-false condition.
func TestWhere_EmptySlice(t *testing.T) {
	qb := testBuilder("users").Where(map[string]any{"id": []int{}})

	query, params := qb.buildSelect(nil)
	assert.Equal(t, `SELECT * FROM "users" WHERE 0=1`, query)
	assert.Empty(t, params)
}

// TestWhere_SuccessiveCalls tests that separate Where calls AND together in call order.
func TestWhere_SuccessiveCalls(t *testing.T) {
	qb := testBuilder("orders").
		Where(map[string]any{"status": "paid"}).
		Where(map[string]any{"region": "eu"})

	query, params := qb.buildSelect(nil)
	assert.Equal(t, `SELECT * FROM "orders" WHERE "status" = $1 AND "region" = $2`, query)
	assert.Equal(t, []any{"paid", "eu"}, params)
}

// TestWhereRaw_Mixed verifies placeholder numbering across mixed map and raw
// conditions: values are numbered left-to-right in the order conditions were added.
func TestWhereRaw_Mixed(t *testing.T) {
	qb := testBuilder("products").
		WhereRaw("price > ?", 100).
		Where(map[string]any{"category": "tools"}).
		WhereRaw("discontinued_at IS NULL")

	query, params := qb.buildSelect(nil)
	assert.Equal(t,
		`SELECT * FROM "products" WHERE price > $1 AND "category" = $2 AND discontinued_at IS NULL`,
		query)
	assert.Equal(t, []any{100, "tools"}, params)
}

// TestSelect_FullClauseOrder tests WHERE / ORDER BY / LIMIT / OFFSET rendering order.
func TestSelect_FullClauseOrder(t *testing.T) {
	qb := testBuilder("posts").
		Where(map[string]any{"published": true}).
		OrderBy("created_at", Desc).
		Limit(10).
		Offset(20)

	query, params := qb.buildSelect([]string{"id", "title"})
	assert.Equal(t,
		`SELECT id, title FROM "posts" WHERE "published" = $1 ORDER BY "created_at" DESC LIMIT 10 OFFSET 20`,
		query)
	assert.Equal(t, []any{true}, params)
}

// TestOrderBy_Overwrite tests that a later OrderBy replaces the earlier one.
func TestOrderBy_Overwrite(t *testing.T) {
	qb := testBuilder("posts").
		OrderBy("title", Asc).
		OrderBy("created_at", Desc)

	query, _ := qb.buildSelect(nil)
	assert.Equal(t, `SELECT * FROM "posts" ORDER BY "created_at" DESC`, query)
}

// TestOrderByColumns_DefaultDirection tests multi-column ordering with the
// unspecified direction defaulting to ascending.
func TestOrderByColumns_DefaultDirection(t *testing.T) {
	qb := testBuilder("posts").OrderByColumns([]OrderSpec{
		{Column: "category"},
		{Column: "created_at", Direction: Desc},
	})

	query, _ := qb.buildSelect(nil)
	assert.Equal(t, `SELECT * FROM "posts" ORDER BY "category" ASC, "created_at" DESC`, query)
}

// TestLimitOffset_NegativeUnsets tests that negative values unset the clause.
func TestLimitOffset_NegativeUnsets(t *testing.T) {
	qb := testBuilder("posts").Limit(5).Offset(10).Limit(-1).Offset(-1)

	query, _ := qb.buildSelect(nil)
	assert.Equal(t, `SELECT * FROM "posts"`, query)
}

// TestLimit_Zero tests that LIMIT 0 renders (valid PostgreSQL).
func TestLimit_Zero(t *testing.T) {
	qb := testBuilder("posts").Limit(0)

	query, _ := qb.buildSelect(nil)
	assert.Equal(t, `SELECT * FROM "posts" LIMIT 0`, query)
}

// TestBuildInsert_Serial tests INSERT rendering with sorted columns and RETURNING.
func TestBuildInsert_Serial(t *testing.T) {
	qb := testBuilder("products")

	query, params := qb.buildInsert(map[string]any{
		"name":  "Laptop",
		"price": 999.99,
	})
	assert.Equal(t, `INSERT INTO "products" (name, price) VALUES ($1, $2) RETURNING *`, query)
	assert.Equal(t, []any{"Laptop", 999.99}, params)
}

// TestBuildInsert_GeneratedIdentifier tests client-side UUID injection when
// the key strategy is generated-identifier and no key was supplied.
func TestBuildInsert_GeneratedIdentifier(t *testing.T) {
	data := map[string]any{"name": "Laptop", "price": 999.99}
	qb := uuidBuilder("products")

	query, params := qb.buildInsert(data)
	assert.Equal(t, `INSERT INTO "products" (id, name, price) VALUES ($1, $2, $3) RETURNING *`, query)
	require.Len(t, params, 3)

	id, ok := params[0].(string)
	require.True(t, ok)
	_, err := uuid.Parse(id)
	assert.NoError(t, err, "generated key must be a valid UUID")

	// Caller's map is not mutated.
	_, present := data["id"]
	assert.False(t, present)
}

// TestBuildInsert_ExplicitIdentifier tests that a caller-supplied key wins
// over generation.
func TestBuildInsert_ExplicitIdentifier(t *testing.T) {
	qb := uuidBuilder("products")

	query, params := qb.buildInsert(map[string]any{
		"id":   "11111111-2222-4333-8444-555555555555",
		"name": "Laptop",
	})
	assert.Equal(t, `INSERT INTO "products" (id, name) VALUES ($1, $2) RETURNING *`, query)
	assert.Equal(t, []any{"11111111-2222-4333-8444-555555555555", "Laptop"}, params)
}

// TestBuildUpdate_Numbering verifies the core numbering invariant: SET
// placeholders take 1..N and WHERE markers continue after them, so the
// combined parameter list is [setValues..., whereValues...].
func TestBuildUpdate_Numbering(t *testing.T) {
	qb := testBuilder("users").
		WhereRaw("login_count > ?", 5).
		Where(map[string]any{"region": "eu"})

	query, params := qb.buildUpdate(map[string]any{
		"name":  "Alice",
		"email": "alice@example.com",
	})
	assert.Equal(t,
		`UPDATE "users" SET email = $1, name = $2 WHERE login_count > $3 AND "region" = $4 RETURNING *`,
		query)
	assert.Equal(t, []any{"alice@example.com", "Alice", 5, "eu"}, params)
}

// TestBuildUpdate_NoWhere tests that the builder permits a full-table update;
// the mapper layer owns that safety gate.
func TestBuildUpdate_NoWhere(t *testing.T) {
	qb := testBuilder("users")

	query, params := qb.buildUpdate(map[string]any{"status": "archived"})
	assert.Equal(t, `UPDATE "users" SET status = $1 RETURNING *`, query)
	assert.Equal(t, []any{"archived"}, params)
}

// TestBuildDelete_RequiresWhere tests the builder's own safety invariant.
func TestBuildDelete_RequiresWhere(t *testing.T) {
	qb := testBuilder("users")

	_, _, err := qb.buildDelete()
	assert.ErrorIs(t, err, ErrMissingWhere)
}

// TestBuildDelete_WithWhere tests DELETE rendering.
func TestBuildDelete_WithWhere(t *testing.T) {
	qb := testBuilder("users").Where(map[string]any{"id": 1})

	query, params, err := qb.buildDelete()
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users" WHERE "id" = $1`, query)
	assert.Equal(t, []any{1}, params)
}

// TestBuildCount tests COUNT rendering with and without conditions.
func TestBuildCount(t *testing.T) {
	query, params := testBuilder("users").buildCount()
	assert.Equal(t, `SELECT COUNT(*) FROM "users"`, query)
	assert.Empty(t, params)

	query, params = testBuilder("users").Where(map[string]any{"active": true}).buildCount()
	assert.Equal(t, `SELECT COUNT(*) FROM "users" WHERE "active" = $1`, query)
	assert.Equal(t, []any{true}, params)
}

// TestWhere_PlaceholderCountMatchesParams tests the invariant that rendered
// placeholder count equals the parameter list length for mixed conditions.
func TestWhere_PlaceholderCountMatchesParams(t *testing.T) {
	qb := testBuilder("items").
		Where(map[string]any{
			"kind":       []string{"a", "b"},
			"deleted_at": nil,
			"owner":      7,
		}).
		WhereRaw("weight BETWEEN ? AND ?", 1, 10)

	query, params := qb.buildSelect(nil)
	assert.Len(t, params, 5)
	for i := 1; i <= 5; i++ {
		assert.Contains(t, query, placeholder(i))
	}
	assert.NotContains(t, query, "?")
	assert.NotContains(t, query, "$6")
}
