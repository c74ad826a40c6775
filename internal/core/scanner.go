package core

import (
	"database/sql"
	"fmt"
)

// Row is a single result row as a column-name to value map.
// Values carry the driver's native types, with []byte normalized to string.
type Row map[string]any

// Result is the outcome of one executed statement: the materialized rows (for
// rows-returning statements) and the row count. For SELECT/RETURNING
// statements RowCount equals len(Rows); for plain DML it is the
// affected-row count reported by the driver.
type Result struct {
	Rows     []Row
	RowCount int
}

// First returns the first row, or nil if the result is empty.
func (r *Result) First() Row {
	if len(r.Rows) == 0 {
		return nil
	}
	return r.Rows[0]
}

// scanResult drains rows into a Result.
func scanResult(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("scanner: failed to get columns: %w", err)
	}

	result := &Result{}
	for rows.Next() {
		values := make([]any, len(columns))
		scanDests := make([]any, len(columns))
		for i := range values {
			scanDests[i] = &values[i]
		}

		if err := rows.Scan(scanDests...); err != nil {
			return nil, fmt.Errorf("scanner: scan failed: %w", err)
		}

		rowMap := make(Row, len(columns))
		for i, col := range columns {
			rowMap[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanner: rows iteration failed: %w", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// normalizeValue converts driver byte slices to strings so map values are
// comparable and JSON-friendly. lib/pq reports text columns as []byte.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
