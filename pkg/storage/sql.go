// pkg/storage/sql.go
package storage

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// maxBindParams is PostgreSQL's limit on parameters per statement
const maxBindParams = 65535

// qualifiedName quotes a schema-qualified table name
func qualifiedName(schema, table string) string {
	if schema == "" {
		return pq.QuoteIdentifier(table)
	}
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

func quoteColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

// columnsQuery lists a table's columns in ordinal order. Names are matched
// case-insensitively because Snowflake stores unquoted identifiers in upper case.
const columnsQuery = `
	SELECT
		table_schema,
		table_name,
		column_name,
		data_type,
		is_nullable
	FROM
		information_schema.columns
	WHERE
		UPPER(table_schema) = UPPER(?) AND
		UPPER(table_name) = UPPER(?)
	ORDER BY
		ordinal_position
`

const tableExistsQuery = `
	SELECT COUNT(*)
	FROM information_schema.tables
	WHERE UPPER(table_schema) = UPPER(?) AND UPPER(table_name) = UPPER(?)
`

func selectSQL(schema, table string, columns []string) string {
	return fmt.Sprintf("SELECT %s FROM %s", quoteColumns(columns), qualifiedName(schema, table))
}

func countSQL(schema, table string) string {
	return "SELECT COUNT(*) FROM " + qualifiedName(schema, table)
}

func dropTableSQL(schema, table string) string {
	return "DROP TABLE IF EXISTS " + qualifiedName(schema, table)
}

func createTableSQL(schema, table string, columnDefs []string) string {
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)",
		qualifiedName(schema, table),
		strings.Join(columnDefs, ",\n\t"))
}

// insertSQL builds a multi-row INSERT with ? placeholders
func insertSQL(schema, table string, columns []string, rows int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	values := make([]string, rows)
	for i := range values {
		values[i] = row
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		qualifiedName(schema, table),
		quoteColumns(columns),
		strings.Join(values, ", "))
}

// updateSQL builds a single-row UPDATE keyed on keyColumn with ? placeholders; the key
// value binds last
func updateSQL(schema, table string, columns []string, keyColumn string) string {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = pq.QuoteIdentifier(c) + " = ?"
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		qualifiedName(schema, table),
		strings.Join(sets, ", "),
		pq.QuoteIdentifier(keyColumn))
}

// rowsPerStatement caps a batch so one INSERT stays under the bind parameter limit
func rowsPerStatement(batchSize, columns int) int {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if columns <= 0 {
		return batchSize
	}
	if limit := maxBindParams / columns; batchSize > limit {
		return limit
	}
	return batchSize
}
