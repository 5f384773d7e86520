// pkg/storage/table.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/connector"
	"github.com/David-Botos/data-cleaning/pkg/converter"
	"github.com/David-Botos/data-cleaning/pkg/model"
)

// WriteMode controls what happens to an existing table on write
type WriteMode string

const (
	// WriteCreateOrReplace drops and recreates the table from the dataset's columns
	WriteCreateOrReplace WriteMode = "create_or_replace"
	// WriteAppend inserts into the table, creating it when absent
	WriteAppend WriteMode = "append"
	// WriteUpdate updates existing rows matched on a key column; see UpdateRows
	WriteUpdate WriteMode = "update"
)

// ParseWriteMode validates a write mode name
func ParseWriteMode(name string) (WriteMode, error) {
	switch WriteMode(strings.ToLower(strings.TrimSpace(name))) {
	case WriteCreateOrReplace, "":
		return WriteCreateOrReplace, nil
	case WriteAppend:
		return WriteAppend, nil
	case WriteUpdate:
		return WriteUpdate, nil
	default:
		return "", &model.ConfigurationError{
			Option: "write_mode",
			Value:  name,
			Reason: "expected create_or_replace, append or update",
		}
	}
}

// ErrTableNotFound is returned when a table has no columns in information_schema
var ErrTableNotFound = errors.New("table not found")

// TableStore reads datasets from and writes datasets to relational tables
type TableStore struct {
	conn      connector.DatabaseConnector
	converter *converter.TypeConverter
	batchSize int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewTableStore creates a TableStore over a connector
func NewTableStore(conn connector.DatabaseConnector, tc *converter.TypeConverter, batchSize int, logger *zap.Logger) *TableStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tc == nil {
		tc = converter.NewTypeConverter(logger)
	}
	return &TableStore{
		conn:      conn,
		converter: tc,
		batchSize: batchSize,
		timeout:   5 * time.Minute,
		logger:    logger.Named("table-store"),
	}
}

// WithTimeout sets the per-statement timeout
func (s *TableStore) WithTimeout(timeout time.Duration) *TableStore {
	s.timeout = timeout
	return s
}

type tableRef struct {
	schema  string
	table   string
	columns []model.Column
}

// describe resolves a table's stored name and columns
func (s *TableStore) describe(ctx context.Context, schema, table string) (*tableRef, error) {
	db := s.conn.DB()
	ref := &tableRef{}

	err := s.conn.QueryWithTimeout(ctx, db.Rebind(columnsQuery), s.timeout, func(rows *sqlx.Rows) error {
		var (
			name       string
			dataType   string
			isNullable string
		)
		if err := rows.Scan(&ref.schema, &ref.table, &name, &dataType, &isNullable); err != nil {
			return fmt.Errorf("failed to scan column: %w", err)
		}
		ref.columns = append(ref.columns, model.Column{
			Name:     name,
			Type:     converter.ColumnTypeFromSQL(dataType),
			DataType: dataType,
			Nullable: strings.EqualFold(isNullable, "YES"),
		})
		return nil
	}, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s.%s: %w", schema, table, err)
	}
	if len(ref.columns) == 0 {
		return nil, fmt.Errorf("%s.%s: %w", schema, table, ErrTableNotFound)
	}
	return ref, nil
}

// TableColumns returns a table's columns with their logical types
func (s *TableStore) TableColumns(ctx context.Context, schema, table string) ([]model.Column, error) {
	ref, err := s.describe(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	return ref.columns, nil
}

// ReadTable loads a whole table into a dataset named after the table
func (s *TableStore) ReadTable(ctx context.Context, schema, table string) (*model.Dataset, error) {
	ref, err := s.describe(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	ds := model.NewDataset(table, ref.columns)
	names := ds.ColumnNames()

	err = s.conn.QueryWithTimeout(ctx, selectSQL(ref.schema, ref.table, names), s.timeout, func(rows *sqlx.Rows) error {
		raw := make(map[string]interface{}, len(names))
		if err := rows.MapScan(raw); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(model.Row, len(ref.columns))
		for _, col := range ref.columns {
			row[col.Name] = normalizeCell(raw[col.Name], col)
		}
		ds.Rows = append(ds.Rows, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s.%s: %w", schema, table, err)
	}

	s.logger.Info("Read table",
		zap.String("schema", ref.schema),
		zap.String("table", ref.table),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", len(ds.Columns)))
	return ds, nil
}

// normalizeCell maps a driver value onto the column's logical type. Drivers return
// NUMERIC and Snowflake NUMBER as text, so typed columns are coerced; values that do not
// convert are kept as text.
func normalizeCell(raw interface{}, col model.Column) interface{} {
	v := converter.NormalizeDriverValue(raw)
	if col.Type == model.TypeText || model.IsMissing(v) {
		return v
	}
	if converted, err := converter.Coerce(v, col.Type); err == nil {
		return converted
	}
	return v
}

// TableExists reports whether the table is present
func (s *TableStore) TableExists(ctx context.Context, schema, table string) (bool, error) {
	db := s.conn.DB()
	var count int64
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := db.GetContext(queryCtx, &count, db.Rebind(tableExistsQuery), schema, table); err != nil {
		return false, fmt.Errorf("failed to check if table exists: %w", err)
	}
	return count > 0, nil
}

// CountRows returns the number of rows in a table
func (s *TableStore) CountRows(ctx context.Context, schema, table string) (int64, error) {
	db := s.conn.DB()
	var count int64
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := db.GetContext(queryCtx, &count, countSQL(schema, table)); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s.%s: %w", schema, table, err)
	}
	return count, nil
}

// writeColumns pins each column's PostgreSQL type so DDL and values agree
func (s *TableStore) writeColumns(ds *model.Dataset) []model.Column {
	cols := make([]model.Column, len(ds.Columns))
	for i, col := range ds.Columns {
		col.DataType = s.converter.PostgresType(ds, col)
		col.Nullable = true
		cols[i] = col
	}
	return cols
}

// WriteTable writes a dataset inside one transaction and returns the rows inserted
func (s *TableStore) WriteTable(ctx context.Context, ds *model.Dataset, schema, table string, mode WriteMode) (int64, error) {
	if s.conn.Dialect() != connector.DialectPostgres {
		return 0, fmt.Errorf("writing tables requires a PostgreSQL connection, got %s", s.conn.Dialect())
	}
	if mode == WriteUpdate {
		return 0, &model.ConfigurationError{Option: "write_mode", Value: mode, Reason: "update writes go through UpdateRows"}
	}
	if err := ds.Validate(); err != nil {
		return 0, err
	}

	typed := &model.Dataset{Name: ds.Name, Columns: s.writeColumns(ds), Rows: ds.Rows}
	columnDefs, err := s.converter.GenerateColumnDefinitions(typed)
	if err != nil {
		return 0, err
	}

	exists := false
	if mode == WriteAppend {
		if exists, err = s.TableExists(ctx, schema, table); err != nil {
			return 0, err
		}
	}

	db := s.conn.DB()
	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := db.BeginTxx(txCtx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("Failed to rollback transaction", zap.Error(rbErr), zap.NamedError("cause", err))
			}
		}
	}()

	if mode == WriteCreateOrReplace {
		if _, err = tx.ExecContext(txCtx, dropTableSQL(schema, table)); err != nil {
			return 0, fmt.Errorf("failed to drop %s.%s: %w", schema, table, err)
		}
	}
	if mode == WriteCreateOrReplace || !exists {
		if _, err = tx.ExecContext(txCtx, createTableSQL(schema, table, columnDefs)); err != nil {
			return 0, fmt.Errorf("failed to create %s.%s: %w", schema, table, err)
		}
	}

	var inserted int64
	inserted, err = s.insertRows(txCtx, tx, typed, schema, table)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Wrote table",
		zap.String("schema", schema),
		zap.String("table", table),
		zap.String("mode", string(mode)),
		zap.Int64("rows", inserted))
	return inserted, nil
}

func (s *TableStore) insertRows(ctx context.Context, tx *sqlx.Tx, ds *model.Dataset, schema, table string) (int64, error) {
	names := ds.ColumnNames()
	perStatement := rowsPerStatement(s.batchSize, len(names))
	var total int64

	for start := 0; start < len(ds.Rows); start += perStatement {
		end := start + perStatement
		if end > len(ds.Rows) {
			end = len(ds.Rows)
		}
		batch := ds.Rows[start:end]

		args := make([]interface{}, 0, len(batch)*len(names))
		for i, row := range batch {
			for _, col := range ds.Columns {
				v, err := s.converter.ConvertValueForPostgres(row[col.Name], col)
				if err != nil {
					return total, fmt.Errorf("row %d: %w", start+i, err)
				}
				args = append(args, v)
			}
		}

		query := tx.Rebind(insertSQL(schema, table, names, len(batch)))
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("batch insert failed at row %d: %w", start, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			total += n
		} else {
			s.logger.Warn("Couldn't get rows affected", zap.Error(err))
			total += int64(len(batch))
		}
	}
	return total, nil
}

// UpdateRows updates existing rows matched on keyColumn with the dataset's other column
// values; rows with a missing key are skipped. The key column is matched case-insensitively.
// Returns the rows affected.
func (s *TableStore) UpdateRows(ctx context.Context, ds *model.Dataset, schema, table, keyColumn string) (int64, error) {
	if s.conn.Dialect() != connector.DialectPostgres {
		return 0, fmt.Errorf("updating tables requires a PostgreSQL connection, got %s", s.conn.Dialect())
	}
	key := ds.GetColumnByName(keyColumn)
	if key == nil {
		return 0, &model.DataShapeError{Operation: "update rows", Column: keyColumn, Reason: "key column not found"}
	}
	keyColumn = key.Name

	var setCols []model.Column
	for _, col := range s.writeColumns(ds) {
		if col.Name != keyColumn {
			setCols = append(setCols, col)
		}
	}
	if len(setCols) == 0 {
		return 0, &model.DataShapeError{Operation: "update rows", Reason: "no columns besides the key"}
	}
	names := make([]string, len(setCols))
	for i, col := range setCols {
		names[i] = col.Name
	}
	keyCol := *key
	keyCol.DataType = s.converter.PostgresType(ds, keyCol)

	db := s.conn.DB()
	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := db.BeginTxx(txCtx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PreparexContext(txCtx, tx.Rebind(updateSQL(schema, table, names, keyColumn)))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var affected int64
	for i, row := range ds.Rows {
		if model.IsMissing(row[keyColumn]) {
			continue
		}
		args := make([]interface{}, 0, len(setCols)+1)
		for _, col := range setCols {
			var v interface{}
			v, err = s.converter.ConvertValueForPostgres(row[col.Name], col)
			if err != nil {
				return 0, fmt.Errorf("row %d: %w", i, err)
			}
			args = append(args, v)
		}
		var keyValue interface{}
		keyValue, err = s.converter.ConvertValueForPostgres(row[keyColumn], keyCol)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		args = append(args, keyValue)

		var result sql.Result
		result, err = stmt.ExecContext(txCtx, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to update row %d: %w", i, err)
		}
		if n, nErr := result.RowsAffected(); nErr == nil {
			affected += n
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return affected, nil
}
