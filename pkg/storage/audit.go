// pkg/storage/audit.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/model"
)

const createOperationsTableSQL = `
	CREATE TABLE IF NOT EXISTS %s (
		id SERIAL PRIMARY KEY,
		run_id TEXT,
		schema_name TEXT NOT NULL,
		table_name TEXT NOT NULL,
		column_name TEXT NOT NULL,
		original_value TEXT,
		new_value TEXT,
		row_identifier TEXT NOT NULL,
		cleaning_operation TEXT NOT NULL,
		cleaning_reason TEXT NOT NULL,
		cleaned_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)
`

const createRunsTableSQL = `
	CREATE TABLE IF NOT EXISTS %s (
		run_id TEXT PRIMARY KEY,
		dataset TEXT NOT NULL,
		source TEXT NOT NULL,
		sink TEXT NOT NULL,
		status TEXT NOT NULL,
		rows_in INTEGER NOT NULL,
		rows_out INTEGER NOT NULL,
		started_at TIMESTAMP WITH TIME ZONE NOT NULL,
		finished_at TIMESTAMP WITH TIME ZONE NOT NULL,
		report JSONB
	)
`

const insertOperationSQL = `
	INSERT INTO %s
	(run_id, schema_name, table_name, column_name, original_value, new_value,
	 row_identifier, cleaning_operation, cleaning_reason, cleaned_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const insertRunSQL = `
	INSERT INTO %s
	(run_id, dataset, source, sink, status, rows_in, rows_out, started_at, finished_at, report)
	VALUES (:run_id, :dataset, :source, :sink, :status, :rows_in, :rows_out, :started_at, :finished_at, :report)
`

// RunRecord summarizes one pipeline run in the cleaning_runs table
type RunRecord struct {
	RunID      string    `db:"run_id"`
	Dataset    string    `db:"dataset"`
	Source     string    `db:"source"`
	Sink       string    `db:"sink"`
	Status     string    `db:"status"`
	RowsIn     int       `db:"rows_in"`
	RowsOut    int       `db:"rows_out"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Report     []byte    `db:"report"`
}

// NewRunRecord builds a RunRecord, encoding report as JSON
func NewRunRecord(runID, dataset, source, sink, status string, rowsIn, rowsOut int, started, finished time.Time, report interface{}) (RunRecord, error) {
	rec := RunRecord{
		RunID:      runID,
		Dataset:    dataset,
		Source:     source,
		Sink:       sink,
		Status:     status,
		RowsIn:     rowsIn,
		RowsOut:    rowsOut,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if report != nil {
		b, err := json.Marshal(report)
		if err != nil {
			return RunRecord{}, fmt.Errorf("encoding run report: %w", err)
		}
		rec.Report = b
	}
	return rec, nil
}

// AuditStore records cleaning operations in cleaned_on_ingress and run summaries in
// cleaning_runs
type AuditStore struct {
	db         *sqlx.DB
	operations string
	runs       string
	logger     *zap.Logger
}

// NewAuditStore creates an AuditStore whose tables live in schema
func NewAuditStore(db *sqlx.DB, schema string, logger *zap.Logger) *AuditStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditStore{
		db:         db,
		operations: qualifiedName(schema, "cleaned_on_ingress"),
		runs:       qualifiedName(schema, "cleaning_runs"),
		logger:     logger.Named("audit"),
	}
}

// EnsureTables creates the audit tables if they don't exist
func (a *AuditStore) EnsureTables(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, ddl := range []string{
		fmt.Sprintf(createOperationsTableSQL, a.operations),
		fmt.Sprintf(createRunsTableSQL, a.runs),
	} {
		if _, err := a.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create audit table: %w", err)
		}
	}

	a.logger.Info("Ensured audit tables exist",
		zap.String("operations", a.operations),
		zap.String("runs", a.runs))
	return nil
}

// operationArgs flattens an operation into insert arguments
func operationArgs(runID, schema string, op model.CleaningOperation) []interface{} {
	return []interface{}{
		nullableString(runID),
		schema,
		op.DatasetName,
		op.ColumnName,
		nullableValue(op.OriginalValue),
		nullableValue(op.NewValue),
		strconv.Itoa(op.RowIndex),
		op.CleaningOperation,
		op.CleaningReason,
		op.CleanedAt,
	}
}

// RecordCleaningOperations batch inserts cleaning operations in one transaction
func (a *AuditStore) RecordCleaningOperations(ctx context.Context, runID, schema string, operations []model.CleaningOperation) error {
	if len(operations) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				a.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.NamedError("cause", err))
			}
		}
	}()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(fmt.Sprintf(insertOperationSQL, a.operations)))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, op := range operations {
		if _, err = stmt.ExecContext(ctx, operationArgs(runID, schema, op)...); err != nil {
			return fmt.Errorf("failed to insert cleaning operation: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	a.logger.Info("Recorded cleaning operations", zap.Int("count", len(operations)))
	return nil
}

// RecordRun stores a run summary
func (a *AuditStore) RecordRun(ctx context.Context, rec RunRecord) error {
	if _, err := a.db.NamedExecContext(ctx, fmt.Sprintf(insertRunSQL, a.runs), rec); err != nil {
		return fmt.Errorf("failed to record run %s: %w", rec.RunID, err)
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableValue(v interface{}) interface{} {
	if model.IsMissing(v) {
		return nil
	}
	return model.FormatValue(v)
}
