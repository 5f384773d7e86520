// pkg/storage/params.go
package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/standardizer"
)

const createParamsTableSQL = `
	CREATE TABLE IF NOT EXISTS %s (
		name TEXT PRIMARY KEY,
		params_id TEXT NOT NULL,
		method TEXT NOT NULL,
		params JSONB NOT NULL,
		fitted_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)
`

const upsertParamsSQL = `
	INSERT INTO %s (name, params_id, method, params, fitted_at, updated_at)
	VALUES (:name, :params_id, :method, :params, :fitted_at, CURRENT_TIMESTAMP)
	ON CONFLICT (name) DO UPDATE SET
		params_id = EXCLUDED.params_id,
		method = EXCLUDED.method,
		params = EXCLUDED.params,
		fitted_at = EXCLUDED.fitted_at,
		updated_at = CURRENT_TIMESTAMP
`

// paramsRow is one stored parameter set
type paramsRow struct {
	Name     string    `db:"name"`
	ParamsID string    `db:"params_id"`
	Method   string    `db:"method"`
	Params   []byte    `db:"params"`
	FittedAt time.Time `db:"fitted_at"`
}

// ParamStore keeps fitted scaler parameter sets in a JSONB table, one row per name
type ParamStore struct {
	db     *sqlx.DB
	table  string
	logger *zap.Logger
}

var _ standardizer.ParamStore = (*ParamStore)(nil)

// NewParamStore creates a ParamStore writing to schema.scaler_parameters
func NewParamStore(db *sqlx.DB, schema string, logger *zap.Logger) *ParamStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParamStore{
		db:     db,
		table:  qualifiedName(schema, "scaler_parameters"),
		logger: logger.Named("param-store"),
	}
}

// EnsureTable creates the parameter table if it doesn't exist
func (s *ParamStore) EnsureTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(createParamsTableSQL, s.table)); err != nil {
		return fmt.Errorf("failed to create parameter table: %w", err)
	}
	return nil
}

func newParamsRow(name string, params *standardizer.ScalerParams) (paramsRow, error) {
	var buf bytes.Buffer
	if err := standardizer.SaveParams(&buf, params); err != nil {
		return paramsRow{}, err
	}
	return paramsRow{
		Name:     name,
		ParamsID: params.ID,
		Method:   params.Method.String(),
		Params:   buf.Bytes(),
		FittedAt: params.FittedAt,
	}, nil
}

// SaveParams implements standardizer.ParamStore
func (s *ParamStore) SaveParams(ctx context.Context, name string, params *standardizer.ScalerParams) error {
	row, err := newParamsRow(name, params)
	if err != nil {
		return err
	}
	if _, err := s.db.NamedExecContext(ctx, fmt.Sprintf(upsertParamsSQL, s.table), row); err != nil {
		return fmt.Errorf("failed to save scaler parameters %q: %w", name, err)
	}
	s.logger.Info("Saved scaler parameters",
		zap.String("name", name),
		zap.String("params_id", params.ID),
		zap.Strings("columns", params.ColumnNames()))
	return nil
}

// LoadParams implements standardizer.ParamStore
func (s *ParamStore) LoadParams(ctx context.Context, name string) (*standardizer.ScalerParams, error) {
	var row paramsRow
	query := s.db.Rebind(fmt.Sprintf("SELECT name, params_id, method, params, fitted_at FROM %s WHERE name = ?", s.table))
	if err := s.db.GetContext(ctx, &row, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", name, standardizer.ErrParamsNotFound)
		}
		return nil, fmt.Errorf("failed to load scaler parameters %q: %w", name, err)
	}
	return standardizer.LoadParams(bytes.NewReader(row.Params))
}
