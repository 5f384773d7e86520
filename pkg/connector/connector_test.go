package connector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/data-cleaning/pkg/config"
)

func TestOpenPostgresAppliesPoolSettings(t *testing.T) {
	db, err := OpenPostgres(&config.PostgresConfig{
		Host:         "localhost",
		Port:         5432,
		User:         "etl",
		Database:     "warehouse",
		SSLMode:      "disable",
		MaxOpenConns: 7,
	})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 7, GetConnectionStats(db.DB).MaxOpenConns)
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2", db.Rebind("SELECT a FROM t WHERE b = ? AND c = ?"))
}

func TestFactoryRequiresConfiguration(t *testing.T) {
	f := NewConnectorFactory(&config.Config{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := f.CreatePostgresConnector(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = f.CreateSnowflakeConnector(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = f.CreateSourceConnector(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSnowflakeDSN(t *testing.T) {
	dsn, err := SnowflakeDSN(&config.SnowflakeConfig{
		Account:   "acme-1",
		User:      "loader",
		Password:  "pw",
		Database:  "RAW",
		Warehouse: "WH",
	})
	require.NoError(t, err)
	assert.Contains(t, dsn, "acme-1")
	assert.Contains(t, dsn, "database=RAW")
	assert.Contains(t, dsn, "warehouse=WH")
}
