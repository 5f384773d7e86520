package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/data-cleaning/pkg/cleaner"
	"github.com/David-Botos/data-cleaning/pkg/model"
	"github.com/David-Botos/data-cleaning/pkg/standardizer"
)

func clearDatabaseEnv(t *testing.T) {
	for _, key := range []string{
		"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
		"SNOWFLAKE_ACCOUNT", "SNOWFLAKE_USER", "SNOWFLAKE_PASSWORD", "SNOWFLAKE_WAREHOUSE", "SNOWFLAKE_DATABASE",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
}

func TestLoadConfigDefaults(t *testing.T) {
	clearDatabaseEnv(t)
	t.Setenv("BATCH_SIZE", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg.Postgres)
	assert.Nil(t, cfg.Snowflake)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, "info", cfg.LogLevel)

	_, err = cfg.RequirePostgres()
	assert.Error(t, err)
}

func TestLoadConfigFromDotEnv(t *testing.T) {
	clearDatabaseEnv(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("BATCH_SIZE=250\nWORKER_POOL_SIZE=3\n"), 0o600))
	t.Setenv("ENV_FILE", envFile)
	// godotenv never overrides variables that exist, even empty ones
	for _, key := range []string{"BATCH_SIZE", "WORKER_POOL_SIZE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, 3, cfg.WorkerPoolSize)
}

func TestLoadPostgresConfig(t *testing.T) {
	clearDatabaseEnv(t)
	t.Setenv("POSTGRES_USER", "etl")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "warehouse")
	t.Setenv("POSTGRES_PORT", "6543")

	pg, err := LoadPostgresConfig()
	require.NoError(t, err)
	require.NotNil(t, pg)
	assert.Equal(t, "host=localhost port=6543 user=etl password=secret dbname=warehouse sslmode=disable", pg.ConnectionString())

	t.Setenv("POSTGRES_DB", "")
	_, err = LoadPostgresConfig()
	assert.Error(t, err)
}

func TestLoadSnowflakeConfig(t *testing.T) {
	clearDatabaseEnv(t)
	t.Setenv("SNOWFLAKE_ACCOUNT", "acme-1")
	t.Setenv("SNOWFLAKE_USER", "loader")
	t.Setenv("SNOWFLAKE_PASSWORD", "pw")
	t.Setenv("SNOWFLAKE_WAREHOUSE", "WH")
	t.Setenv("SNOWFLAKE_DATABASE", "RAW")
	t.Setenv("SNOWFLAKE_SCHEMAS", `"A", B ,`)
	t.Setenv("SNOWFLAKE_AUTHENTICATOR", "jwt")

	sf, err := LoadSnowflakeConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, sf.Schemas)
	assert.Equal(t, gosnowflake.AuthTypeJwt, sf.Authenticator)

	t.Setenv("SNOWFLAKE_AUTHENTICATOR", "kerberos")
	_, err = LoadSnowflakeConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{BatchSize: 1, LogLevel: "info", LogFormat: "json"}
	assert.NoError(t, cfg.Validate())

	cfg.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg.BatchSize = 1
	cfg.LogFormat = "yaml"
	assert.Error(t, cfg.Validate())
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPipelineOptionsTOML(t *testing.T) {
	path := writeFile(t, "pipeline.toml", `
[cleaning_options]
missing_strategy = "median"
outlier_detection_method = "IQR"

[cleaning_options.abbreviations]
st = "street"

[standardization_options]
normalize_numerical = true
normalization_method = "robust"
date_format = "EU"

[database]
cleaned_table = "patients_clean"
write_mode = "append"
`)
	opts, err := LoadPipelineOptions(path)
	require.NoError(t, err)

	assert.Equal(t, "median", opts.Cleaning.MissingStrategy)
	assert.True(t, opts.Cleaning.RemoveDuplicates, "absent keys keep defaults")
	assert.Equal(t, map[string]string{"st": "street"}, opts.Cleaning.Abbreviations)
	assert.Equal(t, "patients_clean", opts.Database.CleanedTable)
	assert.Equal(t, "raw_data", opts.Database.RawTable)

	cleanCfg, stdCfg, err := opts.Build()
	require.NoError(t, err)
	assert.Equal(t, cleaner.MissingMedian, cleanCfg.MissingStrategy)
	assert.Equal(t, cleaner.OutlierIQR, cleanCfg.OutlierMethod)
	assert.Equal(t, 1.5, cleanCfg.OutlierThreshold)
	assert.Equal(t, standardizer.ScaleRobust, stdCfg.Method)
	assert.Equal(t, standardizer.DateEU, stdCfg.DateFormat)
}

func TestLoadPipelineOptionsJSON(t *testing.T) {
	path := writeFile(t, "pipeline.json", `{
		"cleaning_options": {"missing_strategy": "mode", "track_operations": false},
		"standardization_options": {"encode_categorical": true, "encoding_method": "onehot"}
	}`)
	opts, err := LoadPipelineOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "mode", opts.Cleaning.MissingStrategy)
	assert.False(t, opts.Cleaning.TrackOperations)
	assert.True(t, opts.Standardization.EncodeCategorical)
	assert.Equal(t, WriteModeCreateOrReplace, opts.Database.WriteMode)
}

func TestLoadPipelineOptionsRejects(t *testing.T) {
	tests := map[string]string{
		"opts.yaml":       "cleaning_options: {}",
		"bad_method.json": `{"cleaning_options": {"outlier_detection_method": "mad"}}`,
		"bad_mode.toml":   "[database]\nwrite_mode = \"upsert\"\n",
		"no_key.toml":     "[database]\nwrite_mode = \"update\"\n",
		"unknown.json":    `{"cleaning_options": {"remove_dupes": true}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPipelineOptions(writeFile(t, name, body))
			assert.ErrorIs(t, err, model.ErrConfiguration)
		})
	}
}
