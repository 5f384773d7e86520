package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/cleaner"
	"github.com/David-Botos/data-cleaning/pkg/config"
	"github.com/David-Botos/data-cleaning/pkg/connector"
	"github.com/David-Botos/data-cleaning/pkg/fileio"
	"github.com/David-Botos/data-cleaning/pkg/pipeline"
	"github.com/David-Botos/data-cleaning/pkg/standardizer"
	"github.com/David-Botos/data-cleaning/pkg/storage"
)

// app wires configuration, connectors and stores for one invocation
type app struct {
	cfg       *config.Config
	db        config.DatabaseOptions
	cleaning  cleaner.Config
	standard  standardizer.Config
	mode      storage.WriteMode
	batchSize int
	params    string
	refit     bool

	factory *connector.ConnectorFactory
	pg      *connector.PostgresConnector
	source  connector.DatabaseConnector

	reader  *fileio.Reader
	writer  *fileio.Writer
	metrics *pipeline.RunMetrics
	logger  *zap.Logger
	ran     bool
	loaded  bool
}

func newApp(cfg *config.Config, opts options, logger *zap.Logger) (*app, error) {
	path := opts.configPath
	if path == "" {
		path = cfg.PipelineConfig
	}

	popts := config.DefaultPipelineOptions()
	if path != "" {
		loaded, err := config.LoadPipelineOptions(path)
		if err != nil {
			return nil, err
		}
		popts = loaded
	}

	if opts.schema != "" {
		popts.Database.Schema = opts.schema
	}
	if opts.table != "" {
		popts.Database.RawTable = opts.table
	}
	if opts.cleanedTable != "" {
		popts.Database.CleanedTable = opts.cleanedTable
	}
	if err := popts.Validate(); err != nil {
		return nil, err
	}

	cleaning, standard, err := popts.Build()
	if err != nil {
		return nil, err
	}
	mode, err := storage.ParseWriteMode(popts.Database.WriteMode)
	if err != nil {
		return nil, err
	}

	batchSize := popts.Database.BatchSize
	if batchSize <= 0 {
		batchSize = cfg.BatchSize
	}
	params := opts.params
	if params == "" {
		params = cfg.ParamsPath
	}

	return &app{
		cfg:       cfg,
		db:        popts.Database,
		cleaning:  cleaning,
		standard:  standard,
		mode:      mode,
		batchSize: batchSize,
		params:    params,
		refit:     opts.fit,
		factory:   connector.NewConnectorFactory(cfg, logger),
		reader:    fileio.NewReader(fileio.DefaultOptions(), logger),
		writer:    fileio.NewWriter(logger),
		metrics:   pipeline.NewRunMetrics(logger),
		logger:    logger,
	}, nil
}

// Close releases any open connections
func (a *app) Close() {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warn("Failed to close source connection", zap.Error(err))
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.logger.Warn("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}
}

func (a *app) postgres(ctx context.Context) (*connector.PostgresConnector, error) {
	if a.pg != nil {
		return a.pg, nil
	}
	pg, err := a.factory.CreatePostgresConnector(ctx)
	if err != nil {
		return nil, err
	}
	if err := pg.Validate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	if err := pg.EnsureSchema(ctx, a.db.Schema); err != nil {
		pg.Close()
		return nil, err
	}
	a.pg = pg
	return pg, nil
}

// sourceConnector returns Snowflake when configured, otherwise the PostgreSQL connection,
// along with the schema raw tables live in. A raw table loaded by this invocation is
// always read back from PostgreSQL.
func (a *app) sourceConnector(ctx context.Context) (connector.DatabaseConnector, string, error) {
	if a.cfg.Snowflake == nil || len(a.cfg.Snowflake.Schemas) == 0 || a.loaded {
		pg, err := a.postgres(ctx)
		return pg, a.db.Schema, err
	}
	if a.source == nil {
		src, err := a.factory.CreateSourceConnector(ctx)
		if err != nil {
			return nil, "", err
		}
		if err := src.Validate(ctx); err != nil {
			src.Close()
			return nil, "", err
		}
		a.source = src
	}
	return a.source, a.cfg.Snowflake.Schemas[0], nil
}

func (a *app) tableStore(conn connector.DatabaseConnector) *storage.TableStore {
	return storage.NewTableStore(conn, nil, a.batchSize, a.logger)
}

// paramStore returns where fitted scaler parameters live, or nil to always fit
func (a *app) paramStore(ctx context.Context) (standardizer.ParamStore, error) {
	switch a.params {
	case "":
		return nil, nil
	case paramsInDatabase:
		pg, err := a.postgres(ctx)
		if err != nil {
			return nil, err
		}
		store := storage.NewParamStore(pg.DB(), a.db.Schema, a.logger)
		if err := store.EnsureTable(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return standardizer.FileParamStore{Dir: a.params}, nil
	}
}

func (a *app) runner(params standardizer.ParamStore, audit pipeline.Auditor) *pipeline.Runner {
	return pipeline.NewRunner(pipeline.RunnerConfig{
		Cleaning:        a.cleaning,
		Standardization: a.standard,
		Params:          params,
		Refit:           a.refit,
		Audit:           audit,
		AuditSchema:     a.db.Schema,
		Workers:         a.cfg.WorkerPoolSize,
		RetryDelay:      a.cfg.RetryDelay,
	}, a.metrics, a.logger)
}

// load copies a raw file into the raw table without cleaning it
func (a *app) load(ctx context.Context, path string) error {
	pg, err := a.postgres(ctx)
	if err != nil {
		return err
	}
	ds, err := a.reader.ReadFile(path)
	if err != nil {
		return err
	}

	// Raw loads only replace or append; update mode applies to the cleaned table.
	mode := storage.WriteCreateOrReplace
	if a.mode == storage.WriteAppend {
		mode = storage.WriteAppend
	}

	store := a.tableStore(pg)
	n, err := store.WriteTable(ctx, ds, a.db.Schema, a.db.RawTable, mode)
	if err != nil {
		return err
	}
	count, err := store.CountRows(ctx, a.db.Schema, a.db.RawTable)
	if err != nil {
		return err
	}
	if mode == storage.WriteCreateOrReplace && count != n {
		return fmt.Errorf("raw table %s.%s holds %d rows, wrote %d", a.db.Schema, a.db.RawTable, count, n)
	}
	a.loaded = true

	a.logger.Info("Loaded raw data",
		zap.String("file", path),
		zap.String("table", a.db.RawTable),
		zap.Int64("rows", n))
	return nil
}

// process cleans and standardizes the raw table into the cleaned table
func (a *app) process(ctx context.Context) error {
	src, srcSchema, err := a.sourceConnector(ctx)
	if err != nil {
		return err
	}
	pg, err := a.postgres(ctx)
	if err != nil {
		return err
	}
	params, err := a.paramStore(ctx)
	if err != nil {
		return err
	}

	var audit pipeline.Auditor
	if a.db.Audit {
		store := storage.NewAuditStore(pg.DB(), a.db.Schema, a.logger)
		if err := store.EnsureTables(ctx); err != nil {
			return err
		}
		audit = store
	}

	job := pipeline.NewJob(
		&pipeline.TableSource{Store: a.tableStore(src), Schema: srcSchema, Table: a.db.RawTable},
		&pipeline.TableSink{
			Store:     a.tableStore(pg),
			Schema:    a.db.Schema,
			Table:     a.db.CleanedTable,
			Mode:      a.mode,
			KeyColumn: a.db.KeyColumn,
		},
	).WithMaxRetries(a.cfg.RetryAttempts)

	a.ran = true
	result, err := a.runner(params, audit).Run(ctx, job)
	if err != nil {
		return err
	}
	a.logReports(result)
	return nil
}

// export writes the cleaned table to a file
func (a *app) export(ctx context.Context, path string) error {
	pg, err := a.postgres(ctx)
	if err != nil {
		return err
	}
	ds, err := a.tableStore(pg).ReadTable(ctx, a.db.Schema, a.db.CleanedTable)
	if err != nil {
		return err
	}
	if err := a.writer.WriteFile(ds, path); err != nil {
		return err
	}
	a.logger.Info("Exported cleaned data",
		zap.String("table", a.db.CleanedTable),
		zap.String("file", path),
		zap.Int("rows", ds.Len()))
	return nil
}

// full runs load, process and export through PostgreSQL when it is configured. Without a
// database every IN OUT pair is processed file to file, concurrently.
func (a *app) full(ctx context.Context, in string, rest []string) error {
	if a.cfg.Postgres != nil {
		if len(rest) != 1 {
			return errors.New("full through the database takes exactly one IN OUT pair")
		}
		if err := a.load(ctx, in); err != nil {
			return err
		}
		if err := a.process(ctx); err != nil {
			return err
		}
		return a.export(ctx, rest[0])
	}

	params, err := a.paramStore(ctx)
	if err != nil {
		return err
	}
	jobs := fileJobs(in, rest, a.reader, a.writer, a.cfg.RetryAttempts)

	a.ran = true
	results, err := a.runner(params, nil).RunAll(ctx, jobs)
	for _, result := range results {
		if result != nil && result.Status == pipeline.StatusSucceeded {
			a.logReports(result)
		}
	}
	if err != nil {
		return err
	}
	for _, result := range results {
		if result.Status != pipeline.StatusSucceeded {
			return fmt.Errorf("%d of %d datasets failed", failedCount(results), len(results))
		}
	}
	return nil
}

// fileJobs pairs the first input with rest[0], then reads rest[1:] as further IN OUT pairs
func fileJobs(in string, rest []string, reader *fileio.Reader, writer *fileio.Writer, retries int) []pipeline.Job {
	pairs := append([]string{in}, rest...)
	jobs := make([]pipeline.Job, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		jobs = append(jobs, pipeline.NewJob(
			pipeline.NewFileSource(pairs[i], reader),
			pipeline.NewFileSink(pairs[i+1], writer),
		).WithMaxRetries(retries))
	}
	return jobs
}

func failedCount(results []*pipeline.RunResult) int {
	n := 0
	for _, r := range results {
		if r.Status != pipeline.StatusSucceeded {
			n++
		}
	}
	return n
}

func (a *app) logReports(result *pipeline.RunResult) {
	if result.Cleaning != nil {
		a.logger.Info(result.Cleaning.Summary())
	}
	if result.Standardization != nil {
		a.logger.Info(result.Standardization.Summary())
	}
}
