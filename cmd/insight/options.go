package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	apisource "goinsight/adapters/api"
	"goinsight/adapters/excel"
	"goinsight/adapters/postgres"
	"goinsight/domain/insight"
	"goinsight/internal/config"
	"goinsight/internal/engine"
	"goinsight/internal/errors"
)

// inputOptions are the flags shared by every command that reads data
type inputOptions struct {
	dataFile    string
	sheet       string
	jsonPath    string
	apiURL      string
	apiToken    string
	query       string
	stored      string
	metricsFile string
	verbose     bool
}

func (o *inputOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.dataFile, "data", "", "dataset file (.csv, .xlsx or .json); defaults to DATA_FILE")
	cmd.Flags().StringVar(&o.sheet, "sheet", "", "worksheet to read from an .xlsx file; defaults to DATA_SHEET or the first sheet")
	cmd.Flags().StringVar(&o.jsonPath, "json-path", "", "path of the record array inside a JSON document, e.g. data.items")
	cmd.Flags().StringVar(&o.apiURL, "api-url", "", "REST endpoint serving dataset records")
	cmd.Flags().StringVar(&o.apiToken, "api-token", "", "bearer token for --api-url")
	cmd.Flags().StringVar(&o.query, "query", "", "SELECT statement run against DATABASE_URL; defaults to DATASET_QUERY")
	cmd.Flags().StringVar(&o.stored, "dataset", "", "dataset staged with import; defaults to DATASET_NAME")
	cmd.Flags().StringVar(&o.metricsFile, "metrics", "", "metric catalog; defaults to METRICS_FILE")
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "log skipped rules and stage transitions")
}

// setup holds everything a command needs after configuration is loaded
type setup struct {
	config  *config.Config
	catalog *config.Catalog
	engine  *engine.Engine
}

func (o *inputOptions) load() (*setup, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	path := o.metricsFile
	if path == "" {
		path = cfg.Paths.MetricsFile
	}
	catalog, err := config.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	catalog = catalog.WithDefaults(cfg.Evidence)

	opts := []engine.Option{engine.WithAppraisal(catalog.AppraisalOr(cfg.Appraisal))}
	if o.verbose {
		opts = append(opts,
			engine.WithLogger(log.New(os.Stderr, "", log.LstdFlags)),
			engine.WithTrace(func(metric string, stage engine.Stage) {
				log.Printf("[Engine] %s: %s", metric, stage)
			}),
		)
	}
	return &setup{config: cfg, catalog: catalog, engine: engine.New(opts...)}, nil
}

// dataset loads the input from the first configured source: --api-url,
// then --dataset/DATASET_NAME, then --query/DATASET_QUERY, then --data/DATA_FILE
func (o *inputOptions) dataset(ctx context.Context, s *setup) (insight.Dataset, error) {
	if o.apiURL != "" {
		src := apisource.DefaultSource(o.apiURL)
		src.DataPath = o.jsonPath
		if o.apiToken != "" {
			src.AuthMethod = "bearer"
			src.AuthToken = o.apiToken
		}
		return apisource.NewAPIReader(src).FetchDataset(ctx)
	}

	if name := firstNonEmpty(o.stored, s.config.Database.Dataset); name != "" {
		db, err := s.openDB(ctx)
		if err != nil {
			return insight.Dataset{}, err
		}
		defer db.Close()
		return postgres.NewObservationRepository(db).Load(ctx, name)
	}

	query := o.query
	if query == "" {
		query = s.config.Database.DatasetQuery
	}
	if query != "" {
		db, err := s.openDB(ctx)
		if err != nil {
			return insight.Dataset{}, err
		}
		defer db.Close()
		return postgres.NewDatasetLoader(db).Load(ctx, query)
	}

	file := o.dataFile
	if file == "" {
		file = s.config.Paths.DataFile
	}
	if file == "" {
		return insight.Dataset{}, errors.InvalidInput("no dataset: pass --data, --api-url, --dataset or --query")
	}
	return loadFile(file, firstNonEmpty(o.sheet, s.config.Paths.DataSheet), o.jsonPath)
}

func loadFile(path, sheet, jsonPath string) (insight.Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx", ".xlsm":
		return excel.NewDataReader(path).WithSheet(sheet).ReadDataset()
	case ".json":
		return apisource.LoadFile(path, jsonPath)
	default:
		return insight.Dataset{}, errors.UnsupportedFormat(filepath.Ext(path))
	}
}

func (s *setup) openDB(ctx context.Context) (*sqlx.DB, error) {
	if !s.config.Database.Enabled() {
		return nil, errors.ConfigInvalid("DATABASE_URL is required for database input")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", s.config.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	db.SetMaxOpenConns(s.config.Database.MaxOpenConns)
	return db, nil
}

// parseFilters turns --entity and --filter key=v1,v2 flags into a filter set
func parseFilters(entities, subsets []string) (insight.Filters, error) {
	f := insight.Filters{}
	for _, e := range entities {
		if e = strings.TrimSpace(e); e != "" {
			f.Entities = append(f.Entities, e)
		}
	}
	for _, raw := range subsets {
		key, values, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return insight.Filters{}, errors.InvalidInput(fmt.Sprintf("filter %q must look like key=value[,value]", raw))
		}
		if f.Subsets == nil {
			f.Subsets = make(map[string][]string)
		}
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				f.Subsets[key] = append(f.Subsets[key], v)
			}
		}
	}
	return f, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
