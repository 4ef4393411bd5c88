package postgres

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"goinsight/domain/insight"
	"goinsight/internal/errors"
)

// DatasetLoader reads an analysis dataset from an arbitrary SELECT
type DatasetLoader struct {
	db *sqlx.DB
}

// NewDatasetLoader creates a loader bound to a connection pool
func NewDatasetLoader(db *sqlx.DB) *DatasetLoader {
	return &DatasetLoader{db: db}
}

// Load runs query and converts every row into a dataset record. Column order
// follows the SELECT list.
func (l *DatasetLoader) Load(ctx context.Context, query string, args ...any) (insight.Dataset, error) {
	if !isSelect(query) {
		return insight.Dataset{}, errors.InvalidInput("dataset query must be a SELECT statement")
	}

	start := time.Now()
	rows, err := l.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return insight.Dataset{}, errors.DataLoad("database", fmt.Errorf("query failed: %w", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return insight.Dataset{}, errors.DataLoad("database", err)
	}

	var records []map[string]any
	for rows.Next() {
		rec := make(map[string]any, len(columns))
		if err := rows.MapScan(rec); err != nil {
			return insight.Dataset{}, errors.DataLoad("database", fmt.Errorf("failed to scan row: %w", err))
		}
		records = append(records, normalizeRecord(rec))
	}
	if err := rows.Err(); err != nil {
		return insight.Dataset{}, errors.DataLoad("database", err)
	}

	log.Printf("[DatasetLoader] Loaded %d rows (%d columns) in %.2fms",
		len(records), len(columns), float64(time.Since(start).Nanoseconds())/1e6)
	return insight.NewDataset(columns, records), nil
}

// normalizeRecord converts driver values the dataset builder cannot read.
// lib/pq returns NUMERIC as []byte and DATE/TIMESTAMP as time.Time.
func normalizeRecord(rec map[string]any) map[string]any {
	for k, v := range rec {
		switch x := v.(type) {
		case []byte:
			rec[k] = string(x)
		case time.Time:
			if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
				rec[k] = x.Format("2006-01-02")
			} else {
				rec[k] = x.UTC().Format(time.RFC3339)
			}
		}
	}
	return rec
}

func isSelect(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return strings.HasPrefix(q, "select") || strings.HasPrefix(q, "with")
}
