package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"goinsight/domain/insight"
	"goinsight/internal/errors"
)

// StoredDataset describes one imported input dataset
type StoredDataset struct {
	Name     string    `db:"name" json:"name"`
	Columns  string    `db:"columns" json:"-"`
	RowCount int       `db:"row_count" json:"row_count"`
	LoadedAt time.Time `db:"loaded_at" json:"loaded_at"`
}

// Observation is one staged input row. Attributes and Measures hold JSON
// text so the driver does not bytea-encode them.
type Observation struct {
	Dataset    string `db:"dataset"`
	Position   int    `db:"position"`
	Attributes string `db:"attributes"`
	Measures   string `db:"measures"`
}

// ObservationRepository stages input datasets in PostgreSQL
type ObservationRepository struct {
	db *sqlx.DB
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *sqlx.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// Import replaces the rows stored under name with ds
func (r *ObservationRepository) Import(ctx context.Context, name string, ds insight.Dataset) error {
	meta, rows, err := toObservations(name, ds, time.Now().UTC())
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM observations WHERE dataset = $1`, name); err != nil {
		return fmt.Errorf("failed to clear dataset %s: %w", name, err)
	}

	query := `INSERT INTO datasets (name, columns, row_count, loaded_at)
		VALUES (:name, :columns, :row_count, :loaded_at)
		ON CONFLICT (name) DO UPDATE SET
			columns = EXCLUDED.columns,
			row_count = EXCLUDED.row_count,
			loaded_at = EXCLUDED.loaded_at`
	if _, err := tx.NamedExecContext(ctx, query, meta); err != nil {
		return fmt.Errorf("failed to save dataset %s: %w", name, err)
	}

	if len(rows) > 0 {
		query = `INSERT INTO observations (dataset, position, attributes, measures)
			VALUES (:dataset, :position, :attributes, :measures)`
		if _, err := tx.NamedExecContext(ctx, query, rows); err != nil {
			return fmt.Errorf("failed to save observations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	log.Printf("[Observations] Imported %d rows into %s", len(rows), name)
	return nil
}

// Load reads the dataset stored under name in its original row order
func (r *ObservationRepository) Load(ctx context.Context, name string) (insight.Dataset, error) {
	var meta StoredDataset
	err := r.db.GetContext(ctx, &meta,
		`SELECT name, columns, row_count, loaded_at FROM datasets WHERE name = $1`, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return insight.Dataset{}, errors.NotFound(fmt.Sprintf("dataset %s", name))
		}
		return insight.Dataset{}, errors.DataLoad("database", err)
	}

	var rows []Observation
	err = r.db.SelectContext(ctx, &rows,
		`SELECT dataset, position, attributes, measures FROM observations
		WHERE dataset = $1 ORDER BY position`, name)
	if err != nil {
		return insight.Dataset{}, errors.DataLoad("database", err)
	}
	return fromObservations(meta, rows)
}

// List returns every imported dataset, most recent first
func (r *ObservationRepository) List(ctx context.Context) ([]StoredDataset, error) {
	var out []StoredDataset
	err := r.db.SelectContext(ctx, &out,
		`SELECT name, columns, row_count, loaded_at FROM datasets ORDER BY loaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return out, nil
}

func toObservations(name string, ds insight.Dataset, at time.Time) (StoredDataset, []Observation, error) {
	if name == "" {
		return StoredDataset{}, nil, errors.InvalidInput("dataset name is required")
	}
	columns, err := json.Marshal(ds.Columns)
	if err != nil {
		return StoredDataset{}, nil, fmt.Errorf("failed to marshal columns: %w", err)
	}

	rows := make([]Observation, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		attrs, err := json.Marshal(row.Attributes)
		if err != nil {
			return StoredDataset{}, nil, fmt.Errorf("failed to marshal row %d: %w", i, err)
		}
		measures, err := json.Marshal(finiteValues(row))
		if err != nil {
			return StoredDataset{}, nil, fmt.Errorf("failed to marshal row %d: %w", i, err)
		}
		rows = append(rows, Observation{
			Dataset:    name,
			Position:   i,
			Attributes: string(attrs),
			Measures:   string(measures),
		})
	}

	meta := StoredDataset{Name: name, Columns: string(columns), RowCount: len(rows), LoadedAt: at}
	return meta, rows, nil
}

func fromObservations(meta StoredDataset, rows []Observation) (insight.Dataset, error) {
	ds := insight.Dataset{Rows: make([]insight.Row, 0, len(rows))}
	if err := json.Unmarshal([]byte(meta.Columns), &ds.Columns); err != nil {
		return insight.Dataset{}, errors.DataLoad("dataset "+meta.Name, err)
	}
	for _, o := range rows {
		row := insight.Row{}
		if err := json.Unmarshal([]byte(o.Attributes), &row.Attributes); err != nil {
			return insight.Dataset{}, errors.DataLoad(fmt.Sprintf("dataset %s row %d", meta.Name, o.Position), err)
		}
		if err := json.Unmarshal([]byte(o.Measures), &row.Values); err != nil {
			return insight.Dataset{}, errors.DataLoad(fmt.Sprintf("dataset %s row %d", meta.Name, o.Position), err)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// finiteValues drops NaN and infinite cells, which JSON cannot carry. They
// read back as missing.
func finiteValues(row insight.Row) map[string]float64 {
	out := make(map[string]float64, len(row.Values))
	for k := range row.Values {
		if v, ok := row.Value(k); ok {
			out[k] = v
		}
	}
	return out
}
