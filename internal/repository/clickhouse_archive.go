package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PriceSim/internal/domain/models"
)

const (
	QuotesTable = "real_quotes"
	PathsTable  = "simulated_prices"
)

// insertChunk bounds rows per multi-row INSERT.
const insertChunk = 2000

// ClickHouseSchema returns idempotent DDL for the archive tables.
func ClickHouseSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	ts DateTime,
	asset LowCardinality(String),
	price Float64,
	high Float64,
	low Float64,
	open Float64,
	previous_close Float64
) ENGINE = ReplacingMergeTree ORDER BY (asset, ts)`, database, QuotesTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	artifact_id String,
	generated_at DateTime,
	asset LowCardinality(String),
	step_index UInt16,
	ts DateTime,
	price Float64
) ENGINE = MergeTree ORDER BY (asset, generated_at, step_index)`, database, PathsTable),
	}
}

// ClickHouseArchive mirrors quotes and simulated paths for analytics.
type ClickHouseArchive struct {
	db       *sql.DB
	database string
}

func NewClickHouseArchive(db *sql.DB, database string) *ClickHouseArchive {
	return &ClickHouseArchive{db: db, database: database}
}

func (a *ClickHouseArchive) StoreQuotes(ctx context.Context, quotes []models.Quote) error {
	rows := make([][]interface{}, 0, len(quotes))
	for _, q := range quotes {
		if q.AssetID == "" || q.ObservedAt == 0 {
			continue
		}
		rows = append(rows, []interface{}{
			q.Time(), q.AssetID, q.Price, q.High, q.Low, q.Open, q.PreviousClose,
		})
	}
	return a.insert(ctx, QuotesTable,
		[]string{"ts", "asset", "price", "high", "low", "open", "previous_close"}, rows)
}

func (a *ClickHouseArchive) StoreArtifact(ctx context.Context, art *models.SimulationArtifact) error {
	return a.insert(ctx, PathsTable,
		[]string{"artifact_id", "generated_at", "asset", "step_index", "ts", "price"}, pathRows(art))
}

func pathRows(art *models.SimulationArtifact) [][]interface{} {
	var rows [][]interface{}
	for _, id := range art.AssetIDs() {
		p, ok := art.Path(id)
		if !ok {
			continue
		}
		for _, pt := range p.Prices {
			rows = append(rows, []interface{}{
				art.ID, art.GeneratedAt.UTC(), id, uint16(pt.StepIndex), time.Unix(pt.Timestamp, 0).UTC(), pt.Price,
			})
		}
	}
	return rows
}

func (a *ClickHouseArchive) insert(ctx context.Context, table string, cols []string, rows [][]interface{}) error {
	for start := 0; start < len(rows); start += insertChunk {
		end := min(start+insertChunk, len(rows))
		q, args := insertStatement(a.database+"."+table, cols, rows[start:end])
		if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("clickhouse insert %s: %w", table, err)
		}
	}
	return nil
}

// insertStatement builds one multi-row INSERT with positional placeholders.
func insertStatement(table string, cols []string, rows [][]interface{}) (string, []interface{}) {
	ph := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	values := make([]string, len(rows))
	args := make([]interface{}, 0, len(rows)*len(cols))
	for i, r := range rows {
		values[i] = ph
		args = append(args, r...)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(cols, ", "), strings.Join(values, ", "))
	return q, args
}
