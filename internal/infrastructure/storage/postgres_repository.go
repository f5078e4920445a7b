package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ClauseScanner/internal/domain"
	"ClauseScanner/internal/ports"
)

const reportsTable = "contract_analyses"

// Schema creates the table used by PostgresRepository.
const Schema = `CREATE TABLE IF NOT EXISTS contract_analyses (
    id          UUID PRIMARY KEY,
    filename    TEXT        NOT NULL,
    num_chunks  INTEGER     NOT NULL,
    num_risks   INTEGER     NOT NULL,
    categories  TEXT[]      NOT NULL DEFAULT '{}',
    status      TEXT        NOT NULL,
    report      JSONB       NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists analysis reports into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.ReportRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the reports table when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SaveReport upserts the report snapshot.
func (r *PostgresRepository) SaveReport(ctx context.Context, report domain.Report) error {
	if r.db == nil {
		return nil
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query, args, err := psql.Insert(reportsTable).
		Columns("id", "filename", "num_chunks", "num_risks", "categories", "status", "report", "created_at").
		Values(report.ID, report.Filename, report.NumChunks, report.NumRisks,
			pq.StringArray(report.Categories()), string(report.Status), payload, report.CreatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE
              SET num_chunks = EXCLUDED.num_chunks,
                  num_risks = EXCLUDED.num_risks,
                  categories = EXCLUDED.categories,
                  status = EXCLUDED.status,
                  report = EXCLUDED.report`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}

	return nil
}

// GetReport loads a stored report by id.
func (r *PostgresRepository) GetReport(ctx context.Context, id string) (domain.Report, error) {
	if r.db == nil {
		return domain.Report{}, domain.ErrReportNotFound
	}

	query, args, err := psql.Select("report").
		From(reportsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Report{}, fmt.Errorf("build select: %w", err)
	}

	var payload []byte
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Report{}, fmt.Errorf("%w: %s", domain.ErrReportNotFound, id)
		}
		return domain.Report{}, fmt.Errorf("query report: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return domain.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return report, nil
}

// ReportsByCategory lists report ids that flagged category, newest first.
func (r *PostgresRepository) ReportsByCategory(ctx context.Context, category string, limit uint64) ([]string, error) {
	if r.db == nil {
		return []string{}, nil
	}

	query, args, err := psql.Select("id").
		From(reportsTable).
		Where("categories @> ?", pq.StringArray{category}).
		OrderBy("created_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return ids, nil
}
