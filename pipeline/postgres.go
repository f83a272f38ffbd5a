package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aluiziolira/leadscout/models"
)

// PgxPool is the subset of *pgxpool.Pool the Postgres sink needs.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const createListingRecords = `CREATE TABLE IF NOT EXISTS listing_records (
	id         BIGSERIAL PRIMARY KEY,
	run_id     TEXT NOT NULL,
	sink_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	website    TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertListingRecord = `INSERT INTO listing_records
	(run_id, sink_id, name, address, phone, website, email, source_url, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// EnsureSchema creates the listing_records table when missing.
func EnsureSchema(ctx context.Context, pool PgxPool) error {
	if _, err := pool.Exec(ctx, createListingRecords); err != nil {
		return fmt.Errorf("create listing_records: %w", err)
	}
	return nil
}

// PostgresWriter appends records to the listing_records table, one
// transaction per batch. The pool is shared; the writer is per run.
type PostgresWriter struct {
	pool    PgxPool
	runID   string
	sinkID  string
	timeout time.Duration
}

// NewPostgresWriter builds a writer tagging rows with runID and sinkID.
func NewPostgresWriter(pool PgxPool, runID, sinkID string) *PostgresWriter {
	return &PostgresWriter{
		pool:    pool,
		runID:   runID,
		sinkID:  sinkID,
		timeout: 10 * time.Second,
	}
}

// Write inserts records inside a single transaction.
func (pw *PostgresWriter) Write(records []models.ListingRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pw.timeout)
	defer cancel()

	tx, err := pw.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres begin: %w", err)
	}

	for _, rec := range records {
		_, err := tx.Exec(ctx, insertListingRecord,
			pw.runID, pw.sinkID,
			rec.Name, rec.Address, rec.Phone, rec.Website, rec.Email,
			rec.SourceURL, rec.Status.String(),
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("postgres insert %q: %w", rec.SourceURL, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres commit: %w", err)
	}
	return nil
}

// Close is a no-op; the pool outlives the run.
func (pw *PostgresWriter) Close() error {
	return nil
}

// Validate is a no-op for the table sink.
func (pw *PostgresWriter) Validate() error {
	return nil
}
