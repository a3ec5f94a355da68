package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbScope/internal/model"
)

// Schema creates the report table.
const Schema = `
CREATE TABLE IF NOT EXISTS arbitrage_reports (
	id           BIGSERIAL PRIMARY KEY,
	route_id     TEXT NOT NULL,
	outcome      TEXT NOT NULL,
	path         TEXT NOT NULL,
	trigger_pool TEXT NOT NULL,
	block_number BIGINT,
	start_amount NUMERIC,
	final_amount NUMERIC,
	profit       NUMERIC,
	profit_raw   NUMERIC,
	hops         JSONB,
	error        TEXT,
	detected_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS arbitrage_reports_route_idx ON arbitrage_reports (route_id, detected_at);
`

// Store persists evaluation reports to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the report table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// PutReports inserts a batch of reports.
func (s *Store) PutReports(ctx context.Context, reports []model.Report) error {
	if len(reports) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range reports {
		hops, err := json.Marshal(r.Hops)
		if err != nil {
			return fmt.Errorf("marshal hops %s: %w", r.RouteID, err)
		}
		detectedAt, err := time.Parse(time.RFC3339Nano, r.DetectedAt)
		if err != nil {
			detectedAt = time.Now().UTC()
		}
		batch.Queue(`
			INSERT INTO arbitrage_reports (
				route_id, outcome, path, trigger_pool, block_number,
				start_amount, final_amount, profit, profit_raw, hops, error, detected_at
			) VALUES (
				$1, $2, $3, $4, $5,
				CAST(NULLIF($6::text, '') AS NUMERIC),
				CAST(NULLIF($7::text, '') AS NUMERIC),
				CAST(NULLIF($8::text, '') AS NUMERIC),
				CAST(NULLIF($9::text, '') AS NUMERIC),
				$10::jsonb, NULLIF($11::text, ''), $12
			)
		`,
			r.RouteID,
			r.Outcome,
			r.Path,
			r.TriggerPool,
			int64(r.BlockNumber),
			r.StartAmount,
			r.FinalAmount,
			r.Profit,
			r.ProfitRaw,
			string(hops),
			r.Error,
			detectedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range reports {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
	}
	return nil
}
