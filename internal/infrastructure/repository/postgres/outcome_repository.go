package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// OutcomeRepository persists per-query learning signals and serves the
// per-strategy aggregates consumed by the selector and the optimizer.
// Rows are never deleted here; retention belongs to the store's operators.
type OutcomeRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db, now: time.Now}
}

func (r *OutcomeRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS retrieval_outcomes (
	response_id TEXT PRIMARY KEY,
	query_id TEXT NOT NULL,
	strategy TEXT NOT NULL,
	avg_relevance DOUBLE PRECISION NOT NULL DEFAULT 0,
	result_count INTEGER NOT NULL DEFAULT 0,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	latency_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	caller_id TEXT,
	satisfaction DOUBLE PRECISION,
	converted BOOLEAN,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_retrieval_outcomes_strategy_created_at
	ON retrieval_outcomes(strategy, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *OutcomeRepository) StoreOutcome(ctx context.Context, rec domain.OutcomeRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO retrieval_outcomes
	(response_id, query_id, strategy, avg_relevance, result_count, confidence, latency_ms, caller_id, satisfaction, converted, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (response_id) DO NOTHING
`, rec.ResponseID, rec.QueryID, string(rec.Strategy), rec.AvgRelevance, rec.ResultCount,
		rec.Confidence, rec.Latency, rec.CallerID, rec.Satisfaction, rec.Converted, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("store outcome: %w", err)
	}
	return nil
}

func (r *OutcomeRepository) StrategyPerformance(ctx context.Context, window time.Duration) (map[domain.Strategy]domain.StrategyMetrics, error) {
	cutoff := r.now().UTC().Add(-window)
	rows, err := r.db.QueryContext(ctx, `
SELECT strategy,
	COALESCE(AVG(satisfaction), 0),
	COALESCE(AVG(confidence), 0),
	COALESCE(AVG(latency_ms), 0),
	COALESCE(AVG(CASE WHEN converted THEN 1.0 WHEN converted IS NOT NULL THEN 0.0 END), 0),
	COUNT(*)
FROM retrieval_outcomes
WHERE created_at >= $1
GROUP BY strategy
`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query strategy performance: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Strategy]domain.StrategyMetrics)
	for rows.Next() {
		var (
			strategy string
			m        domain.StrategyMetrics
		)
		if err := rows.Scan(&strategy, &m.AvgSatisfaction, &m.AvgConfidence, &m.AvgLatency, &m.ConversionRate, &m.SampleCount); err != nil {
			return nil, fmt.Errorf("scan strategy performance: %w", err)
		}
		out[domain.Strategy(strategy)] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy performance: %w", err)
	}
	return out, nil
}

// StrategyTrend splits the window in half so the optimizer can compare early
// and recent behavior per strategy.
func (r *OutcomeRepository) StrategyTrend(ctx context.Context, window time.Duration) ([]domain.StrategyTrend, error) {
	now := r.now().UTC()
	cutoff := now.Add(-window)
	midpoint := now.Add(-window / 2)

	rows, err := r.db.QueryContext(ctx, `
SELECT strategy,
	(created_at >= $2) AS recent,
	COALESCE(AVG(satisfaction), 0),
	COALESCE(AVG(confidence), 0),
	COALESCE(AVG(latency_ms), 0),
	COALESCE(AVG(CASE WHEN converted THEN 1.0 WHEN converted IS NOT NULL THEN 0.0 END), 0),
	COUNT(*)
FROM retrieval_outcomes
WHERE created_at >= $1
GROUP BY strategy, recent
ORDER BY strategy, recent
`, cutoff, midpoint)
	if err != nil {
		return nil, fmt.Errorf("query strategy trend: %w", err)
	}
	defer rows.Close()

	trends := make(map[domain.Strategy]*domain.StrategyTrend)
	order := make([]domain.Strategy, 0, 4)
	for rows.Next() {
		var (
			strategy string
			recent   bool
			m        domain.StrategyMetrics
		)
		if err := rows.Scan(&strategy, &recent, &m.AvgSatisfaction, &m.AvgConfidence, &m.AvgLatency, &m.ConversionRate, &m.SampleCount); err != nil {
			return nil, fmt.Errorf("scan strategy trend: %w", err)
		}

		key := domain.Strategy(strategy)
		trend, ok := trends[key]
		if !ok {
			trend = &domain.StrategyTrend{Strategy: key}
			trends[key] = trend
			order = append(order, key)
		}
		if recent {
			trend.SecondHalf = m
		} else {
			trend.FirstHalf = m
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy trend: %w", err)
	}

	out := make([]domain.StrategyTrend, 0, len(order))
	for _, key := range order {
		out = append(out, *trends[key])
	}
	return out, nil
}
