package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farmbud/backend/internal/domain"
)

// Schema creates the tables this repository writes to
const Schema = `
CREATE TABLE IF NOT EXISTS prediction_logs (
	id          BIGSERIAL PRIMARY KEY,
	nitrogen    DOUBLE PRECISION NOT NULL,
	phosphorus  DOUBLE PRECISION NOT NULL,
	potassium   DOUBLE PRECISION NOT NULL,
	temperature DOUBLE PRECISION NOT NULL,
	humidity    DOUBLE PRECISION NOT NULL,
	ph          DOUBLE PRECISION NOT NULL,
	rainfall    DOUBLE PRECISION NOT NULL,
	crop        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS soil_classifications (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT NOT NULL,
	soil_type   TEXT NOT NULL,
	confidence  TEXT NOT NULL,
	nitrogen    DOUBLE PRECISION NOT NULL,
	phosphorus  DOUBLE PRECISION NOT NULL,
	potassium   DOUBLE PRECISION NOT NULL,
	ph          DOUBLE PRECISION NOT NULL,
	image_key   TEXT,
	analyzed_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS disease_diagnoses (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT NOT NULL,
	disease     TEXT NOT NULL,
	confidence  TEXT NOT NULL,
	healthy     BOOLEAN NOT NULL,
	fertilizers TEXT NOT NULL,
	notes       TEXT,
	image_key   TEXT,
	analyzed_at TIMESTAMPTZ NOT NULL
);
`

// PostgresRepository implements domain.DataRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates missing tables
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: failed to migrate: %w", err)
	}
	return nil
}

// SavePredictionLog persists a crop recommendation to PostgreSQL
func (r *PostgresRepository) SavePredictionLog(ctx context.Context, f domain.CropFeatures, crop string) error {
	query := `
		INSERT INTO prediction_logs (
			nitrogen, phosphorus, potassium, temperature, humidity, ph, rainfall, crop
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		f.Nitrogen, f.Phosphorus, f.Potassium, f.Temperature, f.Humidity, f.PH, f.Rainfall, crop,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save prediction log: %w", err)
	}

	return nil
}

// SaveSoilClassification persists a soil analysis to PostgreSQL
func (r *PostgresRepository) SaveSoilClassification(ctx context.Context, sessionID string, s domain.SoilClassification) error {
	query := `
		INSERT INTO soil_classifications (
			session_id, soil_type, confidence, nitrogen, phosphorus, potassium, ph, image_key, analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		sessionID, s.SoilType, s.Confidence,
		s.Nutrients.Nitrogen, s.Nutrients.Phosphorus, s.Nutrients.Potassium, s.Nutrients.PH,
		nullable(s.ImageKey), s.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save soil classification: %w", err)
	}

	return nil
}

// SaveDiseaseDiagnosis persists a disease analysis to PostgreSQL
func (r *PostgresRepository) SaveDiseaseDiagnosis(ctx context.Context, sessionID string, d domain.DiseaseDiagnosis) error {
	query := `
		INSERT INTO disease_diagnoses (
			session_id, disease, confidence, healthy, fertilizers, notes, image_key, analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		sessionID, d.Disease, d.Confidence, d.Healthy,
		d.Recommendation.Fertilizers, nullable(d.Recommendation.Notes), nullable(d.ImageKey), d.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save disease diagnosis: %w", err)
	}

	return nil
}

// GetRecentPredictions retrieves the newest recommendations from PostgreSQL
func (r *PostgresRepository) GetRecentPredictions(ctx context.Context, limit int) ([]domain.PredictionLog, error) {
	query := `
		SELECT nitrogen, phosphorus, potassium, temperature, humidity, ph, rainfall, crop, created_at
		FROM prediction_logs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query prediction logs: %w", err)
	}

	return scanPredictions(rows, limit)
}

// scanPredictions reads prediction rows; no rows yields an empty, non-nil slice
func scanPredictions(rows pgx.Rows, sizeHint int) ([]domain.PredictionLog, error) {
	defer rows.Close()

	results := make([]domain.PredictionLog, 0, max(sizeHint, 0))
	for rows.Next() {
		var p domain.PredictionLog
		err := rows.Scan(
			&p.Features.Nitrogen, &p.Features.Phosphorus, &p.Features.Potassium,
			&p.Features.Temperature, &p.Features.Humidity, &p.Features.PH, &p.Features.Rainfall,
			&p.Crop, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan prediction row: %w", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read prediction rows: %w", err)
	}

	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

// nullable maps "" to NULL for optional text columns
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
