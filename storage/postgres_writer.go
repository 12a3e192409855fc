package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"immo-estimator/models"
	"immo-estimator/utils"
)

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS training_runs (
		id           UUID PRIMARY KEY,
		model_name   TEXT          NOT NULL,
		train_rows   INTEGER       NOT NULL,
		test_rows    INTEGER       NOT NULL,
		features     INTEGER       NOT NULL,
		train_r2     DOUBLE PRECISION NOT NULL,
		test_r2      DOUBLE PRECISION NOT NULL,
		train_rmse   DOUBLE PRECISION NOT NULL,
		test_rmse    DOUBLE PRECISION NOT NULL,
		train_mae    DOUBLE PRECISION NOT NULL,
		test_mae     DOUBLE PRECISION NOT NULL,
		model_path   TEXT          NOT NULL DEFAULT '',
		schema_path  TEXT          NOT NULL DEFAULT '',
		trained_at   TIMESTAMPTZ   NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS predictions (
		id          UUID PRIMARY KEY,
		fields      JSONB            NOT NULL,
		price       DOUBLE PRECISION NOT NULL,
		created_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_training_runs_trained_at ON training_runs(trained_at);
	CREATE INDEX IF NOT EXISTS idx_predictions_created_at   ON predictions(created_at);
`

const insertRunSQL = `
	INSERT INTO training_runs (id, model_name, train_rows, test_rows, features,
		train_r2, test_r2, train_rmse, test_rmse, train_mae, test_mae,
		model_path, schema_path, trained_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	ON CONFLICT (id) DO NOTHING
`

const insertPredictionSQL = `
	INSERT INTO predictions (id, fields, price, created_at)
	VALUES ($1,$2,$3,$4)
	ON CONFLICT (id) DO NOTHING
`

// PostgresRecorder stores training runs and served predictions.
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder opens a connection to PostgreSQL, retrying the ping
// with back-off, runs the schema migration and returns a ready recorder.
func NewPostgresRecorder(ctx context.Context, dsn string, retry *utils.RetryConfig) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", func(ctx context.Context) error {
		return db.PingContext(ctx)
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pr := &PostgresRecorder{db: db}
	if err := pr.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pr, nil
}

func (pr *PostgresRecorder) migrate(ctx context.Context) error {
	_, err := pr.db.ExecContext(ctx, schemaDDL)
	return err
}

// RecordRun inserts one training run.
func (pr *PostgresRecorder) RecordRun(ctx context.Context, run *models.TrainingRun) error {
	_, err := pr.db.ExecContext(ctx, insertRunSQL, runArgs(run)...)
	if err != nil {
		return fmt.Errorf("postgres: insert run %s: %w", run.ID, err)
	}
	return nil
}

// RecordPrediction inserts one served prediction.
func (pr *PostgresRecorder) RecordPrediction(ctx context.Context, rec *models.PredictionRecord) error {
	args, err := predictionArgs(rec)
	if err != nil {
		return err
	}
	if _, err := pr.db.ExecContext(ctx, insertPredictionSQL, args...); err != nil {
		return fmt.Errorf("postgres: insert prediction %s: %w", rec.ID, err)
	}
	return nil
}

// RecentRuns returns the latest training runs, newest first.
func (pr *PostgresRecorder) RecentRuns(ctx context.Context, limit int) ([]*models.TrainingRun, error) {
	rows, err := pr.db.QueryContext(ctx, `
		SELECT id, model_name, train_rows, test_rows, features,
			train_r2, test_r2, train_rmse, test_rmse, train_mae, test_mae,
			model_path, schema_path, trained_at
		FROM training_runs
		ORDER BY trained_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.TrainingRun
	for rows.Next() {
		r := &models.TrainingRun{}
		if err := rows.Scan(
			&r.ID, &r.ModelName, &r.TrainRows, &r.TestRows, &r.Features,
			&r.Train.R2, &r.Test.R2, &r.Train.RMSE, &r.Test.RMSE, &r.Train.MAE, &r.Test.MAE,
			&r.ModelPath, &r.SchemaPath, &r.TrainedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (pr *PostgresRecorder) Close() error {
	return pr.db.Close()
}

func runArgs(run *models.TrainingRun) []any {
	trainedAt := run.TrainedAt
	if trainedAt.IsZero() {
		trainedAt = time.Now()
	}
	return []any{
		run.ID, run.ModelName, run.TrainRows, run.TestRows, run.Features,
		run.Train.R2, run.Test.R2, run.Train.RMSE, run.Test.RMSE, run.Train.MAE, run.Test.MAE,
		run.ModelPath, run.SchemaPath, trainedAt,
	}
}

func predictionArgs(rec *models.PredictionRecord) ([]any, error) {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal prediction fields: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return []any{rec.ID, string(fields), rec.Price, createdAt}, nil
}
