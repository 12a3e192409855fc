package storage

import (
	"context"

	"immo-estimator/models"
)

// RunRecorder persists the outcome of a training run.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.TrainingRun) error
	Close() error
}

// PredictionRecorder persists served predictions.
type PredictionRecorder interface {
	RecordPrediction(ctx context.Context, rec *models.PredictionRecord) error
	Close() error
}

// NopRecorder satisfies both recorder interfaces and stores nothing. It is
// used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) RecordRun(context.Context, *models.TrainingRun) error {
	return nil
}

func (NopRecorder) RecordPrediction(context.Context, *models.PredictionRecord) error {
	return nil
}

func (NopRecorder) Close() error { return nil }
