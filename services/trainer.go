package services

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"immo-estimator/apperrors"
	"immo-estimator/forest"
	"immo-estimator/models"
	"immo-estimator/utils"
)

// ModelName labels runs produced by the Trainer.
const ModelName = "RandomForestRegressor"

// Trainer fits the forest on prepared data and scores both splits.
type Trainer struct {
	logger *utils.Logger
	opts   []forest.Option
}

// NewTrainer creates a Trainer; opts override the forest defaults.
func NewTrainer(logger *utils.Logger, opts ...forest.Option) *Trainer {
	return &Trainer{logger: logger, opts: opts}
}

// Train fits a new forest on p's training split and reports metrics for
// the training and test splits.
func (t *Trainer) Train(p *Prepared) (*forest.Regressor, *models.TrainingRun, error) {
	if len(p.XTrain) == 0 {
		return nil, nil, fmt.Errorf("trainer: %w", apperrors.ErrEmptyDataset)
	}

	model := forest.New(t.opts...)
	t.logger.Info("[trainer] Training %s: %d trees, max depth %d, %d rows x %d features",
		ModelName, model.NEstimators, model.MaxDepth, len(p.XTrain), len(p.Features))

	start := time.Now()
	if err := model.Fit(p.XTrain, p.YTrain); err != nil {
		return nil, nil, fmt.Errorf("trainer: fit: %w", err)
	}
	t.logger.Info("[trainer] Training finished in %s", time.Since(start).Round(time.Millisecond))

	run := &models.TrainingRun{
		ModelName: ModelName,
		TrainRows: len(p.XTrain),
		TestRows:  len(p.XTest),
		Features:  len(p.Features),
		Train:     Evaluate(p.YTrain, model.Predict(p.XTrain)),
		TrainedAt: time.Now().UTC(),
	}
	if len(p.XTest) > 0 {
		run.Test = Evaluate(p.YTest, model.Predict(p.XTest))
	}
	return model, run, nil
}

// Evaluate computes R², RMSE and MAE of pred against actual. Empty input
// yields zero metrics.
func Evaluate(actual, pred []float64) models.Metrics {
	n := float64(len(actual))
	if n == 0 {
		return models.Metrics{}
	}
	return models.Metrics{
		R2:   stat.RSquaredFrom(pred, actual, nil),
		RMSE: floats.Distance(pred, actual, 2) / math.Sqrt(n),
		MAE:  floats.Distance(pred, actual, 1) / n,
	}
}
