package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"immo-estimator/config"
	"immo-estimator/forest"
	"immo-estimator/models"
	"immo-estimator/storage"
	"immo-estimator/utils"
)

// TrainingPipeline runs clean, split, preprocess, train and persist in
// order. Any failing stage stops the run before later stages execute.
type TrainingPipeline struct {
	cfg      *config.Config
	logger   *utils.Logger
	recorder storage.RunRecorder
	insights *InsightService
}

func NewTrainingPipeline(cfg *config.Config, logger *utils.Logger, recorder storage.RunRecorder) *TrainingPipeline {
	if recorder == nil {
		recorder = storage.NopRecorder{}
	}
	return &TrainingPipeline{
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		insights: NewInsightService(logger),
	}
}

// WithInsights replaces the report printer.
func (tp *TrainingPipeline) WithInsights(s *InsightService) *TrainingPipeline {
	cp := *tp
	cp.insights = s
	return &cp
}

// Clean runs only the cleaning stage and prints the dataset insights. When a
// feature schema was saved by an earlier run, its encoding is applied so the
// output keeps the trained vocabularies; otherwise encodings are fitted.
func (tp *TrainingPipeline) Clean() (*models.Dataset, *models.Encoding, error) {
	cleaner := NewCleaner(tp.logger, DefaultMergeSpec(tp.cfg.AuxCSVPath))
	schema, err := storage.LoadSchema(tp.cfg.SchemaPath)
	if err != nil {
		tp.logger.Info("[pipeline] No usable schema at %s, fitting encodings: %v", tp.cfg.SchemaPath, err)
	} else {
		tp.logger.Info("[pipeline] Applying encodings of run %s", schema.RunID)
		cleaner = cleaner.WithEncoding(&schema.Encoding)
	}
	return tp.clean(cleaner)
}

func (tp *TrainingPipeline) clean(cleaner *Cleaner) (*models.Dataset, *models.Encoding, error) {
	ds, enc, err := cleaner.Clean(tp.cfg.RawCSVPath, tp.cfg.CleanedCSVPath)
	if err != nil {
		return nil, nil, err
	}
	tp.insights.Print(tp.insights.Generate(ds, enc))
	return ds, enc, nil
}

// Run executes the full training pipeline and returns the recorded run.
func (tp *TrainingPipeline) Run(ctx context.Context) (*models.TrainingRun, error) {
	ds, enc, err := tp.clean(NewCleaner(tp.logger, DefaultMergeSpec(tp.cfg.AuxCSVPath)))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	train, test := SplitDataset(ds, tp.cfg.TestRatio, tp.cfg.SplitSeed)
	tp.logger.Info("[pipeline] Split %d rows: %d train / %d test (seed %d)",
		ds.Len(), train.Len(), test.Len(), tp.cfg.SplitSeed)

	prepared, err := NewPreprocessor(tp.logger, TargetColumn).FitTransform(train, test)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	runID := uuid.NewString()
	schema := &models.FeatureSchema{
		Version:    models.SchemaVersion,
		RunID:      runID,
		CreatedAt:  time.Now().UTC(),
		Target:     TargetColumn,
		Features:   prepared.Features,
		Encoding:   *enc,
		Imputation: prepared.Imputation,
	}
	if err := storage.SaveSchema(tp.cfg.SchemaPath, schema); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	tp.logger.Info("[pipeline] Feature schema (%d columns) saved in: %s", len(schema.Features), tp.cfg.SchemaPath)

	trainer := NewTrainer(tp.logger,
		forest.WithNEstimators(tp.cfg.NEstimators),
		forest.WithMaxDepth(tp.cfg.MaxDepth),
		forest.WithMinSamplesSplit(tp.cfg.MinSamplesSplit),
		forest.WithMaxFeatures(tp.cfg.MaxFeatures),
		forest.WithRandomState(tp.cfg.SplitSeed),
		forest.WithConcurrency(tp.cfg.MaxConcurrency),
	)
	model, run, err := trainer.Train(prepared)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	if err := storage.SaveModel(tp.cfg.ModelPath, model); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	tp.logger.Info("[pipeline] Model saved in: %s", tp.cfg.ModelPath)

	run.ID = runID
	run.ModelPath = tp.cfg.ModelPath
	run.SchemaPath = tp.cfg.SchemaPath
	tp.insights.PrintMetrics(run)

	if err := tp.recorder.RecordRun(ctx, run); err != nil {
		tp.logger.Error("[pipeline] Failed to record training run: %v", err)
	}

	if tp.cfg.PlotsDir != "" {
		if _, err := NewPlotter(tp.logger, tp.cfg.PlotsDir).Render(ds, enc); err != nil {
			tp.logger.Warn("[pipeline] Chart rendering failed: %v", err)
		}
	}
	return run, nil
}
