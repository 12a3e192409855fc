package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"immo-estimator/config"
	"immo-estimator/form"
	"immo-estimator/services"
	"immo-estimator/storage"
	"immo-estimator/utils"
	"immo-estimator/web"
)

const usage = `usage: immo-estimator [clean|train|serve|history]

  clean    clean the raw listings and write the cleaned CSV
  train    clean, train the model and save its artifacts (default)
  serve    serve the estimation form
  history  print the latest training runs recorded in PostgreSQL
`

const historyLimit = 10

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)
	defer logger.Sync()

	cmd := "train"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "clean":
		err = runClean(cfg, logger)
	case "train":
		err = runTrain(ctx, cfg, logger)
	case "serve":
		err = runServe(ctx, cfg, logger)
	case "history":
		err = runHistory(ctx, cfg, logger)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("%s failed: %v", cmd, err)
		logger.Sync()
		os.Exit(1)
	}
}

func runClean(cfg *config.Config, logger *utils.Logger) error {
	logger.Info("=== Cleaning %s ===", cfg.RawCSVPath)
	tp := services.NewTrainingPipeline(cfg, logger, nil)
	_, _, err := tp.Clean()
	return err
}

func runTrain(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	logger.Info("=== Training pipeline starting ===")
	logger.Info("Config: trees %d | max depth %d | test ratio %.2f | seed %d | concurrency %d",
		cfg.NEstimators, cfg.MaxDepth, cfg.TestRatio, cfg.SplitSeed, cfg.MaxConcurrency)

	recorder, err := openRecorder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer recorder.Close()

	run, err := services.NewTrainingPipeline(cfg, logger, recorder).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  Done. Run %s | model → %s | schema → %s\n\n", run.ID, run.ModelPath, run.SchemaPath)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	estimator := services.NewEstimator(logger, cfg.SchemaPath, cfg.ModelPath)
	if err := estimator.Load(); err != nil {
		logger.Error("Train a model first: go run . train")
		return err
	}

	provinces := append([]string(nil), estimator.Schema().Categories("province")...)
	sort.Strings(provinces)

	recorder, err := openRecorder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer recorder.Close()

	srv := web.NewServer(logger, estimator, recorder, cfg.SessionSecret, form.Options{Provinces: provinces})
	return srv.ListenAndServe(ctx, cfg.HTTPAddr)
}

func runHistory(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	if !cfg.PostgresEnabled {
		return fmt.Errorf("history needs POSTGRES_ENABLED=true")
	}
	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 500 * time.Millisecond, Logger: logger}
	pg, err := storage.NewPostgresRecorder(ctx, cfg.DSN(), retry)
	if err != nil {
		return err
	}
	defer pg.Close()

	runs, err := pg.RecentRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		logger.Info("No training runs recorded yet")
		return nil
	}

	insights := services.NewInsightService(logger)
	for _, run := range runs {
		fmt.Printf("  Run %s  %s\n", run.ID, run.TrainedAt.Format("2006-01-02 15:04:05"))
		insights.PrintMetrics(run)
	}
	return nil
}

type recorder interface {
	storage.RunRecorder
	storage.PredictionRecorder
}

// openRecorder connects to PostgreSQL when enabled and otherwise returns a
// recorder that stores nothing.
func openRecorder(ctx context.Context, cfg *config.Config, logger *utils.Logger) (recorder, error) {
	if !cfg.PostgresEnabled {
		logger.Info("PostgreSQL disabled, runs and predictions are not recorded")
		return storage.NopRecorder{}, nil
	}

	retry := &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   500 * time.Millisecond,
		Logger:      logger,
	}
	pg, err := storage.NewPostgresRecorder(ctx, cfg.DSN(), retry)
	if err != nil {
		logger.Error("Make sure Docker is running: docker compose up -d")
		return nil, err
	}
	logger.Info("Recording to PostgreSQL at %s:%s/%s", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	return pg, nil
}
