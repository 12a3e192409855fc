package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immo-estimator/apperrors"
	"immo-estimator/config"
	"immo-estimator/models"
	"immo-estimator/storage"
)

type memRecorder struct {
	runs []*models.TrainingRun
}

func (m *memRecorder) RecordRun(_ context.Context, run *models.TrainingRun) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRecorder) Close() error { return nil }

func pipelineConfig(t *testing.T, rows int) *config.Config {
	t.Helper()
	dir := t.TempDir()

	var raw, aux strings.Builder
	raw.WriteString("id,price,habitableSurface,bedroomCount,floodZoneType,locality,province,type,epcScore,hasGarden\n")
	aux.WriteString("propertyId,latitude,longitude,cadastralIncome,primaryEnergyConsumptionPerSqm\n")
	provinces := []string{"Antwerp", "Brussels", "Liège"}
	for i := 1; i <= rows; i++ {
		surface := 50 + i*4
		typ := "APARTMENT"
		if i%3 == 0 {
			typ = "HOUSE"
		}
		fmt.Fprintf(&raw, "%d,%d,%d,%d,NON_FLOOD_ZONE,Town%d,%s,%s,%s,%v\n",
			i, 60000+surface*2500, surface, 1+i%4, i%5, provinces[i%3], typ, EPCOrder[i%8], i%2 == 0)
		fmt.Fprintf(&aux, "%d,%.2f,%.2f,%d,%d\n", i, 50+float64(i)/100, 4+float64(i)/100, 500+i*10, 100+i)
	}

	rawPath := filepath.Join(dir, "raw.csv")
	auxPath := filepath.Join(dir, "aux.csv")
	require.NoError(t, os.WriteFile(rawPath, []byte(raw.String()), 0644))
	require.NoError(t, os.WriteFile(auxPath, []byte(aux.String()), 0644))

	return &config.Config{
		RawCSVPath:      rawPath,
		AuxCSVPath:      auxPath,
		CleanedCSVPath:  filepath.Join(dir, "out", "cleaned.csv"),
		ModelPath:       filepath.Join(dir, "artifacts", "model.gob"),
		SchemaPath:      filepath.Join(dir, "artifacts", "schema.yaml"),
		PlotsDir:        filepath.Join(dir, "plots"),
		TestRatio:       0.2,
		SplitSeed:       42,
		NEstimators:     10,
		MaxDepth:        6,
		MinSamplesSplit: 2,
		MaxConcurrency:  2,
	}
}

func TestTrainingPipelineRun(t *testing.T) {
	cfg := pipelineConfig(t, 60)
	rec := &memRecorder{}
	tp := NewTrainingPipeline(cfg, newTestLogger(), rec).
		WithInsights(NewInsightService(newTestLogger()).WithOutput(io.Discard))

	run, err := tp.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 48, run.TrainRows)
	assert.Equal(t, 12, run.TestRows)
	assert.NotEmpty(t, run.ID)
	assert.Greater(t, run.Train.R2, 0.5)
	require.Len(t, rec.runs, 1)
	assert.Same(t, run, rec.runs[0])

	schema, err := storage.LoadSchema(cfg.SchemaPath)
	require.NoError(t, err)
	assert.Equal(t, run.ID, schema.RunID)
	assert.Equal(t, run.Features, len(schema.Features))
	assert.NotContains(t, schema.Features, TargetColumn)
	assert.Contains(t, schema.Features, "type_HOUSE")
	assert.Equal(t, []string{"NON_FLOOD_ZONE"}, schema.Encoding.FloodZoneLabels)

	cleaned, err := storage.ReadCSV(cfg.CleanedCSVPath)
	require.NoError(t, err)
	var withoutTarget []string
	for _, c := range cleaned.Columns {
		if c != TargetColumn {
			withoutTarget = append(withoutTarget, c)
		}
	}
	assert.Equal(t, withoutTarget, schema.Features, "schema is the cleaned columns minus the target")

	e := NewEstimator(newTestLogger(), cfg.SchemaPath, cfg.ModelPath)
	empty, err := e.Predict(map[string]string{})
	require.NoError(t, err)
	assert.Greater(t, empty, 0.0)

	big, err := e.Predict(map[string]string{"habitablesurface": "280", "type": "HOUSE"})
	require.NoError(t, err)
	small, err := e.Predict(map[string]string{"habitablesurface": "55", "type": "HOUSE"})
	require.NoError(t, err)
	assert.Greater(t, big, small)

	for _, name := range []string{PriceHistogramFile, PriceByTypeFile, PriceSurfaceFile} {
		_, err := os.Stat(filepath.Join(cfg.PlotsDir, name))
		assert.NoError(t, err, name)
	}
}

func TestCleanAppliesSavedEncoding(t *testing.T) {
	cfg := pipelineConfig(t, 60)
	tp := NewTrainingPipeline(cfg, newTestLogger(), nil).
		WithInsights(NewInsightService(newTestLogger()).WithOutput(io.Discard))

	_, err := tp.Run(context.Background())
	require.NoError(t, err)
	schema, err := storage.LoadSchema(cfg.SchemaPath)
	require.NoError(t, err)

	// A listing whose flood zone and locality the trained run never saw.
	appendLine(t, cfg.RawCSVPath, "61,310000,100,2,POSSIBLE_FLOOD_ZONE,Brugge,Antwerp,HOUSE,B,true")
	appendLine(t, cfg.AuxCSVPath, "61,51.20,3.22,700,150")

	ds, enc, err := tp.Clean()
	require.NoError(t, err)
	assert.Equal(t, 61, ds.Len())
	assert.Equal(t, schema.Encoding, *enc)
	assert.Equal(t, []string{"NON_FLOOD_ZONE"}, enc.FloodZoneLabels)
	assert.False(t, ds.Has("locality_Brugge"))
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
}

func TestTrainingPipelineStopsOnCleanFailure(t *testing.T) {
	cfg := pipelineConfig(t, 10)
	cfg.AuxCSVPath = filepath.Join(t.TempDir(), "missing.csv")
	rec := &memRecorder{}

	_, err := NewTrainingPipeline(cfg, newTestLogger(), rec).Run(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrSourceNotFound))
	assert.Empty(t, rec.runs)

	for _, path := range []string{cfg.CleanedCSVPath, cfg.SchemaPath, cfg.ModelPath} {
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), path)
	}
}
