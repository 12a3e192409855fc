package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immo-estimator/models"
)

func TestRunArgsMatchPlaceholders(t *testing.T) {
	run := &models.TrainingRun{
		ID:        "3b241101-e2bb-4255-8caf-4136c566a962",
		ModelName: "Random Forest",
		TrainRows: 80,
		TestRows:  20,
		Train:     models.Metrics{R2: 0.9, RMSE: 1, MAE: 2},
		Test:      models.Metrics{R2: 0.7, RMSE: 3, MAE: 4},
	}

	args := runArgs(run)
	assert.Len(t, args, strings.Count(insertRunSQL, "$"))
	assert.Equal(t, 0.7, args[6])
	assert.False(t, args[13].(time.Time).IsZero())
}

func TestPredictionArgsEncodeFields(t *testing.T) {
	rec := &models.PredictionRecord{
		ID:     "id-1",
		Fields: map[string]string{"province": "Liège", "bedroomcount": "3"},
		Price:  325000,
	}

	args, err := predictionArgs(rec)
	require.NoError(t, err)
	assert.Len(t, args, strings.Count(insertPredictionSQL, "$"))
	assert.JSONEq(t, `{"province":"Liège","bedroomcount":"3"}`, args[1].(string))
}

func TestNopRecorder(t *testing.T) {
	var r NopRecorder
	ctx := context.Background()
	assert.NoError(t, r.RecordRun(ctx, &models.TrainingRun{}))
	assert.NoError(t, r.RecordPrediction(ctx, &models.PredictionRecord{}))
	assert.NoError(t, r.Close())
}
