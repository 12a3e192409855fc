package services

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immo-estimator/apperrors"
	"immo-estimator/forest"
	"immo-estimator/models"
	"immo-estimator/storage"
)

func sampleSchema() *models.FeatureSchema {
	return &models.FeatureSchema{
		Version: models.SchemaVersion,
		Target:  TargetColumn,
		Features: []string{
			"habitablesurface", "bedroomcount", "hasgarden", "epcscore", "heating",
			"type_HOUSE", "province_Liège", "locality_Gent", "locality_Other",
			"floodzonetype_1",
		},
		Encoding: models.Encoding{
			FloodZoneLabels: []string{"NON_FLOOD_ZONE", "POSSIBLE_FLOOD_ZONE"},
			Localities:      []string{"Brussels", "Gent"},
			OneHot: map[string][]string{
				"type":          {"APARTMENT", "HOUSE"},
				"province":      {"Antwerp", "Liège"},
				"locality":      {"Brussels", "Gent", "Other"},
				"floodzonetype": {"0", "1"},
			},
			OneHotOrder: []string{"type", "province", "locality", "floodzonetype"},
		},
		Imputation: models.Imputation{
			Medians: map[string]float64{"habitablesurface": 100, "bedroomcount": 2},
			Modes:   map[string]string{"heating": "GAS"},
			Codes:   map[string][]string{"heating": {"GAS", "OIL"}},
		},
	}
}

func trainedModel(t *testing.T, p int) *forest.Regressor {
	t.Helper()
	var X [][]float64
	var y []float64
	for i := 0; i < 30; i++ {
		row := make([]float64, p)
		row[0] = float64(50 + i*5)
		X = append(X, row)
		y = append(y, 100000+float64(i)*5000)
	}
	m := forest.New(forest.WithNEstimators(5), forest.WithMaxDepth(4))
	require.NoError(t, m.Fit(X, y))
	return m
}

func TestBuildVectorEmptyFieldsIsZero(t *testing.T) {
	schema := sampleSchema()
	x := BuildVector(schema, map[string]string{})

	require.Len(t, x, len(schema.Features))
	for i, v := range x {
		assert.Zero(t, v, "feature %s", schema.Features[i])
	}
}

func TestBuildVectorMapsFields(t *testing.T) {
	schema := sampleSchema()
	x := BuildVector(schema, map[string]string{
		"habitableSurface": "135.5",
		"bedroomCount":     "3",
		"hasGarden":        "True",
		"epcScore":         "C",
		"heating":          "OIL",
		"type":             "HOUSE",
		"province":         "Liège",
		"locality":         "Springfield",
		"floodZoneType":    "POSSIBLE_FLOOD_ZONE",
		"colour":           "blue",
		"hasSauna":         "yes",
	})

	want := []float64{135.5, 3, 1, 3, 1, 1, 1, 0, 1, 1}
	assert.Equal(t, want, x)
}

func TestBuildVectorUnknownValues(t *testing.T) {
	schema := sampleSchema()
	x := BuildVector(schema, map[string]string{
		"type":     "APARTMENT",
		"epcScore": "Z",
		"heating":  "WOOD",
		"province": "Namur",
	})

	assert.Equal(t, 0.0, x[schema.Index("type_HOUSE")], "reference category sets no column")
	assert.Equal(t, 0.0, x[schema.Index("province_Liège")])
	assert.Equal(t, float64(models.UnknownCode), x[schema.Index("epcscore")])
	assert.Equal(t, float64(models.UnknownCode), x[schema.Index("heating")])
}

func TestBuildVectorSkipsNonFiniteNumbers(t *testing.T) {
	schema := sampleSchema()
	x := BuildVector(schema, map[string]string{
		"bedroomcount":     "NaN",
		"habitablesurface": "Inf",
	})

	assert.Equal(t, 0.0, x[schema.Index("bedroomcount")])
	assert.Equal(t, 0.0, x[schema.Index("habitablesurface")])
}

func TestEstimatorPredictWithoutSelections(t *testing.T) {
	schema := sampleSchema()
	model := trainedModel(t, len(schema.Features))

	e := NewEstimatorFrom(newTestLogger(), schema, model)
	price, err := e.Predict(nil)
	require.NoError(t, err)
	assert.Equal(t, model.PredictRow(make([]float64, len(schema.Features))), price)
}

func TestEstimatorLoadsArtifactsOnce(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	modelPath := filepath.Join(dir, "model.gob")

	schema := sampleSchema()
	model := trainedModel(t, len(schema.Features))
	require.NoError(t, storage.SaveSchema(schemaPath, schema))
	require.NoError(t, storage.SaveModel(modelPath, model))

	e := NewEstimator(newTestLogger(), schemaPath, modelPath)
	fields := map[string]string{"habitablesurface": "120", "type": "HOUSE"}
	first, err := e.Predict(fields)
	require.NoError(t, err)
	assert.Equal(t, model.PredictRow(BuildVector(schema, fields)), first)

	loaded := e.Schema()
	second, err := e.Predict(fields)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Same(t, loaded, e.Schema())
}

func TestEstimatorMissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	e := NewEstimator(newTestLogger(), filepath.Join(dir, "schema.yaml"), filepath.Join(dir, "model.gob"))

	_, err := e.Predict(map[string]string{})
	assert.True(t, errors.Is(err, apperrors.ErrSourceNotFound))
}
