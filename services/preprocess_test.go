package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"immo-estimator/apperrors"
	"immo-estimator/models"
)

func numberedDataset(n int) *models.Dataset {
	ds := models.NewDataset([]string{"price", "n"})
	for i := 0; i < n; i++ {
		ds.Rows = append(ds.Rows, []models.Cell{models.Int(100000 + i), models.Int(i)})
	}
	return ds
}

func TestSplitDatasetSizesAndDisjoint(t *testing.T) {
	ds := numberedDataset(11)
	train, test := SplitDataset(ds, 0.2, 42)

	assert.Equal(t, 3, test.Len(), "ceil(11*0.2)")
	assert.Equal(t, 8, train.Len())

	seen := make(map[string]bool)
	for _, part := range []*models.Dataset{train, test} {
		for _, c := range part.Column("n") {
			require.False(t, seen[c.Value], "row %s appears twice", c.Value)
			seen[c.Value] = true
		}
	}
	assert.Len(t, seen, 11)
}

func TestSplitDatasetDeterministic(t *testing.T) {
	ds := numberedDataset(50)
	trainA, testA := SplitDataset(ds, 0.2, 7)
	trainB, testB := SplitDataset(ds, 0.2, 7)
	assert.Equal(t, trainA.Rows, trainB.Rows)
	assert.Equal(t, testA.Rows, testB.Rows)

	_, testC := SplitDataset(ds, 0.2, 8)
	assert.NotEqual(t, testA.Rows, testC.Rows)
}

func prepFixture() (*models.Dataset, *models.Dataset) {
	cols := []string{"price", "bedroomcount", "habitablesurface", "heating"}
	train := models.NewDataset(cols)
	train.Rows = [][]models.Cell{
		{models.Str("100000"), models.Str("1"), models.Str("50"), models.Str("GAS")},
		{models.Str("200000"), models.Str("2"), models.Null(), models.Str("GAS")},
		{models.Str("300000"), models.Null(), models.Str("70"), models.Str("OIL")},
		{models.Str("400000"), models.Str("4"), models.Str("100"), models.Null()},
	}
	test := models.NewDataset(cols)
	test.Rows = [][]models.Cell{
		{models.Str("150000"), models.Null(), models.Null(), models.Str("ELECTRIC")},
		{models.Str("250000"), models.Str("3"), models.Str("80"), models.Null()},
	}
	return train, test
}

func TestPreprocessorTrainingStatisticsOnly(t *testing.T) {
	train, test := prepFixture()
	p, err := NewPreprocessor(newTestLogger(), TargetColumn).FitTransform(train, test)
	require.NoError(t, err)

	assert.Equal(t, []string{"bedroomcount", "habitablesurface", "heating"}, p.Features)
	assert.Equal(t, 2.0, p.Imputation.Medians["bedroomcount"])
	assert.Equal(t, 70.0, p.Imputation.Medians["habitablesurface"])
	assert.Equal(t, "GAS", p.Imputation.Modes["heating"])
	assert.Equal(t, []string{"GAS", "OIL"}, p.Imputation.Codes["heating"])

	assert.Equal(t, []float64{100000, 200000, 300000, 400000}, p.YTrain)
	assert.Equal(t, []float64{2, 70, 1}, p.XTrain[2])
	assert.Equal(t, []float64{4, 100, 0}, p.XTrain[3], "missing category takes the training mode")

	// Test rows reuse training fill values; an unseen category is unknown.
	assert.Equal(t, []float64{2, 70, float64(models.UnknownCode)}, p.XTest[0])
	assert.Equal(t, []float64{3, 80, 0}, p.XTest[1])
}

func TestPreprocessorEvenMedian(t *testing.T) {
	cells := []models.Cell{models.Str("1"), models.Str("4"), models.Str("2"), models.Str("10"), models.Null()}
	assert.Equal(t, 3.0, median(cells))
	assert.Equal(t, 0.0, median([]models.Cell{models.Null()}))
}

func TestModeTieBreak(t *testing.T) {
	cells := []models.Cell{models.Str("b"), models.Str("a"), models.Str("b"), models.Str("a")}
	assert.Equal(t, "a", modeOf(cells))
	assert.Equal(t, "", modeOf(nil))
}

func TestPreprocessorErrors(t *testing.T) {
	p := NewPreprocessor(newTestLogger(), TargetColumn)

	noTarget := models.NewDataset([]string{"x"})
	noTarget.Rows = [][]models.Cell{{models.Int(1)}}
	_, err := p.FitTransform(noTarget, noTarget)
	assert.True(t, errors.Is(err, apperrors.ErrMissingTarget))

	empty := models.NewDataset([]string{"price", "x"})
	_, err = p.FitTransform(empty, empty)
	assert.True(t, errors.Is(err, apperrors.ErrEmptyDataset))
}
