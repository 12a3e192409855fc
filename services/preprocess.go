package services

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"immo-estimator/apperrors"
	"immo-estimator/models"
	"immo-estimator/utils"
)

// SplitDataset shuffles row indices with a source seeded by seed and
// returns (train, test). The test split holds ceil(n*ratio) rows.
func SplitDataset(ds *models.Dataset, ratio float64, seed int64) (*models.Dataset, *models.Dataset) {
	n := ds.Len()
	testN := int(math.Ceil(float64(n) * ratio))
	if testN > n {
		testN = n
	}
	if testN < 0 {
		testN = 0
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return ds.Select(perm[testN:]), ds.Select(perm[:testN])
}

// Prepared is a train/test split ready for the forest: numeric matrices in
// Features order plus the fill values that produced them.
type Prepared struct {
	Features   []string
	XTrain     [][]float64
	XTest      [][]float64
	YTrain     []float64
	YTest      []float64
	Imputation models.Imputation
}

// Preprocessor imputes and encodes features. Every statistic is taken from
// the training split only.
type Preprocessor struct {
	logger *utils.Logger
	target string
}

// NewPreprocessor creates a Preprocessor predicting the target column.
func NewPreprocessor(logger *utils.Logger, target string) *Preprocessor {
	return &Preprocessor{logger: logger, target: target}
}

// FitTransform fits fill values and category codes on train and applies
// them to both splits.
func (p *Preprocessor) FitTransform(train, test *models.Dataset) (*Prepared, error) {
	if !train.Has(p.target) {
		return nil, fmt.Errorf("preprocess: column %q: %w", p.target, apperrors.ErrMissingTarget)
	}
	if train.Len() == 0 {
		return nil, fmt.Errorf("preprocess: training split: %w", apperrors.ErrEmptyDataset)
	}

	var features []string
	for _, col := range train.Columns {
		if col != p.target {
			features = append(features, col)
		}
	}

	imp := models.Imputation{
		Medians: make(map[string]float64),
		Modes:   make(map[string]string),
		Codes:   make(map[string][]string),
	}

	numeric := make(map[string]bool, len(features))
	for _, col := range features {
		numeric[col] = isNumericColumn(train, col) && isNumericColumn(test, col)
	}

	// Important columns first so their fill values are logged together.
	ordered := make([]string, 0, len(features))
	for _, col := range ImportantNumericColumns {
		if numeric[col] && train.Has(col) {
			ordered = append(ordered, col)
		}
	}
	for _, col := range features {
		if numeric[col] && !contains(ImportantNumericColumns, col) {
			ordered = append(ordered, col)
		}
	}
	for _, col := range ordered {
		imp.Medians[col] = median(train.Column(col))
	}
	p.logger.Debug("[preprocess] Median fill values: %v", imp.Medians)

	for _, col := range features {
		if numeric[col] {
			continue
		}
		cells := train.Column(col)
		mode := modeOf(cells)
		imp.Modes[col] = mode
		for i, c := range cells {
			if c.IsNull() {
				cells[i] = models.Str(mode)
			}
		}
		imp.Codes[col] = distinctValues(cells)
	}
	if len(imp.Modes) > 0 {
		p.logger.Info("[preprocess] Encoded %d categorical columns with training codes", len(imp.Modes))
	}

	xTrain, yTrain, err := p.Transform(train, features, &imp)
	if err != nil {
		return nil, err
	}
	xTest, yTest, err := p.Transform(test, features, &imp)
	if err != nil {
		return nil, err
	}

	p.logger.Info("[preprocess] Prepared %d features: %d train rows, %d test rows",
		len(features), len(xTrain), len(xTest))

	return &Prepared{
		Features:   features,
		XTrain:     xTrain,
		XTest:      xTest,
		YTrain:     yTrain,
		YTest:      yTest,
		Imputation: imp,
	}, nil
}

// Transform turns ds into a matrix in features order using fitted fill
// values. Categories outside the fitted codes become models.UnknownCode. A
// feature absent from ds is all zeros.
func (p *Preprocessor) Transform(ds *models.Dataset, features []string, imp *models.Imputation) ([][]float64, []float64, error) {
	ti := ds.Index(p.target)
	if ti < 0 {
		return nil, nil, fmt.Errorf("preprocess: column %q: %w", p.target, apperrors.ErrMissingTarget)
	}

	idx := make([]int, len(features))
	for j, f := range features {
		idx[j] = ds.Index(f)
	}

	X := make([][]float64, ds.Len())
	y := make([]float64, ds.Len())
	for r, row := range ds.Rows {
		v, ok := row[ti].Number()
		if !ok {
			return nil, nil, fmt.Errorf("preprocess: row %d: %q is not numeric: %w", r, p.target, apperrors.ErrMissingTarget)
		}
		y[r] = v

		x := make([]float64, len(features))
		for j, f := range features {
			if idx[j] < 0 {
				continue
			}
			x[j] = imp.Value(f, row[idx[j]])
		}
		X[r] = x
	}
	return X, y, nil
}

// isNumericColumn reports whether every present value parses as a number.
// A column with no present values counts as numeric.
func isNumericColumn(ds *models.Dataset, col string) bool {
	i := ds.Index(col)
	if i < 0 {
		return true
	}
	for _, row := range ds.Rows {
		if row[i].Valid {
			if _, ok := row[i].Number(); !ok {
				return false
			}
		}
	}
	return true
}

// median of the present values, averaging the two middle values for even
// counts. No values yields 0.
func median(cells []models.Cell) float64 {
	vals := make([]float64, 0, len(cells))
	for _, c := range cells {
		if v, ok := c.Number(); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return stat.Mean(vals[mid-1:mid+1], nil)
}

// modeOf returns the most frequent present value; ties go to the value
// that sorts first. No values yields "".
func modeOf(cells []models.Cell) string {
	counts := make(map[string]int)
	for _, c := range cells {
		if c.Valid {
			counts[c.Value]++
		}
	}
	if len(counts) == 0 {
		return ""
	}
	vals := make([]string, 0, len(counts))
	for v := range counts {
		vals = append(vals, v)
	}
	sortCategories(vals)
	best := vals[0]
	for _, v := range vals[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
