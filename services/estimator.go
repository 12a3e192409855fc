package services

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"immo-estimator/apperrors"
	"immo-estimator/forest"
	"immo-estimator/models"
	"immo-estimator/storage"
	"immo-estimator/utils"
)

// Predictor estimates a price from raw form fields.
type Predictor interface {
	Predict(fields map[string]string) (float64, error)
}

// Estimator serves predictions from persisted artifacts. The schema and the
// model are read on first use and shared read-only afterwards.
type Estimator struct {
	logger     *utils.Logger
	schemaPath string
	modelPath  string

	once   sync.Once
	schema *models.FeatureSchema
	model  *forest.Regressor
	err    error
}

// NewEstimator creates an Estimator over the given artifact paths.
func NewEstimator(logger *utils.Logger, schemaPath, modelPath string) *Estimator {
	return &Estimator{logger: logger, schemaPath: schemaPath, modelPath: modelPath}
}

// NewEstimatorFrom wraps artifacts already in memory.
func NewEstimatorFrom(logger *utils.Logger, schema *models.FeatureSchema, model *forest.Regressor) *Estimator {
	e := &Estimator{logger: logger, schema: schema, model: model}
	e.once.Do(func() {})
	return e
}

// Load reads the artifacts once. Later calls return the first result.
func (e *Estimator) Load() error {
	e.once.Do(func() {
		e.schema, e.err = storage.LoadSchema(e.schemaPath)
		if e.err != nil {
			e.err = fmt.Errorf("estimator: %w", e.err)
			return
		}
		e.model, e.err = storage.LoadModel(e.modelPath)
		if e.err != nil {
			e.err = fmt.Errorf("estimator: %w", e.err)
			return
		}
		e.logger.Info("[estimator] Loaded model %s (%d trees) and schema %s (%d features)",
			e.modelPath, len(e.model.Trees), e.schemaPath, len(e.schema.Features))
	})
	return e.err
}

// Schema returns the loaded feature schema, or nil before Load.
func (e *Estimator) Schema() *models.FeatureSchema { return e.schema }

// Predict builds the feature vector for fields and returns the model's
// estimate unchanged.
func (e *Estimator) Predict(fields map[string]string) (float64, error) {
	if err := e.Load(); err != nil {
		return 0, err
	}
	if e.model == nil || !e.model.Trained() {
		return 0, fmt.Errorf("estimator: %w", apperrors.ErrModelNotTrained)
	}
	x := BuildVector(e.schema, fields)
	if len(x) != e.model.NFeatures {
		return 0, fmt.Errorf("estimator: schema has %d features, model expects %d", len(x), e.model.NFeatures)
	}
	return e.model.PredictRow(x), nil
}

// BuildVector maps raw fields onto the schema's features, in schema order.
// Features no field maps to stay 0; fields the schema does not use are
// ignored.
func BuildVector(schema *models.FeatureSchema, fields map[string]string) []float64 {
	x := make([]float64, len(schema.Features))
	enc := &schema.Encoding

	set := func(col string, v float64) {
		if i := schema.Index(col); i >= 0 {
			x[i] = v
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := strings.TrimSpace(fields[key])
		if raw == "" {
			continue
		}
		col := NormalizeColumnName(key)

		switch {
		case enc.OneHot[col] != nil:
			val := raw
			switch col {
			case FloodZoneColumn:
				val = strconv.Itoa(enc.FloodZoneCode(raw))
			case LocalityColumn:
				if !enc.KeepsLocality(raw) {
					val = models.OtherLocality
				}
			}
			set(models.DummyColumn(col, val), 1)
		case contains(BinaryColumns, col):
			set(col, float64(NormalizeFlag(models.Str(raw))))
		case col == EPCColumn:
			set(col, float64(EPCCode(raw)))
		case col == FloodZoneColumn:
			set(col, float64(enc.FloodZoneCode(raw)))
		case schema.Index(col) >= 0:
			if codes, ok := schema.Imputation.Codes[col]; ok {
				set(col, float64(models.CodeOf(codes, raw)))
				continue
			}
			if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
				set(col, v)
			}
		}
	}
	return x
}
