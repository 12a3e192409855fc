package services

import (
	"fmt"
	"math"

	"immo-estimator/apperrors"
	"immo-estimator/models"
	"immo-estimator/storage"
	"immo-estimator/utils"
)

// MergeSpec describes which columns to pull from an auxiliary CSV and how
// to match its rows.
type MergeSpec struct {
	SourcePath string
	MainKey    string
	AuxKey     string
	Columns    []string
}

// DefaultMergeSpec imports geolocation and cadastral columns keyed by
// property id.
func DefaultMergeSpec(path string) MergeSpec {
	return MergeSpec{
		SourcePath: path,
		MainKey:    "id",
		AuxKey:     "propertyId",
		Columns: []string{
			"latitude",
			"longitude",
			"cadastralIncome",
			"primaryEnergyConsumptionPerSqm",
		},
	}
}

// Merger left-joins auxiliary columns into a dataset.
type Merger struct {
	logger *utils.Logger
}

// NewMerger creates a Merger with the given logger.
func NewMerger(logger *utils.Logger) *Merger {
	return &Merger{logger: logger}
}

// Merge returns a copy of main with spec.Columns appended, matched on
// main[spec.MainKey] == aux[spec.AuxKey]. The main key is coerced to an
// integer first; values that are not whole numbers become missing and never
// match. Only the first auxiliary row per key is used. Rows without a match
// get missing imported values. Imported column names are normalised and
// replace a same-named main column.
func (m *Merger) Merge(main *models.Dataset, spec MergeSpec) (*models.Dataset, error) {
	m.logger.Debug("[merger] Columns to merge: %v", spec.Columns)
	m.logger.Debug("[merger] Columns before merge: %v", main.Columns)

	aux, err := storage.ReadCSV(spec.SourcePath)
	if err != nil {
		m.logger.Error("[merger] File not found: %s", spec.SourcePath)
		return nil, fmt.Errorf("merger: %w", err)
	}

	if !main.Has(spec.MainKey) {
		return nil, fmt.Errorf("merger: main key %q: %w", spec.MainKey, apperrors.ErrMissingJoinColumn)
	}

	auxKey := aux.Index(spec.AuxKey)
	if auxKey < 0 {
		m.logger.Error("[merger] Column %q not found in source file", spec.AuxKey)
		return nil, fmt.Errorf("merger: auxiliary key %q in %s: %w", spec.AuxKey, spec.SourcePath, apperrors.ErrMissingJoinColumn)
	}

	importIdx := make([]int, len(spec.Columns))
	for i, col := range spec.Columns {
		importIdx[i] = aux.Index(col)
		if importIdx[i] < 0 {
			return nil, fmt.Errorf("merger: column %q in %s: %w", col, spec.SourcePath, apperrors.ErrMissingImportColumn)
		}
	}

	lookup := make(map[int64][]models.Cell, aux.Len())
	for _, row := range aux.Rows {
		key, ok := coerceKey(row[auxKey])
		if !ok {
			continue
		}
		if _, dup := lookup[key]; dup {
			continue
		}
		vals := make([]models.Cell, len(importIdx))
		for i, idx := range importIdx {
			vals[i] = row[idx]
		}
		lookup[key] = vals
	}

	out := main.Clone()
	mainKey := out.Index(spec.MainKey)
	imported := make([][]models.Cell, len(spec.Columns))
	for i := range imported {
		imported[i] = make([]models.Cell, out.Len())
	}

	matched := 0
	for r, row := range out.Rows {
		key, ok := coerceKey(row[mainKey])
		if !ok {
			row[mainKey] = models.Null()
			continue
		}
		row[mainKey] = models.Str(fmt.Sprintf("%d", key))
		vals, found := lookup[key]
		if !found {
			continue
		}
		matched++
		for i := range imported {
			imported[i][r] = vals[i]
		}
	}

	for i, col := range spec.Columns {
		out.Append(NormalizeColumnName(col), imported[i])
	}

	m.logger.Info("[merger] Merged %d columns from %s: %d/%d rows matched (%d distinct keys)",
		len(spec.Columns), spec.SourcePath, matched, out.Len(), len(lookup))
	m.logger.Debug("[merger] Columns after merge: %v", out.Columns)
	return out, nil
}

// coerceKey parses a join key as a whole number.
func coerceKey(c models.Cell) (int64, bool) {
	f, ok := c.Number()
	if !ok || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
