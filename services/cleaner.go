package services

import (
	"fmt"
	"sort"
	"strings"

	"immo-estimator/apperrors"
	"immo-estimator/models"
	"immo-estimator/storage"
	"immo-estimator/utils"
)

// Cleaner turns a raw listings CSV into a model-ready dataset.
//
// Without a fitted Encoding the Cleaner derives one from the data (training
// time). WithEncoding makes it reuse a persisted Encoding instead, so the
// same text value always maps to the same code and one-hot columns.
type Cleaner struct {
	logger   *utils.Logger
	merger   *Merger
	aux      MergeSpec
	encoding *models.Encoding
}

// NewCleaner creates a Cleaner that merges from the given auxiliary source.
func NewCleaner(logger *utils.Logger, aux MergeSpec) *Cleaner {
	return &Cleaner{
		logger: logger,
		merger: NewMerger(logger),
		aux:    aux,
	}
}

// WithEncoding returns a Cleaner that applies enc instead of fitting.
func (c *Cleaner) WithEncoding(enc *models.Encoding) *Cleaner {
	cp := *c
	cp.encoding = enc
	return &cp
}

// Clean reads rawPath, runs the pipeline and writes the result to
// outputPath. Nothing is written when any step fails.
func (c *Cleaner) Clean(rawPath, outputPath string) (*models.Dataset, *models.Encoding, error) {
	raw, err := storage.ReadCSV(rawPath)
	if err != nil {
		return nil, nil, fmt.Errorf("cleaner: %w", err)
	}
	c.logger.Info("[cleaner] Loaded %s: %d rows, %d columns", rawPath, raw.Len(), len(raw.Columns))

	ds, enc, err := c.Transform(raw)
	if err != nil {
		return nil, nil, err
	}

	if err := storage.WriteCSV(outputPath, ds); err != nil {
		return nil, nil, fmt.Errorf("cleaner: %w", err)
	}
	c.logger.Info("[cleaner] Cleaned dataframe saved in: %s", outputPath)
	c.logger.Info("[cleaner] The dataset has %d rows.", ds.Len())
	return ds, enc, nil
}

// Transform runs every cleaning step on an in-memory dataset. raw is not
// modified.
func (c *Cleaner) Transform(raw *models.Dataset) (*models.Dataset, *models.Encoding, error) {
	ds := raw.Clone()

	for i, col := range ds.Columns {
		ds.Columns[i] = NormalizeColumnName(col)
	}

	merged, err := c.merger.Merge(ds, c.aux)
	if err != nil {
		return nil, nil, fmt.Errorf("cleaner: merge: %w", err)
	}
	ds = merged

	report := ValidateColumns(ds)
	if len(report.Absent) > 0 {
		c.logger.Debug("[cleaner] Expected columns absent from input: %v", report.Absent)
	}

	before := ds.Len()
	ds = dropDuplicateRows(ds)
	c.logger.Info("[cleaner] Removed %d duplicate rows", before-ds.Len())

	drop := report.Of(DroppedColumns)
	ds = ds.Drop(drop...)
	report.Forget(drop...)

	trimText(ds)

	sparse := sparseColumns(ds, MinNonMissingRatio)
	if len(sparse) > 0 {
		c.logger.Info("[cleaner] Dropping %d sparse columns: %v", len(sparse), sparse)
	}
	ds = ds.Drop(sparse...)
	report.Forget(sparse...)

	for _, col := range RequiredColumns {
		if !report.Has(col) {
			return nil, nil, fmt.Errorf("cleaner: column %q: %w", col, apperrors.ErrMissingRequired)
		}
	}
	before = ds.Len()
	ds = dropIncomplete(ds, RequiredColumns)
	c.logger.Info("[cleaner] Dropped %d rows missing %v", before-ds.Len(), RequiredColumns)

	for _, col := range report.Of(BinaryColumns) {
		encodeFlags(ds, col)
	}

	if report.Has(EPCColumn) {
		encodeEPC(ds)
	}

	enc := c.encoding
	if enc == nil {
		enc = &models.Encoding{OneHot: make(map[string][]string)}
		enc.FloodZoneLabels = distinctValues(ds.Column(FloodZoneColumn))
		if report.Has(LocalityColumn) {
			enc.Localities = topValues(ds.Column(LocalityColumn), TopLocalities)
		}
	}

	encodeFloodZone(ds, enc)

	if report.Has(LocalityColumn) {
		collapseLocality(ds, enc)
	}

	fit := c.encoding == nil
	ds = expandOneHot(ds, report.Of(OneHotColumns), enc, fit)

	before = ds.Len()
	ds = filterPrice(ds)
	c.logger.Info("[cleaner] Filtered %d rows outside price range [%.0f, %.0f]", before-ds.Len(), MinPrice, MaxPrice)

	return ds, enc, nil
}

func dropDuplicateRows(ds *models.Dataset) *models.Dataset {
	seen := utils.NewKeySet()
	var b strings.Builder
	return ds.Filter(func(row []models.Cell) bool {
		b.Reset()
		for _, c := range row {
			if c.IsNull() {
				b.WriteString("\x00N")
			} else {
				b.WriteString("\x00V")
				b.WriteString(c.Value)
			}
		}
		return seen.Add(b.String())
	})
}

func trimText(ds *models.Dataset) {
	for _, row := range ds.Rows {
		for i, c := range row {
			if c.Valid {
				row[i].Value = strings.TrimSpace(c.Value)
			}
		}
	}
}

// sparseColumns returns the columns whose present share is below ratio.
func sparseColumns(ds *models.Dataset, ratio float64) []string {
	threshold := float64(ds.Len()) * ratio
	var out []string
	for i, col := range ds.Columns {
		present := 0
		for _, row := range ds.Rows {
			if row[i].Valid {
				present++
			}
		}
		if float64(present) < threshold {
			out = append(out, col)
		}
	}
	return out
}

func dropIncomplete(ds *models.Dataset, cols []string) *models.Dataset {
	idx := make([]int, 0, len(cols))
	for _, col := range cols {
		idx = append(idx, ds.Index(col))
	}
	return ds.Filter(func(row []models.Cell) bool {
		for _, i := range idx {
			if row[i].IsNull() {
				return false
			}
		}
		return true
	})
}

func encodeFlags(ds *models.Dataset, col string) {
	i := ds.Index(col)
	for _, row := range ds.Rows {
		row[i] = models.Int(NormalizeFlag(row[i]))
	}
}

func encodeEPC(ds *models.Dataset) {
	i := ds.Index(EPCColumn)
	for _, row := range ds.Rows {
		code := models.UnknownCode
		if row[i].Valid {
			code = EPCCode(row[i].Value)
		}
		row[i] = models.Int(code)
	}
}

func encodeFloodZone(ds *models.Dataset, enc *models.Encoding) {
	i := ds.Index(FloodZoneColumn)
	for _, row := range ds.Rows {
		row[i] = models.Int(enc.FloodZoneCode(row[i].Value))
	}
}

func collapseLocality(ds *models.Dataset, enc *models.Encoding) {
	i := ds.Index(LocalityColumn)
	for _, row := range ds.Rows {
		if row[i].IsNull() || !enc.KeepsLocality(row[i].Value) {
			row[i] = models.Str(models.OtherLocality)
		}
	}
}

// topValues returns the n most frequent non-missing values, ties broken by
// value so the result only depends on the data.
func topValues(cells []models.Cell, n int) []string {
	counts := make(map[string]int)
	for _, c := range cells {
		if c.Valid {
			counts[c.Value]++
		}
	}
	vals := make([]string, 0, len(counts))
	for v := range counts {
		vals = append(vals, v)
	}
	sort.Slice(vals, func(i, j int) bool {
		if counts[vals[i]] != counts[vals[j]] {
			return counts[vals[i]] > counts[vals[j]]
		}
		return vals[i] < vals[j]
	})
	if len(vals) > n {
		vals = vals[:n]
	}
	return vals
}

// expandOneHot replaces each column in cols by one 0/1 column per category
// except the first. Expanded columns are appended after the remaining
// columns in cols order. When fit is false the category lists come from enc
// and columns enc does not know are dropped without expansion.
func expandOneHot(ds *models.Dataset, cols []string, enc *models.Encoding, fit bool) *models.Dataset {
	type expansion struct {
		col  string
		cats []string
		vals []models.Cell
	}

	var order []string
	if fit {
		order = cols
		enc.OneHotOrder = nil
	} else {
		order = enc.OneHotOrder
	}

	var exps []expansion
	for _, col := range order {
		if !ds.Has(col) {
			continue
		}
		var cats []string
		if fit {
			cats = distinctValues(ds.Column(col))
			enc.OneHot[col] = cats
			enc.OneHotOrder = append(enc.OneHotOrder, col)
		} else {
			cats = enc.OneHot[col]
		}
		exps = append(exps, expansion{col: col, cats: cats, vals: ds.Column(col)})
	}

	out := ds.Drop(cols...)
	for _, e := range exps {
		if len(e.cats) < 2 {
			continue
		}
		for _, cat := range e.cats[1:] {
			dummies := make([]models.Cell, len(e.vals))
			for r, v := range e.vals {
				if v.Valid && v.Value == cat {
					dummies[r] = models.Int(1)
				} else {
					dummies[r] = models.Int(0)
				}
			}
			out.Append(models.DummyColumn(e.col, cat), dummies)
		}
	}
	return out
}

func filterPrice(ds *models.Dataset) *models.Dataset {
	i := ds.Index(TargetColumn)
	return ds.Filter(func(row []models.Cell) bool {
		p, ok := row[i].Number()
		return ok && p >= MinPrice && p <= MaxPrice
	})
}
