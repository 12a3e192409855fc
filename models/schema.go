package models

import "time"

// UnknownCode is the integer code given to any categorical value that is
// outside the vocabulary an encoder was fit on.
const UnknownCode = -1

// OtherLocality replaces every locality outside the retained set.
const OtherLocality = "Other"

// Encoding holds every category vocabulary the cleaning pipeline derives
// from data. It is fit once at training time and persisted with the
// FeatureSchema so inference encodes inputs the same way.
type Encoding struct {
	// FloodZoneLabels is the sorted flood zone vocabulary; a value's code
	// is its index.
	FloodZoneLabels []string `yaml:"flood_zone_labels"`
	// Localities are the most frequent localities kept verbatim; every
	// other locality becomes OtherLocality.
	Localities []string `yaml:"localities"`
	// OneHot lists, per expanded column, every category in sorted order.
	// The first category is the dropped reference and has no column.
	OneHot map[string][]string `yaml:"one_hot"`
	// OneHotOrder is the order the expanded columns were appended in.
	OneHotOrder []string `yaml:"one_hot_order"`
}

// FloodZoneCode returns the code of v, or UnknownCode.
func (e *Encoding) FloodZoneCode(v string) int {
	return CodeOf(e.FloodZoneLabels, v)
}

// KeepsLocality reports whether v is one of the retained localities.
func (e *Encoding) KeepsLocality(v string) bool {
	for _, l := range e.Localities {
		if l == v {
			return true
		}
	}
	return false
}

// DummyColumn returns the expanded column name for category cat of column col.
func DummyColumn(col, cat string) string { return col + "_" + cat }

// Imputation holds the training-split fill values and category codes
// applied to both splits and to inference rows.
type Imputation struct {
	Medians map[string]float64  `yaml:"medians"`
	Modes   map[string]string   `yaml:"modes"`
	Codes   map[string][]string `yaml:"codes"`
}

// Value returns the numeric feature value of c for column col. Numeric
// columns fall back to their median, coded columns to their mode's code.
// Columns the imputation never saw parse as numbers or yield 0.
func (imp *Imputation) Value(col string, c Cell) float64 {
	if med, ok := imp.Medians[col]; ok {
		if v, ok := c.Number(); ok {
			return v
		}
		return med
	}
	if codes, ok := imp.Codes[col]; ok {
		v := imp.Modes[col]
		if c.Valid {
			v = c.Value
		}
		return float64(CodeOf(codes, v))
	}
	v, _ := c.Number()
	return v
}

// CodeOf returns the position of v in codes, or UnknownCode.
func CodeOf(codes []string, v string) int {
	for i, c := range codes {
		if c == v {
			return i
		}
	}
	return UnknownCode
}

// FeatureSchema is the contract between training and inference: the exact
// ordered feature columns a trained model expects, plus the encoders that
// produced them.
type FeatureSchema struct {
	Version    int        `yaml:"version"`
	RunID      string     `yaml:"run_id"`
	CreatedAt  time.Time  `yaml:"created_at"`
	Target     string     `yaml:"target"`
	Features   []string   `yaml:"features"`
	Encoding   Encoding   `yaml:"encoding"`
	Imputation Imputation `yaml:"imputation"`
}

// SchemaVersion is bumped whenever the FeatureSchema layout changes.
const SchemaVersion = 1

// Index returns the position of a feature, or -1.
func (s *FeatureSchema) Index(name string) int {
	for i, f := range s.Features {
		if f == name {
			return i
		}
	}
	return -1
}

// Categories returns the full category list for an expanded column,
// reference category first.
func (s *FeatureSchema) Categories(col string) []string {
	return s.Encoding.OneHot[col]
}
