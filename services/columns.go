package services

import (
	"sort"
	"strconv"
	"strings"

	"immo-estimator/models"
)

// TargetColumn is the regression target.
const TargetColumn = "price"

// Price bounds kept by the cleaning pipeline, both inclusive.
const (
	MinPrice = 50000.0
	MaxPrice = 1000000.0
)

// MinNonMissingRatio is the share of present values a column needs to
// survive the sparse-column pass.
const MinNonMissingRatio = 0.8

// TopLocalities is how many distinct localities are kept verbatim.
const TopLocalities = 50

// DroppedColumns are identifiers, free text and detailed room breakdowns
// that carry no predictive value.
var DroppedColumns = []string{
	"url", "unnamed:_0", "id", "monthlycost", "hasbalcony", "accessibledisabledpeople",
	"roomcount", "diningroomsurface", "streetfacadewidth", "kitchensurface",
	"floorcount", "hasdiningroom", "hasdressingroom", "hasattic",
	"haslivingroom", "livingroomsurface", "gardenorientation", "hasbasement",
}

// RequiredColumns must be present on a row for it to be usable at all.
var RequiredColumns = []string{"price", "habitablesurface", "floodzonetype", "latitude", "longitude"}

// BinaryColumns are amenity flags normalised to 0/1.
var BinaryColumns = []string{
	"haslift", "hasheatpump",
	"hasphotovoltaicpanels", "hasthermicpanels", "hasgarden",
	"hasairconditioning", "hasarmoreddoor", "hasvisiophone",
	"hasoffice", "hasswimmingpool", "hasfireplace", "hasterrace",
}

// OneHotColumns are expanded to one 0/1 column per category, first
// category dropped, in this order.
var OneHotColumns = []string{
	"type", "subtype", "province", "locality",
	"buildingcondition", "floodzonetype", "heatingtype",
	"kitchentype", "gardenorientation", "terraceorientation",
}

// ImportantNumericColumns are imputed first during preprocessing.
var ImportantNumericColumns = []string{
	"bedroomcount",
	"bathroomcount",
	"cadastralincome",
	"primaryenergyconsumptionpersqm",
}

const (
	EPCColumn       = "epcscore"
	FloodZoneColumn = "floodzonetype"
	LocalityColumn  = "locality"
)

// EPCOrder ranks energy performance ratings from best to worst.
var EPCOrder = []string{"A+", "A", "B", "C", "D", "E", "F", "G"}

var (
	truthyTokens = map[string]struct{}{
		"True": {}, "true": {}, "1": {}, "1.0": {}, "yes": {}, "Yes": {}, "oui": {}, "Oui": {},
	}
	falsyTokens = map[string]struct{}{
		"False": {}, "false": {}, "0": {}, "0.0": {}, "no": {}, "No": {}, "non": {}, "Non": {},
	}
)

// NormalizeColumnName trims, lowercases and replaces spaces with underscores.
func NormalizeColumnName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// NormalizeFlag maps a raw amenity value to 0 or 1. Unrecognised values,
// including missing ones, map to 0.
func NormalizeFlag(c models.Cell) int {
	if c.IsNull() {
		return 0
	}
	if _, ok := truthyTokens[c.Value]; ok {
		return 1
	}
	if _, ok := falsyTokens[c.Value]; ok {
		return 0
	}
	return 0
}

// EPCCode returns the rank of an EPC rating, or models.UnknownCode.
func EPCCode(v string) int {
	for i, s := range EPCOrder {
		if s == v {
			return i
		}
	}
	return models.UnknownCode
}

// ColumnReport lists which expected columns a dataset carries.
type ColumnReport struct {
	present map[string]struct{}
	Present []string
	Absent  []string
}

// ValidateColumns checks every column the pipeline names against ds once,
// so later steps iterate only what exists.
func ValidateColumns(ds *models.Dataset) *ColumnReport {
	r := &ColumnReport{present: make(map[string]struct{})}
	seen := make(map[string]struct{})
	for _, group := range [][]string{
		DroppedColumns, RequiredColumns, BinaryColumns, OneHotColumns,
		ImportantNumericColumns, {EPCColumn},
	} {
		for _, col := range group {
			if _, dup := seen[col]; dup {
				continue
			}
			seen[col] = struct{}{}
			if ds.Has(col) {
				r.present[col] = struct{}{}
				r.Present = append(r.Present, col)
			} else {
				r.Absent = append(r.Absent, col)
			}
		}
	}
	return r
}

// Has reports whether col was present when the report was taken.
func (r *ColumnReport) Has(col string) bool {
	_, ok := r.present[col]
	return ok
}

// Of filters names down to those present, keeping their order.
func (r *ColumnReport) Of(names []string) []string {
	var out []string
	for _, n := range names {
		if r.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Forget marks columns as gone after a step removed them.
func (r *ColumnReport) Forget(names ...string) {
	gone := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := r.present[n]; ok {
			delete(r.present, n)
			gone[n] = struct{}{}
		}
	}
	if len(gone) == 0 {
		return
	}
	kept := r.Present[:0]
	for _, n := range r.Present {
		if _, ok := gone[n]; ok {
			r.Absent = append(r.Absent, n)
			continue
		}
		kept = append(kept, n)
	}
	r.Present = kept
}

// sortCategories orders category labels numerically when every label is a
// number and lexicographically otherwise.
func sortCategories(cats []string) {
	numeric := true
	vals := make(map[string]float64, len(cats))
	for _, c := range cats {
		f, err := strconv.ParseFloat(c, 64)
		if err != nil {
			numeric = false
			break
		}
		vals[c] = f
	}
	if numeric {
		sort.SliceStable(cats, func(i, j int) bool { return vals[cats[i]] < vals[cats[j]] })
		return
	}
	sort.Strings(cats)
}

// distinctValues returns the sorted distinct non-missing values of cells.
func distinctValues(cells []models.Cell) []string {
	set := make(map[string]struct{})
	for _, c := range cells {
		if c.Valid {
			set[c.Value] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sortCategories(out)
	return out
}
