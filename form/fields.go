package form

import "math"

// Kind is how a field is entered.
type Kind int

const (
	Number Kind = iota
	Checkbox
	Select
)

// Option is one choice of a Select field.
type Option struct {
	Value string
	Label string
}

// Field describes one input of a step. Name is the data column the value
// feeds.
type Field struct {
	Name    string
	Label   string
	Kind    Kind
	Min     float64
	Max     float64
	Default float64
	Options []Option
}

func (f Field) hasOption(v string) bool {
	for _, o := range f.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// Options carries the data-dependent choices of the form.
type Options struct {
	// Provinces offered on the first step, in display order.
	Provinces []string
}

var (
	epcOptions = []Option{
		{"A+", "A+"}, {"A", "A"}, {"B", "B"}, {"C", "C"},
		{"D", "D"}, {"E", "E"}, {"F", "F"}, {"G", "G"},
	}
	typeOptions = []Option{
		{"HOUSE", "House"},
		{"APARTMENT", "Apartment"},
		{"VILLA", "Villa"},
		{"CHALET", "Chalet"},
		{"OTHERS", "Others"},
	}
	conditionOptions = []Option{
		{"GOOD", "Good"},
		{"JUST_RENOVATED", "Just Renovated"},
		{"TO_BE_DONE_UP", "To Be Done Up"},
		{"TO_RENOVATE", "To Renovate"},
		{"TO_RESTORE", "To Restore"},
	}
)

// StepFields lists the inputs shown on state s. Result has none.
func StepFields(s State, opts Options) []Field {
	switch s {
	case Details:
		provinces := make([]Option, len(opts.Provinces))
		for i, p := range opts.Provinces {
			provinces[i] = Option{Value: p, Label: p}
		}
		return []Field{
			{Name: "bedroomcount", Label: "Number of bedrooms", Kind: Number, Min: 0, Max: math.MaxInt32, Default: 2},
			{Name: "bathroomcount", Label: "Number of bathrooms", Kind: Number, Min: 0, Max: math.MaxInt32, Default: 1},
			{Name: "habitablesurface", Label: "Habitable surface (in m²)", Kind: Number, Min: 10, Max: math.MaxInt32, Default: 100},
			{Name: "hasgarden", Label: "Has a garden", Kind: Checkbox},
			{Name: "hasterrace", Label: "Has a terrace", Kind: Checkbox},
			{Name: "hasfireplace", Label: "Has a fireplace", Kind: Checkbox},
			{Name: "hasairconditioning", Label: "Has air conditioning", Kind: Checkbox},
			{Name: "constructionyear", Label: "Construction year", Kind: Number, Min: 1800, Max: 2023, Default: 2000},
			{Name: "province", Label: "Choose a province", Kind: Select, Options: provinces},
		}
	case Energy:
		return []Field{
			{Name: "epcscore", Label: "EPC Score (Energy Performance Certificate)", Kind: Select, Options: epcOptions},
			{Name: "type", Label: "Property type", Kind: Select, Options: typeOptions},
			{Name: "buildingcondition", Label: "Building condition", Kind: Select, Options: conditionOptions},
		}
	}
	return nil
}

// Title is the heading of state s.
func Title(s State) string {
	switch s {
	case Details:
		return "Step 1: Property Details"
	case Energy:
		return "Step 2: Energy and Property Condition"
	case Result:
		return "Step 3: Finalize and Predict"
	}
	return ""
}
