// Package form models the three-step estimation form as a pure state
// machine. It knows nothing about HTTP or sessions.
package form

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"immo-estimator/apperrors"
)

// State is one step of the form.
type State int

const (
	Details State = iota + 1
	Energy
	Result
)

func (s State) String() string {
	switch s {
	case Details:
		return "details"
	case Energy:
		return "energy"
	case Result:
		return "result"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Step returns the 1-based step number.
func (s State) Step() int { return int(s) }

// Valid reports whether s is one of the three states.
func (s State) Valid() bool { return s >= Details && s <= Result }

// Progress is the share of the form completed, 0 on the first step and 1
// on the result.
func Progress(s State) float64 {
	return float64(s.Step()-1) / 2
}

// Action is a user command on the current step.
type Action string

const (
	Next    Action = "next"
	Back    Action = "back"
	Restart Action = "restart"
)

// Fields maps data column names to raw values.
type Fields map[string]string

// Clone returns a copy of f; nil becomes an empty map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// ValidationError reports one rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("form: field %q: %s", e.Field, e.Reason)
}

// Transition applies action to state. On Next the submitted values of the
// current step are validated and merged into acc. The returned Fields is a
// new map; acc is never modified. On error the state and acc are returned
// unchanged.
func Transition(state State, action Action, submitted, acc Fields, opts Options) (State, Fields, error) {
	if !state.Valid() {
		return state, acc, fmt.Errorf("form: state %v: %w", state, apperrors.ErrInvalidTransition)
	}

	switch action {
	case Restart:
		return Details, Fields{}, nil

	case Back:
		if state == Details {
			return state, acc, fmt.Errorf("form: back from %v: %w", state, apperrors.ErrInvalidTransition)
		}
		return state - 1, acc.Clone(), nil

	case Next:
		if state == Result {
			return state, acc, fmt.Errorf("form: next from %v: %w", state, apperrors.ErrInvalidTransition)
		}
		clean, err := validate(StepFields(state, opts), submitted)
		if err != nil {
			return state, acc, err
		}
		out := acc.Clone()
		for k, v := range clean {
			out[k] = v
		}
		return state + 1, out, nil
	}

	return state, acc, fmt.Errorf("form: action %q: %w", action, apperrors.ErrInvalidTransition)
}

func validate(fields []Field, submitted Fields) (Fields, error) {
	out := make(Fields, len(fields))
	for _, f := range fields {
		raw, ok := submitted[f.Name]
		raw = strings.TrimSpace(raw)

		switch f.Kind {
		case Checkbox:
			out[f.Name] = "False"
			if ok && isChecked(raw) {
				out[f.Name] = "True"
			}

		case Number:
			if !ok || raw == "" {
				raw = strconv.FormatFloat(f.Default, 'f', -1, 64)
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &ValidationError{Field: f.Name, Reason: "not a number"}
			}
			if v < f.Min || v > f.Max {
				return nil, &ValidationError{Field: f.Name, Reason: fmt.Sprintf("must be between %g and %g", f.Min, f.Max)}
			}
			out[f.Name] = strconv.FormatFloat(v, 'f', -1, 64)

		case Select:
			if len(f.Options) == 0 {
				continue
			}
			if !ok || raw == "" {
				raw = f.Options[0].Value
			}
			if !f.hasOption(raw) {
				return nil, &ValidationError{Field: f.Name, Reason: fmt.Sprintf("unknown option %q", raw)}
			}
			out[f.Name] = raw
		}
	}
	return out, nil
}

func isChecked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
