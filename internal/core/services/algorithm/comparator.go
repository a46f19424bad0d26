package algorithm

import (
	"encoding/json"
	"math"
	"reflect"
)

const DefaultTolerance = 1e-9

// Comparator decides whether a returned value matches an expected output.
// Numbers compare as float64 within Tolerance. Sequences are order and
// length sensitive. Maps must have the same key set and equal values.
type Comparator struct {
	Tolerance float64
}

func NewComparator(tolerance float64) Comparator {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	return Comparator{Tolerance: tolerance}
}

// Equal compares recursively
func (c Comparator) Equal(actual, expected any) bool {
	return c.equal(canonical(actual), canonical(expected))
}

// EqualUnordered treats top-level sequences as multisets; nested values keep
// the strict rules.
func (c Comparator) EqualUnordered(actual, expected any) bool {
	a, aok := canonical(actual).([]any)
	e, eok := canonical(expected).([]any)
	if !aok || !eok {
		return c.Equal(actual, expected)
	}
	if len(a) != len(e) {
		return false
	}
	used := make([]bool, len(e))
	for _, av := range a {
		found := false
		for j, ev := range e {
			if !used[j] && c.equal(av, ev) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (c Comparator) equal(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		return math.Abs(av-bv) <= c.Tolerance
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !c.equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, exists := bv[k]
			if !exists || !c.equal(v, w) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// canonical folds Go numeric kinds into float64 so values decoded from JSON
// and values exported from the engine compare alike.
func canonical(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonical(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = canonical(e)
		}
		return out
	default:
		return t
	}
}

// Describe renders v as compact JSON for result messages. Map keys are
// sorted by encoding/json, so the output is deterministic.
func Describe(v any) string {
	b, err := json.Marshal(canonical(v))
	if err != nil {
		return "<unprintable>"
	}
	return string(b)
}
