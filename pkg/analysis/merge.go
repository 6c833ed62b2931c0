package analysis

import (
	"strings"
)

// Accumulator merges key/value pairs: the first value of a key is stored as
// is, the second turns it into a two-element list, later values append.
type Accumulator struct {
	values map[string]any
	counts map[string]int
	order  []string
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		values: make(map[string]any),
		counts: make(map[string]int),
	}
}

// Add merges value under key. String values are trimmed.
func (a *Accumulator) Add(key string, value any) {
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}

	switch a.counts[key] {
	case 0:
		a.values[key] = value
		a.order = append(a.order, key)
	case 1:
		a.values[key] = []any{a.values[key], value}
	default:
		a.values[key] = append(a.values[key].([]any), value)
	}
	a.counts[key]++
}

// Keys returns the keys in first-seen order.
func (a *Accumulator) Keys() []string {
	return a.order
}

// Map returns the accumulated object. The map is owned by the caller.
func (a *Accumulator) Map() map[string]any {
	out := make(map[string]any, len(a.values))
	for k, v := range a.values {
		if list, ok := v.([]any); ok {
			v = append([]any(nil), list...)
		}
		out[k] = v
	}
	return out
}
