package validation

import (
	"sort"
	"strings"
)

// Violations maps a field name to a violation code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Fields returns the violated field names in sorted order.
func (v Violations) Fields() []string {
	out := make([]string, 0, len(v))
	for k := range v {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// String renders violations as "field=code" pairs, sorted by field.
func (v Violations) String() string {
	parts := make([]string, 0, len(v))
	for _, f := range v.Fields() {
		parts = append(parts, f+"="+v[f])
	}
	return strings.Join(parts, ", ")
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

// Columns records every name in required that is absent from present.
func Columns(required []string, present map[string]int, v Violations) {
	for _, c := range required {
		if _, ok := present[c]; !ok {
			v[c] = "missing_column"
		}
	}
}
