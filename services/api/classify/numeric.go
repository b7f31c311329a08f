package classify

import (
	"math"
	"strconv"
	"strings"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
)

// ParseNumber coerces a raw cell to a finite float.
func ParseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsNumeric reports whether every present value of key parses as a number
// and at least one value is present.
func IsNumeric(view dataset.View, key string) bool {
	seen := false
	for i := 0; i < view.Len(); i++ {
		v, ok := view.Value(i, key)
		if !ok {
			continue
		}
		if _, ok := ParseNumber(v); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// Numbers returns the coerced values of key; present[i] is false when the
// value is missing or not numeric.
func Numbers(view dataset.View, key string) (values []float64, present []bool) {
	n := view.Len()
	values = make([]float64, n)
	present = make([]bool, n)
	for i := 0; i < n; i++ {
		raw, ok := view.Value(i, key)
		if !ok {
			continue
		}
		values[i], present[i] = ParseNumber(raw)
	}
	return values, present
}

// FormatNumber renders a value rounded to two decimals without trailing zeros.
func FormatNumber(v float64) string {
	return FormatDecimals(v, 2)
}

// FormatDecimals renders v rounded to d decimals without trailing zeros.
func FormatDecimals(v float64, d int) string {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', d, 64), 64)
	if err != nil {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	if r == 0 {
		r = 0 // normalise -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
