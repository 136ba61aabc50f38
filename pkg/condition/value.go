package condition

import "math"

// maxNumericValue bounds attribute numbers to the range exactly representable
// as a double (2^53) so that numeric comparisons stay consistent across
// clients regardless of their native integer width.
const maxNumericValue = float64(1 << 53)

// numericValue normalizes a runtime attribute value to float64. Booleans are
// not numbers. Values outside the representable range are rejected so they
// evaluate to Unknown.
func numericValue(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxNumericValue {
		return 0, false
	}
	return f, true
}
