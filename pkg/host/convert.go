package host

import "reflect"

// Convert converts v to type t. Values already of type t are returned as is.
// Between numeric types, only conversions that round-trip are allowed, so
// that 5.0 converts to int but 5.5 does not. A nil t accepts anything.
func Convert(v any, t reflect.Type) (any, bool) {
	if t == nil {
		return v, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, false
	}
	if rv.Type() == t {
		return v, true
	}
	if !isNumeric(rv.Kind()) || !isNumeric(t.Kind()) {
		return nil, false
	}
	if isUnsigned(t.Kind()) && isNegative(rv) {
		return nil, false
	}
	cv := rv.Convert(t)
	if cv.Convert(rv.Type()).Interface() != v {
		return nil, false
	}
	return cv.Interface(), true
}

// ConvertLike is like Convert, but takes the target type from an existing
// value.
func ConvertLike(v, like any) (any, bool) {
	return Convert(v, reflect.TypeOf(like))
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNegative(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() < 0
	case reflect.Float32, reflect.Float64:
		return v.Float() < 0
	}
	return false
}
