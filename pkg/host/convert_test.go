package host

import (
	"reflect"
	"testing"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		v    any
		like any
		want any
		ok   bool
	}{
		{"same type", 3, 0, 3, true},
		{"whole float to int", 5.0, 0, 5, true},
		{"fractional float to int", 5.5, 0, nil, false},
		{"int to float32", 2, float32(0), float32(2), true},
		{"overflow", 300, int8(0), nil, false},
		{"negative to uint", -1, uint(0), nil, false},
		{"string to int", "5", 0, nil, false},
		{"int to string", 65, "", nil, false},
		{"nil", nil, 0, nil, false},
		{"bool", true, false, true, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ok := ConvertLike(test.v, test.like)
			if ok != test.ok || (ok && got != test.want) {
				t.Errorf("ConvertLike(%v, %T) -> (%v, %v), want (%v, %v)",
					test.v, test.like, got, ok, test.want, test.ok)
			}
		})
	}
	if v, ok := Convert("x", nil); v != "x" || !ok {
		t.Errorf("Convert with nil type -> (%v, %v)", v, ok)
	}
	if _, ok := Convert(1, reflect.TypeOf("")); ok {
		t.Errorf("Convert(1, string) succeeded")
	}
}
