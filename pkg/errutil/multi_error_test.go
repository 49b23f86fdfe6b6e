package errutil

import (
	"errors"
	"testing"
)

var (
	err1 = errors.New("error 1")
	err2 = errors.New("error 2")
	err3 = errors.New("error 3")
)

func TestMulti(t *testing.T) {
	tests := []struct {
		name string
		errs []error
		want string
	}{
		{"all nil", []error{nil, nil}, ""},
		{"single", []error{nil, err1}, "error 1"},
		{"two", []error{err1, err2}, "multiple errors:\n  error 1\n  error 2"},
		{"flattened", []error{Multi(err1, err2), err3},
			"multiple errors:\n  error 1\n  error 2\n  error 3"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Multi(test.errs...)
			got := ""
			if err != nil {
				got = err.Error()
			}
			if got != test.want {
				t.Errorf("got %q, want %q", got, test.want)
			}
		})
	}
}

func TestMulti_SupportsErrorsIs(t *testing.T) {
	err := Multi(err1, err2)
	if !errors.Is(err, err2) {
		t.Errorf("errors.Is(Multi(err1, err2), err2) = false")
	}
	if errors.Is(err, err3) {
		t.Errorf("errors.Is(Multi(err1, err2), err3) = true")
	}
}
