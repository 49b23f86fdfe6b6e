// Package storedefs contains definitions of the store API.
//
// It is a separate package so that packages that only depend on the store API
// does not need to depend on the concrete implementation.
package storedefs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRow is returned by Store.Row when there is no row with the given key.
var ErrNoRow = errors.New("no such row")

// Store is an interface satisfied by the storage service. Rows map field
// names to values formatted by their kinds.
type Store interface {
	Row(key string) (map[string]string, error)
	PutRow(key string, row map[string]string) error
	DelRow(key string) error
	RowKeys(prefix string) ([]string, error)
}

// RowKey returns the key of the row of one model instance bound to a host
// type.
func RowKey(hostType, model string, index int) string {
	return fmt.Sprintf("%s/%s/%d", hostType, model, index)
}

// RowKeyPrefix returns the common prefix of the keys of all instances of a
// model bound to a host type.
func RowKeyPrefix(hostType, model string) string {
	return strings.Join([]string{hostType, model, ""}, "/")
}
