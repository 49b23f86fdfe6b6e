// Package store implements persistence of host row snapshots on top of bbolt.
package store

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"src.frand.dev/pkg/logutil"
	"src.frand.dev/pkg/store/storedefs"
)

var logger = logutil.GetLogger("[store] ")

// The following functions are used to initialize the database.
var initDB = map[string](func(*bolt.Tx) error){}

// DBStore is the permanent storage backend of row snapshots.
type DBStore interface {
	storedefs.Store
	Close() error
}

var _ DBStore = (*dbStore)(nil)

type dbStore struct {
	db *bolt.DB
}

func dbWithDefaultOptions(dbname string) (*bolt.DB, error) {
	return bolt.Open(dbname, 0644, &bolt.Options{Timeout: 1 * time.Second})
}

// NewStore creates a new Store from the given file.
func NewStore(dbname string) (DBStore, error) {
	db, err := dbWithDefaultOptions(dbname)
	if err != nil {
		return nil, err
	}
	return NewStoreFromDB(db)
}

// NewStoreFromDB creates a new Store from a bolt DB.
func NewStoreFromDB(db *bolt.DB) (DBStore, error) {
	logger.Println("initializing store")
	defer logger.Println("initialized store")
	st := &dbStore{db: db}
	err := db.Update(func(tx *bolt.Tx) error {
		for name, fn := range initDB {
			if err := fn(tx); err != nil {
				return fmt.Errorf("failed to %s: %w", name, err)
			}
		}
		return nil
	})
	return st, err
}

// Close closes the store.
func (s *dbStore) Close() error {
	return s.db.Close()
}
