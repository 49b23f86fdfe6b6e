package store

import (
	"bytes"

	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"
	"src.frand.dev/pkg/store/storedefs"
)

const bucketRows = "rows"

func init() {
	initDB["initialize row table"] = func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRows))
		return err
	}
}

// Row gets a stored row.
func (s *dbStore) Row(key string) (map[string]string, error) {
	var row map[string]string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRows))
		v := b.Get([]byte(key))
		if v == nil {
			return storedefs.ErrNoRow
		}
		return yaml.Unmarshal(v, &row)
	})
	return row, err
}

// PutRow stores a row, replacing any row with the same key.
func (s *dbStore) PutRow(key string, row map[string]string) error {
	data, err := yaml.Marshal(row)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRows))
		return b.Put([]byte(key), data)
	})
}

// DelRow deletes a stored row. Deleting a row that does not exist is not an
// error.
func (s *dbStore) DelRow(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRows))
		return b.Delete([]byte(key))
	})
}

// RowKeys returns the keys of all stored rows starting with prefix, in
// ascending order.
func (s *dbStore) RowKeys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketRows)).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}
