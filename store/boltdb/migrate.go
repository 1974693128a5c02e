package boltdb

import (
	"fmt"

	"go.etcd.io/bbolt"
)

var schemaBucket = []byte("__schema")
var schemaVersionKey = []byte("version")

const currentSchemaVersion = "1"

// ensureSchema creates the fixed buckets and stamps the layout version. A file
// written by a newer layout is refused rather than misread.
func (b *BoltStore) ensureSchema() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		sb, err := tx.CreateBucketIfNotExists(schemaBucket)
		if err != nil {
			return err
		}
		if v := sb.Get(schemaVersionKey); v != nil && string(v) != currentSchemaVersion {
			return fmt.Errorf("unsupported bolt schema version %q", v)
		}
		if _, err := tx.CreateBucketIfNotExists(transactionBucket); err != nil {
			return err
		}
		return sb.Put(schemaVersionKey, []byte(currentSchemaVersion))
	})
}
