package boltdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var transactionBucket = []byte("transactions:v1")

// Keys are timestamp then bucket sequence, so cursor order is time order.
func transactionKey(at time.Time, seq uint64) []byte {
	key := make([]byte, 0, 16)
	key = append(key, encodeInt64(at.UnixNano())...)
	return append(key, encodeInt64(int64(seq))...)
}

func (b *BoltStore) LogItemEvent(_ context.Context, vaultID, actorID uuid.UUID, kind model.TransactionType, item model.ItemStack, slot int) error {
	if err := store_interface.ValidateItemEvent(kind, slot); err != nil {
		return err
	}
	return b.putTransaction(model.NewItemTransaction(vaultID, actorID, kind, item, slot, time.Now()))
}

func (b *BoltStore) LogBalanceEvent(_ context.Context, vaultID, actorID uuid.UUID, kind model.TransactionType, amount int64) error {
	if err := store_interface.ValidateBalanceEvent(kind, amount); err != nil {
		return err
	}
	return b.putTransaction(model.NewBalanceTransaction(vaultID, actorID, kind, amount, time.Now()))
}

func (b *BoltStore) putTransaction(t model.Transaction) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(transactionBucket)
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		return bkt.Put(transactionKey(t.Timestamp, seq), raw)
	})
}

func (b *BoltStore) Transactions(_ context.Context, q store_interface.TransactionQuery) ([]model.Transaction, error) {
	var out []model.Transaction
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(transactionBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var t model.Transaction
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			if q.Matches(t) {
				out = append(out, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q.Page(out), nil
}

func (b *BoltStore) ArchiveOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(transactionBucket)
		limit := cutoff.UnixNano()

		var stale [][]byte
		c := bkt.Cursor()
		for k, _ := c.First(); k != nil && decodeInt64(k[:8]) < limit; k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := bkt.Delete(k); err != nil {
				return err
			}
		}
		deleted = int64(len(stale))
		return nil
	})
	return deleted, err
}

func (b *BoltStore) Count(_ context.Context) (int64, error) {
	var n int64
	err := b.db.View(func(tx *bbolt.Tx) error {
		n = int64(tx.Bucket(transactionBucket).Stats().KeyN)
		return nil
	})
	return n, err
}

func (b *BoltStore) TransactionClose() error {
	return b.close()
}

func (b *BoltStore) ImportTransactions(_ context.Context, items []model.Transaction) error {
	for _, t := range items {
		if err := b.putTransaction(t); err != nil {
			return err
		}
	}
	return nil
}
