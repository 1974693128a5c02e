package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var vaultBucketPrefix = []byte("vault:v1:")
var slotsBucket = []byte("slots")
var balanceKey = []byte("balance")

func vaultBucketName(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s", vaultBucketPrefix, id))
}

func (b *BoltStore) LoadSlots(_ context.Context, vaultID uuid.UUID) (map[int]model.ItemStack, error) {
	out := make(map[int]model.ItemStack)
	err := b.db.View(func(tx *bbolt.Tx) error {
		vb := tx.Bucket(vaultBucketName(vaultID))
		if vb == nil {
			return nil
		}
		sb := vb.Bucket(slotsBucket)
		if sb == nil {
			return nil
		}
		return sb.ForEach(func(k, v []byte) error {
			var item model.ItemStack
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("decode slot %d: %w", decodeInt64(k), err)
			}
			out[int(decodeInt64(k))] = item
			return nil
		})
	})
	return out, err
}

func (b *BoltStore) LoadBalance(_ context.Context, vaultID uuid.UUID) (int64, error) {
	var balance int64
	err := b.db.View(func(tx *bbolt.Tx) error {
		vb := tx.Bucket(vaultBucketName(vaultID))
		if vb == nil {
			return nil
		}
		balance = decodeInt64(vb.Get(balanceKey))
		return nil
	})
	return balance, err
}

func (b *BoltStore) SaveSlot(_ context.Context, vaultID uuid.UUID, slot int, item *model.ItemStack) error {
	if slot < 0 {
		return store_interface.ErrInvalidSlot
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		vb, err := tx.CreateBucketIfNotExists(vaultBucketName(vaultID))
		if err != nil {
			return err
		}
		sb, err := vb.CreateBucketIfNotExists(slotsBucket)
		if err != nil {
			return err
		}
		if item == nil {
			return sb.Delete(encodeInt64(int64(slot)))
		}
		raw, err := json.Marshal(item)
		if err != nil {
			return err
		}
		return sb.Put(encodeInt64(int64(slot)), raw)
	})
}

func (b *BoltStore) SaveBalance(_ context.Context, vaultID uuid.UUID, balance int64) error {
	if balance < 0 {
		return store_interface.ErrNegativeBalance
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		vb, err := tx.CreateBucketIfNotExists(vaultBucketName(vaultID))
		if err != nil {
			return err
		}
		return vb.Put(balanceKey, encodeInt64(balance))
	})
}

func (b *BoltStore) ClearVault(_ context.Context, vaultID uuid.UUID) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket(vaultBucketName(vaultID))
		if err == bbolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

func (b *BoltStore) VaultIDs(_ context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			if !bytes.HasPrefix(name, vaultBucketPrefix) {
				return nil
			}
			id, err := uuid.ParseBytes(name[len(vaultBucketPrefix):])
			if err != nil {
				return fmt.Errorf("parse vault bucket %q: %w", name, err)
			}
			ids = append(ids, id)
			return nil
		})
	})
	return ids, err
}

func (b *BoltStore) VaultClose() error {
	return b.close()
}
