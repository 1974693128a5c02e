package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BadgersMC/LumaGuilds-sub008/config"
	"github.com/BadgersMC/LumaGuilds-sub008/store/boltdb"
	mongodb "github.com/BadgersMC/LumaGuilds-sub008/store/mongo"
	"github.com/BadgersMC/LumaGuilds-sub008/store/ram"
	sqlite_store "github.com/BadgersMC/LumaGuilds-sub008/store/sqlite"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
)

// Open builds the backend named by cfg.Type. One engine serves both the
// vault store and the transaction log.
func Open(cfg config.StoreConfig) (store_interface.Store, error) {
	switch cfg.Type {
	case config.Ram:
		return ram.NewRamStore(), nil
	case config.Boltdb:
		if err := ensureDir(cfg.BoltPath); err != nil {
			return nil, err
		}
		return boltdb.NewBoltStore(cfg.BoltPath)
	case config.Sqlite:
		if err := ensureDir(cfg.SQLitePath); err != nil {
			return nil, err
		}
		return sqlite_store.NewSQLiteStore(cfg.SQLitePath)
	case config.Mongo:
		return mongodb.NewMongoStore(cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unsupported store type %q", cfg.Type)
	}
}

// Close releases both halves of a store opened by Open.
func Close(s store_interface.Store) error {
	err := s.VaultClose()
	if terr := s.TransactionClose(); err == nil {
		err = terr
	}
	return err
}

func ensureDir(path string) error {
	if path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	return nil
}
