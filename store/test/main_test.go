package store_test

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/store/boltdb"
	mongodb "github.com/BadgersMC/LumaGuilds-sub008/store/mongo"
	"github.com/BadgersMC/LumaGuilds-sub008/store/ram"
	sqlite_store "github.com/BadgersMC/LumaGuilds-sub008/store/sqlite"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// stores holds every backend the conformance suite runs against.
var stores map[string]store_interface.Store

func TestMain(m *testing.M) {
	ctx := context.Background()
	dir, err := os.MkdirTemp("", "guildvault-store-test")
	if err != nil {
		log.Fatal(err)
	}

	stores = map[string]store_interface.Store{
		"ram": ram.NewRamStore(),
	}

	sqliteStore, err := sqlite_store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatal(err)
	}
	stores["sqlite"] = sqliteStore

	boltStore, err := boltdb.NewBoltStore(filepath.Join(dir, "test-vault.db"))
	if err != nil {
		log.Fatal(err)
	}
	stores["boltdb"] = boltStore

	// mongo needs a docker daemon, so it is opt-in
	var mongoC testcontainers.Container
	if os.Getenv("GUILDVAULT_TEST_MONGO") != "" {
		mongoC, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "mongo:7",
				ExposedPorts: []string{"27017/tcp"},
				WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(30 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			log.Fatal(err)
		}
		endpoint, err := mongoC.Endpoint(ctx, "")
		if err != nil {
			log.Fatal(err)
		}
		mongoStore, err := mongodb.NewMongoStore("mongodb://"+endpoint, "guildvault_test")
		if err != nil {
			log.Fatal(err)
		}
		stores["mongo"] = mongoStore
	}

	code := m.Run()

	for _, s := range stores {
		_ = s.VaultClose()
	}
	if mongoC != nil {
		_ = mongoC.Terminate(ctx)
	}
	os.RemoveAll(dir)
	os.Exit(code)
}
