package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultDatabase = "guildvault"

type MongoStore struct {
	client                *mongo.Client
	slotCollection        *mongo.Collection
	balanceCollection     *mongo.Collection
	transactionCollection *mongo.Collection
}

func NewMongoStore(uri string, database string) (*MongoStore, error) {
	if database == "" {
		database = DefaultDatabase
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	store := &MongoStore{
		client:                client,
		slotCollection:        db.Collection("vault_slots"),
		balanceCollection:     db.Collection("vault_balances"),
		transactionCollection: db.Collection("vault_transactions"),
	}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

func (m *MongoStore) ensureIndexes(ctx context.Context) error {
	opts := options.CreateIndexes().SetMaxTime(10 * time.Second)

	slotIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "vaultId", Value: 1},
			{Key: "slot", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.slotCollection.Indexes().CreateOne(ctx, slotIndex, opts); err != nil {
		return fmt.Errorf("creating slot index: %w", err)
	}

	txIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "vaultId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	}
	if _, err := m.transactionCollection.Indexes().CreateMany(ctx, txIndexes, opts); err != nil {
		return fmt.Errorf("creating transaction indexes: %w", err)
	}
	return nil
}

// disconnect is shared by VaultClose and TransactionClose.
func (m *MongoStore) disconnect() error {
	err := m.client.Disconnect(context.Background())
	if err == mongo.ErrClientDisconnected {
		return nil
	}
	return err
}
