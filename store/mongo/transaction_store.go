package mongodb

import (
	"context"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type transactionDoc struct {
	ID        string           `bson:"_id"`
	VaultID   string           `bson:"vaultId"`
	ActorID   string           `bson:"actorId"`
	Type      string           `bson:"type"`
	Amount    *int64           `bson:"amount,omitempty"`
	Item      *model.ItemStack `bson:"item,omitempty"`
	Slot      *int             `bson:"slot,omitempty"`
	Timestamp time.Time        `bson:"timestamp"`
}

func toDoc(t model.Transaction) transactionDoc {
	return transactionDoc{
		ID:        t.ID,
		VaultID:   t.VaultID.String(),
		ActorID:   t.ActorID.String(),
		Type:      string(t.Type),
		Amount:    t.Amount,
		Item:      t.Item,
		Slot:      t.Slot,
		Timestamp: t.Timestamp,
	}
}

func (d transactionDoc) toModel() (model.Transaction, error) {
	vaultID, err := uuid.Parse(d.VaultID)
	if err != nil {
		return model.Transaction{}, err
	}
	actorID, err := uuid.Parse(d.ActorID)
	if err != nil {
		return model.Transaction{}, err
	}
	return model.Transaction{
		ID:        d.ID,
		VaultID:   vaultID,
		ActorID:   actorID,
		Type:      model.TransactionType(d.Type),
		Amount:    d.Amount,
		Item:      d.Item,
		Slot:      d.Slot,
		Timestamp: d.Timestamp,
	}, nil
}

func (m *MongoStore) LogItemEvent(ctx context.Context, vaultID, actorID uuid.UUID, kind model.TransactionType, item model.ItemStack, slot int) error {
	if err := store_interface.ValidateItemEvent(kind, slot); err != nil {
		return err
	}
	_, err := m.transactionCollection.InsertOne(ctx, toDoc(model.NewItemTransaction(vaultID, actorID, kind, item, slot, time.Now())))
	return err
}

func (m *MongoStore) LogBalanceEvent(ctx context.Context, vaultID, actorID uuid.UUID, kind model.TransactionType, amount int64) error {
	if err := store_interface.ValidateBalanceEvent(kind, amount); err != nil {
		return err
	}
	_, err := m.transactionCollection.InsertOne(ctx, toDoc(model.NewBalanceTransaction(vaultID, actorID, kind, amount, time.Now())))
	return err
}

func (m *MongoStore) Transactions(ctx context.Context, q store_interface.TransactionQuery) ([]model.Transaction, error) {
	filter := bson.M{}
	if q.VaultID != nil {
		filter["vaultId"] = q.VaultID.String()
	}
	if q.ActorID != nil {
		filter["actorId"] = q.ActorID.String()
	}
	if q.Type != "" {
		filter["type"] = string(q.Type)
	}
	window := bson.M{}
	if !q.Since.IsZero() {
		window["$gte"] = q.Since
	}
	if !q.Until.IsZero() {
		window["$lte"] = q.Until
	}
	if len(window) > 0 {
		filter["timestamp"] = window
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}

	cursor, err := m.transactionCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []model.Transaction
	for cursor.Next(ctx) {
		var doc transactionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		t, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, cursor.Err()
}

func (m *MongoStore) ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := m.transactionCollection.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *MongoStore) Count(ctx context.Context) (int64, error) {
	return m.transactionCollection.CountDocuments(ctx, bson.M{})
}

func (m *MongoStore) TransactionClose() error {
	return m.disconnect()
}

func (m *MongoStore) ImportTransactions(ctx context.Context, items []model.Transaction) error {
	if len(items) == 0 {
		return nil
	}
	var ops []mongo.WriteModel
	for _, t := range items {
		doc := toDoc(t)
		ops = append(ops, mongo.NewReplaceOneModel().SetFilter(bson.M{"_id": doc.ID}).SetReplacement(doc).SetUpsert(true))
	}
	_, err := m.transactionCollection.BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false))
	return err
}
