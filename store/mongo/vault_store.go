package mongodb

import (
	"context"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type slotDoc struct {
	VaultID string          `bson:"vaultId"`
	Slot    int             `bson:"slot"`
	Item    model.ItemStack `bson:"item"`
}

type balanceDoc struct {
	VaultID string `bson:"_id"`
	Balance int64  `bson:"balance"`
}

func (m *MongoStore) LoadSlots(ctx context.Context, vaultID uuid.UUID) (map[int]model.ItemStack, error) {
	cursor, err := m.slotCollection.Find(ctx, bson.M{"vaultId": vaultID.String()})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make(map[int]model.ItemStack)
	for cursor.Next(ctx) {
		var doc slotDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out[doc.Slot] = doc.Item
	}
	return out, cursor.Err()
}

func (m *MongoStore) LoadBalance(ctx context.Context, vaultID uuid.UUID) (int64, error) {
	var doc balanceDoc
	err := m.balanceCollection.FindOne(ctx, bson.M{"_id": vaultID.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	return doc.Balance, err
}

func (m *MongoStore) SaveSlot(ctx context.Context, vaultID uuid.UUID, slot int, item *model.ItemStack) error {
	if slot < 0 {
		return store_interface.ErrInvalidSlot
	}
	filter := bson.M{"vaultId": vaultID.String(), "slot": slot}
	if item == nil {
		_, err := m.slotCollection.DeleteOne(ctx, filter)
		return err
	}
	update := bson.M{"$set": bson.M{"item": item}}
	_, err := m.slotCollection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoStore) SaveBalance(ctx context.Context, vaultID uuid.UUID, balance int64) error {
	if balance < 0 {
		return store_interface.ErrNegativeBalance
	}
	filter := bson.M{"_id": vaultID.String()}
	update := bson.M{"$set": bson.M{"balance": balance}}
	_, err := m.balanceCollection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoStore) ClearVault(ctx context.Context, vaultID uuid.UUID) error {
	if _, err := m.slotCollection.DeleteMany(ctx, bson.M{"vaultId": vaultID.String()}); err != nil {
		return err
	}
	_, err := m.balanceCollection.DeleteOne(ctx, bson.M{"_id": vaultID.String()})
	return err
}

func (m *MongoStore) VaultIDs(ctx context.Context) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})

	slotIDs, err := m.slotCollection.Distinct(ctx, "vaultId", bson.M{})
	if err != nil {
		return nil, err
	}
	balanceIDs, err := m.balanceCollection.Distinct(ctx, "_id", bson.M{})
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, raw := range append(slotIDs, balanceIDs...) {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MongoStore) VaultClose() error {
	return m.disconnect()
}
