package model

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "BALANCE_DEPOSIT"
	TransactionWithdraw   TransactionType = "BALANCE_WITHDRAW"
	TransactionItemAdd    TransactionType = "ITEM_ADD"
	TransactionItemRemove TransactionType = "ITEM_REMOVE"
)

func (t TransactionType) IsBalance() bool {
	return t == TransactionDeposit || t == TransactionWithdraw
}

func (t TransactionType) IsItem() bool {
	return t == TransactionItemAdd || t == TransactionItemRemove
}

// Transaction is one append-only audit record. Amount is set for balance
// events, Item and Slot for item events.
type Transaction struct {
	ID        string          `json:"id" bson:"_id"`
	VaultID   uuid.UUID       `json:"vaultId" bson:"vaultId"`
	ActorID   uuid.UUID       `json:"actorId" bson:"actorId"`
	Type      TransactionType `json:"type" bson:"type"`
	Amount    *int64          `json:"amount,omitempty" bson:"amount,omitempty"`
	Item      *ItemStack      `json:"item,omitempty" bson:"item,omitempty"`
	Slot      *int            `json:"slot,omitempty" bson:"slot,omitempty"`
	Timestamp time.Time       `json:"timestamp" bson:"timestamp"`
}

func NewBalanceTransaction(vaultID, actorID uuid.UUID, kind TransactionType, amount int64, at time.Time) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		VaultID:   vaultID,
		ActorID:   actorID,
		Type:      kind,
		Amount:    &amount,
		Timestamp: at,
	}
}

func NewItemTransaction(vaultID, actorID uuid.UUID, kind TransactionType, item ItemStack, slot int, at time.Time) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		VaultID:   vaultID,
		ActorID:   actorID,
		Type:      kind,
		Item:      item.Clone(),
		Slot:      &slot,
		Timestamp: at,
	}
}
