package store_interface

import (
	"context"
	"errors"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidSlot       = errors.New("invalid slot index")
	ErrNegativeBalance   = errors.New("balance cannot be negative")
	ErrInvalidEventType  = errors.New("transaction type does not match event kind")
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// VaultStore is the durable home of vault slots and balances. Every save is
// last-value-wins so a retried write is always safe.
type VaultStore interface {
	LoadSlots(ctx context.Context, vaultID uuid.UUID) (map[int]model.ItemStack, error)
	LoadBalance(ctx context.Context, vaultID uuid.UUID) (int64, error)

	// SaveSlot upserts the slot, or deletes it when item is nil.
	SaveSlot(ctx context.Context, vaultID uuid.UUID, slot int, item *model.ItemStack) error
	SaveBalance(ctx context.Context, vaultID uuid.UUID, balance int64) error

	ClearVault(ctx context.Context, vaultID uuid.UUID) error
	VaultIDs(ctx context.Context) ([]uuid.UUID, error)
	VaultClose() error
}

// TransactionQuery filters the audit log. Zero values are unbounded.
type TransactionQuery struct {
	VaultID *uuid.UUID
	ActorID *uuid.UUID
	Type    model.TransactionType
	Since   time.Time
	Until   time.Time
	Limit   int
	Offset  int
}

// Matches applies the filter in memory, used by backends without a query engine.
func (q TransactionQuery) Matches(t model.Transaction) bool {
	if q.VaultID != nil && t.VaultID != *q.VaultID {
		return false
	}
	if q.ActorID != nil && t.ActorID != *q.ActorID {
		return false
	}
	if q.Type != "" && t.Type != q.Type {
		return false
	}
	if !q.Since.IsZero() && t.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && t.Timestamp.After(q.Until) {
		return false
	}
	return true
}

// Page applies Offset and Limit to an already ordered result.
func (q TransactionQuery) Page(items []model.Transaction) []model.Transaction {
	if q.Offset > 0 {
		if q.Offset >= len(items) {
			return nil
		}
		items = items[q.Offset:]
	}
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items
}

// TransactionLog is the append-only audit trail. Results are newest first.
type TransactionLog interface {
	LogItemEvent(ctx context.Context, vaultID, actorID uuid.UUID, kind model.TransactionType, item model.ItemStack, slot int) error
	LogBalanceEvent(ctx context.Context, vaultID, actorID uuid.UUID, kind model.TransactionType, amount int64) error
	Transactions(ctx context.Context, q TransactionQuery) ([]model.Transaction, error)
	ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	TransactionClose() error
}

// TransactionImporter takes records verbatim, keeping ids and timestamps.
// Used when copying history between engines.
type TransactionImporter interface {
	ImportTransactions(ctx context.Context, items []model.Transaction) error
}

type Store interface {
	VaultStore
	TransactionLog
}

// ValidateItemEvent is shared by every backend's LogItemEvent.
func ValidateItemEvent(kind model.TransactionType, slot int) error {
	if !kind.IsItem() {
		return ErrInvalidEventType
	}
	if slot < 0 {
		return ErrInvalidSlot
	}
	return nil
}

// ValidateBalanceEvent is shared by every backend's LogBalanceEvent.
func ValidateBalanceEvent(kind model.TransactionType, amount int64) error {
	if !kind.IsBalance() {
		return ErrInvalidEventType
	}
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	return nil
}
