package ram

import (
	"context"
	"slices"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/google/uuid"
)

func (r *RamStore) LogItemEvent(_ context.Context, vaultID, actorID uuid.UUID, kind model.TransactionType, item model.ItemStack, slot int) error {
	if err := store_interface.ValidateItemEvent(kind, slot); err != nil {
		return err
	}
	r.append(model.NewItemTransaction(vaultID, actorID, kind, item, slot, time.Now()))
	return nil
}

func (r *RamStore) LogBalanceEvent(_ context.Context, vaultID, actorID uuid.UUID, kind model.TransactionType, amount int64) error {
	if err := store_interface.ValidateBalanceEvent(kind, amount); err != nil {
		return err
	}
	r.append(model.NewBalanceTransaction(vaultID, actorID, kind, amount, time.Now()))
	return nil
}

func (r *RamStore) append(t model.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, t)
}

func (r *RamStore) Transactions(_ context.Context, q store_interface.TransactionQuery) ([]model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Transaction
	for i := len(r.transactions) - 1; i >= 0; i-- {
		if q.Matches(r.transactions[i]) {
			out = append(out, r.transactions[i])
		}
	}
	return q.Page(out), nil
}

func (r *RamStore) ArchiveOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.transactions)
	r.transactions = slices.DeleteFunc(r.transactions, func(t model.Transaction) bool {
		return t.Timestamp.Before(cutoff)
	})
	return int64(before - len(r.transactions)), nil
}

func (r *RamStore) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.transactions)), nil
}

func (r *RamStore) TransactionClose() error {
	return nil
}

func (r *RamStore) ImportTransactions(_ context.Context, items []model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, items...)
	slices.SortStableFunc(r.transactions, func(a, b model.Transaction) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return nil
}
