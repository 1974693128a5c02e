package sqlite_store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/google/uuid"
)

func (s *SQLiteStore) LogItemEvent(ctx context.Context, vaultID, actorID uuid.UUID, kind model.TransactionType, item model.ItemStack, slot int) error {
	if err := store_interface.ValidateItemEvent(kind, slot); err != nil {
		return err
	}
	return s.insertTransaction(ctx, model.NewItemTransaction(vaultID, actorID, kind, item, slot, time.Now()))
}

func (s *SQLiteStore) LogBalanceEvent(ctx context.Context, vaultID, actorID uuid.UUID, kind model.TransactionType, amount int64) error {
	if err := store_interface.ValidateBalanceEvent(kind, amount); err != nil {
		return err
	}
	return s.insertTransaction(ctx, model.NewBalanceTransaction(vaultID, actorID, kind, amount, time.Now()))
}

func (s *SQLiteStore) insertTransaction(ctx context.Context, t model.Transaction) error {
	var item sql.NullString
	if t.Item != nil {
		raw, err := json.Marshal(t.Item)
		if err != nil {
			return err
		}
		item = sql.NullString{String: string(raw), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO vault_transaction (id, vault_id, actor_id, type, amount, item, slot, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.VaultID.String(), t.ActorID.String(), string(t.Type), t.Amount, item, t.Slot, t.Timestamp.UnixMilli())
	return err
}

func (s *SQLiteStore) Transactions(ctx context.Context, q store_interface.TransactionQuery) ([]model.Transaction, error) {
	var where []string
	var args []any
	if q.VaultID != nil {
		where = append(where, "vault_id = ?")
		args = append(args, q.VaultID.String())
	}
	if q.ActorID != nil {
		where = append(where, "actor_id = ?")
		args = append(args, q.ActorID.String())
	}
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(q.Type))
	}
	if !q.Since.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, q.Since.UnixMilli())
	}
	if !q.Until.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, q.Until.UnixMilli())
	}

	query := `SELECT id, vault_id, actor_id, type, amount, item, slot, ts FROM vault_transaction`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, rowid DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	} else if q.Offset > 0 {
		query += " LIMIT -1"
	}
	if q.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			t                        model.Transaction
			id, vaultID, actor, kind string
			amount, slot             sql.NullInt64
			item                     sql.NullString
			ts                       int64
		)
		if err := rows.Scan(&id, &vaultID, &actor, &kind, &amount, &item, &slot, &ts); err != nil {
			return nil, err
		}
		t.ID = id
		t.Type = model.TransactionType(kind)
		t.Timestamp = time.UnixMilli(ts)
		if t.VaultID, err = uuid.Parse(vaultID); err != nil {
			return nil, err
		}
		if t.ActorID, err = uuid.Parse(actor); err != nil {
			return nil, err
		}
		if amount.Valid {
			t.Amount = &amount.Int64
		}
		if slot.Valid {
			n := int(slot.Int64)
			t.Slot = &n
		}
		if item.Valid {
			t.Item = &model.ItemStack{}
			if err := json.Unmarshal([]byte(item.String), t.Item); err != nil {
				return nil, err
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vault_transaction WHERE ts < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vault_transaction`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) TransactionClose() error {
	return s.close()
}

func (s *SQLiteStore) ImportTransactions(ctx context.Context, items []model.Transaction) error {
	for _, t := range items {
		if err := s.insertTransaction(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
