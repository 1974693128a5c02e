package sqlite_store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/google/uuid"
)

func (s *SQLiteStore) LoadSlots(ctx context.Context, vaultID uuid.UUID) (map[int]model.ItemStack, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slot, item FROM vault_slot WHERE vault_id = ?`, vaultID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]model.ItemStack)
	for rows.Next() {
		var slot int
		var raw string
		if err := rows.Scan(&slot, &raw); err != nil {
			return nil, err
		}
		var item model.ItemStack
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("decode slot %d: %w", slot, err)
		}
		out[slot] = item
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LoadBalance(ctx context.Context, vaultID uuid.UUID) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM vault_balance WHERE vault_id = ?`, vaultID.String()).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

func (s *SQLiteStore) SaveSlot(ctx context.Context, vaultID uuid.UUID, slot int, item *model.ItemStack) error {
	if slot < 0 {
		return store_interface.ErrInvalidSlot
	}
	if item == nil {
		_, err := s.db.ExecContext(ctx, `DELETE FROM vault_slot WHERE vault_id = ? AND slot = ?`, vaultID.String(), slot)
		return err
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vault_slot (vault_id, slot, item)
		VALUES (?, ?, ?)
		ON CONFLICT(vault_id, slot) DO UPDATE SET item = excluded.item
	`, vaultID.String(), slot, string(raw))
	return err
}

func (s *SQLiteStore) SaveBalance(ctx context.Context, vaultID uuid.UUID, balance int64) error {
	if balance < 0 {
		return store_interface.ErrNegativeBalance
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vault_balance (vault_id, balance)
		VALUES (?, ?)
		ON CONFLICT(vault_id) DO UPDATE SET balance = excluded.balance
	`, vaultID.String(), balance)
	return err
}

func (s *SQLiteStore) ClearVault(ctx context.Context, vaultID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vault_slot WHERE vault_id = ?`, vaultID.String()); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vault_balance WHERE vault_id = ?`, vaultID.String()); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) VaultIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vault_id FROM vault_slot
		UNION
		SELECT vault_id FROM vault_balance
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse vault id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) VaultClose() error {
	return s.close()
}
