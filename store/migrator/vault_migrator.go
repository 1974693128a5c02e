package migrator

import (
	"context"
	"fmt"

	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// VaultMigrator copies vault contents from one engine to another. Target slots
// absent from the source are left in place; the target balance is overwritten.
type VaultMigrator struct {
	Source store_interface.VaultStore
	Target store_interface.VaultStore
	Logger *log.Logger
}

func (v *VaultMigrator) Migrate(ctx context.Context, vaultID uuid.UUID) (int, error) {
	slots, err := v.Source.LoadSlots(ctx, vaultID)
	if err != nil {
		return 0, fmt.Errorf("failed to load slots of vault %s: %w", vaultID, err)
	}
	balance, err := v.Source.LoadBalance(ctx, vaultID)
	if err != nil {
		return 0, fmt.Errorf("failed to load balance of vault %s: %w", vaultID, err)
	}

	for slot, item := range slots {
		if err := v.Target.SaveSlot(ctx, vaultID, slot, &item); err != nil {
			return 0, fmt.Errorf("failed to write slot %d of vault %s: %w", slot, vaultID, err)
		}
	}
	if err := v.Target.SaveBalance(ctx, vaultID, balance); err != nil {
		return 0, fmt.Errorf("failed to write balance of vault %s: %w", vaultID, err)
	}

	v.logger().Debug("migrated vault", "vault", vaultID, "slots", len(slots), "balance", balance)
	return len(slots), nil
}

// MigrateAll copies every vault the source knows about and returns how many it moved.
func (v *VaultMigrator) MigrateAll(ctx context.Context) (int, error) {
	ids, err := v.Source.VaultIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list source vaults: %w", err)
	}
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := v.Migrate(ctx, id); err != nil {
			return i, err
		}
	}
	v.logger().Info("vault migration complete", "vaults", len(ids))
	return len(ids), nil
}

func (v *VaultMigrator) logger() *log.Logger {
	if v.Logger == nil {
		return log.Default()
	}
	return v.Logger
}
