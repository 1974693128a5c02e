package sqlite_store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReopenKeepsSchemaAndData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault.db")
	id := uuid.New()

	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.SaveSlot(ctx, id, 3, &model.ItemStack{Material: "DIAMOND", Amount: 4}))
	require.NoError(t, first.VaultClose())

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.VaultClose()

	var versions int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&versions))
	assert.Equal(t, 1, versions)

	slots, err := second.LoadSlots(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, slots[3].Amount)
}
