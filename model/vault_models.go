package model

import "github.com/google/uuid"

type VaultRequest struct {
	VaultID uuid.UUID `json:"vaultId"`
}

type SlotRequest struct {
	VaultID uuid.UUID  `json:"vaultId"`
	Slot    int        `json:"slot"`
	Item    *ItemStack `json:"item,omitempty"`
}

type BalanceRequest struct {
	VaultID uuid.UUID `json:"vaultId"`
	Amount  int64     `json:"amount"`
}

type VaultResponse struct {
	VaultID uuid.UUID         `json:"vaultId"`
	Balance int64             `json:"balance"`
	Slots   map[int]ItemStack `json:"slots"`
}

type SlotResponse struct {
	Item     *ItemStack `json:"item"`
	Previous *ItemStack `json:"previous,omitempty"`
}

type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

type WithdrawResponse struct {
	Balance      int64 `json:"balance"`
	Insufficient bool  `json:"insufficient"`
}

type FlushResponse struct {
	Success bool `json:"success"`
}

// TransactionsRequest filters the audit log. Since and Until are unix millis, zero means unbounded.
type TransactionsRequest struct {
	VaultID *uuid.UUID      `json:"vaultId,omitempty"`
	ActorID *uuid.UUID      `json:"actorId,omitempty"`
	Type    TransactionType `json:"type,omitempty"`
	Since   int64           `json:"since,omitempty"`
	Until   int64           `json:"until,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

type TransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

type StatsResponse struct {
	CachedVaults   int `json:"cachedVaults"`
	ActiveViewers  int `json:"activeViewers"`
	PendingBuffers int `json:"pendingBuffers"`
	DirtyVaults    int `json:"dirtyVaults"`
}
