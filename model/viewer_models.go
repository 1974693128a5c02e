package model

// Viewer socket message types.
const (
	ViewerWriteSlot = "write-slot"
	ViewerDeposit   = "deposit"
	ViewerWithdraw  = "withdraw"
	ViewerSync      = "sync"
	ViewerPing      = "ping"

	ServerSlot     = "slot"
	ServerSnapshot = "snapshot"
	ServerBalance  = "balance"
	ServerError    = "error"
	ServerPong     = "pong"
)

// ViewerMessage is sent by a connected viewer.
type ViewerMessage struct {
	Type   string             `json:"type"`
	Slot   int                `json:"slot,omitempty"`
	Item   *ItemStack         `json:"item,omitempty"`
	Amount int64              `json:"amount,omitempty"`
	Slots  map[int]*ItemStack `json:"slots,omitempty"`
}

// ServerMessage is pushed to a connected viewer.
type ServerMessage struct {
	Type         string             `json:"type"`
	Slot         int                `json:"slot"`
	Item         *ItemStack         `json:"item"`
	Slots        map[int]*ItemStack `json:"slots,omitempty"`
	Size         int                `json:"size,omitempty"`
	Balance      int64              `json:"balance,omitempty"`
	Insufficient bool               `json:"insufficient,omitempty"`
	Error        string             `json:"error,omitempty"`
}
