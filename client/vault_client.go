package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/google/uuid"
)

// VaultClient talks to the vault HTTP endpoints. BaseURL includes the route
// prefix, e.g. http://localhost:8080/vault.
type VaultClient struct {
	BaseURL    string
	HTTPClient *http.Client
	ActorID    uuid.UUID
}

func NewVaultClient(baseURL string, actor uuid.UUID) *VaultClient {
	return &VaultClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		ActorID:    actor,
	}
}

// StatusError is returned for any unexpected HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func (c *VaultClient) do(ctx context.Context, method, urlSuffix string, req any) (int, []byte, error) {
	var body io.Reader
	if req != nil {
		raw, err := json.Marshal(req)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(raw)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.BaseURL+urlSuffix, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.ActorID != uuid.Nil {
		httpReq.Header.Set("X-Actor-Id", c.ActorID.String())
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (c *VaultClient) postReq(ctx context.Context, urlSuffix string, req, out any) error {
	status, body, err := c.do(ctx, http.MethodPost, urlSuffix, req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &StatusError{Code: status, Body: string(body)}
	}
	return decode(body, out)
}

func decode(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, message body was '%s'", err, string(body))
	}
	return nil
}

func (c *VaultClient) GetVault(ctx context.Context, vaultID uuid.UUID) (*model.VaultResponse, error) {
	var result model.VaultResponse
	if err := c.postReq(ctx, "/get-vault", model.VaultRequest{VaultID: vaultID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *VaultClient) GetSlot(ctx context.Context, vaultID uuid.UUID, slot int) (*model.ItemStack, error) {
	var result model.SlotResponse
	if err := c.postReq(ctx, "/get-slot", model.SlotRequest{VaultID: vaultID, Slot: slot}, &result); err != nil {
		return nil, err
	}
	return result.Item, nil
}

// WriteSlot sets a slot, or empties it when item is nil, and returns the
// previous content.
func (c *VaultClient) WriteSlot(ctx context.Context, vaultID uuid.UUID, slot int, item *model.ItemStack) (*model.ItemStack, error) {
	var result model.SlotResponse
	req := model.SlotRequest{VaultID: vaultID, Slot: slot, Item: item}
	if err := c.postReq(ctx, "/write-slot", req, &result); err != nil {
		return nil, err
	}
	return result.Previous, nil
}

func (c *VaultClient) Deposit(ctx context.Context, vaultID uuid.UUID, amount int64) (int64, error) {
	var result model.BalanceResponse
	if err := c.postReq(ctx, "/deposit", model.BalanceRequest{VaultID: vaultID, Amount: amount}, &result); err != nil {
		return 0, err
	}
	return result.Balance, nil
}

// Withdraw reports insufficient funds in the response rather than as an error.
func (c *VaultClient) Withdraw(ctx context.Context, vaultID uuid.UUID, amount int64) (*model.WithdrawResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/withdraw", model.BalanceRequest{VaultID: vaultID, Amount: amount})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusConflict {
		return nil, &StatusError{Code: status, Body: string(body)}
	}
	var result model.WithdrawResponse
	if err := decode(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *VaultClient) SetBalance(ctx context.Context, vaultID uuid.UUID, balance int64) error {
	return c.postReq(ctx, "/set-balance", model.BalanceRequest{VaultID: vaultID, Amount: balance}, nil)
}

func (c *VaultClient) Flush(ctx context.Context, vaultID uuid.UUID) error {
	return c.postReq(ctx, "/flush", model.VaultRequest{VaultID: vaultID}, nil)
}

func (c *VaultClient) Refresh(ctx context.Context, vaultID uuid.UUID) error {
	return c.postReq(ctx, "/refresh", model.VaultRequest{VaultID: vaultID}, nil)
}

func (c *VaultClient) Clear(ctx context.Context, vaultID uuid.UUID) error {
	return c.postReq(ctx, "/clear", model.VaultRequest{VaultID: vaultID}, nil)
}

func (c *VaultClient) Transactions(ctx context.Context, req model.TransactionsRequest) ([]model.Transaction, error) {
	var result model.TransactionsResponse
	if err := c.postReq(ctx, "/transactions", req, &result); err != nil {
		return nil, err
	}
	return result.Transactions, nil
}

func (c *VaultClient) Stats(ctx context.Context) (*model.StatsResponse, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/stats", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{Code: status, Body: string(body)}
	}
	var result model.StatsResponse
	if err := decode(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
