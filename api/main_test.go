package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/config"
	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/ram"
	"github.com/BadgersMC/LumaGuilds-sub008/vault"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	server  *httptest.Server
	manager *vault.Manager
	store   *ram.RamStore
	baseURL string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := ram.NewRamStore()
	opts := vault.DefaultOptions()
	opts.SaveBackoff = time.Millisecond
	opts.SaveMaxBackoff = 2 * time.Millisecond
	opts.Logger = log.New(io.Discard)
	manager := vault.NewManager(store, store, opts)

	cfg := config.Default().Server
	engine := SetupRouter(manager, store, cfg, log.New(io.Discard))
	server := httptest.NewServer(engine.Handler())
	t.Cleanup(server.Close)

	return &testEnv{server: server, manager: manager, store: store, baseURL: server.URL + cfg.Prefix}
}

// post sends body as JSON with an optional actor header and decodes the reply into out.
func (e *testEnv) post(t *testing.T, path string, actor *uuid.UUID, body, out any) int {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", e.baseURL+path, bytes.NewBuffer(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set(actorHeader, actor.String())
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, out), string(raw))
		}
	}
	return resp.StatusCode
}

func diamond(n int) *model.ItemStack {
	return &model.ItemStack{Material: "DIAMOND", Amount: n}
}
