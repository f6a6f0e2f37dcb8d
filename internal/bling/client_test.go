package bling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/erpsync/bling-sync/internal/errors"
	"github.com/erpsync/bling-sync/internal/models"
)

func setupTestClient(t *testing.T, state models.TokenState, opts ...ClientOption) (*Client, *httptest.Server, func()) {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	server := httptest.NewServer(nil)
	opts = append(opts, WithHTTPClient(server.Client()))
	client := NewClient(
		"company-1",
		state,
		server.URL+"/Api/v3",
		server.URL+"/oauth/token",
		5*time.Second,
		logger,
		opts...,
	)

	cleanup := func() {
		server.Close()
	}

	return client, server, cleanup
}

func configuredState() models.TokenState {
	return models.TokenState{ClientID: "client-id", ClientSecret: "client-secret"}
}

func usableState(now time.Time) models.TokenState {
	return configuredState().WithTokens("access-1", "refresh-1", now.Add(time.Hour))
}

func tokenResponse(access, refresh string) []byte {
	payload := map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"expires_in":    3600,
	}
	data, _ := json.Marshal(payload)
	return data
}

func TestClient_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("successful exchange", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, configuredState())
		defer cleanup()

		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/oauth/token", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
			assert.Equal(t, "valid-code", r.Form.Get("code"))
			assert.Equal(t, "client-id", r.Form.Get("client_id"))

			w.Header().Set("Content-Type", "application/json")
			w.Write(tokenResponse("a1", "r1"))
		})

		before := time.Now()
		state, err := client.Authenticate(ctx, "valid-code")
		require.NoError(t, err)
		assert.Equal(t, "a1", state.AccessToken)
		assert.Equal(t, "r1", state.RefreshToken)
		assert.WithinDuration(t, before.Add(time.Hour), state.ExpiresAt, 5*time.Second)

		// stored state matches what was returned
		assert.Equal(t, state, client.Token())
	})

	t.Run("rejected code leaves state untouched", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, configuredState())
		defer cleanup()

		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "invalid_grant"}`))
		})

		_, err := client.Authenticate(ctx, "bad-code")
		require.Error(t, err)
		assert.True(t, apperrors.IsAuthExchange(err))

		state := client.Token()
		assert.Empty(t, state.AccessToken)
		assert.Empty(t, state.RefreshToken)
	})

	t.Run("empty code is rejected without a remote call", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, configuredState())
		defer cleanup()

		calls := 0
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		})

		_, err := client.Authenticate(ctx, "")
		require.Error(t, err)
		assert.True(t, apperrors.IsAuthExchange(err))
		assert.Zero(t, calls)
	})

	t.Run("tokens are persisted through the saver", func(t *testing.T) {
		var saved models.TokenState
		saver := func(_ context.Context, companyID string, state models.TokenState) error {
			assert.Equal(t, "company-1", companyID)
			saved = state
			return nil
		}

		client, server, cleanup := setupTestClient(t, configuredState(), WithTokenSaver(saver))
		defer cleanup()

		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write(tokenResponse("a1", "r1"))
		})

		_, err := client.Authenticate(ctx, "valid-code")
		require.NoError(t, err)
		assert.Equal(t, "a1", saved.AccessToken)
		assert.Equal(t, "r1", saved.RefreshToken)
	})
}

func TestClient_TokenRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("expired token triggers one refresh before the request", func(t *testing.T) {
		state := configuredState().WithTokens("stale", "refresh-1", time.Now().Add(-time.Minute))
		client, server, cleanup := setupTestClient(t, state)
		defer cleanup()

		refreshes := 0
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/oauth/token" {
				refreshes++
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
				assert.Equal(t, "refresh-1", r.Form.Get("refresh_token"))
				w.Header().Set("Content-Type", "application/json")
				w.Write(tokenResponse("a2", "r2"))
				return
			}

			assert.Equal(t, "/Api/v3/produtos", r.URL.Path)
			assert.Equal(t, "Bearer a2", r.Header.Get("Authorization"))
			w.Write([]byte(`{"data": [], "meta": {"pages": 0}}`))
		})

		_, err := client.GetProducts(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, refreshes)

		// rotated pair replaced the stored state
		state = client.Token()
		assert.Equal(t, "a2", state.AccessToken)
		assert.Equal(t, "r2", state.RefreshToken)
	})

	t.Run("usable token is not refreshed", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, usableState(time.Now()))
		defer cleanup()

		refreshes := 0
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/oauth/token" {
				refreshes++
				return
			}
			assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
			w.Write([]byte(`{"data": [], "meta": {"pages": 0}}`))
		})

		_, err := client.GetOrders(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, refreshes)
	})

	t.Run("provider keeping the old refresh token", func(t *testing.T) {
		state := configuredState().WithTokens("stale", "refresh-1", time.Now().Add(-time.Minute))
		client, server, cleanup := setupTestClient(t, state)
		defer cleanup()

		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/oauth/token" {
				w.Header().Set("Content-Type", "application/json")
				w.Write(tokenResponse("a2", ""))
				return
			}
			w.Write([]byte(`{"data": [], "meta": {"pages": 0}}`))
		})

		_, err := client.GetOrders(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "refresh-1", client.Token().RefreshToken)
	})

	t.Run("refresh without a refresh token fails", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, configuredState())
		defer cleanup()

		calls := 0
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		})

		_, err := client.GetOrders(ctx, nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsRefresh(err))
		assert.Zero(t, calls)
	})

	t.Run("401 forces a single refresh and retry", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, usableState(time.Now()))
		defer cleanup()

		apiCalls := 0
		refreshes := 0
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/oauth/token" {
				refreshes++
				w.Header().Set("Content-Type", "application/json")
				w.Write(tokenResponse("a2", "r2"))
				return
			}

			apiCalls++
			if apiCalls == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "Bearer a2", r.Header.Get("Authorization"))
			w.Write([]byte(`{"data": [], "meta": {"pages": 0}}`))
		})

		_, err := client.GetOrders(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, apiCalls)
		assert.Equal(t, 1, refreshes)
	})

	t.Run("persistent 401 surfaces as api error", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, usableState(time.Now()))
		defer cleanup()

		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/oauth/token" {
				w.Header().Set("Content-Type", "application/json")
				w.Write(tokenResponse("a2", "r2"))
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := client.GetOrders(ctx, nil)
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})
}

func TestClient_ListQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("filters map to bling query params", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, usableState(time.Now()))
		defer cleanup()

		since := time.Date(2024, 3, 20, 12, 30, 0, 0, time.UTC)
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "2", q.Get("pagina"))
			assert.Equal(t, "100", q.Get("limite"))
			assert.Equal(t, "2024-03-20 12:30:00", q.Get("dataAlteracaoInicial"))
			w.Write([]byte(`{"data": [], "meta": {"pages": 3}}`))
		})

		page, err := client.GetOrders(ctx, &ListFilters{Page: 2, PageSize: 100, Since: &since})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Pages)
	})

	t.Run("zero filters are omitted", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, usableState(time.Now()))
		defer cleanup()

		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.False(t, q.Has("pagina"))
			assert.False(t, q.Has("limite"))
			assert.False(t, q.Has("dataAlteracaoInicial"))
			w.Write([]byte(`{"data": [], "meta": {"pages": 0}}`))
		})

		_, err := client.GetOrders(ctx, &ListFilters{})
		require.NoError(t, err)
	})

	t.Run("orders are decoded with the raw payload kept", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, usableState(time.Now()))
		defer cleanup()

		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/Api/v3/pedidos/vendas", r.URL.Path)
			w.Write([]byte(`{
				"data": [
					{"id": 10, "numero": 1001, "data": "2024-03-20", "total": 150.5,
					 "contato": {"id": 7, "nome": "Acme"}, "situacao": {"id": 6}}
				],
				"meta": {"pages": 1}
			}`))
		})

		page, err := client.GetOrders(ctx, nil)
		require.NoError(t, err)
		require.Len(t, page.Orders, 1)

		order := page.Orders[0]
		assert.Equal(t, int64(10), order.BlingID)
		assert.Equal(t, int64(1001), order.Number)
		assert.Equal(t, 150.5, order.Total)
		assert.Equal(t, "Acme", order.ContactName)
		assert.Equal(t, 6, order.StatusID)
		assert.JSONEq(t, `{"id": 10, "numero": 1001, "data": "2024-03-20", "total": 150.5,
			"contato": {"id": 7, "nome": "Acme"}, "situacao": {"id": 6}}`, string(order.Payload))
	})

	t.Run("api error payload is surfaced", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, usableState(time.Now()))
		defer cleanup()

		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": {"type": "TOO_MANY_REQUESTS", "message": "limite excedido"}}`))
		})

		_, err := client.GetProducts(ctx, nil)
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		assert.Equal(t, "TOO_MANY_REQUESTS", apiErr.Code)
		assert.Equal(t, "limite excedido", apiErr.Message)
	})
}

func TestClient_Mutations(t *testing.T) {
	ctx := context.Background()

	t.Run("update order status", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, usableState(time.Now()))
		defer cleanup()

		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "PATCH", r.Method)
			assert.Equal(t, "/Api/v3/pedidos/vendas/42/situacoes/9", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})

		require.NoError(t, client.UpdateOrderStatus(ctx, 42, 9))
	})

	t.Run("setup webhook", func(t *testing.T) {
		client, server, cleanup := setupTestClient(t, usableState(time.Now()))
		defer cleanup()

		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/Api/v3/webhooks", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://example.com/hooks/bling", body["url"])
			assert.Equal(t, []any{"order.created"}, body["events"])
			w.WriteHeader(http.StatusCreated)
		})

		require.NoError(t, client.SetupWebhook(ctx, "https://example.com/hooks/bling", []string{"order.created"}))
	})
}
