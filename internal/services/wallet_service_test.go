// internal/services/wallet_service_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverink/coverink-backend/internal/config"
)

func newWalletFixture(t *testing.T, handler http.HandlerFunc) *WalletService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Privy: config.PrivyConfig{
			BaseURL:   server.URL,
			AppID:     "app-id",
			AppSecret: "app-secret",
		},
	}
	return NewWalletService(cfg)
}

func TestResolveReturnsWallets(t *testing.T) {
	svc := newWalletFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "app-id", r.Header.Get("privy-app-id"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user@example.com", body["address"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "did:privy:abc123",
			"linked_accounts": []map[string]interface{}{
				{"type": "email", "address": "user@example.com"},
				{
					"type":               "wallet",
					"address":            "0x4444444444444444444444444444444444444444",
					"wallet_client_type": "privy",
					"chain_type":         "ethereum",
				},
			},
		})
	})

	lookup, err := svc.Resolve(context.Background(), "user@example.com")

	require.NoError(t, err)
	assert.Equal(t, "did:privy:abc123", lookup.UserID)
	require.Len(t, lookup.Wallets, 1)
	assert.Equal(t, "0x4444444444444444444444444444444444444444", lookup.Wallets[0].Address)
	assert.Equal(t, "ethereum", lookup.Wallets[0].Chain)
}

func TestResolveUnknownEmail(t *testing.T) {
	svc := newWalletFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := svc.Resolve(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestResolveUserWithoutWallet(t *testing.T) {
	svc := newWalletFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "did:privy:abc123",
			"linked_accounts": []map[string]interface{}{
				{"type": "email", "address": "user@example.com"},
			},
		})
	})

	_, err := svc.Resolve(context.Background(), "user@example.com")

	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestResolveProviderError(t *testing.T) {
	svc := newWalletFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := svc.Resolve(context.Background(), "user@example.com")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecipientNotFound)
}

func TestResolveAddressUsesFirstWallet(t *testing.T) {
	svc := newWalletFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "did:privy:abc123",
			"linked_accounts": []map[string]interface{}{
				{"type": "wallet", "address": "0x5555555555555555555555555555555555555555"},
				{"type": "wallet", "address": "0x6666666666666666666666666666666666666666"},
			},
		})
	})

	address, err := svc.ResolveAddress(context.Background(), "user@example.com")

	require.NoError(t, err)
	assert.Equal(t, "0x5555555555555555555555555555555555555555", address)
}
