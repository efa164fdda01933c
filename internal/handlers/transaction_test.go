// internal/handlers/transaction_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverink/coverink-backend/internal/config"
	"github.com/coverink/coverink-backend/internal/services"
)

type stubFetcher struct {
	receipt *types.Receipt
}

func (s *stubFetcher) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	if s.receipt == nil {
		return nil, ethereum.NotFound
	}
	return s.receipt, nil
}

func newTransactionRouter(t *testing.T, fetcher *stubFetcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{Story: config.StoryConfig{TxCacheSize: 16}}
	txStatusService, err := services.NewTxStatusService(fetcher, cfg)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/v1/transactions/:txHash", NewTransactionHandler(txStatusService).GetStatus)
	return r
}

func TestGetStatusPending(t *testing.T) {
	router := newTransactionRouter(t, &stubFetcher{})

	hash := "0x00000000000000000000000000000000000000000000000000000000000000ab"
	req, _ := http.NewRequest("GET", "/v1/transactions/"+hash, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "pending", body.Data.Status)
}

func TestGetStatusFailedTransaction(t *testing.T) {
	router := newTransactionRouter(t, &stubFetcher{
		receipt: &types.Receipt{Status: types.ReceiptStatusFailed},
	})

	hash := "0x00000000000000000000000000000000000000000000000000000000000000cd"
	req, _ := http.NewRequest("GET", "/v1/transactions/"+hash, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "failed", body.Data.Status)
}

func TestGetStatusRejectsMalformedHash(t *testing.T) {
	router := newTransactionRouter(t, &stubFetcher{})

	req, _ := http.NewRequest("GET", "/v1/transactions/not-a-hash", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "MISSING_PARAMETERS", body.Error.Code)
}
