// internal/services/txstatus_service_test.go
package services

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverink/coverink-backend/internal/chain"
	"github.com/coverink/coverink-backend/internal/config"
)

type fakeFetcher struct {
	receipts map[common.Hash]*types.Receipt
	calls    int
}

func (f *fakeFetcher) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.calls++
	receipt, ok := f.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func newTxStatusFixture(t *testing.T) (*TxStatusService, *fakeFetcher) {
	t.Helper()
	fetcher := &fakeFetcher{receipts: make(map[common.Hash]*types.Receipt)}
	cfg := &config.Config{Story: config.StoryConfig{TxCacheSize: 16}}
	svc, err := NewTxStatusService(fetcher, cfg)
	require.NoError(t, err)
	return svc, fetcher
}

const testTxHash = "0x00000000000000000000000000000000000000000000000000000000000000aa"

func TestResolvePendingWhenNoReceipt(t *testing.T) {
	svc, _ := newTxStatusFixture(t)

	result, err := svc.Resolve(context.Background(), testTxHash)

	require.NoError(t, err)
	assert.Equal(t, TxStatusPending, result.Status)
	assert.Empty(t, result.IPID)
}

func TestResolveFailedReceipt(t *testing.T) {
	svc, fetcher := newTxStatusFixture(t)
	fetcher.receipts[common.HexToHash(testTxHash)] = &types.Receipt{
		Status: types.ReceiptStatusFailed,
		TxHash: common.HexToHash(testTxHash),
	}

	result, err := svc.Resolve(context.Background(), testTxHash)

	require.NoError(t, err)
	assert.Equal(t, TxStatusFailed, result.Status)
}

func TestResolveDecodesRegistrationLogs(t *testing.T) {
	svc, fetcher := newTxStatusFixture(t)

	registered := &chain.RegisteredIP{
		IPID:    common.HexToAddress("0x00000000000000000000000000000000000000AB"),
		TokenID: big.NewInt(12),
		URI:     "ciphertext",
	}
	regLog, err := chain.EncodeIPRegistered(registered, big.NewInt(1315), common.HexToAddress("0x01"))
	require.NoError(t, err)

	attached := &chain.AttachedTerms{
		IPID:           registered.IPID,
		LicenseTermsID: big.NewInt(99),
	}
	termsLog, err := chain.EncodeLicenseTermsAttached(attached, common.Address{}, common.Address{})
	require.NoError(t, err)

	// A foreign log that matches neither shape must be skipped.
	foreign := types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}}

	fetcher.receipts[common.HexToHash(testTxHash)] = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: common.HexToHash(testTxHash),
		Logs:   []*types.Log{&foreign, &regLog, &termsLog},
	}

	result, err := svc.Resolve(context.Background(), testTxHash)

	require.NoError(t, err)
	assert.Equal(t, TxStatusSuccess, result.Status)
	assert.Equal(t, registered.IPID.Hex(), result.IPID)
	assert.Equal(t, "12", result.TokenID)
	assert.Equal(t, []string{"99"}, result.LicenseTermsIDs)
}

func TestResolvePrefersRecordedIdentifiers(t *testing.T) {
	svc, fetcher := newTxStatusFixture(t)

	fetcher.receipts[common.HexToHash(testTxHash)] = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: common.HexToHash(testTxHash),
	}

	svc.Record(testTxHash, TxIdentifiers{IPID: "0xrecorded", TokenID: "5"})

	result, err := svc.Resolve(context.Background(), testTxHash)

	require.NoError(t, err)
	assert.Equal(t, TxStatusSuccess, result.Status)
	assert.Equal(t, "0xrecorded", result.IPID)
	assert.Equal(t, "5", result.TokenID)
}

func TestResolvePartialIdentifiersAllowed(t *testing.T) {
	svc, fetcher := newTxStatusFixture(t)

	// Success receipt with no decodable logs: terminal, but identifiers stay
	// empty.
	fetcher.receipts[common.HexToHash(testTxHash)] = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: common.HexToHash(testTxHash),
	}

	result, err := svc.Resolve(context.Background(), testTxHash)

	require.NoError(t, err)
	assert.Equal(t, TxStatusSuccess, result.Status)
	assert.Empty(t, result.IPID)
	assert.Empty(t, result.TokenID)
	assert.Empty(t, result.LicenseTermsIDs)
}
