// internal/services/txstatus_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/coverink/coverink-backend/internal/chain"
	"github.com/coverink/coverink-backend/internal/config"
)

type TxStatus string

const (
	TxStatusPending TxStatus = "pending"
	TxStatusSuccess TxStatus = "success"
	TxStatusFailed  TxStatus = "failed"
)

// ReceiptFetcher is the one chain call the resolver needs. *ethclient.Client
// satisfies it; tests use a fake.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// TxIdentifiers are the on-chain identifiers extracted from a mined
// transaction. Partially populated values are normal: a mint transaction
// carries license terms but no registered asset, and vice versa.
type TxIdentifiers struct {
	IPID            string   `json:"ip_id,omitempty"`
	TokenID         string   `json:"token_id,omitempty"`
	LicenseTermsIDs []string `json:"license_terms_ids,omitempty"`
}

// TxStatusResult is the resolved view of one transaction hash.
type TxStatusResult struct {
	TxHash string   `json:"tx_hash"`
	Status TxStatus `json:"status"`
	TxIdentifiers
}

// TxStatusService resolves transaction hashes to a status plus any decoded
// identifiers. Identifiers captured at submission time are remembered in a
// bounded LRU cache so resolution never re-decodes a receipt the platform
// itself submitted; unknown hashes fall back to scanning the receipt logs.
type TxStatusService struct {
	fetcher ReceiptFetcher
	cache   *lru.Cache
}

func NewTxStatusService(fetcher ReceiptFetcher, cfg *config.Config) (*TxStatusService, error) {
	size := cfg.Story.TxCacheSize
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create tx cache: %w", err)
	}
	return &TxStatusService{fetcher: fetcher, cache: cache}, nil
}

// Record stores identifiers for a hash the platform just submitted, so a
// later Resolve returns them without decoding.
func (s *TxStatusService) Record(txHash string, ids TxIdentifiers) {
	if txHash == "" {
		return
	}
	s.cache.Add(txHash, ids)
}

// Resolve fetches the receipt for txHash. No receipt means pending; a
// reverted receipt means failed; a successful receipt yields identifiers
// from the cache or, failing that, from decoding the receipt logs.
func (s *TxStatusService) Resolve(ctx context.Context, txHash string) (*TxStatusResult, error) {
	result := &TxStatusResult{TxHash: txHash, Status: TxStatusPending}

	receipt, err := s.fetcher.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to fetch receipt: %w", err)
	}
	if receipt == nil {
		return result, nil
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		result.Status = TxStatusFailed
		return result, nil
	}
	result.Status = TxStatusSuccess

	if cached, ok := s.cache.Get(txHash); ok {
		ids := cached.(TxIdentifiers)
		if !ids.empty() {
			result.TxIdentifiers = ids
			return result, nil
		}
	}

	result.TxIdentifiers = decodeReceiptIdentifiers(receipt)
	s.cache.Add(txHash, result.TxIdentifiers)
	return result, nil
}

func (ids TxIdentifiers) empty() bool {
	return ids.IPID == "" && ids.TokenID == "" && len(ids.LicenseTermsIDs) == 0
}

// decodeReceiptIdentifiers scans every log, guess-and-checking it against the
// known event shapes. Logs that match neither belong to other contracts and
// are skipped.
func decodeReceiptIdentifiers(receipt *types.Receipt) TxIdentifiers {
	var ids TxIdentifiers
	for _, lg := range receipt.Logs {
		if lg == nil {
			continue
		}
		if registered, ok := chain.DecodeIPRegistered(*lg); ok {
			ids.IPID = registered.IPID.Hex()
			ids.TokenID = registered.TokenID.String()
			continue
		}
		if attached, ok := chain.DecodeLicenseTermsAttached(*lg); ok {
			ids.LicenseTermsIDs = append(ids.LicenseTermsIDs, attached.LicenseTermsID.String())
		}
	}
	if ids.empty() {
		logrus.WithField("tx_hash", receipt.TxHash.Hex()).Debug("No known identifiers in receipt logs")
	}
	return ids
}
