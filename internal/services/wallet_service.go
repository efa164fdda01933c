// internal/services/wallet_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coverink/coverink-backend/internal/config"
)

// ErrRecipientNotFound means the identity provider knows no wallet for the
// given email. Handlers map it to a 404.
var ErrRecipientNotFound = errors.New("recipient not found")

// WalletService resolves user emails to custodial wallet addresses through
// the identity provider's REST API.
type WalletService struct {
	cfg    *config.Config
	client *http.Client
}

type Wallet struct {
	Address string `json:"address"`
	Type    string `json:"type"`
	Chain   string `json:"chain"`
}

type WalletLookup struct {
	UserID  string   `json:"user_id"`
	Wallets []Wallet `json:"wallets"`
}

// providerUser mirrors the relevant slice of the identity provider's user
// object: linked accounts, some of which are embedded wallets.
type providerUser struct {
	ID             string `json:"id"`
	LinkedAccounts []struct {
		Type         string `json:"type"`
		Address      string `json:"address"`
		WalletClient string `json:"wallet_client_type"`
		ChainType    string `json:"chain_type"`
	} `json:"linked_accounts"`
}

func NewWalletService(cfg *config.Config) *WalletService {
	return &WalletService{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Resolve returns the lookup result for the email, or ErrRecipientNotFound
// when the provider has no user or no wallet for it.
func (s *WalletService) Resolve(ctx context.Context, email string) (*WalletLookup, error) {
	endpoint := fmt.Sprintf("%s/api/v1/users/email/address", s.cfg.Privy.BaseURL)

	body, err := json.Marshal(map[string]string{"address": email})
	if err != nil {
		return nil, fmt.Errorf("failed to encode lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.SetBasicAuth(s.cfg.Privy.AppID, s.cfg.Privy.AppSecret)
	req.Header.Set("privy-app-id", s.cfg.Privy.AppID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrRecipientNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var user providerUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode identity provider response: %w", err)
	}

	lookup := &WalletLookup{UserID: user.ID}
	for _, account := range user.LinkedAccounts {
		if account.Type != "wallet" || account.Address == "" {
			continue
		}
		lookup.Wallets = append(lookup.Wallets, Wallet{
			Address: account.Address,
			Type:    account.WalletClient,
			Chain:   account.ChainType,
		})
	}

	if len(lookup.Wallets) == 0 {
		logrus.WithField("email", maskEmail(email)).Warn("Identity provider user has no linked wallet")
		return nil, ErrRecipientNotFound
	}

	return lookup, nil
}

// ResolveAddress returns just the first wallet address for the email.
func (s *WalletService) ResolveAddress(ctx context.Context, email string) (string, error) {
	lookup, err := s.Resolve(ctx, email)
	if err != nil {
		return "", err
	}
	return lookup.Wallets[0].Address, nil
}

// maskEmail keeps the domain for log correlation and drops the local part.
func maskEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at >= 0 {
		return "***" + email[at:]
	}
	return "***"
}
