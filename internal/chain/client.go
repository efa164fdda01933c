// internal/chain/client.go
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/coverink/coverink-backend/internal/config"
)

// Story licensing constants. Revenue share is expressed in millionths of a
// percent; minted license tokens always carry the full 100% share. The
// royalty token cap bounds the derivative's total royalty supply.
const (
	FullRevenueShare = uint32(100_000_000)
)

var MaxRoyaltyTokens = big.NewInt(100_000_000)

const licensingModuleABI = `[
	{"type":"function","name":"mintLicenseTokens","stateMutability":"nonpayable","inputs":[
		{"name":"licensorIpId","type":"address"},
		{"name":"licenseTermsId","type":"uint256"},
		{"name":"amount","type":"uint256"},
		{"name":"receiver","type":"address"},
		{"name":"royaltyContext","type":"bytes"},
		{"name":"maxMintingFee","type":"uint256"},
		{"name":"maxRevenueShare","type":"uint32"}],
	"outputs":[{"name":"startLicenseTokenId","type":"uint256"}]}
]`

const licenseTokenABI = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[
		{"name":"to","type":"address"},
		{"name":"tokenId","type":"uint256"}],"outputs":[]}
]`

const derivativeWorkflowsABI = `[
	{"type":"function","name":"mintAndRegisterIp","stateMutability":"nonpayable","inputs":[
		{"name":"spgNftContract","type":"address"},
		{"name":"recipient","type":"address"},
		{"name":"ipMetadataURI","type":"string"}],
	"outputs":[{"name":"ipId","type":"address"},{"name":"tokenId","type":"uint256"}]},
	{"type":"function","name":"mintAndRegisterIpAndMakeDerivativeWithLicenseTokens","stateMutability":"nonpayable","inputs":[
		{"name":"spgNftContract","type":"address"},
		{"name":"recipient","type":"address"},
		{"name":"ipMetadataURI","type":"string"},
		{"name":"licenseTokenIds","type":"uint256[]"},
		{"name":"royaltyContext","type":"bytes"},
		{"name":"maxRts","type":"uint256"}],
	"outputs":[{"name":"ipId","type":"address"},{"name":"tokenId","type":"uint256"}]}
]`

const royaltyModuleABI = `[
	{"type":"function","name":"payRoyaltyOnBehalf","stateMutability":"nonpayable","inputs":[
		{"name":"receiverIpId","type":"address"},
		{"name":"payerIpId","type":"address"},
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"}],"outputs":[]}
]`

const royaltyWorkflowsABI = `[
	{"type":"function","name":"claimAllRevenue","stateMutability":"nonpayable","inputs":[
		{"name":"ancestorIpId","type":"address"},
		{"name":"claimer","type":"address"},
		{"name":"childIpIds","type":"address[]"},
		{"name":"royaltyPolicies","type":"address[]"},
		{"name":"currencyTokens","type":"address[]"}],
	"outputs":[{"name":"amountsClaimed","type":"uint256[]"}]}
]`

// Backend is the subset of an Ethereum RPC client the Story client needs.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Client drives the Story protocol contracts with a single platform signing
// key. Every Transact* method blocks until the transaction is mined.
type Client struct {
	backend Backend
	opts    *bind.TransactOpts

	licensing   *bind.BoundContract
	licenseNFT  *bind.BoundContract
	derivatives *bind.BoundContract
	royalty     *bind.BoundContract
	claims      *bind.BoundContract

	spgNFT         common.Address
	derivativeAddr common.Address
	royaltyPolicy  common.Address
	currency       common.Address

	confirmTimeout time.Duration
}

// Dial connects to the configured RPC endpoint and prepares a keyed
// transactor for the platform signing key.
func Dial(cfg config.StoryConfig) (*Client, error) {
	backend, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial story RPC: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}

	return NewClient(backend, opts, cfg)
}

// NewClient wires a client over an existing backend. Tests inject a fake
// backend here.
func NewClient(backend Backend, opts *bind.TransactOpts, cfg config.StoryConfig) (*Client, error) {
	c := &Client{
		backend:        backend,
		opts:           opts,
		spgNFT:         common.HexToAddress(cfg.SPGNFTContract),
		derivativeAddr: common.HexToAddress(cfg.DerivativeWorkflows),
		royaltyPolicy:  common.HexToAddress(cfg.RoyaltyPolicy),
		currency:       common.HexToAddress(cfg.Currency),
		confirmTimeout: time.Duration(cfg.ConfirmTimeout) * time.Second,
	}
	if c.confirmTimeout <= 0 {
		c.confirmTimeout = 2 * time.Minute
	}

	for _, contract := range []struct {
		abiJSON string
		addr    string
		target  **bind.BoundContract
	}{
		{licensingModuleABI, cfg.LicensingModule, &c.licensing},
		{licenseTokenABI, cfg.LicenseToken, &c.licenseNFT},
		{derivativeWorkflowsABI, cfg.DerivativeWorkflows, &c.derivatives},
		{royaltyModuleABI, cfg.RoyaltyModule, &c.royalty},
		{royaltyWorkflowsABI, cfg.RoyaltyWorkflows, &c.claims},
	} {
		parsed, err := abi.JSON(strings.NewReader(contract.abiJSON))
		if err != nil {
			return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
		}
		*contract.target = bind.NewBoundContract(
			common.HexToAddress(contract.addr), parsed, backend, backend, backend,
		)
	}

	return c, nil
}

// SignerAddress is the platform account that submits every transaction.
func (c *Client) SignerAddress() common.Address {
	return c.opts.From
}

// TransactionReceipt fetches the receipt for an arbitrary hash, mined or not.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.backend.TransactionReceipt(ctx, txHash)
}

// MintLicenseToken mints one license token against the licensor's terms with
// the fee cap and full revenue share, and waits for confirmation. The minted
// token id is read back from the LicenseTokensMinted log.
func (c *Client) MintLicenseToken(ctx context.Context, licensorIpID common.Address, licenseTermsID, maxMintingFee *big.Int, receiver common.Address) (*big.Int, common.Hash, error) {
	tx, err := c.licensing.Transact(c.txOpts(ctx), "mintLicenseTokens",
		licensorIpID, licenseTermsID, big.NewInt(1), receiver,
		[]byte{}, maxMintingFee, FullRevenueShare,
	)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("mintLicenseTokens: %w", err)
	}

	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return nil, tx.Hash(), err
	}

	for _, lg := range receipt.Logs {
		if minted, ok := DecodeLicenseTokensMinted(*lg); ok {
			return minted.StartLicenseTokenID, tx.Hash(), nil
		}
	}

	return nil, tx.Hash(), errors.New("mint confirmed but no LicenseTokensMinted log found")
}

// ApproveLicenseToken authorizes the derivative workflows contract to
// transfer the freshly minted license token.
func (c *Client) ApproveLicenseToken(ctx context.Context, tokenID *big.Int) (common.Hash, error) {
	tx, err := c.licenseNFT.Transact(c.txOpts(ctx), "approve", c.derivativeAddr, tokenID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("approve: %w", err)
	}

	if _, err := c.waitMined(ctx, tx); err != nil {
		return tx.Hash(), err
	}

	return tx.Hash(), nil
}

// RegisterRoot mints a new IP token to the recipient and registers it as a
// root asset with no parent licenses. The decoded ipId and tokenId come from
// the IPRegistered log.
func (c *Client) RegisterRoot(ctx context.Context, recipient common.Address, metadataURI string) (*RegisteredIP, common.Hash, error) {
	tx, err := c.derivatives.Transact(c.txOpts(ctx), "mintAndRegisterIp",
		c.spgNFT, recipient, metadataURI,
	)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("mintAndRegisterIp: %w", err)
	}

	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return nil, tx.Hash(), err
	}

	for _, lg := range receipt.Logs {
		if registered, ok := DecodeIPRegistered(*lg); ok {
			return registered, tx.Hash(), nil
		}
	}

	return nil, tx.Hash(), errors.New("registration confirmed but no IPRegistered log found")
}

// RegisterDerivative mints a new IP token to the recipient, registers it as a
// derivative consuming the license tokens, and returns the decoded ipId and
// tokenId from the IPRegistered log.
func (c *Client) RegisterDerivative(ctx context.Context, recipient common.Address, licenseTokenIDs []*big.Int, metadataURI string) (*RegisteredIP, common.Hash, error) {
	tx, err := c.derivatives.Transact(c.txOpts(ctx), "mintAndRegisterIpAndMakeDerivativeWithLicenseTokens",
		c.spgNFT, recipient, metadataURI, licenseTokenIDs, []byte{}, MaxRoyaltyTokens,
	)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("mintAndRegisterIpAndMakeDerivativeWithLicenseTokens: %w", err)
	}

	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return nil, tx.Hash(), err
	}

	for _, lg := range receipt.Logs {
		if registered, ok := DecodeIPRegistered(*lg); ok {
			return registered, tx.Hash(), nil
		}
	}

	return nil, tx.Hash(), errors.New("registration confirmed but no IPRegistered log found")
}

// PayRoyalty pays amount of the settlement currency to the receiver IP from
// an anonymous payer (zero address) and waits for confirmation.
func (c *Client) PayRoyalty(ctx context.Context, receiverIpID common.Address, amount *big.Int) (common.Hash, error) {
	tx, err := c.royalty.Transact(c.txOpts(ctx), "payRoyaltyOnBehalf",
		receiverIpID, common.Address{}, c.currency, amount,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("payRoyaltyOnBehalf: %w", err)
	}

	if _, err := c.waitMined(ctx, tx); err != nil {
		return tx.Hash(), err
	}

	return tx.Hash(), nil
}

// ClaimRevenue realizes pending revenue for the ancestor IP against the fixed
// royalty policy and settlement currency. The child IP list is always empty;
// the policy contract resolves descendants itself.
func (c *Client) ClaimRevenue(ctx context.Context, ancestorIpID common.Address) (common.Hash, error) {
	tx, err := c.claims.Transact(c.txOpts(ctx), "claimAllRevenue",
		ancestorIpID, ancestorIpID,
		[]common.Address{},
		[]common.Address{c.royaltyPolicy},
		[]common.Address{c.currency},
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("claimAllRevenue: %w", err)
	}

	if _, err := c.waitMined(ctx, tx); err != nil {
		return tx.Hash(), err
	}

	return tx.Hash(), nil
}

func (c *Client) txOpts(ctx context.Context) *bind.TransactOpts {
	opts := *c.opts
	opts.Context = ctx
	return &opts
}

func (c *Client) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("waiting for tx %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("tx %s reverted", tx.Hash().Hex())
	}

	return receipt, nil
}
