// internal/services/registration_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coverink/coverink-backend/internal/chain"
	"github.com/coverink/coverink-backend/internal/models"
	"github.com/coverink/coverink-backend/internal/utils"
)

// ErrMissingParameters means the request omitted a required field. Handlers
// map it to a 400.
var ErrMissingParameters = errors.New("missing parameters")

// ChainClient is the slice of the Story client the orchestrator drives.
// *chain.Client satisfies it; tests use a fake.
type ChainClient interface {
	SignerAddress() common.Address
	MintLicenseToken(ctx context.Context, licensorIpID common.Address, licenseTermsID, maxMintingFee *big.Int, receiver common.Address) (*big.Int, common.Hash, error)
	ApproveLicenseToken(ctx context.Context, tokenID *big.Int) (common.Hash, error)
	RegisterRoot(ctx context.Context, recipient common.Address, metadataURI string) (*chain.RegisteredIP, common.Hash, error)
	RegisterDerivative(ctx context.Context, recipient common.Address, licenseTokenIDs []*big.Int, metadataURI string) (*chain.RegisteredIP, common.Hash, error)
	PayRoyalty(ctx context.Context, receiverIpID common.Address, amount *big.Int) (common.Hash, error)
	ClaimRevenue(ctx context.Context, ancestorIpID common.Address) (common.Hash, error)
}

// WalletResolver resolves a recipient email to a wallet address.
// *WalletService satisfies it.
type WalletResolver interface {
	ResolveAddress(ctx context.Context, email string) (string, error)
}

// RegistrationStore is the persistence the saga checkpoints into.
// *LedgerService satisfies it.
type RegistrationStore interface {
	CreateRegistration(reg *models.DerivativeRegistration) error
	SaveRegistration(reg *models.DerivativeRegistration) error
	GetRegistration(id uuid.UUID) (*models.DerivativeRegistration, error)
	CreateAsset(asset *models.IPAsset) error
	FindAssetByChainID(chainAssetID string) (*models.IPAsset, error)
	CreateReference(childID, parentID uuid.UUID) error
	CreateRoyalty(royalty *models.Royalty) error
}

// TxRecorder captures identifiers for submitted transactions so the status
// resolver can answer without re-decoding. *TxStatusService satisfies it.
type TxRecorder interface {
	Record(txHash string, ids TxIdentifiers)
}

// LicenseInput names one parent license the derivative consumes. Amounts are
// decimal wei strings; JSON numbers cannot carry uint256.
type LicenseInput struct {
	LicenseTermsID string `json:"license_terms_id" validate:"required"`
	LicensorIPID   string `json:"licensor_ip_id" validate:"required,eth_address"`
	MaxMintingFee  string `json:"max_minting_fee" validate:"required"`
}

type DerivativeRequest struct {
	Email    string         `json:"email" validate:"required,email"`
	Licenses []LicenseInput `json:"license_infos" validate:"required,min=1,dive"`
	CID      string         `json:"cid" validate:"required"`
}

type DerivativeResult struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	TxHash         string    `json:"tx_hash"`
	IPID           string    `json:"ip_id"`
	TokenID        string    `json:"token_id"`
}

// RegistrationService runs the derivative registration workflow: mint and
// approve one license token per parent, register the derivative consuming
// them, link parent references, then settle royalties back to each licensor.
// Every chain call waits for its receipt before the next begins, and the
// DerivativeRegistration row is checkpointed after each mined transaction.
// Nothing mined is ever compensated; a failed run is resumed from its cursor.
type RegistrationService struct {
	client   ChainClient
	wallets  WalletResolver
	store    RegistrationStore
	recorder TxRecorder
}

func NewRegistrationService(client ChainClient, wallets WalletResolver, store RegistrationStore, recorder TxRecorder) *RegistrationService {
	return &RegistrationService{
		client:   client,
		wallets:  wallets,
		store:    store,
		recorder: recorder,
	}
}

// RegisterDerivative validates the request, persists a new registration
// record, and drives it to completion.
func (s *RegistrationService) RegisterDerivative(ctx context.Context, ownerID uuid.UUID, req *DerivativeRequest) (*DerivativeResult, error) {
	if req == nil || req.Email == "" || req.CID == "" || len(req.Licenses) == 0 {
		return nil, ErrMissingParameters
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingParameters, err)
	}

	ciphertext, err := utils.EncryptCID(req.CID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt content identifier: %w", err)
	}

	reg := &models.DerivativeRegistration{
		OwnerID:        ownerID,
		RecipientEmail: req.Email,
		LicenseInfos:   encodeLicenses(req.Licenses),
		CIDCiphertext:  ciphertext,
		Step:           models.StepPending,
	}
	if err := s.store.CreateRegistration(reg); err != nil {
		return nil, err
	}

	return s.run(ctx, reg)
}

// RootRequest registers a document as a root asset with no parent licenses.
type RootRequest struct {
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	CID        string     `json:"cid" validate:"required"`
	Recipient  string     `json:"recipient,omitempty" validate:"omitempty,eth_address"`
}

type RootResult struct {
	AssetID uuid.UUID `json:"asset_id"`
	TxHash  string    `json:"tx_hash"`
	IPID    string    `json:"ip_id"`
	TokenID string    `json:"token_id"`
}

// RegisterRoot registers a root IP asset. These are the parent assets that
// derivative registrations later mint licenses against. Tokens mint to the
// given recipient wallet, or to the platform signer when none is given.
func (s *RegistrationService) RegisterRoot(ctx context.Context, ownerID uuid.UUID, req *RootRequest) (*RootResult, error) {
	if req == nil || req.CID == "" {
		return nil, ErrMissingParameters
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingParameters, err)
	}

	ciphertext, err := utils.EncryptCID(req.CID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt content identifier: %w", err)
	}

	recipient := s.client.SignerAddress()
	if req.Recipient != "" {
		recipient = common.HexToAddress(req.Recipient)
	}

	registered, tx, err := s.client.RegisterRoot(ctx, recipient, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	s.recorder.Record(tx.Hex(), TxIdentifiers{
		IPID:    registered.IPID.Hex(),
		TokenID: registered.TokenID.String(),
	})

	asset := &models.IPAsset{
		OwnerID:            ownerID,
		DocumentID:         req.DocumentID,
		ChainAssetID:       registered.IPID.Hex(),
		TokenID:            registered.TokenID.String(),
		ContentCID:         ciphertext,
		RegistrationTxHash: tx.Hex(),
	}
	if err := s.store.CreateAsset(asset); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"asset_id": asset.ID,
		"ip_id":    asset.ChainAssetID,
	}).Info("Root IP asset registered")

	return &RootResult{
		AssetID: asset.ID,
		TxHash:  tx.Hex(),
		IPID:    asset.ChainAssetID,
		TokenID: asset.TokenID,
	}, nil
}

// Resume re-enters a previously persisted registration at its step cursor.
func (s *RegistrationService) Resume(ctx context.Context, id uuid.UUID) (*DerivativeResult, error) {
	reg, err := s.store.GetRegistration(id)
	if err != nil {
		return nil, err
	}
	switch reg.Step {
	case models.StepCompleted:
		return resultOf(reg), nil
	case models.StepFailed:
		return nil, fmt.Errorf("registration is terminally failed: %s", reg.LastError)
	}
	return s.run(ctx, reg)
}

func (s *RegistrationService) run(ctx context.Context, reg *models.DerivativeRegistration) (*DerivativeResult, error) {
	licenses, err := decodeLicenses(reg.LicenseInfos)
	if err != nil {
		return nil, s.failTerminal(reg, err)
	}

	log := logrus.WithFields(logrus.Fields{
		"registration_id": reg.ID,
		"licenses":        len(licenses),
	})

	if reg.Step == models.StepPending || reg.Step == models.StepMintingLicenses {
		if err := s.mintLicenses(ctx, reg, licenses, log); err != nil {
			return nil, err
		}
	}

	if reg.Step == models.StepRegistering {
		if err := s.registerDerivative(ctx, reg, licenses, log); err != nil {
			return nil, err
		}
	}

	if reg.Step == models.StepLinkingParents {
		if err := s.linkParents(reg, licenses, log); err != nil {
			return nil, err
		}
	}

	if reg.Step == models.StepSettlingRoyalties {
		if err := s.settleRoyalties(ctx, reg, licenses, log); err != nil {
			return nil, err
		}
	}

	log.WithField("ip_id", reg.ChainAssetID).Info("Derivative registration completed")
	return resultOf(reg), nil
}

// mintLicenses resolves the recipient wallet, then mints and approves one
// license token per parent, checkpointing every mined transaction before the
// next submission. The cursor advances once a license's pair is done.
func (s *RegistrationService) mintLicenses(ctx context.Context, reg *models.DerivativeRegistration, licenses []LicenseInput, log *logrus.Entry) error {
	if reg.RecipientAddress == "" {
		address, err := s.wallets.ResolveAddress(ctx, reg.RecipientEmail)
		if err != nil {
			if errors.Is(err, ErrRecipientNotFound) {
				return s.failTerminal(reg, err)
			}
			return s.failStep(reg, err)
		}
		reg.RecipientAddress = address
	}

	reg.Step = models.StepMintingLicenses
	if err := s.store.SaveRegistration(reg); err != nil {
		return err
	}

	// License tokens are minted to the platform signer, which approves the
	// derivative workflows contract to consume them during registration.
	receiver := s.client.SignerAddress()

	for i := reg.LicenseCursor; i < len(licenses); i++ {
		license := licenses[i]
		termsID, feeCap, err := license.bigValues()
		if err != nil {
			return s.failTerminal(reg, err)
		}

		// A mined mint from an interrupted run is checkpointed in
		// MintedTokenIDs; never submit it again.
		if len(reg.MintedTokenIDs) <= i {
			tokenID, mintTx, err := s.client.MintLicenseToken(ctx,
				common.HexToAddress(license.LicensorIPID), termsID, feeCap, receiver)
			if err != nil {
				return s.failStep(reg, fmt.Errorf("registration failed: %w", err))
			}
			reg.MintedTokenIDs = append(reg.MintedTokenIDs, tokenID.String())
			reg.MintTxHashes = append(reg.MintTxHashes, mintTx.Hex())
			if err := s.store.SaveRegistration(reg); err != nil {
				return err
			}
			s.recorder.Record(mintTx.Hex(), TxIdentifiers{LicenseTermsIDs: []string{license.LicenseTermsID}})
		}

		tokenID, ok := new(big.Int).SetString(reg.MintedTokenIDs[i], 10)
		if !ok {
			return s.failTerminal(reg, fmt.Errorf("corrupt minted token id %q", reg.MintedTokenIDs[i]))
		}

		approveTx, err := s.client.ApproveLicenseToken(ctx, tokenID)
		if err != nil {
			return s.failStep(reg, fmt.Errorf("registration failed: %w", err))
		}

		reg.ApproveTxHashes = append(reg.ApproveTxHashes, approveTx.Hex())
		reg.LicenseCursor = i + 1
		if err := s.store.SaveRegistration(reg); err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"license":  i,
			"token_id": tokenID.String(),
		}).Info("License token minted and approved")
	}

	reg.Step = models.StepRegistering
	return s.store.SaveRegistration(reg)
}

// registerDerivative submits the combined mint-and-register call with every
// minted license token and persists the resulting asset. The encrypted
// content identifier is published as the metadata URI; the plaintext never
// leaves the request.
func (s *RegistrationService) registerDerivative(ctx context.Context, reg *models.DerivativeRegistration, licenses []LicenseInput, log *logrus.Entry) error {
	tokenIDs := make([]*big.Int, 0, len(reg.MintedTokenIDs))
	for _, raw := range reg.MintedTokenIDs {
		id, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return s.failTerminal(reg, fmt.Errorf("corrupt minted token id %q", raw))
		}
		tokenIDs = append(tokenIDs, id)
	}

	// The mint-and-register call is irreversible; once its hash is
	// checkpointed a resumed run reuses the mined identifiers instead of
	// submitting a second registration.
	if reg.RegistrationTxHash == "" {
		registered, regTx, err := s.client.RegisterDerivative(ctx,
			common.HexToAddress(reg.RecipientAddress), tokenIDs, reg.CIDCiphertext)
		if err != nil {
			return s.failStep(reg, fmt.Errorf("registration failed: %w", err))
		}

		reg.RegistrationTxHash = regTx.Hex()
		reg.ChainAssetID = registered.IPID.Hex()
		reg.TokenID = registered.TokenID.String()
		if err := s.store.SaveRegistration(reg); err != nil {
			return err
		}
		s.recorder.Record(regTx.Hex(), TxIdentifiers{
			IPID:    reg.ChainAssetID,
			TokenID: reg.TokenID,
		})
	}

	if reg.ChildAssetID == nil {
		// The asset row may already exist if the previous run died between
		// the insert and its checkpoint.
		asset, err := s.store.FindAssetByChainID(reg.ChainAssetID)
		if errors.Is(err, ErrAssetNotFound) {
			asset = &models.IPAsset{
				OwnerID:            reg.OwnerID,
				ChainAssetID:       reg.ChainAssetID,
				TokenID:            reg.TokenID,
				LicenseTermsID:     licenses[0].LicenseTermsID,
				ContentCID:         reg.CIDCiphertext,
				RegistrationTxHash: reg.RegistrationTxHash,
			}
			if err := s.store.CreateAsset(asset); err != nil {
				return s.failStep(reg, err)
			}
		} else if err != nil {
			return s.failStep(reg, err)
		}
		reg.ChildAssetID = &asset.ID
	}

	reg.Step = models.StepLinkingParents
	if err := s.store.SaveRegistration(reg); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"ip_id":    reg.ChainAssetID,
		"token_id": reg.TokenID,
		"tx_hash":  reg.RegistrationTxHash,
	}).Info("Derivative registered on chain")
	return nil
}

// linkParents records a reference from the new asset to each licensor asset
// the platform knows about. A licensor not present in the ledger is skipped
// with a warning; the on-chain link already exists regardless.
func (s *RegistrationService) linkParents(reg *models.DerivativeRegistration, licenses []LicenseInput, log *logrus.Entry) error {
	for i := reg.ReferenceCursor; i < len(licenses); i++ {
		license := licenses[i]
		parent, err := s.store.FindAssetByChainID(common.HexToAddress(license.LicensorIPID).Hex())
		if err != nil {
			if !errors.Is(err, ErrAssetNotFound) {
				return s.failStep(reg, err)
			}
			log.WithField("licensor_ip_id", license.LicensorIPID).
				Warn("Licensor asset not in ledger, skipping parent reference")
		} else if err := s.store.CreateReference(*reg.ChildAssetID, parent.ID); err != nil {
			return s.failStep(reg, err)
		}

		reg.ReferenceCursor = i + 1
		if err := s.store.SaveRegistration(reg); err != nil {
			return err
		}
	}

	reg.Step = models.StepSettlingRoyalties
	return s.store.SaveRegistration(reg)
}

// settleRoyalties pays each licensor its minting fee and claims its revenue,
// checkpointing the cursor per license. A royalty row is persisted only when
// both transactions mined and the licensor asset exists in the ledger.
func (s *RegistrationService) settleRoyalties(ctx context.Context, reg *models.DerivativeRegistration, licenses []LicenseInput, log *logrus.Entry) error {
	for i := reg.RoyaltyCursor; i < len(licenses); i++ {
		license := licenses[i]
		_, amount, err := license.bigValues()
		if err != nil {
			return s.failTerminal(reg, err)
		}
		licensor := common.HexToAddress(license.LicensorIPID)

		// Pay and claim are checkpointed separately: a mined payment is
		// never re-submitted when the claim after it fails.
		if len(reg.PayTxHashes) <= i {
			payTx, err := s.client.PayRoyalty(ctx, licensor, amount)
			if err != nil {
				return s.failStep(reg, fmt.Errorf("registration failed: %w", err))
			}
			reg.PayTxHashes = append(reg.PayTxHashes, payTx.Hex())
			if err := s.store.SaveRegistration(reg); err != nil {
				return err
			}
		}

		if len(reg.ClaimTxHashes) <= i {
			claimTx, err := s.client.ClaimRevenue(ctx, licensor)
			if err != nil {
				return s.failStep(reg, fmt.Errorf("registration failed: %w", err))
			}
			reg.ClaimTxHashes = append(reg.ClaimTxHashes, claimTx.Hex())
			if err := s.store.SaveRegistration(reg); err != nil {
				return err
			}
		}

		parent, err := s.store.FindAssetByChainID(licensor.Hex())
		switch {
		case errors.Is(err, ErrAssetNotFound):
			log.WithField("licensor_ip_id", license.LicensorIPID).
				Warn("Licensor asset not in ledger, royalty settled but not recorded")
		case err != nil:
			return s.failStep(reg, err)
		default:
			royalty := &models.Royalty{
				PayerAssetID:  *reg.ChildAssetID,
				PayeeAssetID:  parent.ID,
				Amount:        amount.String(),
				PaymentTxHash: reg.PayTxHashes[i],
				ClaimTxHash:   reg.ClaimTxHashes[i],
			}
			if err := s.store.CreateRoyalty(royalty); err != nil {
				return s.failStep(reg, err)
			}
		}

		reg.RoyaltyCursor = i + 1
		if err := s.store.SaveRegistration(reg); err != nil {
			return err
		}
	}

	reg.Step = models.StepCompleted
	reg.LastError = ""
	return s.store.SaveRegistration(reg)
}

// failStep records the error but leaves the step cursor where it is, so
// Resume re-enters at the interrupted phase.
func (s *RegistrationService) failStep(reg *models.DerivativeRegistration, cause error) error {
	reg.LastError = cause.Error()
	if err := s.store.SaveRegistration(reg); err != nil {
		logrus.WithError(err).Error("Failed to checkpoint registration error")
	}
	return cause
}

// failTerminal marks the registration unresumable: its inputs can never
// succeed as given.
func (s *RegistrationService) failTerminal(reg *models.DerivativeRegistration, cause error) error {
	reg.Step = models.StepFailed
	reg.LastError = cause.Error()
	if err := s.store.SaveRegistration(reg); err != nil {
		logrus.WithError(err).Error("Failed to checkpoint registration failure")
	}
	return cause
}

func (l LicenseInput) bigValues() (termsID, feeCap *big.Int, err error) {
	termsID, ok := new(big.Int).SetString(l.LicenseTermsID, 10)
	if !ok {
		return nil, nil, fmt.Errorf("invalid license terms id %q", l.LicenseTermsID)
	}
	feeCap, ok = new(big.Int).SetString(l.MaxMintingFee, 10)
	if !ok {
		return nil, nil, fmt.Errorf("invalid max minting fee %q", l.MaxMintingFee)
	}
	return termsID, feeCap, nil
}

func resultOf(reg *models.DerivativeRegistration) *DerivativeResult {
	return &DerivativeResult{
		RegistrationID: reg.ID,
		TxHash:         reg.RegistrationTxHash,
		IPID:           reg.ChainAssetID,
		TokenID:        reg.TokenID,
	}
}

func encodeLicenses(licenses []LicenseInput) models.JSONB {
	items := make([]interface{}, 0, len(licenses))
	for _, l := range licenses {
		items = append(items, map[string]interface{}{
			"license_terms_id": l.LicenseTermsID,
			"licensor_ip_id":   l.LicensorIPID,
			"max_minting_fee":  l.MaxMintingFee,
		})
	}
	return models.JSONB{"licenses": items}
}

func decodeLicenses(data models.JSONB) ([]LicenseInput, error) {
	raw, err := json.Marshal(data["licenses"])
	if err != nil {
		return nil, fmt.Errorf("corrupt license infos: %w", err)
	}
	var licenses []LicenseInput
	if err := json.Unmarshal(raw, &licenses); err != nil {
		return nil, fmt.Errorf("corrupt license infos: %w", err)
	}
	if len(licenses) == 0 {
		return nil, errors.New("registration has no license infos")
	}
	return licenses, nil
}
