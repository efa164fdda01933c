// internal/services/registration_service_test.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverink/coverink-backend/internal/chain"
	"github.com/coverink/coverink-backend/internal/models"
	"github.com/coverink/coverink-backend/internal/utils"
)

const testCIDKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func init() {
	if err := utils.SetCIDKey(testCIDKeyHex); err != nil {
		panic(err)
	}
}

// fakeChain records every call in order and can be told to fail a specific
// method once.
type fakeChain struct {
	calls    []string
	nextHash int

	failMethod string
	failAfter  int // number of successful calls of failMethod before failing

	registeredIP common.Address
	tokenID      *big.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		registeredIP: common.HexToAddress("0x00000000000000000000000000000000000000AA"),
		tokenID:      big.NewInt(7),
	}
}

func (f *fakeChain) hash() common.Hash {
	f.nextHash++
	return common.BigToHash(big.NewInt(int64(f.nextHash)))
}

func (f *fakeChain) maybeFail(method string) error {
	if f.failMethod != method {
		return nil
	}
	if f.failAfter > 0 {
		f.failAfter--
		return nil
	}
	f.failMethod = ""
	return fmt.Errorf("%s reverted", method)
}

func (f *fakeChain) SignerAddress() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000FF")
}

func (f *fakeChain) MintLicenseToken(ctx context.Context, licensorIpID common.Address, licenseTermsID, maxMintingFee *big.Int, receiver common.Address) (*big.Int, common.Hash, error) {
	if err := f.maybeFail("mint"); err != nil {
		return nil, common.Hash{}, err
	}
	f.calls = append(f.calls, "mint:"+licenseTermsID.String())
	return new(big.Int).Add(licenseTermsID, big.NewInt(1000)), f.hash(), nil
}

func (f *fakeChain) ApproveLicenseToken(ctx context.Context, tokenID *big.Int) (common.Hash, error) {
	if err := f.maybeFail("approve"); err != nil {
		return common.Hash{}, err
	}
	f.calls = append(f.calls, "approve:"+tokenID.String())
	return f.hash(), nil
}

func (f *fakeChain) RegisterRoot(ctx context.Context, recipient common.Address, metadataURI string) (*chain.RegisteredIP, common.Hash, error) {
	if err := f.maybeFail("registerRoot"); err != nil {
		return nil, common.Hash{}, err
	}
	f.calls = append(f.calls, "registerRoot:"+metadataURI)
	return &chain.RegisteredIP{IPID: f.registeredIP, TokenID: f.tokenID, URI: metadataURI}, f.hash(), nil
}

func (f *fakeChain) RegisterDerivative(ctx context.Context, recipient common.Address, licenseTokenIDs []*big.Int, metadataURI string) (*chain.RegisteredIP, common.Hash, error) {
	if err := f.maybeFail("register"); err != nil {
		return nil, common.Hash{}, err
	}
	f.calls = append(f.calls, fmt.Sprintf("register:%d", len(licenseTokenIDs)))
	return &chain.RegisteredIP{IPID: f.registeredIP, TokenID: f.tokenID, URI: metadataURI}, f.hash(), nil
}

func (f *fakeChain) PayRoyalty(ctx context.Context, receiverIpID common.Address, amount *big.Int) (common.Hash, error) {
	if err := f.maybeFail("pay"); err != nil {
		return common.Hash{}, err
	}
	f.calls = append(f.calls, "pay:"+amount.String())
	return f.hash(), nil
}

func (f *fakeChain) ClaimRevenue(ctx context.Context, ancestorIpID common.Address) (common.Hash, error) {
	if err := f.maybeFail("claim"); err != nil {
		return common.Hash{}, err
	}
	f.calls = append(f.calls, "claim:"+ancestorIpID.Hex())
	return f.hash(), nil
}

type fakeWallets struct {
	address string
	err     error
}

func (f *fakeWallets) ResolveAddress(ctx context.Context, email string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.address, nil
}

// fakeStore is an in-memory RegistrationStore. The fail counters make the
// next N calls of a write fail, simulating transient database errors.
type fakeStore struct {
	registrations map[uuid.UUID]*models.DerivativeRegistration
	assets        []*models.IPAsset
	assetsByChain map[string]*models.IPAsset
	references    []models.IPReference
	royalties     []models.Royalty

	failCreateAsset     int
	failCreateReference int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		registrations: make(map[uuid.UUID]*models.DerivativeRegistration),
		assetsByChain: make(map[string]*models.IPAsset),
	}
}

func (f *fakeStore) CreateRegistration(reg *models.DerivativeRegistration) error {
	reg.ID = uuid.New()
	f.registrations[reg.ID] = reg
	return nil
}

func (f *fakeStore) SaveRegistration(reg *models.DerivativeRegistration) error {
	f.registrations[reg.ID] = reg
	return nil
}

func (f *fakeStore) GetRegistration(id uuid.UUID) (*models.DerivativeRegistration, error) {
	reg, ok := f.registrations[id]
	if !ok {
		return nil, errors.New("registration not found")
	}
	return reg, nil
}

func (f *fakeStore) CreateAsset(asset *models.IPAsset) error {
	if f.failCreateAsset > 0 {
		f.failCreateAsset--
		return errors.New("asset insert failed")
	}
	asset.ID = uuid.New()
	f.assets = append(f.assets, asset)
	f.assetsByChain[asset.ChainAssetID] = asset
	return nil
}

func (f *fakeStore) FindAssetByChainID(chainAssetID string) (*models.IPAsset, error) {
	asset, ok := f.assetsByChain[chainAssetID]
	if !ok {
		return nil, ErrAssetNotFound
	}
	return asset, nil
}

func (f *fakeStore) CreateReference(childID, parentID uuid.UUID) error {
	if f.failCreateReference > 0 {
		f.failCreateReference--
		return errors.New("reference insert failed")
	}
	f.references = append(f.references, models.IPReference{ChildAssetID: childID, ParentAssetID: parentID})
	return nil
}

func (f *fakeStore) CreateRoyalty(royalty *models.Royalty) error {
	f.royalties = append(f.royalties, *royalty)
	return nil
}

func (f *fakeStore) seedParent(ownerID uuid.UUID, chainAssetID string) *models.IPAsset {
	asset := &models.IPAsset{OwnerID: ownerID, ChainAssetID: chainAssetID}
	f.CreateAsset(asset)
	return asset
}

type fakeRecorder struct {
	recorded map[string]TxIdentifiers
}

func (f *fakeRecorder) Record(txHash string, ids TxIdentifiers) {
	if f.recorded == nil {
		f.recorded = make(map[string]TxIdentifiers)
	}
	f.recorded[txHash] = ids
}

const (
	parentA = "0x1111111111111111111111111111111111111111"
	parentB = "0x2222222222222222222222222222222222222222"
)

func testLicense(parent, termsID, fee string) LicenseInput {
	return LicenseInput{LicenseTermsID: termsID, LicensorIPID: parent, MaxMintingFee: fee}
}

func newTestService() (*RegistrationService, *fakeChain, *fakeStore, *fakeRecorder) {
	chainFake := newFakeChain()
	store := newFakeStore()
	recorder := &fakeRecorder{}
	wallets := &fakeWallets{address: "0x3333333333333333333333333333333333333333"}
	svc := NewRegistrationService(chainFake, wallets, store, recorder)
	return svc, chainFake, store, recorder
}

func TestRegisterDerivativeEmptyLicenses(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.RegisterDerivative(context.Background(), uuid.New(), &DerivativeRequest{
		Email: "someone@example.com",
		CID:   "bafyexample",
	})

	assert.ErrorIs(t, err, ErrMissingParameters)
}

func TestRegisterDerivativeMissingCID(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.RegisterDerivative(context.Background(), uuid.New(), &DerivativeRequest{
		Email:    "someone@example.com",
		Licenses: []LicenseInput{testLicense(parentA, "1", "500")},
	})

	assert.ErrorIs(t, err, ErrMissingParameters)
}

func TestRegisterDerivativeRecipientNotFound(t *testing.T) {
	chainFake := newFakeChain()
	store := newFakeStore()
	svc := NewRegistrationService(chainFake, &fakeWallets{err: ErrRecipientNotFound}, store, &fakeRecorder{})

	_, err := svc.RegisterDerivative(context.Background(), uuid.New(), &DerivativeRequest{
		Email:    "nobody@example.com",
		Licenses: []LicenseInput{testLicense(parentA, "1", "500")},
		CID:      "bafyexample",
	})

	require.ErrorIs(t, err, ErrRecipientNotFound)
	assert.Empty(t, chainFake.calls, "no chain call should happen without a recipient")

	for _, reg := range store.registrations {
		assert.Equal(t, models.StepFailed, reg.Step)
	}
}

func TestRegisterDerivativeSingleLicense(t *testing.T) {
	svc, chainFake, store, recorder := newTestService()
	ownerID := uuid.New()
	store.seedParent(ownerID, common.HexToAddress(parentA).Hex())

	result, err := svc.RegisterDerivative(context.Background(), ownerID, &DerivativeRequest{
		Email:    "someone@example.com",
		Licenses: []LicenseInput{testLicense(parentA, "42", "500")},
		CID:      "bafyexample",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.TxHash)
	assert.NotEmpty(t, result.IPID)
	assert.NotEmpty(t, result.TokenID)

	// Strict call ordering: mint, approve, register, pay, claim.
	require.Len(t, chainFake.calls, 5)
	assert.Equal(t, "mint:42", chainFake.calls[0])
	assert.Equal(t, "approve:1042", chainFake.calls[1])
	assert.Equal(t, "register:1", chainFake.calls[2])
	assert.Equal(t, "pay:500", chainFake.calls[3])
	assert.Contains(t, chainFake.calls[4], "claim:")

	// The derivative asset plus the seeded parent.
	require.Len(t, store.assets, 2)
	derivative := store.assets[1]
	assert.Equal(t, "42", derivative.LicenseTermsID)
	assert.Equal(t, result.IPID, derivative.ChainAssetID)

	// Stored content identifier is ciphertext that round-trips.
	plain, err := utils.DecryptCID(derivative.ContentCID)
	require.NoError(t, err)
	assert.Equal(t, "bafyexample", plain)

	require.Len(t, store.references, 1)
	require.Len(t, store.royalties, 1)
	assert.Equal(t, "500", store.royalties[0].Amount)
	assert.NotEmpty(t, store.royalties[0].PaymentTxHash)
	assert.NotEmpty(t, store.royalties[0].ClaimTxHash)

	// Registration tx identifiers were recorded at submission.
	ids, ok := recorder.recorded[result.TxHash]
	require.True(t, ok)
	assert.Equal(t, result.IPID, ids.IPID)
	assert.Equal(t, result.TokenID, ids.TokenID)

	reg := store.registrations[result.RegistrationID]
	assert.Equal(t, models.StepCompleted, reg.Step)
}

func TestRegisterDerivativeMintsAllLicensesBeforeRegistering(t *testing.T) {
	svc, chainFake, store, _ := newTestService()
	ownerID := uuid.New()
	store.seedParent(ownerID, common.HexToAddress(parentA).Hex())
	store.seedParent(ownerID, common.HexToAddress(parentB).Hex())

	_, err := svc.RegisterDerivative(context.Background(), ownerID, &DerivativeRequest{
		Email: "someone@example.com",
		Licenses: []LicenseInput{
			testLicense(parentA, "1", "100"),
			testLicense(parentB, "2", "200"),
		},
		CID: "bafyexample",
	})

	require.NoError(t, err)
	require.Len(t, chainFake.calls, 9)
	assert.Equal(t, []string{"mint:1", "approve:1001", "mint:2", "approve:1002"}, chainFake.calls[:4])
	assert.Equal(t, "register:2", chainFake.calls[4])

	require.Len(t, store.royalties, 2)
	assert.Equal(t, "100", store.royalties[0].Amount)
	assert.Equal(t, "200", store.royalties[1].Amount)
}

func TestRegisterDerivativeUnknownParentSkipped(t *testing.T) {
	svc, _, store, _ := newTestService()

	result, err := svc.RegisterDerivative(context.Background(), uuid.New(), &DerivativeRequest{
		Email:    "someone@example.com",
		Licenses: []LicenseInput{testLicense(parentA, "1", "100")},
		CID:      "bafyexample",
	})

	require.NoError(t, err)
	assert.Empty(t, store.references, "unknown licensor leaves no reference")
	assert.Empty(t, store.royalties, "royalty settled on chain but not recorded")

	reg := store.registrations[result.RegistrationID]
	assert.Equal(t, models.StepCompleted, reg.Step)
}

func TestRegisterDerivativeChainErrorSurfaces(t *testing.T) {
	svc, chainFake, store, _ := newTestService()
	chainFake.failMethod = "mint"

	_, err := svc.RegisterDerivative(context.Background(), uuid.New(), &DerivativeRequest{
		Email:    "someone@example.com",
		Licenses: []LicenseInput{testLicense(parentA, "1", "100")},
		CID:      "bafyexample",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mint reverted")

	for _, reg := range store.registrations {
		assert.Equal(t, models.StepMintingLicenses, reg.Step)
		assert.Contains(t, reg.LastError, "mint reverted")
	}
}

func TestResumeContinuesFromCursor(t *testing.T) {
	svc, chainFake, store, _ := newTestService()
	ownerID := uuid.New()
	store.seedParent(ownerID, common.HexToAddress(parentA).Hex())
	store.seedParent(ownerID, common.HexToAddress(parentB).Hex())

	// Second mint fails on the first run.
	chainFake.failMethod = "mint"
	chainFake.failAfter = 1

	_, err := svc.RegisterDerivative(context.Background(), ownerID, &DerivativeRequest{
		Email: "someone@example.com",
		Licenses: []LicenseInput{
			testLicense(parentA, "1", "100"),
			testLicense(parentB, "2", "200"),
		},
		CID: "bafyexample",
	})
	require.Error(t, err)

	var regID uuid.UUID
	for id, reg := range store.registrations {
		regID = id
		assert.Equal(t, 1, reg.LicenseCursor, "first license checkpointed")
	}

	firstRunMints := 0
	for _, call := range chainFake.calls {
		if call == "mint:1" {
			firstRunMints++
		}
	}
	require.Equal(t, 1, firstRunMints)

	result, err := svc.Resume(context.Background(), regID)
	require.NoError(t, err)
	assert.NotEmpty(t, result.IPID)

	// The first license was not minted again.
	totalFirstMints := 0
	for _, call := range chainFake.calls {
		if call == "mint:1" {
			totalFirstMints++
		}
	}
	assert.Equal(t, 1, totalFirstMints)

	reg := store.registrations[regID]
	assert.Equal(t, models.StepCompleted, reg.Step)
	assert.Empty(t, reg.LastError)
	assert.Len(t, store.royalties, 2)
}

func countCalls(calls []string, call string) int {
	n := 0
	for _, c := range calls {
		if c == call {
			n++
		}
	}
	return n
}

func TestResumeDoesNotRepeatMinedRegistration(t *testing.T) {
	svc, chainFake, store, _ := newTestService()
	ownerID := uuid.New()
	store.seedParent(ownerID, common.HexToAddress(parentA).Hex())

	// The registration mines, then the asset insert fails transiently.
	store.failCreateAsset = 1

	_, err := svc.RegisterDerivative(context.Background(), ownerID, &DerivativeRequest{
		Email:    "someone@example.com",
		Licenses: []LicenseInput{testLicense(parentA, "1", "100")},
		CID:      "bafyexample",
	})
	require.Error(t, err)

	var regID uuid.UUID
	for id, reg := range store.registrations {
		regID = id
		require.Equal(t, models.StepRegistering, reg.Step)
		require.NotEmpty(t, reg.RegistrationTxHash, "mined tx hash checkpointed before the insert")
	}
	firstHash := store.registrations[regID].RegistrationTxHash

	result, err := svc.Resume(context.Background(), regID)
	require.NoError(t, err)

	assert.Equal(t, 1, countCalls(chainFake.calls, "register:1"),
		"a mined registration must not be submitted again")
	assert.Equal(t, firstHash, result.TxHash)

	// The seeded parent plus exactly one derivative.
	assert.Len(t, store.assets, 2)
	assert.Equal(t, models.StepCompleted, store.registrations[regID].Step)
}

func TestResumeDoesNotRemintAfterApproveFailure(t *testing.T) {
	svc, chainFake, store, _ := newTestService()
	ownerID := uuid.New()
	store.seedParent(ownerID, common.HexToAddress(parentA).Hex())

	chainFake.failMethod = "approve"

	_, err := svc.RegisterDerivative(context.Background(), ownerID, &DerivativeRequest{
		Email:    "someone@example.com",
		Licenses: []LicenseInput{testLicense(parentA, "1", "100")},
		CID:      "bafyexample",
	})
	require.Error(t, err)

	var regID uuid.UUID
	for id, reg := range store.registrations {
		regID = id
		require.Len(t, reg.MintedTokenIDs, 1, "mined mint checkpointed before the approval")
		require.Equal(t, 0, reg.LicenseCursor)
	}

	_, err = svc.Resume(context.Background(), regID)
	require.NoError(t, err)

	assert.Equal(t, 1, countCalls(chainFake.calls, "mint:1"),
		"a mined license mint must not be submitted again")
	assert.Equal(t, 1, countCalls(chainFake.calls, "approve:1001"))
	assert.Equal(t, models.StepCompleted, store.registrations[regID].Step)
}

func TestResumeDoesNotRepayAfterClaimFailure(t *testing.T) {
	svc, chainFake, store, _ := newTestService()
	ownerID := uuid.New()
	store.seedParent(ownerID, common.HexToAddress(parentA).Hex())

	chainFake.failMethod = "claim"

	_, err := svc.RegisterDerivative(context.Background(), ownerID, &DerivativeRequest{
		Email:    "someone@example.com",
		Licenses: []LicenseInput{testLicense(parentA, "1", "500")},
		CID:      "bafyexample",
	})
	require.Error(t, err)

	var regID uuid.UUID
	for id, reg := range store.registrations {
		regID = id
		require.Equal(t, models.StepSettlingRoyalties, reg.Step)
		require.Len(t, reg.PayTxHashes, 1, "mined payment checkpointed before the claim")
	}
	payHash := store.registrations[regID].PayTxHashes[0]

	_, err = svc.Resume(context.Background(), regID)
	require.NoError(t, err)

	assert.Equal(t, 1, countCalls(chainFake.calls, "pay:500"),
		"a mined royalty payment must not be submitted again")

	require.Len(t, store.royalties, 1)
	assert.Equal(t, payHash, store.royalties[0].PaymentTxHash)
	assert.Equal(t, models.StepCompleted, store.registrations[regID].Step)
}

func TestResumeDoesNotDuplicateParentReferences(t *testing.T) {
	svc, _, store, _ := newTestService()
	ownerID := uuid.New()
	store.seedParent(ownerID, common.HexToAddress(parentA).Hex())
	store.seedParent(ownerID, common.HexToAddress(parentB).Hex())

	store.failCreateReference = 1

	_, err := svc.RegisterDerivative(context.Background(), ownerID, &DerivativeRequest{
		Email: "someone@example.com",
		Licenses: []LicenseInput{
			testLicense(parentA, "1", "100"),
			testLicense(parentB, "2", "200"),
		},
		CID: "bafyexample",
	})
	require.Error(t, err)

	var regID uuid.UUID
	for id := range store.registrations {
		regID = id
	}

	_, err = svc.Resume(context.Background(), regID)
	require.NoError(t, err)

	// One reference per license consumed, none repeated.
	require.Len(t, store.references, 2)
	assert.NotEqual(t, store.references[0].ParentAssetID, store.references[1].ParentAssetID)
}

func TestResumeCompletedReturnsResult(t *testing.T) {
	svc, _, store, _ := newTestService()
	ownerID := uuid.New()

	result, err := svc.RegisterDerivative(context.Background(), ownerID, &DerivativeRequest{
		Email:    "someone@example.com",
		Licenses: []LicenseInput{testLicense(parentA, "1", "100")},
		CID:      "bafyexample",
	})
	require.NoError(t, err)

	again, err := svc.Resume(context.Background(), result.RegistrationID)
	require.NoError(t, err)
	assert.Equal(t, result.IPID, again.IPID)
	assert.Equal(t, result.TxHash, again.TxHash)

	// No second asset was persisted.
	assert.Len(t, store.assets, 1)
}

func TestRegisterRoot(t *testing.T) {
	svc, chainFake, store, recorder := newTestService()
	ownerID := uuid.New()

	result, err := svc.RegisterRoot(context.Background(), ownerID, &RootRequest{
		CID: "bafyroot",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.TxHash)
	assert.Equal(t, chainFake.registeredIP.Hex(), result.IPID)

	require.Len(t, store.assets, 1)
	assert.Empty(t, store.assets[0].LicenseTermsID)

	plain, err := utils.DecryptCID(store.assets[0].ContentCID)
	require.NoError(t, err)
	assert.Equal(t, "bafyroot", plain)

	_, ok := recorder.recorded[result.TxHash]
	assert.True(t, ok)
}

func TestRegisterRootMissingCID(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.RegisterRoot(context.Background(), uuid.New(), &RootRequest{})
	assert.ErrorIs(t, err, ErrMissingParameters)
}
