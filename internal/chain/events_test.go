// internal/chain/events_test.go
package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeIPRegistered(t *testing.T) {
	want := &RegisteredIP{
		IPID:    common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TokenID: big.NewInt(42),
		URI:     "ipfs://enc-QmExample",
	}

	lg, err := EncodeIPRegistered(want, big.NewInt(1315), common.HexToAddress("0x2222222222222222222222222222222222222222"))
	require.NoError(t, err)

	got, ok := DecodeIPRegistered(lg)
	require.True(t, ok)
	assert.Equal(t, want.IPID, got.IPID)
	assert.Equal(t, 0, want.TokenID.Cmp(got.TokenID))
	assert.Equal(t, want.URI, got.URI)
}

func TestDecodeIPRegisteredRejectsForeignLogs(t *testing.T) {
	// Wrong topic 0.
	lg := types.Log{
		Topics: []common.Hash{
			common.HexToHash("0xdeadbeef"),
			common.BigToHash(big.NewInt(1)),
			common.HexToHash("0x02"),
			common.BigToHash(big.NewInt(3)),
		},
	}
	_, ok := DecodeIPRegistered(lg)
	assert.False(t, ok)

	// Right topic 0 but garbage data.
	lg.Topics[0] = ipRegisteredID
	lg.Data = []byte{0x01, 0x02}
	_, ok = DecodeIPRegistered(lg)
	assert.False(t, ok)
}

func TestDecodeLicenseTermsAttached(t *testing.T) {
	want := &AttachedTerms{
		IPID:           common.HexToAddress("0x3333333333333333333333333333333333333333"),
		LicenseTermsID: big.NewInt(7),
	}

	lg, err := EncodeLicenseTermsAttached(want,
		common.HexToAddress("0x4444444444444444444444444444444444444444"),
		common.HexToAddress("0x5555555555555555555555555555555555555555"))
	require.NoError(t, err)

	got, ok := DecodeLicenseTermsAttached(lg)
	require.True(t, ok)
	assert.Equal(t, want.IPID, got.IPID)
	assert.Equal(t, 0, want.LicenseTermsID.Cmp(got.LicenseTermsID))
}

func TestDecodeLicenseTokensMinted(t *testing.T) {
	want := &MintedTokens{
		LicensorIPID:        common.HexToAddress("0x6666666666666666666666666666666666666666"),
		LicenseTermsID:      big.NewInt(9),
		Amount:              big.NewInt(1),
		StartLicenseTokenID: big.NewInt(1001),
	}

	lg, err := EncodeLicenseTokensMinted(want, common.HexToAddress("0x7777777777777777777777777777777777777777"))
	require.NoError(t, err)

	got, ok := DecodeLicenseTokensMinted(lg)
	require.True(t, ok)
	assert.Equal(t, want.LicensorIPID, got.LicensorIPID)
	assert.Equal(t, 0, want.StartLicenseTokenID.Cmp(got.StartLicenseTokenID))
	assert.Equal(t, 0, want.Amount.Cmp(got.Amount))
}

func TestDecodersIgnoreEachOther(t *testing.T) {
	lg, err := EncodeLicenseTermsAttached(&AttachedTerms{
		IPID:           common.HexToAddress("0x01"),
		LicenseTermsID: big.NewInt(1),
	}, common.Address{}, common.Address{})
	require.NoError(t, err)

	_, ok := DecodeIPRegistered(lg)
	assert.False(t, ok)
	_, ok = DecodeLicenseTokensMinted(lg)
	assert.False(t, ok)
}
