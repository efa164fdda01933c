// internal/chain/events.go
package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Event fragments the platform knows how to decode out of a receipt. A
// receipt mixes many unrelated log types, so decoding is guess-and-check:
// every decoder reports ok=false for logs that belong to another contract.
const registryEventsJSON = `[
	{"type":"event","name":"IPRegistered","inputs":[
		{"name":"account","type":"address","indexed":false},
		{"name":"chainId","type":"uint256","indexed":true},
		{"name":"tokenContract","type":"address","indexed":true},
		{"name":"tokenId","type":"uint256","indexed":true},
		{"name":"name","type":"string","indexed":false},
		{"name":"uri","type":"string","indexed":false},
		{"name":"registrationDate","type":"uint256","indexed":false}]},
	{"type":"event","name":"LicenseTermsAttached","inputs":[
		{"name":"caller","type":"address","indexed":false},
		{"name":"ipId","type":"address","indexed":true},
		{"name":"licenseTemplate","type":"address","indexed":false},
		{"name":"licenseTermsId","type":"uint256","indexed":false}]},
	{"type":"event","name":"LicenseTokensMinted","inputs":[
		{"name":"caller","type":"address","indexed":true},
		{"name":"licensorIpId","type":"address","indexed":true},
		{"name":"licenseTermsId","type":"uint256","indexed":false},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"startLicenseTokenId","type":"uint256","indexed":false}]}
]`

var (
	registryEvents abi.ABI

	ipRegisteredID         common.Hash
	licenseTermsAttachedID common.Hash
	licenseTokensMintedID  common.Hash
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(registryEventsJSON))
	if err != nil {
		panic("chain: invalid registry event ABI: " + err.Error())
	}
	registryEvents = parsed
	ipRegisteredID = parsed.Events["IPRegistered"].ID
	licenseTermsAttachedID = parsed.Events["LicenseTermsAttached"].ID
	licenseTokensMintedID = parsed.Events["LicenseTokensMinted"].ID
}

// RegisteredIP carries the identifiers decoded from an IPRegistered log.
type RegisteredIP struct {
	IPID    common.Address
	TokenID *big.Int
	URI     string
}

// AttachedTerms carries the identifiers decoded from a LicenseTermsAttached log.
type AttachedTerms struct {
	IPID           common.Address
	LicenseTermsID *big.Int
}

// MintedTokens carries the identifiers decoded from a LicenseTokensMinted log.
type MintedTokens struct {
	LicensorIPID        common.Address
	LicenseTermsID      *big.Int
	Amount              *big.Int
	StartLicenseTokenID *big.Int
}

// DecodeIPRegistered attempts to decode lg as an IPRegistered event.
func DecodeIPRegistered(lg types.Log) (*RegisteredIP, bool) {
	if len(lg.Topics) != 4 || lg.Topics[0] != ipRegisteredID {
		return nil, false
	}

	out, err := registryEvents.Unpack("IPRegistered", lg.Data)
	if err != nil || len(out) != 4 {
		return nil, false
	}

	account, ok := out[0].(common.Address)
	if !ok {
		return nil, false
	}
	uri, ok := out[2].(string)
	if !ok {
		return nil, false
	}

	return &RegisteredIP{
		IPID:    account,
		TokenID: new(big.Int).SetBytes(lg.Topics[3].Bytes()),
		URI:     uri,
	}, true
}

// DecodeLicenseTermsAttached attempts to decode lg as a LicenseTermsAttached event.
func DecodeLicenseTermsAttached(lg types.Log) (*AttachedTerms, bool) {
	if len(lg.Topics) != 2 || lg.Topics[0] != licenseTermsAttachedID {
		return nil, false
	}

	out, err := registryEvents.Unpack("LicenseTermsAttached", lg.Data)
	if err != nil || len(out) != 3 {
		return nil, false
	}

	termsID, ok := out[2].(*big.Int)
	if !ok {
		return nil, false
	}

	return &AttachedTerms{
		IPID:           common.BytesToAddress(lg.Topics[1].Bytes()),
		LicenseTermsID: termsID,
	}, true
}

// DecodeLicenseTokensMinted attempts to decode lg as a LicenseTokensMinted event.
func DecodeLicenseTokensMinted(lg types.Log) (*MintedTokens, bool) {
	if len(lg.Topics) != 3 || lg.Topics[0] != licenseTokensMintedID {
		return nil, false
	}

	out, err := registryEvents.Unpack("LicenseTokensMinted", lg.Data)
	if err != nil || len(out) != 3 {
		return nil, false
	}

	termsID, ok := out[0].(*big.Int)
	if !ok {
		return nil, false
	}
	amount, ok := out[1].(*big.Int)
	if !ok {
		return nil, false
	}
	start, ok := out[2].(*big.Int)
	if !ok {
		return nil, false
	}

	return &MintedTokens{
		LicensorIPID:        common.BytesToAddress(lg.Topics[2].Bytes()),
		LicenseTermsID:      termsID,
		Amount:              amount,
		StartLicenseTokenID: start,
	}, true
}

// EncodeIPRegistered packs a RegisteredIP back into a log. Used by tests and
// by tooling that replays receipts.
func EncodeIPRegistered(ip *RegisteredIP, chainID *big.Int, tokenContract common.Address) (types.Log, error) {
	data, err := registryEvents.Events["IPRegistered"].Inputs.NonIndexed().Pack(
		ip.IPID, "", ip.URI, big.NewInt(0),
	)
	if err != nil {
		return types.Log{}, err
	}

	return types.Log{
		Topics: []common.Hash{
			ipRegisteredID,
			common.BigToHash(chainID),
			common.BytesToHash(tokenContract.Bytes()),
			common.BigToHash(ip.TokenID),
		},
		Data: data,
	}, nil
}

// EncodeLicenseTermsAttached packs an AttachedTerms back into a log.
func EncodeLicenseTermsAttached(at *AttachedTerms, caller, template common.Address) (types.Log, error) {
	data, err := registryEvents.Events["LicenseTermsAttached"].Inputs.NonIndexed().Pack(
		caller, template, at.LicenseTermsID,
	)
	if err != nil {
		return types.Log{}, err
	}

	return types.Log{
		Topics: []common.Hash{
			licenseTermsAttachedID,
			common.BytesToHash(at.IPID.Bytes()),
		},
		Data: data,
	}, nil
}

// EncodeLicenseTokensMinted packs a MintedTokens back into a log.
func EncodeLicenseTokensMinted(mt *MintedTokens, caller common.Address) (types.Log, error) {
	data, err := registryEvents.Events["LicenseTokensMinted"].Inputs.NonIndexed().Pack(
		mt.LicenseTermsID, mt.Amount, mt.StartLicenseTokenID,
	)
	if err != nil {
		return types.Log{}, err
	}

	return types.Log{
		Topics: []common.Hash{
			licenseTokensMintedID,
			common.BytesToHash(caller.Bytes()),
			common.BytesToHash(mt.LicensorIPID.Bytes()),
		},
		Data: data,
	}, nil
}
