// internal/models/registration.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DerivativeRegistration is the durable saga record for one derivative
// registration request. Every mined transaction is checkpointed individually:
// the tx-hash arrays grow one entry per confirmation, and the cursors count
// licenses whose full pair (mint+approve, pay+claim) is done. A resumed run
// re-enters at the cursors and skips any transaction whose hash is already
// recorded, so nothing mined is ever submitted twice.
type DerivativeRegistration struct {
	BaseModel
	OwnerID            uuid.UUID        `json:"owner_id" gorm:"type:uuid;not null;index"`
	RecipientEmail     string           `json:"recipient_email" gorm:"size:255;not null"`
	RecipientAddress   string           `json:"recipient_address" gorm:"size:42"`
	LicenseInfos       JSONB            `json:"license_infos" gorm:"type:jsonb;not null"`
	CIDCiphertext      string           `json:"cid_ciphertext" gorm:"size:512"`
	Step               RegistrationStep `json:"step" gorm:"type:varchar(30);default:'pending';index"`
	LicenseCursor      int              `json:"license_cursor" gorm:"default:0"`
	ReferenceCursor    int              `json:"reference_cursor" gorm:"default:0"`
	RoyaltyCursor      int              `json:"royalty_cursor" gorm:"default:0"`
	MintedTokenIDs     pq.StringArray   `json:"minted_token_ids" gorm:"type:text[]"`
	MintTxHashes       pq.StringArray   `json:"mint_tx_hashes" gorm:"type:text[]"`
	ApproveTxHashes    pq.StringArray   `json:"approve_tx_hashes" gorm:"type:text[]"`
	PayTxHashes        pq.StringArray   `json:"pay_tx_hashes" gorm:"type:text[]"`
	ClaimTxHashes      pq.StringArray   `json:"claim_tx_hashes" gorm:"type:text[]"`
	RegistrationTxHash string           `json:"registration_tx_hash" gorm:"size:66"`
	ChainAssetID       string           `json:"chain_asset_id" gorm:"size:42"`
	TokenID            string           `json:"token_id" gorm:"size:78"`
	ChildAssetID       *uuid.UUID       `json:"child_asset_id" gorm:"type:uuid"`
	LastError          string           `json:"last_error,omitempty" gorm:"type:text"`

	// Relationships
	Owner      User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	ChildAsset *IPAsset `json:"child_asset,omitempty" gorm:"foreignKey:ChildAssetID"`
}

// CreditPurchase tracks a Stripe purchase of AI generation credits.
type CreditPurchase struct {
	BaseModel
	UserID           uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	Credits          int            `json:"credits" gorm:"not null"`
	AmountCents      int64          `json:"amount_cents" gorm:"not null"`
	PaymentReference string         `json:"payment_reference" gorm:"size:255"`
	Status           PurchaseStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
