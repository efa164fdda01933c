// internal/models/ip_asset.go
package models

import (
	"github.com/google/uuid"
)

// IPAsset is one on-chain IP registration. ContentCID always stores the
// ciphertext form of the content identifier, the same value published
// on-chain as the metadata URI; the plaintext CID never persists here.
type IPAsset struct {
	BaseModel
	OwnerID            uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;index"`
	DocumentID         *uuid.UUID `json:"document_id" gorm:"type:uuid;index"`
	ChainAssetID       string     `json:"chain_asset_id" gorm:"size:42;uniqueIndex"` // ipId address
	TokenID            string     `json:"token_id" gorm:"size:78"`
	LicenseTermsID     string     `json:"license_terms_id" gorm:"size:78"`
	ContentCID         string     `json:"content_cid" gorm:"size:512"`
	RegistrationTxHash string     `json:"registration_tx_hash" gorm:"size:66"`

	// Relationships
	Owner    User          `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Document *Document     `json:"document,omitempty" gorm:"foreignKey:DocumentID"`
	Parents  []IPReference `json:"parents,omitempty" gorm:"foreignKey:ChildAssetID"`
	Children []IPReference `json:"children,omitempty" gorm:"foreignKey:ParentAssetID"`
}

// IPReference links a derivative asset to one parent it consumed a license
// from. Many-to-one from child to each parent license used.
type IPReference struct {
	BaseModel
	ChildAssetID  uuid.UUID `json:"child_asset_id" gorm:"type:uuid;not null;index"`
	ParentAssetID uuid.UUID `json:"parent_asset_id" gorm:"type:uuid;not null;index"`

	// Relationships
	Child  IPAsset `json:"child,omitempty" gorm:"foreignKey:ChildAssetID"`
	Parent IPAsset `json:"parent,omitempty" gorm:"foreignKey:ParentAssetID"`
}

// Royalty records one settled royalty flow between a derivative and its
// licensor. A row exists only when both the payment and the claim
// transaction returned a hash; partial settlements are never stored.
type Royalty struct {
	BaseModel
	PayerAssetID  uuid.UUID `json:"payer_asset_id" gorm:"type:uuid;not null;index"`
	PayeeAssetID  uuid.UUID `json:"payee_asset_id" gorm:"type:uuid;not null;index"`
	Amount        string    `json:"amount" gorm:"type:numeric(38,0);not null"` // wei
	PaymentTxHash string    `json:"payment_tx_hash" gorm:"size:66;not null"`
	ClaimTxHash   string    `json:"claim_tx_hash" gorm:"size:66;not null"`

	// Relationships
	Payer IPAsset `json:"payer,omitempty" gorm:"foreignKey:PayerAssetID"`
	Payee IPAsset `json:"payee,omitempty" gorm:"foreignKey:PayeeAssetID"`
}
