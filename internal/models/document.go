// internal/models/document.go
package models

import (
	"github.com/google/uuid"
)

// Document is an uploaded resume or a cover letter (uploaded or generated by
// the AI agent). StorageKey points at the raw file in S3; CID is the IPFS
// content identifier assigned when the document is pinned.
type Document struct {
	BaseModel
	OwnerID     uuid.UUID      `json:"owner_id" gorm:"type:uuid;not null;index"`
	Type        DocumentType   `json:"type" gorm:"type:varchar(20);not null;index"`
	Source      DocumentSource `json:"source" gorm:"type:varchar(20);default:'uploaded'"`
	Title       string         `json:"title" gorm:"size:255;not null"`
	StorageKey  string         `json:"storage_key,omitempty" gorm:"size:512"`
	FileURL     string         `json:"file_url,omitempty" gorm:"size:1024"`
	CID         string         `json:"cid,omitempty" gorm:"size:128;index"`
	ContentHash string         `json:"content_hash,omitempty" gorm:"size:64;index"`
	SizeBytes   int64          `json:"size_bytes"`
	MimeType    string         `json:"mime_type" gorm:"size:100"`
	Content     string         `json:"content,omitempty" gorm:"type:text"` // extracted or generated text
	Metadata    JSONB          `json:"metadata" gorm:"type:jsonb"`

	// Relationships
	Owner User `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
}
