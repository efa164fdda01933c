// internal/services/document_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/coverink/coverink-backend/internal/models"
	"github.com/coverink/coverink-backend/internal/utils"
)

// ErrDocumentNotFound means no document row matches the lookup for the
// requesting user.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentService manages resumes and cover letters: uploads, AI generation,
// and the IPFS pinning that assigns each document its content identifier.
type DocumentService struct {
	db       *gorm.DB
	storage  *StorageService
	agent    *AgentService
	payments *PaymentService
}

type GenerateDocumentRequest struct {
	Title          string `json:"title" validate:"required,max=255"`
	ResumeText     string `json:"resume_text" validate:"required"`
	JobDescription string `json:"job_description" validate:"required"`
	Tone           string `json:"tone,omitempty"`
	Language       string `json:"language,omitempty"`
}

func NewDocumentService(db *gorm.DB, storage *StorageService, agent *AgentService, payments *PaymentService) *DocumentService {
	return &DocumentService{
		db:       db,
		storage:  storage,
		agent:    agent,
		payments: payments,
	}
}

// UploadDocument stores the raw file, pins its content for a CID, and
// persists the document row.
func (s *DocumentService) UploadDocument(ctx context.Context, ownerID uuid.UUID, docType models.DocumentType, title string, file multipart.File, header *multipart.FileHeader) (*models.Document, error) {
	if docType != models.DocumentTypeResume && docType != models.DocumentTypeCoverLetter {
		return nil, errors.New("invalid document type")
	}
	if title == "" {
		title = header.Filename
	}

	result, err := s.storage.UploadFile(file, header, s.storage.GetDefaultUploadOptions("documents"))
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	// UploadFile consumed the reader; rewind for pinning.
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	cid, err := s.storage.PinContent(ctx, header.Filename, content)
	if err != nil {
		// The raw file landed in S3; the document stays usable without a
		// CID, it just cannot be registered on chain yet.
		logrus.WithError(err).Warn("Failed to pin document content")
	}

	document := &models.Document{
		OwnerID:     ownerID,
		Type:        docType,
		Source:      models.DocumentSourceUploaded,
		Title:       title,
		StorageKey:  result.Key,
		FileURL:     result.URL,
		CID:         cid,
		ContentHash: utils.HashString(string(content)),
		SizeBytes:   result.Size,
		MimeType:    result.MimeType,
	}
	if err := s.db.Create(document).Error; err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return document, nil
}

// GenerateCoverLetter spends one credit, asks the agent for a draft, pins
// the text, and stores it as a generated cover letter. The credit is
// refunded if the agent fails after the deduction.
func (s *DocumentService) GenerateCoverLetter(ctx context.Context, ownerID uuid.UUID, req *GenerateDocumentRequest) (*models.Document, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.payments.DeductCredit(ownerID); err != nil {
		return nil, err
	}

	letter, err := s.agent.GenerateCoverLetter(ctx, &GenerateLetterRequest{
		ResumeText:     req.ResumeText,
		JobDescription: req.JobDescription,
		Tone:           req.Tone,
		Language:       req.Language,
	})
	if err != nil {
		s.refundCredit(ownerID)
		return nil, err
	}

	cid, pinErr := s.storage.PinContent(ctx, req.Title+".md", []byte(letter.Content))
	if pinErr != nil {
		logrus.WithError(pinErr).Warn("Failed to pin generated letter")
	}

	document := &models.Document{
		OwnerID:     ownerID,
		Type:        models.DocumentTypeCoverLetter,
		Source:      models.DocumentSourceGenerated,
		Title:       req.Title,
		CID:         cid,
		ContentHash: utils.HashString(letter.Content),
		SizeBytes:   int64(len(letter.Content)),
		MimeType:    "text/markdown",
		Content:     letter.Content,
		Metadata: models.JSONB{
			"model": letter.Model,
			"tone":  req.Tone,
		},
	}
	if err := s.db.Create(document).Error; err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return document, nil
}

func (s *DocumentService) GetDocument(ownerID, documentID uuid.UUID) (*models.Document, error) {
	var document models.Document
	err := s.db.Where("id = ? AND owner_id = ?", documentID, ownerID).First(&document).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &document, nil
}

func (s *DocumentService) ListDocuments(ownerID uuid.UUID, docType string, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Document{}).Where("owner_id = ?", ownerID)
	if docType != "" {
		query = query.Where("type = ?", docType)
	}
	if params.Search != "" {
		query = query.Where("title ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	var documents []models.Document
	query = utils.ApplySort(query, params, []string{"created_at", "title", "type"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&documents).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	result := utils.CreatePaginationResult(documents, total, params)
	return &result, nil
}

func (s *DocumentService) DeleteDocument(ownerID, documentID uuid.UUID) error {
	document, err := s.GetDocument(ownerID, documentID)
	if err != nil {
		return err
	}

	if document.StorageKey != "" {
		if err := s.storage.DeleteFile(document.StorageKey); err != nil {
			logrus.WithError(err).Warn("Failed to delete stored file")
		}
	}

	if err := s.db.Delete(document).Error; err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *DocumentService) refundCredit(userID uuid.UUID) {
	err := s.db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("credits", gorm.Expr("credits + 1")).Error
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to refund credit")
	}
}
