// internal/handlers/document.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coverink/coverink-backend/internal/i18n"
	"github.com/coverink/coverink-backend/internal/models"
	"github.com/coverink/coverink-backend/internal/services"
	"github.com/coverink/coverink-backend/internal/utils"
)

type DocumentHandler struct {
	documentService *services.DocumentService
}

func NewDocumentHandler(documentService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
	}
}

// POST /documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "file"), err.Error())
		return
	}
	defer file.Close()

	docType := models.DocumentType(c.PostForm("type"))
	title := c.PostForm("title")

	document, err := h.documentService.UploadDocument(c.Request.Context(), userID, docType, title, file, header)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyDocumentCreated),
		"document": document,
	})
}

// POST /documents/generate
func (h *DocumentHandler) Generate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.GenerateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	document, err := h.documentService.GenerateCoverLetter(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientCredits):
			utils.ErrorResponse(c, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS",
				i18n.T(lang, i18n.KeyCreditsInsufficient), nil)
		case errors.Is(err, services.ErrAgentUnavailable):
			utils.ErrorResponse(c, http.StatusServiceUnavailable, "AGENT_UNAVAILABLE", err.Error(), nil)
		default:
			utils.BadRequestResponse(c, err.Error(), nil)
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyDocumentGenerated),
		"document": document,
	})
}

// GET /documents
func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.documentService.ListDocuments(userID, c.Query("type"), params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid document ID", nil)
		return
	}

	document, err := h.documentService.GetDocument(userID, documentID)
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			utils.NotFoundResponse(c, "document")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"document": document,
	})
}

// DELETE /documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid document ID", nil)
		return
	}

	if err := h.documentService.DeleteDocument(userID, documentID); err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			utils.NotFoundResponse(c, "document")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDocumentDeleted),
	})
}
