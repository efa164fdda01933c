// internal/handlers/registration.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coverink/coverink-backend/internal/i18n"
	"github.com/coverink/coverink-backend/internal/services"
	"github.com/coverink/coverink-backend/internal/utils"
)

type RegistrationHandler struct {
	registrationService *services.RegistrationService
	ledgerService       *services.LedgerService
}

func NewRegistrationHandler(registrationService *services.RegistrationService, ledgerService *services.LedgerService) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
		ledgerService:       ledgerService,
	}
}

// POST /registrations/derivative
func (h *RegistrationHandler) RegisterDerivative(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.DerivativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	result, err := h.registrationService.RegisterDerivative(c.Request.Context(), userID, &req)
	if err != nil {
		writeRegistrationError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":         i18n.T(lang, i18n.KeyRegistrationCompleted),
		"registration_id": result.RegistrationID,
		"tx_hash":         result.TxHash,
		"ip_id":           result.IPID,
		"token_id":        result.TokenID,
	})
}

// POST /registrations/root
func (h *RegistrationHandler) RegisterRoot(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.RootRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	result, err := h.registrationService.RegisterRoot(c.Request.Context(), userID, &req)
	if err != nil {
		writeRegistrationError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyIPAssetRegistered),
		"asset_id": result.AssetID,
		"tx_hash":  result.TxHash,
		"ip_id":    result.IPID,
		"token_id": result.TokenID,
	})
}

// POST /registrations/:id/resume
func (h *RegistrationHandler) Resume(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	registrationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid registration ID", nil)
		return
	}

	reg, err := h.ledgerService.GetRegistration(registrationID)
	if err != nil {
		utils.NotFoundResponse(c, "registration")
		return
	}
	if reg.OwnerID != userID {
		utils.ForbiddenResponse(c, "Registration belongs to another user")
		return
	}

	result, err := h.registrationService.Resume(c.Request.Context(), registrationID)
	if err != nil {
		writeRegistrationError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":         i18n.T(lang, i18n.KeyRegistrationResumed),
		"registration_id": result.RegistrationID,
		"tx_hash":         result.TxHash,
		"ip_id":           result.IPID,
		"token_id":        result.TokenID,
	})
}

// GET /registrations/:id
func (h *RegistrationHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	registrationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid registration ID", nil)
		return
	}

	reg, err := h.ledgerService.GetRegistration(registrationID)
	if err != nil {
		utils.NotFoundResponse(c, "registration")
		return
	}
	if reg.OwnerID != userID {
		utils.ForbiddenResponse(c, "Registration belongs to another user")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"registration": reg,
	})
}

// GET /registrations
func (h *RegistrationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	regs, err := h.ledgerService.ListUserRegistrations(userID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"registrations": regs,
	})
}

// writeRegistrationError maps orchestrator errors onto the API contract:
// missing input is a 400, an unresolvable recipient is a 404, anything else
// surfaces as a 500 carrying the underlying chain error text.
func writeRegistrationError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	switch {
	case errors.Is(err, services.ErrMissingParameters):
		utils.ErrorResponse(c, http.StatusBadRequest, "MISSING_PARAMETERS", err.Error(), nil)
	case errors.Is(err, services.ErrRecipientNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "RECIPIENT_NOT_FOUND",
			i18n.T(lang, i18n.KeyWalletNotFound), nil)
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "REGISTRATION_FAILED", err.Error(), nil)
	}
}
