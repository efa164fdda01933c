// internal/handlers/wallet.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/coverink/coverink-backend/internal/i18n"
	"github.com/coverink/coverink-backend/internal/services"
	"github.com/coverink/coverink-backend/internal/utils"
)

type WalletHandler struct {
	walletService *services.WalletService
}

func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// POST /wallets/lookup
func (h *WalletHandler) Lookup(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	lookup, err := h.walletService.Resolve(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, services.ErrRecipientNotFound) {
			utils.NotFoundResponse(c, "wallet")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, lookup)
}
