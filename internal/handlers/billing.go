// internal/handlers/billing.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coverink/coverink-backend/internal/i18n"
	"github.com/coverink/coverink-backend/internal/services"
	"github.com/coverink/coverink-backend/internal/utils"
)

type BillingHandler struct {
	paymentService *services.PaymentService
}

func NewBillingHandler(paymentService *services.PaymentService) *BillingHandler {
	return &BillingHandler{
		paymentService: paymentService,
	}
}

// POST /billing/credits
func (h *BillingHandler) CreatePurchase(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	response, err := h.paymentService.CreateCreditPurchase(userID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.CreatedResponse(c, gin.H{
		"purchase":      response.Purchase,
		"client_secret": response.ClientSecret,
	})
}

// POST /billing/credits/:id/confirm
func (h *BillingHandler) ConfirmPurchase(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid purchase ID", nil)
		return
	}

	purchase, err := h.paymentService.ConfirmCreditPurchase(userID, purchaseID)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyPaymentSuccess),
		"purchase": purchase,
	})
}

// GET /billing/credits
func (h *BillingHandler) ListPurchases(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	purchases, err := h.paymentService.ListPurchases(userID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"purchases": purchases,
	})
}
