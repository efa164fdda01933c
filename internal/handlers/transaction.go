// internal/handlers/transaction.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/coverink/coverink-backend/internal/services"
	"github.com/coverink/coverink-backend/internal/utils"
)

type TransactionHandler struct {
	txStatusService *services.TxStatusService
}

func NewTransactionHandler(txStatusService *services.TxStatusService) *TransactionHandler {
	return &TransactionHandler{
		txStatusService: txStatusService,
	}
}

// GET /transactions/:txHash
func (h *TransactionHandler) GetStatus(c *gin.Context) {
	txHash := c.Param("txHash")
	if !utils.IsTxHash(txHash) {
		utils.BadRequestResponse(c, "Invalid transaction hash", nil)
		return
	}

	result, err := h.txStatusService.Resolve(c.Request.Context(), txHash)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, result)
}
