// internal/handlers/royalty.go
package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coverink/coverink-backend/internal/models"
	"github.com/coverink/coverink-backend/internal/services"
	"github.com/coverink/coverink-backend/internal/utils"
)

type RoyaltyHandler struct {
	ledgerService *services.LedgerService
}

func NewRoyaltyHandler(ledgerService *services.LedgerService) *RoyaltyHandler {
	return &RoyaltyHandler{
		ledgerService: ledgerService,
	}
}

// GET /royalties?days=30
func (h *RoyaltyHandler) DailyTotals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days < 1 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	totals, err := h.ledgerService.DailyRoyaltyTotals(userID, since)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"days":   days,
		"totals": totals,
	})
}

// GET /royalties/history
func (h *RoyaltyHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	assets, err := h.ledgerService.ListUserAssets(userID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	assetIDs := make([]uuid.UUID, 0, len(assets))
	for _, asset := range assets {
		assetIDs = append(assetIDs, asset.ID)
	}

	royalties, err := h.ledgerService.ListRoyaltiesForAssets(assetIDs)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	if royalties == nil {
		royalties = []models.Royalty{}
	}

	utils.SuccessResponse(c, gin.H{
		"royalties": royalties,
	})
}

// GET /ip-assets
func (h *RoyaltyHandler) ListAssets(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	assets, err := h.ledgerService.ListUserAssets(userID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"assets": assets,
	})
}

// GET /ip-assets/:id
func (h *RoyaltyHandler) GetAsset(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid asset ID", nil)
		return
	}

	asset, err := h.ledgerService.GetAsset(assetID)
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			utils.NotFoundResponse(c, "ip_asset")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	if asset.OwnerID != userID {
		utils.ForbiddenResponse(c, "Asset belongs to another user")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"asset": asset,
	})
}
