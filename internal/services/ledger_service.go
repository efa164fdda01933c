// internal/services/ledger_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coverink/coverink-backend/internal/models"
)

// ErrAssetNotFound means no IP asset row matches the lookup.
var ErrAssetNotFound = errors.New("ip asset not found")

// LedgerService owns the relational side of the IP registry: assets, the
// child-to-parent references between them, settled royalties, and the
// durable registration records the orchestrator checkpoints into.
type LedgerService struct {
	db *gorm.DB
}

// DailyRoyaltyTotal is one day's settled royalty volume for a user's assets.
type DailyRoyaltyTotal struct {
	Day   time.Time `json:"day"`
	Total string    `json:"total"` // wei, summed as numeric
	Count int64     `json:"count"`
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

func (s *LedgerService) CreateAsset(asset *models.IPAsset) error {
	if err := s.db.Create(asset).Error; err != nil {
		return fmt.Errorf("failed to create ip asset: %w", err)
	}
	return nil
}

// FindAssetByChainID looks up an asset by its on-chain ipId address.
func (s *LedgerService) FindAssetByChainID(chainAssetID string) (*models.IPAsset, error) {
	var asset models.IPAsset
	if err := s.db.Where("chain_asset_id = ?", chainAssetID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &asset, nil
}

func (s *LedgerService) GetAsset(id uuid.UUID) (*models.IPAsset, error) {
	var asset models.IPAsset
	err := s.db.Preload("Parents.Parent").Preload("Children.Child").First(&asset, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &asset, nil
}

// ListUserAssets returns the user's assets newest first, with their parent
// and child references loaded.
func (s *LedgerService) ListUserAssets(ownerID uuid.UUID) ([]models.IPAsset, error) {
	var assets []models.IPAsset
	err := s.db.Where("owner_id = ?", ownerID).
		Preload("Parents.Parent").
		Preload("Children.Child").
		Order("created_at DESC").
		Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ip assets: %w", err)
	}
	return assets, nil
}

func (s *LedgerService) CreateReference(childID, parentID uuid.UUID) error {
	ref := &models.IPReference{ChildAssetID: childID, ParentAssetID: parentID}
	if err := s.db.Create(ref).Error; err != nil {
		return fmt.Errorf("failed to create ip reference: %w", err)
	}
	return nil
}

func (s *LedgerService) CreateRoyalty(royalty *models.Royalty) error {
	if err := s.db.Create(royalty).Error; err != nil {
		return fmt.Errorf("failed to create royalty: %w", err)
	}
	return nil
}

// ListRoyaltiesForAssets returns every royalty row where one of the given
// assets is payer or payee, newest first.
func (s *LedgerService) ListRoyaltiesForAssets(assetIDs []uuid.UUID) ([]models.Royalty, error) {
	if len(assetIDs) == 0 {
		return nil, nil
	}
	var royalties []models.Royalty
	err := s.db.Where("payer_asset_id IN ? OR payee_asset_id IN ?", assetIDs, assetIDs).
		Order("created_at DESC").
		Find(&royalties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list royalties: %w", err)
	}
	return royalties, nil
}

// DailyRoyaltyTotals rolls up royalties received by the user's assets into
// per-day totals over the window, most recent day first.
func (s *LedgerService) DailyRoyaltyTotals(ownerID uuid.UUID, since time.Time) ([]DailyRoyaltyTotal, error) {
	var totals []DailyRoyaltyTotal
	err := s.db.Model(&models.Royalty{}).
		Select("date_trunc('day', royalties.created_at) as day, SUM(royalties.amount::numeric)::text as total, COUNT(*) as count").
		Joins("JOIN ip_assets ON ip_assets.id = royalties.payee_asset_id").
		Where("ip_assets.owner_id = ? AND royalties.created_at >= ?", ownerID, since).
		Group("day").
		Order("day DESC").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate royalties: %w", err)
	}
	return totals, nil
}

// Registration checkpoint persistence. The orchestrator saves after every
// mined transaction so a crash never loses a confirmed step.

func (s *LedgerService) CreateRegistration(reg *models.DerivativeRegistration) error {
	if err := s.db.Create(reg).Error; err != nil {
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (s *LedgerService) SaveRegistration(reg *models.DerivativeRegistration) error {
	if err := s.db.Save(reg).Error; err != nil {
		return fmt.Errorf("failed to save registration: %w", err)
	}
	return nil
}

func (s *LedgerService) GetRegistration(id uuid.UUID) (*models.DerivativeRegistration, error) {
	var reg models.DerivativeRegistration
	if err := s.db.First(&reg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("registration not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &reg, nil
}

// ListUserRegistrations returns the user's registration records newest first.
func (s *LedgerService) ListUserRegistrations(ownerID uuid.UUID) ([]models.DerivativeRegistration, error) {
	var regs []models.DerivativeRegistration
	err := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&regs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}
