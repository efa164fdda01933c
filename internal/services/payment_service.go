// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/coverink/coverink-backend/internal/config"
	"github.com/coverink/coverink-backend/internal/models"
)

// ErrInsufficientCredits means the user has no generation credits left.
// Handlers map it to a 402.
var ErrInsufficientCredits = errors.New("insufficient credits")

// PaymentService sells AI generation credits through Stripe payment intents
// and maintains each user's credit balance.
type PaymentService struct {
	db  *gorm.DB
	cfg *config.Config
}

type CreditPurchaseResponse struct {
	Purchase     *models.CreditPurchase `json:"purchase"`
	ClientSecret string                 `json:"client_secret"`
}

func NewPaymentService(db *gorm.DB, cfg *config.Config) *PaymentService {
	stripe.Key = cfg.Payment.StripeSecretKey
	return &PaymentService{db: db, cfg: cfg}
}

// CreateCreditPurchase opens a payment intent for one credit pack and
// records a pending purchase referencing it.
func (s *PaymentService) CreateCreditPurchase(userID uuid.UUID) (*CreditPurchaseResponse, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(s.cfg.Payment.CreditPriceCents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("user_id", userID.String())
	params.AddMetadata("credits", fmt.Sprintf("%d", s.cfg.Payment.CreditsPerPurchase))

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	purchase := &models.CreditPurchase{
		UserID:           userID,
		Credits:          s.cfg.Payment.CreditsPerPurchase,
		AmountCents:      s.cfg.Payment.CreditPriceCents,
		PaymentReference: intent.ID,
		Status:           models.PurchaseStatusPending,
	}
	if err := s.db.Create(purchase).Error; err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	return &CreditPurchaseResponse{
		Purchase:     purchase,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// ConfirmCreditPurchase verifies the payment intent succeeded and credits
// the user. Confirming an already completed purchase is a no-op.
func (s *PaymentService) ConfirmCreditPurchase(userID, purchaseID uuid.UUID) (*models.CreditPurchase, error) {
	var purchase models.CreditPurchase
	if err := s.db.Where("id = ? AND user_id = ?", purchaseID, userID).First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("purchase not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if purchase.Status == models.PurchaseStatusCompleted {
		return &purchase, nil
	}

	intent, err := paymentintent.Get(purchase.PaymentReference, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment intent: %w", err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("payment not completed, current status: %s", intent.Status)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		purchase.Status = models.PurchaseStatusCompleted
		if err := tx.Save(&purchase).Error; err != nil {
			return fmt.Errorf("failed to update purchase: %w", err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("credits", gorm.Expr("credits + ?", purchase.Credits)).Error; err != nil {
			return fmt.Errorf("failed to credit user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"credits": purchase.Credits,
	}).Info("Credit purchase completed")

	return &purchase, nil
}

// DeductCredit atomically spends one generation credit; it fails with
// ErrInsufficientCredits when the balance is already zero.
func (s *PaymentService) DeductCredit(userID uuid.UUID) error {
	result := s.db.Model(&models.User{}).
		Where("id = ? AND credits > 0", userID).
		UpdateColumn("credits", gorm.Expr("credits - 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to deduct credit: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

// ListPurchases returns the user's purchases newest first.
func (s *PaymentService) ListPurchases(userID uuid.UUID) ([]models.CreditPurchase, error) {
	var purchases []models.CreditPurchase
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}
