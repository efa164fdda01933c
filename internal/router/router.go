// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/coverink/coverink-backend/internal/chain"
	"github.com/coverink/coverink-backend/internal/config"
	"github.com/coverink/coverink-backend/internal/handlers"
	"github.com/coverink/coverink-backend/internal/middleware"
	"github.com/coverink/coverink-backend/internal/services"
	"github.com/coverink/coverink-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config, chainClient *chain.Client) *gin.Engine {
	// Initialize services
	storageService, _ := services.NewStorageService(cfg)
	walletService := services.NewWalletService(cfg)
	agentService := services.NewAgentService(cfg)
	txStatusService, err := services.NewTxStatusService(chainClient, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize transaction status service")
	}

	ledgerService := services.NewLedgerService(db)
	authService := services.NewAuthService(db, cfg)
	paymentService := services.NewPaymentService(db, cfg)
	documentService := services.NewDocumentService(db, storageService, agentService, paymentService)
	registrationService := services.NewRegistrationService(chainClient, walletService, ledgerService, txStatusService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	documentHandler := handlers.NewDocumentHandler(documentService)
	registrationHandler := handlers.NewRegistrationHandler(registrationService, ledgerService)
	transactionHandler := handlers.NewTransactionHandler(txStatusService)
	walletHandler := handlers.NewWalletHandler(walletService)
	royaltyHandler := handlers.NewRoyaltyHandler(ledgerService)
	billingHandler := handlers.NewBillingHandler(paymentService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
			auth.PUT("/me", middleware.AuthRequired(), authHandler.UpdateProfile)
		}

		// Document routes
		documents := v1.Group("/documents")
		documents.Use(middleware.AuthRequired())
		{
			documents.POST("", middleware.UploadRateLimit(), documentHandler.Upload)
			documents.POST("/generate", documentHandler.Generate)
			documents.GET("", documentHandler.List)
			documents.GET("/:id", documentHandler.Get)
			documents.DELETE("/:id", documentHandler.Delete)
		}

		// Wallet resolution
		wallets := v1.Group("/wallets")
		wallets.Use(middleware.AuthRequired())
		{
			wallets.POST("/lookup", walletHandler.Lookup)
		}

		// IP registration routes
		registrations := v1.Group("/registrations")
		registrations.Use(middleware.AuthRequired())
		{
			registrations.POST("/derivative", middleware.ChainRateLimit(), registrationHandler.RegisterDerivative)
			registrations.POST("/root", middleware.ChainRateLimit(), registrationHandler.RegisterRoot)
			registrations.POST("/:id/resume", middleware.ChainRateLimit(), registrationHandler.Resume)
			registrations.GET("", registrationHandler.List)
			registrations.GET("/:id", registrationHandler.Get)
		}

		// Transaction status
		transactions := v1.Group("/transactions")
		transactions.Use(middleware.OptionalAuth())
		{
			transactions.GET("/:txHash", transactionHandler.GetStatus)
		}

		// IP assets and royalties
		ipAssets := v1.Group("/ip-assets")
		ipAssets.Use(middleware.AuthRequired())
		{
			ipAssets.GET("", royaltyHandler.ListAssets)
			ipAssets.GET("/:id", royaltyHandler.GetAsset)
		}

		royalties := v1.Group("/royalties")
		royalties.Use(middleware.AuthRequired())
		{
			royalties.GET("", royaltyHandler.DailyTotals)
			royalties.GET("/history", royaltyHandler.History)
		}

		// Credit billing
		billing := v1.Group("/billing")
		billing.Use(middleware.AuthRequired())
		{
			billing.POST("/credits", billingHandler.CreatePurchase)
			billing.POST("/credits/:id/confirm", billingHandler.ConfirmPurchase)
			billing.GET("/credits", billingHandler.ListPurchases)
		}
	}

	return r
}
