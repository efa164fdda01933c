// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// Documents
	KeyDocumentCreated   = "document.created"
	KeyDocumentDeleted   = "document.deleted"
	KeyDocumentNotFound  = "document.not_found"
	KeyDocumentGenerated = "document.generated"

	// IP Assets
	KeyIPAssetRegistered = "ip_asset.registered"
	KeyIPAssetNotFound   = "ip_asset.not_found"

	// Registrations
	KeyRegistrationStarted   = "registration.started"
	KeyRegistrationNotFound  = "registration.not_found"
	KeyRegistrationResumed   = "registration.resumed"
	KeyRegistrationCompleted = "registration.completed"

	// Wallets
	KeyWalletNotFound = "wallet.not_found"
	KeyWalletResolved = "wallet.resolved"

	// Transactions
	KeyTransactionNotFound = "transaction.not_found"

	// Payments
	KeyPaymentSuccess       = "payment.success"
	KeyPaymentFailed        = "payment.failed"
	KeyPaymentInvalidAmount = "payment.invalid_amount"
	KeyCreditsInsufficient  = "payment.credits_insufficient"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// File Upload
	KeyFileUploadSuccess = "file.upload_success"
	KeyFileUploadFailed  = "file.upload_failed"
	KeyFileInvalidType   = "file.invalid_type"
	KeyFileTooLarge      = "file.too_large"
)
