// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Story       StoryConfig
	Privy       PrivyConfig
	Pinata      PinataConfig
	Agent       AgentConfig
	AWS         AWSConfig
	Payment     PaymentConfig
	Crypto      CryptoConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
}

// StoryConfig holds everything needed to talk to the Story protocol
// contracts: the RPC endpoint, the platform signing key and the fixed
// contract addresses the registration workflow calls into.
type StoryConfig struct {
	RPCURL              string
	PrivateKey          string
	ChainID             int64
	SPGNFTContract      string
	LicensingModule     string
	LicenseToken        string
	DerivativeWorkflows string
	RoyaltyModule       string
	RoyaltyWorkflows    string
	RoyaltyPolicy       string
	Currency            string
	ConfirmTimeout      int // seconds to wait for a receipt
	TxCacheSize         int // entries in the tx identifier cache
}

type PrivyConfig struct {
	BaseURL   string
	AppID     string
	AppSecret string
}

type PinataConfig struct {
	BaseURL    string
	JWT        string
	GatewayURL string
}

type AgentConfig struct {
	BaseURL string
	APIKey  string
	Timeout int // seconds
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
}

type PaymentConfig struct {
	StripeSecretKey      string
	StripePublishableKey string
	CreditPriceCents     int64
	CreditsPerPurchase   int
}

type CryptoConfig struct {
	CIDKey string // hex-encoded 32-byte AES key for CID encryption
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 120),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "coverink"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL:  getEnvAsInt("JWT_ACCESS_TTL", 24),   // 24 hours
			RefreshTokenTTL: getEnvAsInt("JWT_REFRESH_TTL", 168), // 7 days
		},
		Story: StoryConfig{
			RPCURL:              getEnv("STORY_RPC_URL", ""),
			PrivateKey:          getEnv("STORY_PRIVATE_KEY", ""),
			ChainID:             int64(getEnvAsInt("STORY_CHAIN_ID", 1315)),
			SPGNFTContract:      getEnv("STORY_SPG_NFT_CONTRACT", ""),
			LicensingModule:     getEnv("STORY_LICENSING_MODULE", ""),
			LicenseToken:        getEnv("STORY_LICENSE_TOKEN", ""),
			DerivativeWorkflows: getEnv("STORY_DERIVATIVE_WORKFLOWS", ""),
			RoyaltyModule:       getEnv("STORY_ROYALTY_MODULE", ""),
			RoyaltyWorkflows:    getEnv("STORY_ROYALTY_WORKFLOWS", ""),
			RoyaltyPolicy:       getEnv("STORY_ROYALTY_POLICY", ""),
			Currency:            getEnv("STORY_CURRENCY", ""),
			ConfirmTimeout:      getEnvAsInt("STORY_CONFIRM_TIMEOUT", 120),
			TxCacheSize:         getEnvAsInt("STORY_TX_CACHE_SIZE", 4096),
		},
		Privy: PrivyConfig{
			BaseURL:   getEnv("PRIVY_BASE_URL", "https://auth.privy.io"),
			AppID:     getEnv("PRIVY_APP_ID", ""),
			AppSecret: getEnv("PRIVY_APP_SECRET", ""),
		},
		Pinata: PinataConfig{
			BaseURL:    getEnv("PINATA_BASE_URL", "https://api.pinata.cloud"),
			JWT:        getEnv("PINATA_JWT", ""),
			GatewayURL: getEnv("PINATA_GATEWAY_URL", "https://gateway.pinata.cloud"),
		},
		Agent: AgentConfig{
			BaseURL: getEnv("AGENT_BASE_URL", ""),
			APIKey:  getEnv("AGENT_API_KEY", ""),
			Timeout: getEnvAsInt("AGENT_TIMEOUT", 60),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "coverink-documents"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Payment: PaymentConfig{
			StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			CreditPriceCents:     int64(getEnvAsInt("CREDIT_PRICE_CENTS", 500)),
			CreditsPerPurchase:   getEnvAsInt("CREDITS_PER_PURCHASE", 10),
		},
		Crypto: CryptoConfig{
			CIDKey: getEnv("CID_ENCRYPTION_KEY", ""),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Environment == "production" {
		if c.Story.RPCURL == "" || c.Story.PrivateKey == "" {
			return fmt.Errorf("story RPC URL and signing key are required in production")
		}
		if c.Crypto.CIDKey == "" {
			return fmt.Errorf("CID encryption key is required in production")
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
