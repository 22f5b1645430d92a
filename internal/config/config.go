package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port     int
	Env      string
	LogLevel string

	JWTSecret string
	JWTIssuer string

	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
	RedisURL      string

	StripeSecretKey     string
	StripeWebhookSecret string
	SiteURL             string

	ChainRPCURL      string
	AdminWallet      string
	MinConfirmations uint64

	AdminEmail    string
	CORSOrigin    string
	EncryptionKey string
	Location      *time.Location
	SweepInterval time.Duration

	SMSProvider      string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	EmailProvider    string
	ResendAPIKey     string
	EmailFrom        string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("PORT", "4001"))

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	redisURL := getEnv("REDIS_URL", "")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	encKey := getEnv("ENCRYPTION_KEY", "")
	if encKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required (must be exactly 32 bytes)")
	}
	if len(encKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(encKey))
	}

	wallet := getEnv("ADMIN_WALLET", "")
	if wallet != "" && !common.IsHexAddress(wallet) {
		return nil, fmt.Errorf("ADMIN_WALLET is not a valid address: %q", wallet)
	}

	minConf, err := strconv.ParseUint(getEnv("CHAIN_MIN_CONFIRMATIONS", "1"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("CHAIN_MIN_CONFIRMATIONS must be a positive integer: %w", err)
	}
	if minConf < 1 {
		return nil, fmt.Errorf("CHAIN_MIN_CONFIRMATIONS must be at least 1")
	}

	loc, err := time.LoadLocation(getEnv("APP_TIMEZONE", "America/Sao_Paulo"))
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE: %w", err)
	}

	sweep, err := time.ParseDuration(getEnv("PLAN_SWEEP_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("PLAN_SWEEP_INTERVAL: %w", err)
	}

	return &Config{
		Port:     port,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		JWTSecret: jwtSecret,
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "agrosync"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisURL:      redisURL,

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		SiteURL:             strings.TrimRight(getEnv("SITE_URL", "https://agroisync.com"), "/"),

		ChainRPCURL:      getEnv("CHAIN_RPC_URL", ""),
		AdminWallet:      wallet,
		MinConfirmations: minConf,

		AdminEmail:    getEnv("ADMIN_EMAIL", "luispaulodeoliveira@agrotm.com.br"),
		CORSOrigin:    getEnv("AMPLIFY_DOMAIN", "*"),
		EncryptionKey: encKey,
		Location:      loc,
		SweepInterval: sweep,

		SMSProvider:      strings.ToLower(getEnv("SMS_PROVIDER", "log")),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFrom:       getEnv("TWILIO_FROM_NUMBER", ""),
		EmailProvider:    strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
		ResendAPIKey:     getEnv("RESEND_API_KEY", ""),
		EmailFrom:        getEnv("EMAIL_FROM", "AgroSync <no-reply@agroisync.com>"),
	}, nil
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
