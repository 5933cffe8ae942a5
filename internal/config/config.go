package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Pix      PixConfig
	Referral ReferralConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
}

// PixConfig holds PIX payment provider settings
type PixConfig struct {
	ProviderBaseURL string
	APIKey          string
	MerchantName    string
	MerchantCity    string
	MerchantKey     string
	MinDeposit      decimal.Decimal
	MaxDeposit      decimal.Decimal
	MinWithdrawal   decimal.Decimal
	MaxWithdrawal   decimal.Decimal
	WithdrawalFee   decimal.Decimal
}

// ReferralConfig holds the commission rate tables. Rates are percentages;
// InvestmentRates index 0 is the direct referrer. Deposits pay level 1 only.
type ReferralConfig struct {
	InvestmentRates []decimal.Decimal
	DepositRate     decimal.Decimal
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "investment_platform"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
			RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		},
		Pix: PixConfig{
			ProviderBaseURL: getEnv("PIX_PROVIDER_URL", "https://api.pixprovider.com.br"),
			APIKey:          getEnv("PIX_API_KEY", ""),
			MerchantName:    getEnv("PIX_MERCHANT_NAME", "INVESTMENT PLATFORM"),
			MerchantCity:    getEnv("PIX_MERCHANT_CITY", "SAO PAULO"),
			MerchantKey:     getEnv("PIX_MERCHANT_KEY", ""),
			MinDeposit:      getEnvDecimal("PIX_MIN_DEPOSIT", "10.00"),
			MaxDeposit:      getEnvDecimal("PIX_MAX_DEPOSIT", "50000.00"),
			MinWithdrawal:   getEnvDecimal("PIX_MIN_WITHDRAWAL", "20.00"),
			MaxWithdrawal:   getEnvDecimal("PIX_MAX_WITHDRAWAL", "50000.00"),
			WithdrawalFee:   getEnvDecimal("PIX_WITHDRAWAL_FEE", "2.50"),
		},
		Referral: ReferralConfig{
			InvestmentRates: []decimal.Decimal{
				getEnvDecimal("REFERRAL_LEVEL1_RATE", "8"),
				getEnvDecimal("REFERRAL_LEVEL2_RATE", "3"),
				getEnvDecimal("REFERRAL_LEVEL3_RATE", "1"),
			},
			DepositRate: getEnvDecimal("REFERRAL_DEPOSIT_RATE", "5"),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	if v, err := decimal.NewFromString(os.Getenv(key)); err == nil {
		return v
	}
	d, _ := decimal.NewFromString(defaultValue)
	return d
}
