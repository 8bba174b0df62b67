package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	JWTSecret                 string
	JWTRefreshSecret          string
	Database                  DatabaseConfig
	Stripe                    StripeConfig
	Billing                   BillingConfig
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	AppURL                    string
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// StripeConfig holds Stripe API configuration
type StripeConfig struct {
	SecretKey string
	Currency  string
}

// BillingConfig holds platform-wide billing policy values
type BillingConfig struct {
	// DefaultCommissionPercent applies when an appointment is not backed
	// by a product (generic doctor-fee bookings).
	DefaultCommissionPercent float64
	// GroupSessionFee is the fixed price of a group session booking.
	GroupSessionFee float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "telehealth"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	stripeConfig := StripeConfig{
		SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		Currency:  getEnv("STRIPE_CURRENCY", "usd"),
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	defaultCommission, err := strconv.ParseFloat(getEnv("DEFAULT_COMMISSION_PERCENT", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_COMMISSION_PERCENT: %w", err)
	}

	groupSessionFee, err := strconv.ParseFloat(getEnv("GROUP_SESSION_FEE", "25"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GROUP_SESSION_FEE: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:             getEnv("PORT", "3001"),
		Origin:           getEnv("ORIGIN", "http://localhost:4200"),
		Environment:      getEnv("APP_ENV", "development"),
		JWTSecret:        getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		Database:         dbConfig,
		Stripe:           stripeConfig,
		Billing: BillingConfig{
			DefaultCommissionPercent: defaultCommission,
			GroupSessionFee:          groupSessionFee,
		},
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		AppURL:                    getEnv("APP_URL", "http://localhost:3001"),
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
