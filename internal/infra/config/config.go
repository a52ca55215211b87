package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"volume_guard_worker/internal/clock"
)

// AppConfig holds all configuration for the worker
type AppConfig struct {
	StripeSecretKey          string
	StripeSecretKeyEncrypted string
	EncryptionSecretKey      string
	AccountID                string
	DailyLimit               decimal.Decimal
	Currency                 string
	AccountTimezone          string
	DelayCycleDays           []int
	NewDateTime              clock.TimeOfDay
	DryRun                   bool
	TelegramToken            string
	TelegramChatID           int64
	TransferLogURL           string
	GatewaySecret            string
	DatabaseURL              string
	HTTPAddr                 string
	CronSpecTick             string
	CronSpecReset            string
	TickTimeout              time.Duration
	LookupConcurrency        int
	LogLevel                 string
	Environment              string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Errors are ignored if the file doesn't exist; existing env variables win.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.StripeSecretKey = strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY"))
	cfg.StripeSecretKeyEncrypted = strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY_ENCRYPTED"))
	cfg.EncryptionSecretKey = strings.TrimSpace(os.Getenv("ENCRYPTION_SECRET_KEY"))
	if cfg.StripeSecretKey == "" && cfg.StripeSecretKeyEncrypted == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is not set")
	}
	if cfg.StripeSecretKey == "" && len(cfg.EncryptionSecretKey) != 64 {
		return nil, fmt.Errorf("ENCRYPTION_SECRET_KEY must be a 64-character hex string when STRIPE_SECRET_KEY_ENCRYPTED is used")
	}

	cfg.AccountID = os.Getenv("STRIPE_ACCOUNT_ID")

	limitStr := getenvDefault("DAILY_LIMIT", "30")
	cfg.DailyLimit, err = decimal.NewFromString(limitStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DAILY_LIMIT: %w", err)
	}
	if !cfg.DailyLimit.IsPositive() {
		return nil, fmt.Errorf("invalid DAILY_LIMIT: must be positive, got %s", limitStr)
	}

	cfg.Currency = strings.ToLower(getenvDefault("ACCOUNT_CURRENCY", "aed"))

	cfg.AccountTimezone = getenvDefault("ACCOUNT_TIMEZONE", "Etc/GMT-4")
	if _, err := time.LoadLocation(cfg.AccountTimezone); err != nil {
		return nil, fmt.Errorf("invalid ACCOUNT_TIMEZONE: %w", err)
	}

	cfg.DelayCycleDays, err = ParseDelayCycle(getenvDefault("DELAY_CYCLE_DAYS", "1,3,5,7,9"))
	if err != nil {
		return nil, fmt.Errorf("invalid DELAY_CYCLE_DAYS: %w", err)
	}

	cfg.NewDateTime, err = clock.ParseTimeOfDay(getenvDefault("NEW_DATE_TIME", "12:00:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid NEW_DATE_TIME: %w", err)
	}

	if v := os.Getenv("DRY_RUN"); v != "" {
		cfg.DryRun, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DRY_RUN: %w", err)
		}
	}

	// Telegram is optional; alerts become no-ops without it.
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if chatIDStr := os.Getenv("TELEGRAM_CHAT_ID"); chatIDStr != "" {
		cfg.TelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}

	cfg.TransferLogURL = os.Getenv("TRANSFER_LOG_URL")
	cfg.GatewaySecret = os.Getenv("GATEWAY_SECRET")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", "0.0.0.0:3005")
	cfg.CronSpecTick = getenvDefault("CRON_SPEC_TICK", "* * * * *")   // every minute
	cfg.CronSpecReset = getenvDefault("CRON_SPEC_RESET", "0 0 * * *") // midnight, account time

	cfg.TickTimeout, err = time.ParseDuration(getenvDefault("TICK_TIMEOUT", "50s"))
	if err != nil || cfg.TickTimeout <= 0 {
		return nil, fmt.Errorf("invalid TICK_TIMEOUT: %q", os.Getenv("TICK_TIMEOUT"))
	}

	cfg.LookupConcurrency, err = strconv.Atoi(getenvDefault("LOOKUP_CONCURRENCY", "8"))
	if err != nil || cfg.LookupConcurrency <= 0 {
		return nil, fmt.Errorf("invalid LOOKUP_CONCURRENCY: %q", os.Getenv("LOOKUP_CONCURRENCY"))
	}

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getenvDefault("ENVIRONMENT", "development"))

	return cfg, nil
}

// ParseDelayCycle parses a comma-separated list of positive day offsets.
func ParseDelayCycle(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	cycle := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("offset %q is not a number", p)
		}
		if n <= 0 {
			return nil, fmt.Errorf("offset %d must be positive", n)
		}
		cycle = append(cycle, n)
	}
	if len(cycle) == 0 {
		return nil, fmt.Errorf("at least one offset is required")
	}
	return cycle, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
