package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB    int    `mapstructure:"REDIS_CACHE_DB"`
	RedisTrackerDB  int    `mapstructure:"REDIS_TRACKER_DB"`
	RedisSweepQueue int    `mapstructure:"REDIS_SWEEP_QUEUE_DB"`

	// Google Maps API key for the routing/ETA provider.
	GoogleAPIKey string `mapstructure:"GOOGLE_API_KEY"`

	// Wallet owner id of the platform escrow account.
	PlatformWalletID string `mapstructure:"PLATFORM_WALLET_ID"`

	Booking BookingConfig `mapstructure:",squash"`
}

// BookingConfig carries every tunable of the booking lifecycle engine.
type BookingConfig struct {
	StandardRateMinutes      int     `mapstructure:"STANDARD_RATE_MINUTES"`
	GracePeriodMinutes       int     `mapstructure:"GRACE_PERIOD_MINUTES"`
	ApproachRadiusMeters     float64 `mapstructure:"APPROACH_RADIUS_METERS"`
	ArrivalRadiusMeters      float64 `mapstructure:"ARRIVAL_RADIUS_METERS"`
	ExitRadiusMeters         float64 `mapstructure:"EXIT_RADIUS_METERS"`
	ExitDwellSeconds         int     `mapstructure:"EXIT_DWELL_SECONDS"`
	ExitConfirmationSamples  int     `mapstructure:"EXIT_CONFIRMATION_SAMPLES"`
	PlatformCommission       float64 `mapstructure:"PLATFORM_COMMISSION_FRACTION"`
	ServiceFeeFlat           float64 `mapstructure:"SERVICE_FEE_FLAT"`
	ServiceFeeFraction       float64 `mapstructure:"SERVICE_FEE_FRACTION"`
	SurgePlatformShare       float64 `mapstructure:"DYNAMIC_SURGE_PLATFORM_SHARE"`
	LandlordOvertimeShare    float64 `mapstructure:"LANDLORD_OVERTIME_SHARE"`
	CancelRefundFullHours    int     `mapstructure:"CANCEL_REFUND_FULL_HOURS"`
	CancelRefundHalfHours    int     `mapstructure:"CANCEL_REFUND_HALF_HOURS"`
	CheckoutWindowAfterHours int     `mapstructure:"CHECKOUT_WINDOW_HOURS_AFTER_END"`
	PendingBookingTTLMinutes int     `mapstructure:"PENDING_BOOKING_TTL_MINUTES"`
	TrackerStaleMinutes      int     `mapstructure:"TRACKER_STALE_MINUTES"`
	AbandonmentPenalty       float64 `mapstructure:"ABANDONMENT_PENALTY"`
	FallbackTravelMinutes    int     `mapstructure:"FALLBACK_TRAVEL_MINUTES"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_TRACKER_DB", 1)
	viper.SetDefault("REDIS_SWEEP_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "parkly")
	viper.SetDefault("GOOGLE_API_KEY", "")
	viper.SetDefault("PLATFORM_WALLET_ID", "platform")

	viper.SetDefault("STANDARD_RATE_MINUTES", 180)
	viper.SetDefault("GRACE_PERIOD_MINUTES", 15)
	viper.SetDefault("APPROACH_RADIUS_METERS", 500)
	viper.SetDefault("ARRIVAL_RADIUS_METERS", 50)
	viper.SetDefault("EXIT_RADIUS_METERS", 100)
	viper.SetDefault("EXIT_DWELL_SECONDS", 60)
	viper.SetDefault("EXIT_CONFIRMATION_SAMPLES", 2)
	viper.SetDefault("PLATFORM_COMMISSION_FRACTION", 0.10)
	viper.SetDefault("SERVICE_FEE_FLAT", 5)
	viper.SetDefault("SERVICE_FEE_FRACTION", 0.03)
	viper.SetDefault("DYNAMIC_SURGE_PLATFORM_SHARE", 0.50)
	viper.SetDefault("LANDLORD_OVERTIME_SHARE", 0.85)
	viper.SetDefault("CANCEL_REFUND_FULL_HOURS", 24)
	viper.SetDefault("CANCEL_REFUND_HALF_HOURS", 2)
	viper.SetDefault("CHECKOUT_WINDOW_HOURS_AFTER_END", 2)
	viper.SetDefault("PENDING_BOOKING_TTL_MINUTES", 30)
	viper.SetDefault("TRACKER_STALE_MINUTES", 10)
	viper.SetDefault("ABANDONMENT_PENALTY", 50)
	viper.SetDefault("FALLBACK_TRAVEL_MINUTES", 30)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// DefaultBookingConfig returns the stock engine tunables without touching viper.
// Used by services and tests that run without a loaded config file.
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		StandardRateMinutes:      180,
		GracePeriodMinutes:       15,
		ApproachRadiusMeters:     500,
		ArrivalRadiusMeters:      50,
		ExitRadiusMeters:         100,
		ExitDwellSeconds:         60,
		ExitConfirmationSamples:  2,
		PlatformCommission:       0.10,
		ServiceFeeFlat:           5,
		ServiceFeeFraction:       0.03,
		SurgePlatformShare:       0.50,
		LandlordOvertimeShare:    0.85,
		CancelRefundFullHours:    24,
		CancelRefundHalfHours:    2,
		CheckoutWindowAfterHours: 2,
		PendingBookingTTLMinutes: 30,
		TrackerStaleMinutes:      10,
		AbandonmentPenalty:       50,
		FallbackTravelMinutes:    30,
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
