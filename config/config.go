package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB       int    `mapstructure:"REDIS_CACHE_DB"`
	RedisDispatchDB    int    `mapstructure:"REDIS_DISPATCH_DB"`
	RedisIdempotencyDB int    `mapstructure:"REDIS_IDEMPOTENCY_DB"`
	RedisGeoDB         int    `mapstructure:"REDIS_GEO_DB"`
	RedisQueueDB       int    `mapstructure:"REDIS_QUEUE_DB"`

	// Dispatch coordinator.
	DispatchWindowSecs  int     `mapstructure:"DISPATCH_WINDOW_SECS"`
	DispatchMaxRetries  int     `mapstructure:"DISPATCH_MAX_RETRIES"`
	SearchRadiusKm      float64 `mapstructure:"SEARCH_RADIUS_KM"`
	DispatchMaxRanked   int     `mapstructure:"DISPATCH_MAX_RANKED"`
	DispatchRetryMillis int     `mapstructure:"DISPATCH_RETRY_MILLIS"`

	// OTP subsystem.
	OTPLength      int `mapstructure:"OTP_LENGTH"`
	OTPTTLMinutes  int `mapstructure:"OTP_TTL_MINUTES"`
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`

	// Pricing.
	Currency     string `mapstructure:"CURRENCY"`
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`

	// Firebase Cloud Messaging.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
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
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "lokals")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_DISPATCH_DB", 1)
	viper.SetDefault("REDIS_IDEMPOTENCY_DB", 2)
	viper.SetDefault("REDIS_GEO_DB", 3)
	viper.SetDefault("REDIS_QUEUE_DB", 4)
	viper.SetDefault("DISPATCH_WINDOW_SECS", 90)
	viper.SetDefault("DISPATCH_MAX_RETRIES", 3)
	viper.SetDefault("DISPATCH_RETRY_MILLIS", 250)
	viper.SetDefault("SEARCH_RADIUS_KM", 10.0)
	viper.SetDefault("DISPATCH_MAX_RANKED", 20)
	viper.SetDefault("OTP_LENGTH", 6)
	viper.SetDefault("OTP_TTL_MINUTES", 30)
	viper.SetDefault("OTP_MAX_ATTEMPTS", 5)
	viper.SetDefault("CURRENCY", "INR")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "serviceAccountKey.json")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// DispatchWindow returns the broadcast window as a duration.
func DispatchWindow() time.Duration {
	return time.Duration(AppConfig.DispatchWindowSecs) * time.Second
}

// OTPTTL returns the one-time code lifetime.
func OTPTTL() time.Duration {
	return time.Duration(AppConfig.OTPTTLMinutes) * time.Minute
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
