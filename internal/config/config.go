package config

import (
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	DashboardURL      string `mapstructure:"DASHBOARD_URL"`
	PostgresURL       string `mapstructure:"POSTGRES_URL"`
	RedisAddr         string `mapstructure:"REDIS_ADDR"`
	ServerPort        string `mapstructure:"SERVER_PORT"`
	CredentialService string `mapstructure:"CREDENTIAL_SERVICE"`

	LoginTimeout      int `mapstructure:"LOGIN_TIMEOUT"`       // seconds
	NavTimeout        int `mapstructure:"NAV_TIMEOUT"`         // seconds
	TableWaitAttempts int `mapstructure:"TABLE_WAIT_ATTEMPTS"` // polls before giving up on populated data
	TableWaitInterval int `mapstructure:"TABLE_WAIT_INTERVAL"` // seconds between polls
	RunGuardTTL       int `mapstructure:"RUN_GUARD_TTL"`       // hours; 0 disables the guard even with redis

	ScreenshotDir      string `mapstructure:"SCREENSHOT_DIR"`
	Headless           bool   `mapstructure:"HEADLESS"`
	UserAgent          string `mapstructure:"USER_AGENT"`
	AbortOnInsertError bool   `mapstructure:"ABORT_ON_INSERT_ERROR"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	// Set default values
	viper.SetDefault("DASHBOARD_URL", "https://sys.callpotential.com/ui/v2/dashboard")
	viper.SetDefault("POSTGRES_URL", "")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("CREDENTIAL_SERVICE", "CallPotential")
	viper.SetDefault("LOGIN_TIMEOUT", 30)
	viper.SetDefault("NAV_TIMEOUT", 30)
	viper.SetDefault("TABLE_WAIT_ATTEMPTS", 20)
	viper.SetDefault("TABLE_WAIT_INTERVAL", 3)
	viper.SetDefault("RUN_GUARD_TTL", 12)
	viper.SetDefault("SCREENSHOT_DIR", ".")
	viper.SetDefault("HEADLESS", true)
	viper.SetDefault("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	viper.SetDefault("ABORT_ON_INSERT_ERROR", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
