package config

import (
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/grantpath/grantpath/src/data"
)

// Base contains common configuration fields
type Base struct {
	MySQLDSN  string
	RedisURL  string
	JWTSecret string
	APIKey    string
	BindAddr  string
}

// LoadBase merges DB-stored settings over environment configuration.
func LoadBase(db *gorm.DB) Base {
	if db != nil {
		if err := data.LoadSettings(db); err != nil {
			log.Printf("config: load settings: %v", err)
		}
	}

	dsn, _ := data.GetMySQLDSN()
	return Base{
		MySQLDSN:  dsn,
		RedisURL:  GetSetting("redis_url", "REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret: GetSetting("jwt_secret", "JWT_SECRET", ""),
		APIKey:    GetSetting("api_key", "API_KEY", ""),
		BindAddr:  GetSetting("bind_addr", "BIND_ADDR", ":8080"),
	}
}

// GetSetting retrieves a setting with env fallback
func GetSetting(name, envKey, defaultValue string) string {
	val := data.GetSetting(name)
	if val == "" {
		val = os.Getenv(envKey)
	}
	if val == "" {
		val = defaultValue
	}
	return val
}
