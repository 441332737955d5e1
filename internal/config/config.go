package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	Audit  AuditConfig
}

type ServerConfig struct {
	Port    string
	AppName string
}

type AuditConfig struct {
	// Cron expression for the status-drift audit. Empty disables the job.
	Schedule string
}

// Load reads .env (when present) and materializes the configuration from the
// environment. Database settings stay in pkg/database since they are
// consumed only there.
func Load() *Config {
	// Missing .env files are fine; config may come from the environment directly.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "3000"),
			AppName: getEnv("APP_NAME", "Stock2Coat API v1.0"),
		},
		Audit: AuditConfig{
			Schedule: getEnv("AUDIT_SCHEDULE", "0 6 * * *"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
