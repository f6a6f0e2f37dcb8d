package config

import (
	"os"
)

type Config struct {
	Port               string
	DBConnectionString string
	PlatformAuthURL    string
	Bling              *BlingConfig
	Sync               *SyncConfig
}

func Load() (*Config, error) {
	bling := DefaultBlingConfig()
	if base := getEnv("BLING_API_BASE_URL", ""); base != "" {
		bling.APIBaseURL = base
	}
	if tokenURL := getEnv("BLING_TOKEN_URL", ""); tokenURL != "" {
		bling.TokenURL = tokenURL
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DBConnectionString: getEnv("DB_CONNECTION_STRING", ""),
		PlatformAuthURL:    getEnv("PLATFORM_AUTH_URL", ""),
		Bling:              bling,
		Sync:               DefaultSyncConfig(),
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
