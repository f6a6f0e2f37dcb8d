package config

import "time"

// BlingConfig holds Bling API configuration
type BlingConfig struct {
	APIBaseURL     string
	TokenURL       string
	RequestTimeout time.Duration
}

// DefaultBlingConfig returns the default Bling configuration
func DefaultBlingConfig() *BlingConfig {
	return &BlingConfig{
		APIBaseURL:     "https://www.bling.com.br/Api/v3",
		TokenURL:       "https://www.bling.com.br/Api/v3/oauth/token",
		RequestTimeout: 30 * time.Second,
	}
}
