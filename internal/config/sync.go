package config

import "time"

// SyncConfig holds synchronization configuration
type SyncConfig struct {
	PageSize    int
	RunTimeout  time.Duration
	StatsWindow int
}

// DefaultSyncConfig returns the default sync configuration
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		PageSize:    100,
		RunTimeout:  30 * time.Minute,
		StatsWindow: 30,
	}
}
