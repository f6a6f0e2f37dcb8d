package models

// SyncStats is a derived, read-only aggregate over a tenant's sync runs within
// a trailing window. Computed from sync_logs rows, never persisted.
type SyncStats struct {
	CompanyID          string  `json:"company_id"`
	WindowDays         int     `json:"window_days"`
	TotalRuns          int     `json:"total_runs"`
	Completed          int     `json:"completed"`
	Failed             int     `json:"failed"`
	Cancelled          int     `json:"cancelled"`
	InProgress         int     `json:"in_progress"`
	TotalProcessed     int     `json:"total_processed"`
	TotalErrors        int     `json:"total_errors"`
	SuccessRate        float64 `json:"success_rate"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
}
