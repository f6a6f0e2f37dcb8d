package models

import "time"

// Activity is an audit record written when a user-visible action touches the
// ERP connection or triggers a sync.
type Activity struct {
	ID        string         `json:"id"`
	CompanyID string         `json:"company_id"`
	UserID    string         `json:"user_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
