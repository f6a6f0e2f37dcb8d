package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SyncType identifies which ERP entity a run synchronizes.
type SyncType string

const (
	SyncTypeOrders    SyncType = "orders"
	SyncTypeProducts  SyncType = "products"
	SyncTypeCustomers SyncType = "customers"
	SyncTypeAll       SyncType = "all"
)

// Valid reports whether the sync type is one of the known values.
func (t SyncType) Valid() bool {
	switch t {
	case SyncTypeOrders, SyncTypeProducts, SyncTypeCustomers, SyncTypeAll:
		return true
	}
	return false
}

// EntityTypes expands the sync type into the concrete entity types it covers.
func (t SyncType) EntityTypes() []SyncType {
	if t == SyncTypeAll {
		return []SyncType{SyncTypeOrders, SyncTypeProducts, SyncTypeCustomers}
	}
	return []SyncType{t}
}

// SyncStatus is the lifecycle state of a sync run.
type SyncStatus string

const (
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
	SyncStatusCancelled  SyncStatus = "cancelled"
)

// Terminal reports whether the status ends a run.
func (s SyncStatus) Terminal() bool {
	switch s {
	case SyncStatusCompleted, SyncStatusFailed, SyncStatusCancelled:
		return true
	}
	return false
}

// SyncItemResult records the outcome of a single record within a run.
type SyncItemResult struct {
	ID     string          `json:"id"`
	Status string          `json:"status"` // success | error
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// SyncResult is the per-entity-type tally of item outcomes for a run.
type SyncResult map[SyncType][]SyncItemResult

// SyncOptions are the caller-supplied parameters of a run.
type SyncOptions struct {
	Since    *time.Time `json:"since,omitempty"`
	PageSize int        `json:"page_size,omitempty"`
}

// SyncLog is one persisted sync run. Created before any remote call so every
// attempt is observable; counters only grow while the run is in progress.
type SyncLog struct {
	ID             string         `json:"id"`
	CompanyID      string         `json:"company_id"`
	SyncType       SyncType       `json:"sync_type"`
	Status         SyncStatus     `json:"status"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Options        SyncOptions    `json:"options"`
	Result         SyncResult     `json:"result,omitempty"`
	TotalProcessed int            `json:"total_processed"`
	TotalSuccess   int            `json:"total_success"`
	TotalErrors    int            `json:"total_errors"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// RecordItem appends an item outcome under the given entity type and bumps the
// counters, keeping total_processed == total_success + total_errors.
func (l *SyncLog) RecordItem(entityType SyncType, item SyncItemResult) {
	if l.Result == nil {
		l.Result = make(SyncResult)
	}
	l.Result[entityType] = append(l.Result[entityType], item)
	l.TotalProcessed++
	if item.Status == "error" {
		l.TotalErrors++
	} else {
		l.TotalSuccess++
	}
}

// Complete transitions the run into a terminal state, stamping CompletedAt
// exactly once. Transitions out of a terminal state are rejected.
func (l *SyncLog) Complete(status SyncStatus, now time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}
	if l.Status.Terminal() {
		return fmt.Errorf("sync log %s already %s", l.ID, l.Status)
	}
	l.Status = status
	completedAt := now
	l.CompletedAt = &completedAt
	return nil
}

// CountersConsistent reports whether the tally invariant holds.
func (l *SyncLog) CountersConsistent() bool {
	return l.TotalProcessed == l.TotalSuccess+l.TotalErrors
}

// Duration returns the run duration, zero while the run is still open.
func (l *SyncLog) Duration() time.Duration {
	if l.CompletedAt == nil {
		return 0
	}
	return l.CompletedAt.Sub(l.StartedAt)
}

// SyncLogFilter narrows sync log listings.
type SyncLogFilter struct {
	Status SyncStatus
	Limit  int
}

// SyncSummary is the final outcome returned by a run.
type SyncSummary struct {
	Success bool `json:"success"`
	Synced  int  `json:"synced"`
	Errors  int  `json:"errors"`
}
