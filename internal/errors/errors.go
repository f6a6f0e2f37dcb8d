package errors

import (
	"errors"
	"fmt"
)

// AuthExchangeError indicates the ERP rejected an authorization code. The
// exchange is never retried; the tenant must restart the OAuth flow.
type AuthExchangeError struct {
	CompanyID string
	Message   string
	Err       error
}

func (e *AuthExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authorization code exchange failed for company %s: %s: %v", e.CompanyID, e.Message, e.Err)
	}
	return fmt.Sprintf("authorization code exchange failed for company %s: %s", e.CompanyID, e.Message)
}

func (e *AuthExchangeError) Unwrap() error {
	return e.Err
}

// RefreshError indicates the stored refresh token is absent or was rejected.
// Fatal for the current token state; the tenant must re-authorize.
type RefreshError struct {
	CompanyID string
	Err       error
}

func (e *RefreshError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token refresh failed for company %s: %v", e.CompanyID, e.Err)
	}
	return fmt.Sprintf("token refresh failed for company %s: no refresh token available", e.CompanyID)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// FetchError indicates a page request itself failed during a sync run. Aborts
// the run; the run is marked failed with this error's message.
type FetchError struct {
	Endpoint string
	Page     int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s page %d: %v", e.Endpoint, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ItemPersistError indicates a single record failed to save. Recorded in the
// run result; the run continues.
type ItemPersistError struct {
	EntityType string
	ItemID     string
	Err        error
}

func (e *ItemPersistError) Error() string {
	return fmt.Sprintf("failed to persist %s %s: %v", e.EntityType, e.ItemID, e.Err)
}

func (e *ItemPersistError) Unwrap() error {
	return e.Err
}

// ConfigurationError indicates a precondition is not met: no credentials
// configured, or no active connection for the tenant.
type ConfigurationError struct {
	CompanyID string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("bling connection not configured for company %s: %s", e.CompanyID, e.Reason)
}

// AccessDeniedError indicates the tenant-authorization check failed at the
// boundary.
type AccessDeniedError struct {
	UserID    string
	CompanyID string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("user %s has no access to company %s", e.UserID, e.CompanyID)
}

// SyncInProgressError indicates a sync run for the same company and type is
// already active.
type SyncInProgressError struct {
	CompanyID string
	SyncType  string
}

func (e *SyncInProgressError) Error() string {
	return fmt.Sprintf("sync already running for company %s (type %s)", e.CompanyID, e.SyncType)
}

// NotFoundError indicates a requested resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsAuthExchange checks if the error is an authorization code exchange error.
func IsAuthExchange(err error) bool {
	var target *AuthExchangeError
	return errors.As(err, &target)
}

// IsRefresh checks if the error is a token refresh error.
func IsRefresh(err error) bool {
	var target *RefreshError
	return errors.As(err, &target)
}

// IsFetch checks if the error is a page fetch error.
func IsFetch(err error) bool {
	var target *FetchError
	return errors.As(err, &target)
}

// IsItemPersist checks if the error is a single-record persistence error.
func IsItemPersist(err error) bool {
	var target *ItemPersistError
	return errors.As(err, &target)
}

// IsConfiguration checks if the error is a missing-configuration error.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsAccessDenied checks if the error is an authorization failure.
func IsAccessDenied(err error) bool {
	var target *AccessDeniedError
	return errors.As(err, &target)
}

// IsSyncInProgress checks if the error is a duplicate active run rejection.
func IsSyncInProgress(err error) bool {
	var target *SyncInProgressError
	return errors.As(err, &target)
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
