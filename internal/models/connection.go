package models

import "time"

// TokenState holds the OAuth credential and its expiry for one tenant's ERP
// connection. Values are immutable; every refresh produces a new state via
// WithTokens so concurrent readers never observe a half-written credential.
type TokenState struct {
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"-"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Authenticated reports whether the state carries an access token at all.
func (t TokenState) Authenticated() bool {
	return t.AccessToken != ""
}

// Usable reports whether the access token can be attached to a request right
// now. A missing expiry is treated as already expired.
func (t TokenState) Usable(now time.Time) bool {
	if t.AccessToken == "" || t.ExpiresAt.IsZero() {
		return false
	}
	return now.Before(t.ExpiresAt)
}

// WithTokens returns a copy of the state carrying a new token pair. The client
// credentials are preserved unchanged.
func (t TokenState) WithTokens(accessToken, refreshToken string, expiresAt time.Time) TokenState {
	next := t
	next.AccessToken = accessToken
	next.RefreshToken = refreshToken
	next.ExpiresAt = expiresAt
	return next
}

// BlingConnection is the persisted ERP connection row for one tenant.
type BlingConnection struct {
	CompanyID string `json:"company_id"`
	TokenState
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Configured reports whether the tenant has client credentials set up.
func (c *BlingConnection) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}
