package platform

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RemoteAuthorizer asks the hosting platform whether a user may act on a
// company. Membership policy lives in the platform; this is only the boundary
// call.
type RemoteAuthorizer struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewRemoteAuthorizer creates an authorizer backed by the platform API.
func NewRemoteAuthorizer(baseURL string, logger *logrus.Logger) *RemoteAuthorizer {
	return &RemoteAuthorizer{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// CanAccessCompany reports whether the user is a member of the company.
func (a *RemoteAuthorizer) CanAccessCompany(ctx context.Context, userID, companyID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	url := fmt.Sprintf("%s/users/%s/companies/%s", a.baseURL, userID, companyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create authorization request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("authorization request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusForbidden, http.StatusNotFound:
		return false, nil
	default:
		a.logger.WithFields(logrus.Fields{
			"company_id": companyID,
			"status":     resp.StatusCode,
		}).Error("Unexpected response from platform authorization")
		return false, fmt.Errorf("unexpected authorization response: %d", resp.StatusCode)
	}
}

// AllowAllAuthorizer accepts any non-empty user. For local development only.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) CanAccessCompany(_ context.Context, userID, _ string) (bool, error) {
	return userID != "", nil
}
