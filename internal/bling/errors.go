package bling

import "fmt"

// APIError is a non-2xx response from the Bling API, normalized into a typed
// failure instead of a raw HTTP error.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("bling API error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("bling API error (status %d): %s", e.StatusCode, e.Message)
}

// NewAPIError creates a new APIError with the given status code and detail
func NewAPIError(statusCode int, code, message string) error {
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}
