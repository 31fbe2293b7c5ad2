package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the GitHub REST API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	hint := ""
	switch e.StatusCode {
	case http.StatusUnauthorized:
		hint = " (check token validity and expiration)"
	case http.StatusForbidden:
		hint = " (check App permissions or rate limit)"
	}
	return fmt.Sprintf("github %s %s: status %d: %s%s", e.Method, e.Path, e.StatusCode, e.Message, hint)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func newAPIError(req *http.Request, statusCode int, body []byte) *APIError {
	e := &APIError{StatusCode: statusCode, Method: req.Method, Path: req.URL.Path}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		e.Message = payload.Message
	} else {
		e.Message = http.StatusText(statusCode)
	}
	return e
}
