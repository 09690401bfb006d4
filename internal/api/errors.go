package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"kairon/internal/models"
)

// ErrTransport marks failures where no HTTP response was received.
var ErrTransport = errors.New("transport error")

// APIError is a non-2xx response from the backend.
// Message is the backend's own text when the body carried one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("kairon api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("kairon api returned %d: %s", e.StatusCode, e.Message)
}

// parseAPIError extracts the backend message from a `message` or `error` field.
// Bodies that are not JSON objects leave Message empty.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return apiErr
	}
	switch {
	case strings.TrimSpace(payload.Message) != "":
		apiErr.Message = strings.TrimSpace(payload.Message)
	case strings.TrimSpace(payload.Error) != "":
		apiErr.Message = strings.TrimSpace(payload.Error)
	}
	return apiErr
}

// UserMessage is the text shown to a person when an operation fails.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return models.GenericFailureMessage
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
