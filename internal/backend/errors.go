package backend

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is matched by StatusError for 404 answers.
	ErrNotFound = errors.New("backend: not found")

	// ErrUnavailable is matched by StatusError for 5xx answers.
	ErrUnavailable = errors.New("backend: unavailable")

	// ErrUnauthorized is matched by StatusError for 401 and 403 answers.
	ErrUnauthorized = errors.New("backend: unauthorized")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend %s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
}

// Is implements errors.Is support.
func (e *StatusError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return target == ErrNotFound
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return target == ErrUnauthorized
	case e.StatusCode >= 500:
		return target == ErrUnavailable
	}
	return false
}

// newStatusError builds a StatusError, keeping a short prefix of the body as
// the message. The endpoint is redacted the same way as log lines.
func newStatusError(method, url string, resp *http.Response) *StatusError {
	const maxMessage = 256
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxMessage))
	return &StatusError{
		Method:     method,
		Endpoint:   redactURL(url),
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}
