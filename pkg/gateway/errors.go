package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the structured failure returned for every unsuccessful call.
// Status is 0 when the request never got a response.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("gateway: %s %s: %v", e.Method, e.Path, e.Err)
	case e.Message != "":
		return fmt.Sprintf("gateway: %s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("gateway: %s %s: %d: %v", e.Method, e.Path, e.Status, e.Err)
	default:
		return fmt.Sprintf("gateway: %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a backend 401 or 403.
func IsUnauthorized(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Message returns the text to show the user for err: the backend's message
// when there is one, fallback otherwise.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
