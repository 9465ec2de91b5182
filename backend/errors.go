package backend

import (
	"errors"
	"fmt"
)

// APIError is a failure the backend reported in its own words.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Message)
}

// UserMessage is the backend's error text, shown verbatim.
func (e *APIError) UserMessage() string { return e.Message }

// TransportError is a failure to reach the backend or to read its reply.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage is the underlying error text.
func (e *TransportError) UserMessage() string { return e.Err.Error() }

// IsAPIError reports whether err came from the backend itself.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
