package wbapi

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrBodyTooLarge is returned when a response body exceeds the read limit.
// Callers see it wrapped as "wbapi: GET <endpoint>: ...".
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("wbapi: GET %s: unexpected status %d", e.Endpoint, e.StatusCode)
}

// IsTimeout reports whether err was caused by the request exceeding its
// deadline, either the client timeout or one set on the caller's context.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
