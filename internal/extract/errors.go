package extract

import (
	"context"
	"errors"
	"net"
)

// ErrNoProvider is returned when no provider with an API key is configured
var ErrNoProvider = errors.New("no provider configured")

// IsTimeout reports whether err came from a deadline rather than from the provider
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsCanceled reports whether err came from the caller canceling the call
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
