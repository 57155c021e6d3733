package netclient

import (
	"errors"
	"fmt"
	"time"
)

// ErrTransport matches every failure produced by the client, timeouts included.
var ErrTransport = errors.New("transport error")

// NetworkError reports an HTTP status >= 400 or a failed transport.
type NetworkError struct {
	URL    string
	Status int
	Body   string
	Cause  error
}

func (e *NetworkError) Error() string {
	if e.Status > 0 {
		if e.Body == "" {
			return fmt.Sprintf("request to %s failed with status %d", e.URL, e.Status)
		}
		return fmt.Sprintf("request to %s failed with status %d: %s", e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

func (e *NetworkError) Is(target error) bool { return target == ErrTransport }

// TimeoutError reports a request that did not complete within its deadline.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out after %s", e.URL, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTransport }

// IsTimeout reports whether err is, or wraps, a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
