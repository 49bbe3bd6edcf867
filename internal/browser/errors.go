package browser

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotConnected is returned when the shared page is used before
// Connect has succeeded.
var ErrNotConnected = errors.New("browser: not connected")

// ConnectionError reports a failed Chrome launch or page creation.
// Partially created resources are already cleaned up when it surfaces.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("browser connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NavKind classifies navigation failures so callers can report a
// specific, actionable message.
type NavKind int

const (
	NavFailed NavKind = iota
	NavInvalidScheme
	NavMalformedURL
	NavTimeout
	NavNetwork
)

// NavigationError describes a failed page navigation.
type NavigationError struct {
	Kind    NavKind
	URL     string
	Scheme  string        // set for NavInvalidScheme
	Timeout time.Duration // set for NavTimeout
	Err     error
}

func (e *NavigationError) Error() string {
	switch e.Kind {
	case NavInvalidScheme:
		return fmt.Sprintf("cannot navigate to %s: scheme %q is not supported (only http and https)", e.URL, e.Scheme)
	case NavMalformedURL:
		return fmt.Sprintf("cannot navigate to %q: malformed URL: %v", e.URL, e.Err)
	case NavTimeout:
		return fmt.Sprintf("navigation to %s timed out after %s", e.URL, e.Timeout)
	case NavNetwork:
		return fmt.Sprintf("navigation to %s failed at the network level: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
	}
}

func (e *NavigationError) Unwrap() error { return e.Err }
