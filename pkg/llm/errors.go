package llm

import (
	"errors"
	"fmt"
)

// Error kinds are deliberately distinguishable so the loop controller can
// pick a retry policy per kind: connection-level failures match
// ErrUnavailable, deadline expiry keeps matching context.DeadlineExceeded,
// HTTP-level failures are *StatusError, and undecodable or response-less
// bodies match ErrMalformedResponse.
var (
	ErrUnavailable       = errors.New("model endpoint unavailable")
	ErrMalformedResponse = errors.New("malformed model response")
)

// StatusError reports a non-2xx reply from the model endpoint.
type StatusError struct {
	StatusCode int
	Body       string // excerpt, capped at bodyExcerptLimit
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("model endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("model endpoint returned status %d: %s", e.StatusCode, e.Body)
}
