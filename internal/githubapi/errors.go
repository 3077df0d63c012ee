package githubapi

import (
	"errors"
	"fmt"
)

// ErrAccessDenied means the repository could not be reached with the current
// credentials; it is fatal to the run that needed it, not to the process.
var ErrAccessDenied = errors.New("repository access denied")

// ErrRateLimited is returned when the API rejected a request for rate
// limiting even after the single automatic retry.
var ErrRateLimited = errors.New("rate limit exceeded")

// RequestFailedError is any non-2xx, non-rate-limit response. It is not
// retried by the client; callers decide how to handle it.
type RequestFailedError struct {
	Status int
	Body   string
}

func (e *RequestFailedError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, body)
}
