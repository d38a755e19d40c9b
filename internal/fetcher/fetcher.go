// Package fetcher retrieves wine pages over HTTP and reduces them to text for
// pattern extraction.
package fetcher

import (
	"context"
	"fmt"

	"github.com/sells-group/cellar-cli/internal/resilience"
)

// Fetcher returns the readable text of a page.
type Fetcher interface {
	Page(ctx context.Context, url string) (string, error)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetcher: unexpected status %d from %s", e.Code, e.URL)
}

// statusErr returns a StatusError, marked transient when the status is
// worth retrying.
func statusErr(url string, code int) error {
	err := &StatusError{URL: url, Code: code}
	if resilience.RetryableStatus(code) {
		return resilience.Transient(err, code)
	}
	return err
}
