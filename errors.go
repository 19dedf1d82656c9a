package curator

import (
	"errors"
	"fmt"
)

// ErrIngestInProgress is returned when another process holds the ingest
// lease for the same canonical URL.
var ErrIngestInProgress = errors.New("ingestion of this URL is already in progress")

// FetchError reports a failure to obtain or parse the source document:
// network errors, timeouts, non-2xx answers and unsupported content types.
type FetchError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is, or wraps, a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
