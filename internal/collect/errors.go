package collect

import (
	"fmt"
	"net/http"
)

// SourceFetchError reports a source that could not be fetched or parsed.
// The run skips the source and continues.
type SourceFetchError struct {
	Source string
	URL    string
	Err    error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("source %s (%s): %v", e.Source, e.URL, e.Err)
}

func (e *SourceFetchError) Unwrap() error {
	return e.Err
}

// StatusError is returned for any non-200 response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
}
