package search

import (
	"errors"
	"fmt"
)

// ErrAnchorMode is returned by the list engine for single-hotel searches.
var ErrAnchorMode = errors.New("single-hotel search has no paginated list")

// UpstreamError reports a failed call to the upstream API.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("upstream %s: status %d", e.Op, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
