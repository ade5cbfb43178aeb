package api

import (
	"errors"
	"fmt"
)

// ErrUnknownDomain is returned for a domain other than enterprise, mobile or pre-attack
var ErrUnknownDomain = errors.New("unknown ATT&CK domain")

// StatusError reports a non-200 response from a dataset location
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}
