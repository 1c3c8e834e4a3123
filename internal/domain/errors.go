package domain

import (
	"errors"
	"fmt"
)

// ErrProviderUnavailable means the places provider credential is missing or
// rejected. It fails the current resolution only.
var ErrProviderUnavailable = errors.New("places provider unavailable")

// ErrMalformedRecord marks a record without usable coordinates. Such records
// are skipped, never returned to callers.
var ErrMalformedRecord = errors.New("malformed record")

// ErrDetailLoadFailed wraps failures of the lazy review fetch behind a popup.
var ErrDetailLoadFailed = errors.New("detail load failed")

// ProviderError is a non-success answer from the upstream provider.
type ProviderError struct {
	StatusCode int    // HTTP status of the upstream response
	Status     string // provider status, e.g. "OVER_QUERY_LIMIT"
	Message    string
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("places provider error: status %d", e.StatusCode)
	if e.Status != "" {
		msg += " " + e.Status
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// NetworkError is a transport-level failure talking to a remote dependency.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
