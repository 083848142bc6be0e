package provider

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a provider call failed. The fallback cascade
// branches on this value instead of on error types.
type FailureKind string

const (
	FailureRateLimited    FailureKind = "rate_limited"
	FailureServerError    FailureKind = "server_error"
	FailureTimeout        FailureKind = "timeout"
	FailureInvalidRequest FailureKind = "invalid_request"
	FailureNetwork        FailureKind = "network_error"
	FailureUnknown        FailureKind = "unknown"
)

// Failure is the terminal result of a provider call that did not yield a
// valid JSON body, after retries were exhausted or a terminal condition hit.
// BodyPreview is truncated so failures stay safe to log.
type Failure struct {
	Kind        FailureKind
	Status      int
	BodyPreview string
	Err         error
}

func (f *Failure) Error() string {
	if f.Status > 0 {
		return fmt.Sprintf("provider call failed: %s (HTTP %d)", f.Kind, f.Status)
	}
	if f.Err != nil {
		return fmt.Sprintf("provider call failed: %s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("provider call failed: %s", f.Kind)
}

func (f *Failure) Unwrap() error { return f.Err }

// Retriable reports whether the failure kind indicates a transient upstream
// condition worth retrying.
func (f *Failure) Retriable() bool {
	switch f.Kind {
	case FailureRateLimited, FailureServerError, FailureTimeout:
		return true
	}
	return false
}

// AsFailure extracts a *Failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
