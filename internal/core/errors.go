package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a plan, tenant or invoice does not exist.
var ErrNotFound = errors.New("not found")

// ConflictError reports a unique-constraint violation on plan codes,
// tenant codes, database names or domain slugs.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// ValidationError reports a missing or malformed field on a direct
// user action. Nothing is written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransientProbeError wraps a failed or timed-out TCP probe. It is
// expected during fleet batches and never aborts them.
type TransientProbeError struct {
	Address string
	Err     error
}

func (e *TransientProbeError) Error() string {
	return fmt.Sprintf("probe %s failed: %v", e.Address, e.Err)
}

func (e *TransientProbeError) Unwrap() error { return e.Err }

// TransientFetchError wraps a failed usage fetch from a tenant's own
// data store. Expected during fleet batches, never fatal.
type TransientFetchError struct {
	TenantCode string
	Err        error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("usage fetch for %s failed: %v", e.TenantCode, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// DependencyError reports a failure of the accounting collaborator.
// The caller sees it synchronously; no invoice is created.
type DependencyError struct {
	System string
	Err    error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.System, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }
