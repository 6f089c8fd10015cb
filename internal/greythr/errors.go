// Package greythr talks to the GreytHR HR API: per-tenant token
// lifecycle, roster paging and sync, and leave queries.
package greythr

import "fmt"

// AuthError indicates the tenant could not be authenticated against
// GreytHR. Reason is human-readable and safe to surface to operators.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("greythr authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("greythr authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SyncError indicates a roster import run failed. Nothing from the run
// was persisted.
type SyncError struct {
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("employee sync failed: %v", e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
