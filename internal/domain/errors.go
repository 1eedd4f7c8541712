package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProbeUnreachable means the health endpoint could not be contacted.
	ErrProbeUnreachable = errors.New("health endpoint unreachable")

	// ErrInstanceNotFound means the platform knows no instance by that name,
	// neither running nor stopped.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrRetriesExhausted is the only terminal failure of a remediation run.
	ErrRetriesExhausted = errors.New("remediation retries exhausted")

	// ErrRunNotFound is returned by history stores for unknown run IDs.
	ErrRunNotFound = errors.New("run not found")
)

// ProbeUnhealthyError carries the non-2xx status returned by a health endpoint.
type ProbeUnhealthyError struct {
	Code int
}

func (e *ProbeUnhealthyError) Error() string {
	return fmt.Sprintf("health endpoint returned status %d", e.Code)
}

// ActionFailedError wraps a platform error raised while applying an action.
type ActionFailedError struct {
	Action RemediationAction
	Cause  error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Action.Kind, e.Action.InstanceID, e.Cause)
}

func (e *ActionFailedError) Unwrap() error { return e.Cause }
