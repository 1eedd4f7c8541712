package domain

import (
	"errors"
	"fmt"
)

// VerdictKind classifies a probe result.
type VerdictKind string

const (
	VerdictHealthy     VerdictKind = "healthy"
	VerdictUnhealthy   VerdictKind = "unhealthy"
	VerdictUnreachable VerdictKind = "unreachable"
)

// HealthVerdict is the outcome of one probe against a target's endpoint.
type HealthVerdict struct {
	Kind VerdictKind `json:"kind"`

	// StatusCode is set for Unhealthy verdicts.
	StatusCode int `json:"status_code,omitempty"`

	// Cause is set for Unreachable verdicts.
	Cause string `json:"cause,omitempty"`
}

func Healthy() HealthVerdict { return HealthVerdict{Kind: VerdictHealthy} }

func Unhealthy(code int) HealthVerdict {
	return HealthVerdict{Kind: VerdictUnhealthy, StatusCode: code}
}

func Unreachable(cause error) HealthVerdict {
	v := HealthVerdict{Kind: VerdictUnreachable}
	if cause != nil {
		v.Cause = cause.Error()
	}
	return v
}

// IsHealthy reports whether the verdict ends the loop successfully.
func (v HealthVerdict) IsHealthy() bool {
	return v.Kind == VerdictHealthy
}

// Err maps a failing verdict onto the error taxonomy. Healthy yields nil.
func (v HealthVerdict) Err() error {
	switch v.Kind {
	case VerdictHealthy:
		return nil
	case VerdictUnhealthy:
		return &ProbeUnhealthyError{Code: v.StatusCode}
	default:
		if v.Cause == "" {
			return ErrProbeUnreachable
		}
		return fmt.Errorf("%w: %s", ErrProbeUnreachable, v.Cause)
	}
}

func (v HealthVerdict) String() string {
	switch v.Kind {
	case VerdictHealthy:
		return "healthy"
	case VerdictUnhealthy:
		return fmt.Sprintf("unhealthy (status %d)", v.StatusCode)
	default:
		if v.Cause == "" {
			return "unreachable"
		}
		return "unreachable: " + v.Cause
	}
}

// VerdictFromErr is the inverse of Err, used when a probe result has only
// been carried as an error.
func VerdictFromErr(err error) HealthVerdict {
	if err == nil {
		return Healthy()
	}
	var unhealthy *ProbeUnhealthyError
	if errors.As(err, &unhealthy) {
		return Unhealthy(unhealthy.Code)
	}
	return Unreachable(err)
}
