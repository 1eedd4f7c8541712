package domain

import "time"

// ServiceTarget identifies one logical service under supervision.
//
// A target is immutable for the duration of a remediation run: the loop
// receives a copy and never writes back to it.
type ServiceTarget struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// Name is the unique, human-facing identifier.
	// Example: webapp
	Name string `json:"name"`

	// ─────────────────────────────
	// Probing
	// ─────────────────────────────

	// HealthURL is the aggregate endpoint (usually the load balancer in
	// front of the fleet). Any 2xx answer means healthy.
	// Example: http://webapp:8000/
	HealthURL string `json:"health_url"`

	// ProbeTimeout bounds a single probe. Zero means the prober default.
	ProbeTimeout time.Duration `json:"probe_timeout,omitempty"`

	// ─────────────────────────────
	// Fleet
	// ─────────────────────────────

	// InstancePrefix selects the instances backing this service by name.
	// Example: devopsagent-webapp-
	InstancePrefix string `json:"instance_prefix"`

	// MaxCycles overrides the loop's inspect/plan/act bound. Zero means the
	// configured default.
	MaxCycles int `json:"max_cycles,omitempty"`
}
