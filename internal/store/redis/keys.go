package redis

import "fmt"

const (
	// KeyPrefixRun is the prefix for run record keys
	KeyPrefixRun = "medic:run:"
	// KeyPrefixTargetRuns is the prefix for per-target run indexes
	KeyPrefixTargetRuns = "medic:runs:"
	// KeyAllRuns is the index of every run, scored by submission time
	KeyAllRuns = "medic:runs:_all"
)

// RunKey returns the Redis key for a run by ID
func RunKey(id string) string {
	return KeyPrefixRun + id
}

// TargetRunsKey returns the sorted set indexing runs for a target.
// An empty target selects the global index.
func TargetRunsKey(target string) string {
	if target == "" {
		return KeyAllRuns
	}
	return KeyPrefixTargetRuns + target
}

// ExtractRunID extracts the run ID from a Redis key
func ExtractRunID(key string) (string, error) {
	if len(key) <= len(KeyPrefixRun) {
		return "", fmt.Errorf("invalid run key: %s", key)
	}
	return key[len(KeyPrefixRun):], nil
}
