// Package store defines where remediation run records are kept.
package store

import (
	"context"

	"github.com/MrSnakeDoc/medic/internal/domain"
)

// DefaultRecentLimit is used when a caller asks for a non-positive limit.
const DefaultRecentLimit = 20

// History persists run records. Implementations return domain.ErrRunNotFound
// for unknown IDs and list Recent newest first.
type History interface {
	Save(ctx context.Context, rec domain.RunRecord) error
	Get(ctx context.Context, id string) (domain.RunRecord, error)
	// Recent lists the latest runs for target, or for every target when
	// target is empty.
	Recent(ctx context.Context, target string, limit int) ([]domain.RunRecord, error)
}
