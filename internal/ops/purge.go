package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/hpungsan/lnfee/internal/errors"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	OlderThanDays int // required, > 0
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int64  `json:"purged"`
	Before  string `json:"before"`
	Message string `json:"message"`
}

// Purge permanently deletes snapshots older than the retention window.
func Purge(ctx context.Context, deps Deps, input PurgeInput) (*PurgeOutput, error) {
	if input.OlderThanDays <= 0 {
		return nil, errors.NewInvalidRequest("older_than_days must be positive")
	}

	before := deps.now().UTC().AddDate(0, 0, -input.OlderThanDays)
	count, err := deps.Store.PurgeSnapshots(ctx, before)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Before:  before.Format(time.RFC3339),
		Message: formatPurgeMessage(count, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int64, olderThanDays int) string {
	if count == 0 {
		return "No snapshots to purge"
	}

	word := "snapshot"
	if count > 1 {
		word = "snapshots"
	}
	return fmt.Sprintf("Permanently deleted %d %s older than %d days", count, word, olderThanDays)
}
