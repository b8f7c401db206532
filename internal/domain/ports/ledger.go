package ports

import (
	"context"
	"time"
)

// AppliedStep is one entry of the migration ledger.
type AppliedStep struct {
	Name      string
	AppliedAt time.Time
}

// Ledger records which migration steps have been applied. It outlives the
// process so that pending-step detection works across CLI invocations.
type Ledger interface {
	// AppliedSteps returns the ledger entries in application order.
	AppliedSteps(ctx context.Context) ([]AppliedStep, error)
	// MarkApplied records that a step ran. Marking twice is an error.
	MarkApplied(ctx context.Context, name string, at time.Time) error
	// UnmarkApplied removes a step from the ledger after a revert.
	UnmarkApplied(ctx context.Context, name string) error
}
