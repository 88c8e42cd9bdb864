package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Store defines the persistence contract for the processed set.
type Store interface {
	// IsProcessed reports whether fp has been marked.
	IsProcessed(ctx context.Context, fp common.Hash) (bool, error)

	// MarkProcessed atomically inserts exec if its fingerprint is absent.
	// Returns ErrAlreadyProcessed if it is present.
	MarkProcessed(ctx context.Context, exec *Execution) error

	// UnmarkProcessed removes the mark for fp. Only used to roll back a mark
	// whose forward failed.
	UnmarkProcessed(ctx context.Context, fp common.Hash) error

	// GetExecution returns the record for fp.
	// Returns ErrExecutionNotFound if fp was never marked.
	GetExecution(ctx context.Context, fp common.Hash) (*Execution, error)

	// ListExecutions returns executions, newest first.
	ListExecutions(ctx context.Context, opts ListOpts) ([]*Execution, error)

	// CountExecutions returns the number of processed fingerprints.
	CountExecutions(ctx context.Context) (int, error)
}
