package db

import (
	"context"
	"time"
)

type Interface interface {
	// Acquire takes the dispatch lease for the submission.
	//
	// Returns false when another live holder has it. An expired lease is
	// stolen. The same holder re-acquiring extends its own lease.
	Acquire(ctx context.Context, submissionId string, holder string, ttl time.Duration) (bool, error)

	// Release gives the lease back. Releasing a lease held by someone else
	// is a no-op.
	Release(ctx context.Context, submissionId string, holder string) error
}
