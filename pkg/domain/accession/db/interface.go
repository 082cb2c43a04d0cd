package db

import (
	"context"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
)

type Interface interface {
	// Absorb runs apply on the submission's accession wrapper as one
	// serialized read-modify-write: the wrapper is created when absent,
	// locked, passed to apply, and saved. Concurrent certificates for the
	// same submission queue up on the row lock.
	Absorb(ctx context.Context, submissionId string, apply func(*domain.AccessionIdWrapper)) error

	// PopReadyToPublish picks one wrapper which has both accession sides
	// populated and no sent timestamp, hands it to callback, and stamps the
	// sent timestamp in the same transaction. When callback returns an error
	// the transaction rolls back and nothing is stamped.
	//
	// Returns true when a wrapper was popped. Rows locked by a concurrent
	// sweep are skipped.
	PopReadyToPublish(ctx context.Context, callback func(domain.AccessionIdWrapper) error) (bool, error)
}
