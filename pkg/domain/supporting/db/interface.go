package db

import (
	"context"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
)

type Interface interface {
	// Save stores externally provided samples for the submission.
	// Saving the same sample again overwrites it.
	Save(ctx context.Context, submissionId string, samples []domain.Submittable) error

	// BySubmission lists the supporting samples gathered so far.
	BySubmission(ctx context.Context, submissionId string) ([]domain.Submittable, error)
}
