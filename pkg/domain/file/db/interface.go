package db

import (
	"context"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
)

type Interface interface {
	// BySubmission lists the uploaded files held for the submission.
	BySubmission(ctx context.Context, submissionId string) ([]domain.File, error)
}
