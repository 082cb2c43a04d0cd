package db

import (
	"context"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
)

type Interface interface {
	// Get the submittable by id.
	//
	// Returns domain.ErrNotFound when no such submittable exists.
	Get(ctx context.Context, submittableId string) (domain.Submittable, error)

	// BySubmission lists every content submittable of the submission.
	BySubmission(ctx context.Context, submissionId string) ([]domain.Submittable, error)

	// LookupRef resolves a reference to the submittable it points at:
	// by accession when the ref carries one, otherwise by kind + alias.
	//
	// Returns (nil, nil) when the target cannot currently be found anywhere.
	LookupRef(ctx context.Context, ref domain.Ref) (*domain.Submittable, error)
}
