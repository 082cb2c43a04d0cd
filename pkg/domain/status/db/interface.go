package db

import (
	"context"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
)

type Interface interface {
	// GetBySubmittableId fetches the lifecycle record of one submittable.
	//
	// Returns (nil, nil) when no record exists: the submittable may have
	// been deleted, which is not an error for certificate absorption.
	GetBySubmittableId(ctx context.Context, submittableId string) (*domain.ProcessingStatus, error)

	// Save writes the record against the version it carries.
	// Version 0 inserts; otherwise returns domain.ErrVersionConflict when
	// the stored version has moved on.
	Save(ctx context.Context, status domain.ProcessingStatus) error

	// SetArchive stamps the target archive on the submittable's record.
	// Idempotent: re-running overwrites with the same value.
	SetArchive(ctx context.Context, submittableId string, archive domain.Archive) error

	// Summary counts the submission's processing statuses by state.
	Summary(ctx context.Context, submissionId string) (map[domain.ProcessingState]int, error)

	// IdsByKindInStates groups submittable ids of the submission by variant,
	// restricted to the given states.
	IdsByKindInStates(ctx context.Context, submissionId string, states []domain.ProcessingState) (map[domain.SubmittableKind][]string, error)

	// TransitionAll moves the listed submittables to the `to` state, but only
	// those currently in one of the allowedFrom states. Records in any other
	// state are left untouched, so a stale dispatch cycle can never overwrite
	// a terminal state. Returns the number of records moved.
	TransitionAll(ctx context.Context, submittableIds []string, to domain.ProcessingState, allowedFrom []domain.ProcessingState) (int, error)
}
