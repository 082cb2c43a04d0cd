package db

import (
	"context"
	"time"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
)

type Interface interface {
	// Get the submission by id.
	//
	// Returns domain.ErrNotFound when no such submission exists.
	Get(ctx context.Context, submissionId string) (domain.Submission, error)

	// UpdateStatus writes status and message against the version carried by
	// submission. Returns domain.ErrVersionConflict when the stored version
	// has moved on; callers retry from a fresh Get.
	UpdateStatus(ctx context.Context, submission domain.Submission, status domain.SubmissionStatus, message string) error

	// UpdateStatusMessage writes only the status message, with the same
	// optimistic version check as UpdateStatus.
	UpdateStatusMessage(ctx context.Context, submission domain.Submission, message string) error

	// ListUnfinishedOlderThan finds submissions which were submitted before
	// the given time and are still in Submitted or Processing.
	ListUnfinishedOlderThan(ctx context.Context, submittedBefore time.Time) ([]domain.Submission, error)
}
