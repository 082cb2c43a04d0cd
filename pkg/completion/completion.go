// Package completion decides when a submission is done and settles its
// terminal status.
package completion

import (
	"context"
	"errors"
	"log"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	subdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submission/db"
	statusdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/status/db"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/utils/retry"
)

// Classification of a submission against its processing status summary.
type Classification string

const (
	// Active: at least one submittable can still move.
	Active Classification = "Active"

	// FinishedSuccess: every submittable reached a terminal state and all of
	// them count as successful.
	FinishedSuccess Classification = "FinishedSuccess"

	// FinishedFailure: every submittable reached a terminal state but at
	// least one did not succeed.
	FinishedFailure Classification = "FinishedFailure"
)

func (c Classification) Finished() bool {
	return c != Active
}

// Classify folds a state summary into one of the three classifications.
//
// A submission with no submittables at all counts as finished successfully;
// there is nothing left to do for it.
func Classify(summary map[domain.ProcessingState]int) Classification {
	failed := false
	for state, count := range summary {
		if count == 0 {
			continue
		}
		if !state.Terminal() {
			return Active
		}
		if !state.Successful() {
			failed = true
		}
	}
	if failed {
		return FinishedFailure
	}
	return FinishedSuccess
}

type Service struct {
	submissions subdb.Interface
	statuses    statusdb.Interface
	logger      *log.Logger
}

func New(submissions subdb.Interface, statuses statusdb.Interface, logger *log.Logger) *Service {
	return &Service{submissions: submissions, statuses: statuses, logger: logger}
}

// Evaluate classifies the submission from its current status summary.
func (s *Service) Evaluate(ctx context.Context, submissionId string) (Classification, error) {
	summary, err := s.statuses.Summary(ctx, submissionId)
	if err != nil {
		return "", err
	}
	return Classify(summary), nil
}

// MarkFinished settles the submission's terminal status per c.
//
// Writing is skipped when the submission already carries the target status, so
// redelivered messages do not bump the version and the transition stays
// idempotent. Version conflicts are retried from a fresh read.
func (s *Service) MarkFinished(ctx context.Context, submissionId string, c Classification) error {
	target := domain.SubmissionCompleted
	if c == FinishedFailure {
		target = domain.SubmissionFailed
	}

	_, err := retry.Blocking(ctx, retry.StaticBackoff(0), 3, func() (struct{}, error) {
		submission, err := s.submissions.Get(ctx, submissionId)
		if err != nil {
			return struct{}{}, err
		}
		if submission.Status == target {
			return struct{}{}, nil
		}
		if submission.Status.Finished() {
			// already settled, with the other outcome. Terminal statuses are
			// never rewritten.
			s.logger.Printf(
				"submission %s is already %s; not rewriting to %s",
				submissionId, submission.Status, target,
			)
			return struct{}{}, nil
		}

		err = s.submissions.UpdateStatus(ctx, submission, target, "")
		if errors.Is(err, domain.ErrVersionConflict) {
			return struct{}{}, xe.WrapWithNote(err.Error(), retry.ErrRetry)
		}
		return struct{}{}, err
	})
	if err != nil {
		return err
	}

	s.logger.Printf("submission %s finished: %s", submissionId, c)
	return nil
}
