package statusaging

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	subdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submission/db"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/loop/recurring"
)

// initial value for task
func Seed() any {
	return nil
}

// return:
//
// - task: refresh the status message of submissions that have been sitting
// unfinished for longer than minAge, so users checking back see an honest
// "still in progress" instead of a stale processing message.
func Task(submissions subdb.Interface, minAge time.Duration, logger *log.Logger) recurring.Task[any] {
	return func(ctx context.Context, value any) (any, bool, error) {
		stale, err := submissions.ListUnfinishedOlderThan(ctx, time.Now().Add(-minAge))
		if err != nil {
			return value, false, err
		}

		for _, submission := range stale {
			message := domain.ProcessingInProgressMessage
			if submission.Status == domain.SubmissionSubmitted {
				message = domain.SubmittedNotStartedMessage
			}
			if submission.StatusMessage == message {
				continue
			}

			err := submissions.UpdateStatusMessage(ctx, submission, message)
			if errors.Is(err, domain.ErrVersionConflict) {
				// the submission just moved; the next sweep sees the new state.
				continue
			}
			if err != nil {
				return value, false, err
			}
			logger.Printf("submission %s: aged status message refreshed", submission.Id)
		}

		// one sweep covers everything; there is never backlog to drain.
		return value, false, nil
	}
}
