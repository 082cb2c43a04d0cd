package statusaging_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/cmd/coreproc/tasks/statusaging"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	submock "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submission/db/mock"
)

func nullLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestTask(t *testing.T) {
	t.Run("stale submissions get an honest still-in-progress message", func(t *testing.T) {
		submissions := submock.New()
		submissions.Impl.ListUnfinishedOlderThan = func(_ context.Context, before time.Time) ([]domain.Submission, error) {
			if time.Until(before) > -23*time.Hour {
				t.Errorf("cutoff too recent: %s", before)
			}
			return []domain.Submission{
				{Id: "sub-processing", Status: domain.SubmissionProcessing},
				{Id: "sub-submitted", Status: domain.SubmissionSubmitted},
			}, nil
		}
		written := map[string]string{}
		submissions.Impl.UpdateStatusMessage = func(_ context.Context, s domain.Submission, message string) error {
			written[s.Id] = message
			return nil
		}

		testee := statusaging.Task(submissions, 24*time.Hour, nullLogger())
		_, backlog, err := testee(context.Background(), statusaging.Seed())
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if backlog {
			t.Error("one sweep covers everything; no backlog expected")
		}

		if written["sub-processing"] != domain.ProcessingInProgressMessage {
			t.Errorf("processing message: actual=%q", written["sub-processing"])
		}
		if written["sub-submitted"] != domain.SubmittedNotStartedMessage {
			t.Errorf("submitted message: actual=%q", written["sub-submitted"])
		}
	})

	t.Run("a submission already carrying the message is not rewritten", func(t *testing.T) {
		submissions := submock.New()
		submissions.Impl.ListUnfinishedOlderThan = func(context.Context, time.Time) ([]domain.Submission, error) {
			return []domain.Submission{{
				Id:            "sub-1",
				Status:        domain.SubmissionProcessing,
				StatusMessage: domain.ProcessingInProgressMessage,
			}}, nil
		}

		testee := statusaging.Task(submissions, 24*time.Hour, nullLogger())
		if _, _, err := testee(context.Background(), statusaging.Seed()); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if submissions.Calls.UpdateStatusMessage.Times() != 0 {
			t.Errorf(
				"UpdateStatusMessage: called %d times, expect 0",
				submissions.Calls.UpdateStatusMessage.Times(),
			)
		}
	})

	t.Run("a submission racing past the sweep is skipped on version conflict", func(t *testing.T) {
		submissions := submock.New()
		submissions.Impl.ListUnfinishedOlderThan = func(context.Context, time.Time) ([]domain.Submission, error) {
			return []domain.Submission{
				{Id: "sub-1", Status: domain.SubmissionProcessing},
				{Id: "sub-2", Status: domain.SubmissionProcessing},
			}, nil
		}
		submissions.Impl.UpdateStatusMessage = func(_ context.Context, s domain.Submission, _ string) error {
			if s.Id == "sub-1" {
				return domain.ErrVersionConflict
			}
			return nil
		}

		testee := statusaging.Task(submissions, 24*time.Hour, nullLogger())
		if _, _, err := testee(context.Background(), statusaging.Seed()); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if submissions.Calls.UpdateStatusMessage.Times() != 2 {
			t.Errorf(
				"UpdateStatusMessage: called %d times, expect 2",
				submissions.Calls.UpdateStatusMessage.Times(),
			)
		}
	})
}
