package mock

import (
	"context"
	"errors"
	"time"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	mocks "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/internal/db/mock"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submission/db"
)

type SubmissionInterface struct {
	Impl struct {
		Get                     func(ctx context.Context, submissionId string) (domain.Submission, error)
		UpdateStatus            func(ctx context.Context, submission domain.Submission, status domain.SubmissionStatus, message string) error
		UpdateStatusMessage     func(ctx context.Context, submission domain.Submission, message string) error
		ListUnfinishedOlderThan func(ctx context.Context, submittedBefore time.Time) ([]domain.Submission, error)
	}

	Calls struct {
		Get          mocks.CallLog[string]
		UpdateStatus mocks.CallLog[struct {
			SubmissionId string
			Version      int64
			Status       domain.SubmissionStatus
			Message      string
		}]
		UpdateStatusMessage mocks.CallLog[struct {
			SubmissionId string
			Message      string
		}]
		ListUnfinishedOlderThan mocks.CallLog[time.Time]
	}
}

func New() *SubmissionInterface {
	return &SubmissionInterface{}
}

var _ kdb.Interface = &SubmissionInterface{}

func (m *SubmissionInterface) Get(ctx context.Context, submissionId string) (domain.Submission, error) {
	m.Calls.Get = append(m.Calls.Get, submissionId)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, submissionId)
	}
	panic(errors.New("it should not be called"))
}

func (m *SubmissionInterface) UpdateStatus(ctx context.Context, submission domain.Submission, status domain.SubmissionStatus, message string) error {
	m.Calls.UpdateStatus = append(m.Calls.UpdateStatus, struct {
		SubmissionId string
		Version      int64
		Status       domain.SubmissionStatus
		Message      string
	}{SubmissionId: submission.Id, Version: submission.Version, Status: status, Message: message})
	if m.Impl.UpdateStatus != nil {
		return m.Impl.UpdateStatus(ctx, submission, status, message)
	}
	panic(errors.New("it should not be called"))
}

func (m *SubmissionInterface) UpdateStatusMessage(ctx context.Context, submission domain.Submission, message string) error {
	m.Calls.UpdateStatusMessage = append(m.Calls.UpdateStatusMessage, struct {
		SubmissionId string
		Message      string
	}{SubmissionId: submission.Id, Message: message})
	if m.Impl.UpdateStatusMessage != nil {
		return m.Impl.UpdateStatusMessage(ctx, submission, message)
	}
	panic(errors.New("it should not be called"))
}

func (m *SubmissionInterface) ListUnfinishedOlderThan(ctx context.Context, submittedBefore time.Time) ([]domain.Submission, error) {
	m.Calls.ListUnfinishedOlderThan = append(m.Calls.ListUnfinishedOlderThan, submittedBefore)
	if m.Impl.ListUnfinishedOlderThan != nil {
		return m.Impl.ListUnfinishedOlderThan(ctx, submittedBefore)
	}
	panic(errors.New("it should not be called"))
}
