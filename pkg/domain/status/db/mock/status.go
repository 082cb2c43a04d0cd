package mock

import (
	"context"
	"errors"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	mocks "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/internal/db/mock"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/status/db"
)

type StatusInterface struct {
	Impl struct {
		GetBySubmittableId func(ctx context.Context, submittableId string) (*domain.ProcessingStatus, error)
		Save               func(ctx context.Context, status domain.ProcessingStatus) error
		SetArchive         func(ctx context.Context, submittableId string, archive domain.Archive) error
		Summary            func(ctx context.Context, submissionId string) (map[domain.ProcessingState]int, error)
		IdsByKindInStates  func(ctx context.Context, submissionId string, states []domain.ProcessingState) (map[domain.SubmittableKind][]string, error)
		TransitionAll      func(ctx context.Context, submittableIds []string, to domain.ProcessingState, allowedFrom []domain.ProcessingState) (int, error)
	}

	Calls struct {
		GetBySubmittableId mocks.CallLog[string]
		Save               mocks.CallLog[domain.ProcessingStatus]
		SetArchive         mocks.CallLog[struct {
			SubmittableId string
			Archive       domain.Archive
		}]
		Summary           mocks.CallLog[string]
		IdsByKindInStates mocks.CallLog[struct {
			SubmissionId string
			States       []domain.ProcessingState
		}]
		TransitionAll mocks.CallLog[struct {
			SubmittableIds []string
			To             domain.ProcessingState
			AllowedFrom    []domain.ProcessingState
		}]
	}
}

func New() *StatusInterface {
	return &StatusInterface{}
}

var _ kdb.Interface = &StatusInterface{}

func (m *StatusInterface) GetBySubmittableId(ctx context.Context, submittableId string) (*domain.ProcessingStatus, error) {
	m.Calls.GetBySubmittableId = append(m.Calls.GetBySubmittableId, submittableId)
	if m.Impl.GetBySubmittableId != nil {
		return m.Impl.GetBySubmittableId(ctx, submittableId)
	}
	panic(errors.New("it should not be called"))
}

func (m *StatusInterface) Save(ctx context.Context, status domain.ProcessingStatus) error {
	m.Calls.Save = append(m.Calls.Save, status)
	if m.Impl.Save != nil {
		return m.Impl.Save(ctx, status)
	}
	panic(errors.New("it should not be called"))
}

func (m *StatusInterface) SetArchive(ctx context.Context, submittableId string, archive domain.Archive) error {
	m.Calls.SetArchive = append(m.Calls.SetArchive, struct {
		SubmittableId string
		Archive       domain.Archive
	}{SubmittableId: submittableId, Archive: archive})
	if m.Impl.SetArchive != nil {
		return m.Impl.SetArchive(ctx, submittableId, archive)
	}
	panic(errors.New("it should not be called"))
}

func (m *StatusInterface) Summary(ctx context.Context, submissionId string) (map[domain.ProcessingState]int, error) {
	m.Calls.Summary = append(m.Calls.Summary, submissionId)
	if m.Impl.Summary != nil {
		return m.Impl.Summary(ctx, submissionId)
	}
	panic(errors.New("it should not be called"))
}

func (m *StatusInterface) IdsByKindInStates(ctx context.Context, submissionId string, states []domain.ProcessingState) (map[domain.SubmittableKind][]string, error) {
	m.Calls.IdsByKindInStates = append(m.Calls.IdsByKindInStates, struct {
		SubmissionId string
		States       []domain.ProcessingState
	}{SubmissionId: submissionId, States: states})
	if m.Impl.IdsByKindInStates != nil {
		return m.Impl.IdsByKindInStates(ctx, submissionId, states)
	}
	panic(errors.New("it should not be called"))
}

func (m *StatusInterface) TransitionAll(ctx context.Context, submittableIds []string, to domain.ProcessingState, allowedFrom []domain.ProcessingState) (int, error) {
	m.Calls.TransitionAll = append(m.Calls.TransitionAll, struct {
		SubmittableIds []string
		To             domain.ProcessingState
		AllowedFrom    []domain.ProcessingState
	}{SubmittableIds: submittableIds, To: to, AllowedFrom: allowedFrom})
	if m.Impl.TransitionAll != nil {
		return m.Impl.TransitionAll(ctx, submittableIds, to, allowedFrom)
	}
	panic(errors.New("it should not be called"))
}
