package mock

import (
	"context"
	"errors"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	mocks "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/internal/db/mock"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/supporting/db"
)

type SupportingInterface struct {
	Impl struct {
		Save         func(ctx context.Context, submissionId string, samples []domain.Submittable) error
		BySubmission func(ctx context.Context, submissionId string) ([]domain.Submittable, error)
	}

	Calls struct {
		Save mocks.CallLog[struct {
			SubmissionId string
			Samples      []domain.Submittable
		}]
		BySubmission mocks.CallLog[string]
	}
}

func New() *SupportingInterface {
	return &SupportingInterface{}
}

var _ kdb.Interface = &SupportingInterface{}

func (m *SupportingInterface) Save(ctx context.Context, submissionId string, samples []domain.Submittable) error {
	m.Calls.Save = append(m.Calls.Save, struct {
		SubmissionId string
		Samples      []domain.Submittable
	}{SubmissionId: submissionId, Samples: samples})
	if m.Impl.Save != nil {
		return m.Impl.Save(ctx, submissionId, samples)
	}
	panic(errors.New("it should not be called"))
}

func (m *SupportingInterface) BySubmission(ctx context.Context, submissionId string) ([]domain.Submittable, error) {
	m.Calls.BySubmission = append(m.Calls.BySubmission, submissionId)
	if m.Impl.BySubmission != nil {
		return m.Impl.BySubmission(ctx, submissionId)
	}
	panic(errors.New("it should not be called"))
}
