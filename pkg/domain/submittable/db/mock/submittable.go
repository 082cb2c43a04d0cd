package mock

import (
	"context"
	"errors"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	mocks "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/internal/db/mock"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submittable/db"
)

type SubmittableInterface struct {
	Impl struct {
		Get          func(ctx context.Context, submittableId string) (domain.Submittable, error)
		BySubmission func(ctx context.Context, submissionId string) ([]domain.Submittable, error)
		LookupRef    func(ctx context.Context, ref domain.Ref) (*domain.Submittable, error)
	}

	Calls struct {
		Get          mocks.CallLog[string]
		BySubmission mocks.CallLog[string]
		LookupRef    mocks.CallLog[domain.Ref]
	}
}

func New() *SubmittableInterface {
	return &SubmittableInterface{}
}

var _ kdb.Interface = &SubmittableInterface{}

func (m *SubmittableInterface) Get(ctx context.Context, submittableId string) (domain.Submittable, error) {
	m.Calls.Get = append(m.Calls.Get, submittableId)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, submittableId)
	}
	panic(errors.New("it should not be called"))
}

func (m *SubmittableInterface) BySubmission(ctx context.Context, submissionId string) ([]domain.Submittable, error) {
	m.Calls.BySubmission = append(m.Calls.BySubmission, submissionId)
	if m.Impl.BySubmission != nil {
		return m.Impl.BySubmission(ctx, submissionId)
	}
	panic(errors.New("it should not be called"))
}

func (m *SubmittableInterface) LookupRef(ctx context.Context, ref domain.Ref) (*domain.Submittable, error) {
	m.Calls.LookupRef = append(m.Calls.LookupRef, ref)
	if m.Impl.LookupRef != nil {
		return m.Impl.LookupRef(ctx, ref)
	}
	panic(errors.New("it should not be called"))
}
