package mock

import (
	"context"
	"errors"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/accession/db"
	mocks "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/internal/db/mock"
)

type AccessionInterface struct {
	Impl struct {
		Absorb            func(ctx context.Context, submissionId string, apply func(*domain.AccessionIdWrapper)) error
		PopReadyToPublish func(ctx context.Context, callback func(domain.AccessionIdWrapper) error) (bool, error)
	}

	Calls struct {
		Absorb            mocks.CallLog[string]
		PopReadyToPublish mocks.CallLog[struct{}]
	}
}

func New() *AccessionInterface {
	return &AccessionInterface{}
}

var _ kdb.Interface = &AccessionInterface{}

func (m *AccessionInterface) Absorb(ctx context.Context, submissionId string, apply func(*domain.AccessionIdWrapper)) error {
	m.Calls.Absorb = append(m.Calls.Absorb, submissionId)
	if m.Impl.Absorb != nil {
		return m.Impl.Absorb(ctx, submissionId, apply)
	}
	panic(errors.New("it should not be called"))
}

func (m *AccessionInterface) PopReadyToPublish(ctx context.Context, callback func(domain.AccessionIdWrapper) error) (bool, error) {
	m.Calls.PopReadyToPublish = append(m.Calls.PopReadyToPublish, struct{}{})
	if m.Impl.PopReadyToPublish != nil {
		return m.Impl.PopReadyToPublish(ctx, callback)
	}
	panic(errors.New("it should not be called"))
}
