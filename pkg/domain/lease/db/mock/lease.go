package mock

import (
	"context"
	"errors"
	"time"

	mocks "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/internal/db/mock"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/lease/db"
)

type LeaseInterface struct {
	Impl struct {
		Acquire func(ctx context.Context, submissionId string, holder string, ttl time.Duration) (bool, error)
		Release func(ctx context.Context, submissionId string, holder string) error
	}

	Calls struct {
		Acquire mocks.CallLog[struct {
			SubmissionId string
			Holder       string
			Ttl          time.Duration
		}]
		Release mocks.CallLog[struct {
			SubmissionId string
			Holder       string
		}]
	}
}

func New() *LeaseInterface {
	return &LeaseInterface{}
}

var _ kdb.Interface = &LeaseInterface{}

func (m *LeaseInterface) Acquire(ctx context.Context, submissionId string, holder string, ttl time.Duration) (bool, error) {
	m.Calls.Acquire = append(m.Calls.Acquire, struct {
		SubmissionId string
		Holder       string
		Ttl          time.Duration
	}{SubmissionId: submissionId, Holder: holder, Ttl: ttl})
	if m.Impl.Acquire != nil {
		return m.Impl.Acquire(ctx, submissionId, holder, ttl)
	}
	panic(errors.New("it should not be called"))
}

func (m *LeaseInterface) Release(ctx context.Context, submissionId string, holder string) error {
	m.Calls.Release = append(m.Calls.Release, struct {
		SubmissionId string
		Holder       string
	}{SubmissionId: submissionId, Holder: holder})
	if m.Impl.Release != nil {
		return m.Impl.Release(ctx, submissionId, holder)
	}
	panic(errors.New("it should not be called"))
}
