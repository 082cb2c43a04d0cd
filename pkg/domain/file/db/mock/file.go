package mock

import (
	"context"
	"errors"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	kdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/file/db"
	mocks "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/internal/db/mock"
)

type FileInterface struct {
	Impl struct {
		BySubmission func(ctx context.Context, submissionId string) ([]domain.File, error)
	}

	Calls struct {
		BySubmission mocks.CallLog[string]
	}
}

func New() *FileInterface {
	return &FileInterface{}
}

var _ kdb.Interface = &FileInterface{}

func (m *FileInterface) BySubmission(ctx context.Context, submissionId string) ([]domain.File, error) {
	m.Calls.BySubmission = append(m.Calls.BySubmission, submissionId)
	if m.Impl.BySubmission != nil {
		return m.Impl.BySubmission(ctx, submissionId)
	}
	panic(errors.New("it should not be called"))
}
