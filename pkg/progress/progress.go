// Package progress absorbs archive agent reports into per-submittable
// lifecycle records.
package progress

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	statusdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/status/db"
	supportingdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/supporting/db"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/utils/retry"
)

type Service struct {
	statuses   statusdb.Interface
	supporting supportingdb.Interface
	logger     *log.Logger
}

func New(statuses statusdb.Interface, supporting supportingdb.Interface, logger *log.Logger) *Service {
	return &Service{statuses: statuses, supporting: supporting, logger: logger}
}

// AbsorbCertificates applies each certificate in the envelope to the matching
// processing status record.
//
// A certificate without a submittable id is malformed beyond repair and
// surfaces domain.ErrMissingSubmittableId. A certificate whose submittable no
// longer has a status record is skipped with a log line; the submittable was
// deleted while its report was in flight, and there is nothing left to update.
func (s *Service) AbsorbCertificates(ctx context.Context, env domain.ProcessingCertificateEnvelope) error {
	for _, cert := range env.Certificates {
		if cert.SubmittableId == "" {
			return xe.WrapWithNote(
				"certificate for submission "+env.SubmissionId,
				domain.ErrMissingSubmittableId,
			)
		}
		if err := s.absorb(ctx, cert); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) absorb(ctx context.Context, cert domain.ProcessingCertificate) error {
	_, err := retry.Blocking(ctx, retry.StaticBackoff(0), 3, func() (struct{}, error) {
		status, err := s.statuses.GetBySubmittableId(ctx, cert.SubmittableId)
		if err != nil {
			return struct{}{}, err
		}
		if status == nil {
			s.logger.Printf(
				"certificate for unknown submittable %s (archive %s); skipped",
				cert.SubmittableId, cert.Archive,
			)
			return struct{}{}, nil
		}

		if cert.Accession != "" {
			status.Accession = cert.Accession
		}
		archive := cert.Archive
		status.Archive = &archive
		status.State = cert.State
		status.Message = cert.Message
		status.LastModifiedBy = cert.Archive.String()
		status.LastModified = time.Now()

		err = s.statuses.Save(ctx, *status)
		if errors.Is(err, domain.ErrVersionConflict) {
			return struct{}{}, retry.ErrRetry
		}
		return struct{}{}, err
	})
	return err
}

// StoreSupportingInformation persists externally gathered samples so later
// dispatch cycles can stuff them into envelopes.
func (s *Service) StoreSupportingInformation(ctx context.Context, env domain.SubmissionEnvelope) error {
	if len(env.SupportingSamples) == 0 {
		return nil
	}
	if err := s.supporting.Save(ctx, env.Submission.Id, env.SupportingSamples); err != nil {
		return err
	}
	s.logger.Printf(
		"submission %s: stored %d supporting samples",
		env.Submission.Id, len(env.SupportingSamples),
	)
	return nil
}
