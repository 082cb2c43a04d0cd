package dispatch

import (
	"context"
	"log"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	subdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submission/db"
	sbmtdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submittable/db"
	supportingdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/supporting/db"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/refresolve"
)

// SupportingInfoEngine finds sample references which cannot be satisfied from
// anything the platform holds, so the missing samples can be fetched from
// BioSamples before dispatch.
type SupportingInfoEngine struct {
	submissions  subdb.Interface
	submittables sbmtdb.Interface
	supporting   supportingdb.Interface
	logger       *log.Logger
}

func NewSupportingInfoEngine(
	submissions subdb.Interface,
	submittables sbmtdb.Interface,
	supporting supportingdb.Interface,
	logger *log.Logger,
) *SupportingInfoEngine {
	return &SupportingInfoEngine{
		submissions:  submissions,
		submittables: submittables,
		supporting:   supporting,
		logger:       logger,
	}
}

// DetermineSupportingInformationRequired checks every sample reference made
// by the submission's assays, in order, against:
//
//  1. the submission's own samples,
//  2. supporting samples gathered on earlier rounds,
//  3. anything the reference lookup can find.
//
// References satisfied by none of these are flagged as required. When any are
// flagged, the returned map routes the envelope to BioSamples, the only
// archive that can supply samples. An empty map means dispatch can proceed.
func (e *SupportingInfoEngine) DetermineSupportingInformationRequired(
	ctx context.Context,
	submissionId string,
	jwt string,
) (map[domain.Archive]*domain.SubmissionEnvelope, error) {
	submission, err := e.submissions.Get(ctx, submissionId)
	if err != nil {
		return nil, err
	}

	env := domain.NewSubmissionEnvelope(submission)
	env.JWT = jwt

	submittables, err := e.submittables.BySubmission(ctx, submissionId)
	if err != nil {
		return nil, err
	}
	env.AddAll(submittables)

	gathered, err := e.supporting.BySubmission(ctx, submissionId)
	if err != nil {
		return nil, err
	}
	env.SupportingSamples = gathered

	resolver := refresolve.New(e.submittables)
	samples := env.Samples()

	for _, assay := range env.Assays() {
		for _, ref := range assay.SampleRefs() {
			if env.SupportingSampleRequired(ref) {
				continue
			}
			if _, ok := ref.FindMatch(samples); ok {
				continue
			}
			if _, ok := ref.FindMatch(env.SupportingSamples); ok {
				continue
			}
			target, err := resolver.Resolve(ctx, &ref)
			if err != nil {
				return nil, err
			}
			if target != nil {
				continue
			}
			env.RequireSupportingSample(ref)
		}
	}

	if len(env.SupportingSamplesRequired) == 0 {
		return map[domain.Archive]*domain.SubmissionEnvelope{}, nil
	}

	e.logger.Printf(
		"submission %s: %d supporting samples required from %s",
		submissionId, len(env.SupportingSamplesRequired), domain.BioSamples,
	)
	return map[domain.Archive]*domain.SubmissionEnvelope{domain.BioSamples: env}, nil
}
