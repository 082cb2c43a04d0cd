// Package archiveassign stamps the destination archive on every submittable
// of a freshly submitted submission.
package archiveassign

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	statusdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/status/db"
	subdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submission/db"
	sbmtdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submittable/db"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/utils/retry"
)

// Rules map a submittable's data type to the archive responsible for it.
type Rules map[string]domain.Archive

// DataTypes covered by the rules, sorted.
func (r Rules) DataTypes() []string {
	types := make([]string, 0, len(r))
	for t := range r {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ParseRules turns a data-type-to-archive-name table, as configured, into
// Rules. Unknown archive names are a configuration gap.
func ParseRules(table map[string]string) (Rules, error) {
	rules := Rules{}
	for dataType, archiveName := range table {
		archive, err := domain.AsArchive(archiveName)
		if err != nil {
			return nil, xe.WrapWithNote(
				"archive assignment rule for data type "+dataType,
				errors.Join(domain.ErrConfigurationGap, err),
			)
		}
		rules[dataType] = archive
	}
	return rules, nil
}

type Service struct {
	submissions  subdb.Interface
	submittables sbmtdb.Interface
	statuses     statusdb.Interface
	rules        Rules
	logger       *log.Logger
}

func New(
	submissions subdb.Interface,
	submittables sbmtdb.Interface,
	statuses statusdb.Interface,
	rules Rules,
	logger *log.Logger,
) *Service {
	return &Service{
		submissions:  submissions,
		submittables: submittables,
		statuses:     statuses,
		rules:        rules,
		logger:       logger,
	}
}

// Process moves the submission into Processing and stamps an archive on each
// of its submittables.
//
// Archives are resolved for the whole submission before any is written. A
// data type with no rule aborts the run with domain.ErrConfigurationGap and
// nothing is stamped; stamping part of a submission would let the dispatcher
// see a half-assigned graph.
func (s *Service) Process(ctx context.Context, submissionId string) error {
	submission, err := s.submissions.Get(ctx, submissionId)
	if err != nil {
		return err
	}
	if submission.Status.Finished() {
		s.logger.Printf("submission %s is already %s; skipping archive assignment", submissionId, submission.Status)
		return nil
	}

	submittables, err := s.submittables.BySubmission(ctx, submissionId)
	if err != nil {
		return err
	}

	assigned := map[string]domain.Archive{}
	for _, submittable := range submittables {
		archive, ok := s.rules[submittable.DataType]
		if !ok {
			return xe.WrapWithNote(
				"no archive assignment rule for data type "+submittable.DataType,
				domain.ErrConfigurationGap,
			)
		}
		assigned[submittable.Id] = archive
	}

	if err := s.markProcessing(ctx, submission); err != nil {
		return err
	}

	for _, submittable := range submittables {
		if err := s.statuses.SetArchive(ctx, submittable.Id, assigned[submittable.Id]); err != nil {
			return err
		}
	}

	s.logger.Printf("submission %s: assigned archives to %d submittables", submissionId, len(submittables))
	return nil
}

func (s *Service) markProcessing(ctx context.Context, submission domain.Submission) error {
	_, err := retry.Blocking(ctx, retry.StaticBackoff(0), 3, func() (struct{}, error) {
		if submission.Status == domain.SubmissionProcessing {
			return struct{}{}, nil
		}
		err := s.submissions.UpdateStatus(
			ctx, submission, domain.SubmissionProcessing, domain.ProcessingStartedMessage,
		)
		if errors.Is(err, domain.ErrVersionConflict) {
			submission, err = s.submissions.Get(ctx, submission.Id)
			if err != nil {
				return struct{}{}, err
			}
			return struct{}{}, retry.ErrRetry
		}
		return struct{}{}, err
	})
	return err
}
