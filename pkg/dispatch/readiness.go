package dispatch

import (
	"context"
	"log"
	"sort"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	statusdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/status/db"
	sbmtdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submittable/db"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/refresolve"
)

// ReadinessEngine decides which submittables of a submission can be sent to
// their archives right now.
type ReadinessEngine struct {
	submittables sbmtdb.Interface
	statuses     statusdb.Interface
	logger       *log.Logger
}

func NewReadinessEngine(
	submittables sbmtdb.Interface,
	statuses statusdb.Interface,
	logger *log.Logger,
) *ReadinessEngine {
	return &ReadinessEngine{submittables: submittables, statuses: statuses, logger: logger}
}

// Assess builds one envelope per archive holding the submittables ready for
// dispatch.
//
// A submittable is blocked while it holds a reference which is not yet
// accessioned and points outside its own submission-and-archive; such a
// reference can only be satisfied by a dispatch that has not completed yet.
// Dispatch to an archive is all or nothing: one blocked submittable holds
// back every submittable bound for the same archive, so an archive never
// receives a graph with dangling edges.
//
// References that resolve to nothing are left to the supporting information
// stage and do not block here.
func (e *ReadinessEngine) Assess(
	ctx context.Context,
	submission domain.Submission,
	jwt string,
) (map[domain.Archive]*domain.SubmissionEnvelope, error) {
	byKind, err := e.statuses.IdsByKindInStates(ctx, submission.Id, domain.DispatchableStates())
	if err != nil {
		return nil, err
	}

	resolver := refresolve.New(e.submittables)
	ready := map[domain.Archive]*domain.SubmissionEnvelope{}
	blocked := map[domain.Archive]bool{}

	for _, kind := range domain.Kinds() {
		ids := byKind[kind]
		sort.Strings(ids)
		for _, id := range ids {
			submittable, err := e.submittables.Get(ctx, id)
			if err != nil {
				// the status record points at a submittable that is gone.
				// Dispatching the rest would send a torn graph.
				return nil, xe.WrapWithNote("submission "+submission.Id, err)
			}

			archive, err := e.archiveOf(ctx, id)
			if err != nil {
				return nil, err
			}

			referenced, blocking, err := e.assessRefs(ctx, resolver, submission.Id, archive, &submittable)
			if err != nil {
				return nil, err
			}
			if blocking {
				blocked[archive] = true
				continue
			}

			env, ok := ready[archive]
			if !ok {
				env = domain.NewSubmissionEnvelope(submission)
				env.JWT = jwt
				ready[archive] = env
			}
			env.Add(submittable)
			env.AddAll(referenced)
		}
	}

	for archive := range blocked {
		if _, ok := ready[archive]; ok {
			e.logger.Printf(
				"submission %s: archive %s held back by blocked submittables",
				submission.Id, archive,
			)
		}
		delete(ready, archive)
	}

	return ready, nil
}

// assessRefs walks the submittable's outgoing references.
//
// It returns the non-blocking targets living outside the submittable's own
// submission-and-archive scope; they travel with the envelope so the archive
// agent has the full local context. Targets inside the scope are dispatched
// in their own right and not duplicated here.
func (e *ReadinessEngine) assessRefs(
	ctx context.Context,
	resolver *refresolve.Resolver,
	submissionId string,
	archive domain.Archive,
	submittable *domain.Submittable,
) ([]domain.Submittable, bool, error) {
	referenced := []domain.Submittable{}
	blocking := false

	for i := range submittable.Refs {
		ref := &submittable.Refs[i]
		if ref.Empty() {
			continue
		}

		target, err := resolver.Resolve(ctx, ref)
		if err != nil {
			return nil, false, err
		}
		if target == nil {
			continue
		}

		if target.Accessioned() {
			referenced = append(referenced, *target)
			continue
		}

		targetArchive, err := e.archiveOf(ctx, target.Id)
		if err != nil {
			return nil, false, err
		}
		if target.SubmissionId == submissionId && targetArchive == archive {
			// satisfied within this very dispatch.
			continue
		}
		blocking = true
	}

	return referenced, blocking, nil
}

func (e *ReadinessEngine) archiveOf(ctx context.Context, submittableId string) (domain.Archive, error) {
	status, err := e.statuses.GetBySubmittableId(ctx, submittableId)
	if err != nil {
		return "", err
	}
	if status == nil || status.Archive == nil {
		return "", xe.WrapWithNote(
			"submittable "+submittableId+" has no assigned archive",
			domain.ErrNotFound,
		)
	}
	return *status.Archive, nil
}
