package dispatch_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/dispatch"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	statusmock "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/status/db/mock"
	sbmtmock "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submittable/db/mock"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/utils/cmp"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/utils/pointer"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/utils/slices"
)

func nullLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// fixture backs the store mocks with in-memory content.
type fixture struct {
	submission   domain.Submission
	submittables []domain.Submittable
	archives     map[string]domain.Archive
	states       map[string]domain.ProcessingState
}

func (f fixture) stores() (*sbmtmock.SubmittableInterface, *statusmock.StatusInterface) {
	byId := slices.ToMap(f.submittables, func(s domain.Submittable) string { return s.Id })

	submittables := sbmtmock.New()
	submittables.Impl.Get = func(_ context.Context, id string) (domain.Submittable, error) {
		s, ok := byId[id]
		if !ok {
			return domain.Submittable{}, domain.ErrNotFound
		}
		return s, nil
	}
	submittables.Impl.LookupRef = func(_ context.Context, ref domain.Ref) (*domain.Submittable, error) {
		for _, s := range f.submittables {
			if ref.Matches(s) {
				return pointer.Ref(s), nil
			}
		}
		return nil, nil
	}

	statuses := statusmock.New()
	statuses.Impl.GetBySubmittableId = func(_ context.Context, id string) (*domain.ProcessingStatus, error) {
		archive, ok := f.archives[id]
		if !ok {
			return nil, nil
		}
		return &domain.ProcessingStatus{
			SubmittableId: id,
			SubmissionId:  byId[id].SubmissionId,
			Archive:       &archive,
			State:         f.states[id],
		}, nil
	}
	statuses.Impl.IdsByKindInStates = func(
		_ context.Context, submissionId string, states []domain.ProcessingState,
	) (map[domain.SubmittableKind][]string, error) {
		out := map[domain.SubmittableKind][]string{}
		for _, s := range f.submittables {
			if s.SubmissionId != submissionId {
				continue
			}
			if !slices.Any(states, func(st domain.ProcessingState) bool { return st == f.states[s.Id] }) {
				continue
			}
			out[s.Kind] = append(out[s.Kind], s.Id)
		}
		return out, nil
	}

	return submittables, statuses
}

func TestReadinessEngine_Assess(t *testing.T) {
	submission := domain.Submission{Id: "sub-1", Status: domain.SubmissionProcessing}

	t.Run("when a submission references only within one archive, everything is ready", func(t *testing.T) {
		f := fixture{
			submission: submission,
			submittables: []domain.Submittable{
				{Id: "study-1", Kind: domain.KindStudy, Alias: "st", SubmissionId: "sub-1"},
				{
					Id: "assay-1", Kind: domain.KindAssay, Alias: "as", SubmissionId: "sub-1",
					Refs: []domain.Ref{{Kind: domain.KindStudy, Alias: "st"}},
				},
			},
			archives: map[string]domain.Archive{"study-1": domain.Ena, "assay-1": domain.Ena},
			states: map[string]domain.ProcessingState{
				"study-1": domain.StateSubmitted, "assay-1": domain.StateSubmitted,
			},
		}
		submittables, statuses := f.stores()
		testee := dispatch.NewReadinessEngine(submittables, statuses, nullLogger())

		ready, err := testee.Assess(context.Background(), submission, "a.jwt.token")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		env, ok := ready[domain.Ena]
		if !ok {
			t.Fatalf("no envelope for %s: got %+v", domain.Ena, ready)
		}
		if len(ready) != 1 {
			t.Errorf("archives: actual=%d, expect=1", len(ready))
		}
		if !cmp.SliceContentEq(env.SubmittableIds(), []string{"study-1", "assay-1"}) {
			t.Errorf("submittables: actual=%+v", env.SubmittableIds())
		}
		if env.JWT != "a.jwt.token" {
			t.Errorf("jwt: actual=%q", env.JWT)
		}
	})

	t.Run("when an assay references an unaccessioned sample in another archive, its archive is held back", func(t *testing.T) {
		f := fixture{
			submission: submission,
			submittables: []domain.Submittable{
				{Id: "sample-1", Kind: domain.KindSample, Alias: "sm", SubmissionId: "sub-1"},
				{
					Id: "assay-1", Kind: domain.KindAssay, Alias: "as", SubmissionId: "sub-1",
					Refs: []domain.Ref{{Kind: domain.KindSample, Alias: "sm"}},
				},
			},
			archives: map[string]domain.Archive{"sample-1": domain.BioSamples, "assay-1": domain.Ena},
			states: map[string]domain.ProcessingState{
				"sample-1": domain.StateSubmitted, "assay-1": domain.StateSubmitted,
			},
		}
		submittables, statuses := f.stores()
		testee := dispatch.NewReadinessEngine(submittables, statuses, nullLogger())

		ready, err := testee.Assess(context.Background(), submission, "")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if _, ok := ready[domain.Ena]; ok {
			t.Errorf("%s should be held back: got %+v", domain.Ena, ready)
		}
		env, ok := ready[domain.BioSamples]
		if !ok {
			t.Fatalf("no envelope for %s", domain.BioSamples)
		}
		if !cmp.SliceEq(env.SubmittableIds(), []string{"sample-1"}) {
			t.Errorf("submittables: actual=%+v", env.SubmittableIds())
		}
	})

	t.Run("when the referenced sample is accessioned, the assay is ready and carries it as context", func(t *testing.T) {
		f := fixture{
			submission: submission,
			submittables: []domain.Submittable{
				{
					Id: "sample-1", Kind: domain.KindSample, Alias: "sm", SubmissionId: "sub-1",
					Accession: "SAMEA1",
				},
				{
					Id: "assay-1", Kind: domain.KindAssay, Alias: "as", SubmissionId: "sub-1",
					Refs: []domain.Ref{{Kind: domain.KindSample, Alias: "sm"}},
				},
			},
			archives: map[string]domain.Archive{"sample-1": domain.BioSamples, "assay-1": domain.Ena},
			states: map[string]domain.ProcessingState{
				"sample-1": domain.StateCompleted, "assay-1": domain.StateSubmitted,
			},
		}
		submittables, statuses := f.stores()
		testee := dispatch.NewReadinessEngine(submittables, statuses, nullLogger())

		ready, err := testee.Assess(context.Background(), submission, "")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		env, ok := ready[domain.Ena]
		if !ok {
			t.Fatalf("no envelope for %s: got %+v", domain.Ena, ready)
		}
		if !cmp.SliceContentEq(env.SubmittableIds(), []string{"assay-1", "sample-1"}) {
			t.Errorf("submittables: actual=%+v", env.SubmittableIds())
		}
	})

	t.Run("one blocked submittable holds back every submittable bound for the same archive", func(t *testing.T) {
		f := fixture{
			submission: submission,
			submittables: []domain.Submittable{
				{Id: "sample-1", Kind: domain.KindSample, Alias: "sm", SubmissionId: "sub-1"},
				{Id: "assay-free", Kind: domain.KindAssay, Alias: "free", SubmissionId: "sub-1"},
				{
					Id: "assay-blocked", Kind: domain.KindAssay, Alias: "blocked", SubmissionId: "sub-1",
					Refs: []domain.Ref{{Kind: domain.KindSample, Alias: "sm"}},
				},
			},
			archives: map[string]domain.Archive{
				"sample-1": domain.BioSamples, "assay-free": domain.Ena, "assay-blocked": domain.Ena,
			},
			states: map[string]domain.ProcessingState{
				"sample-1": domain.StateSubmitted, "assay-free": domain.StateSubmitted,
				"assay-blocked": domain.StateSubmitted,
			},
		}
		submittables, statuses := f.stores()
		testee := dispatch.NewReadinessEngine(submittables, statuses, nullLogger())

		ready, err := testee.Assess(context.Background(), submission, "")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if _, ok := ready[domain.Ena]; ok {
			t.Errorf("%s should be held back entirely: got %+v", domain.Ena, ready)
		}
	})

	t.Run("a reference resolving to nothing does not block", func(t *testing.T) {
		f := fixture{
			submission: submission,
			submittables: []domain.Submittable{
				{
					Id: "assay-1", Kind: domain.KindAssay, Alias: "as", SubmissionId: "sub-1",
					Refs: []domain.Ref{{Kind: domain.KindSample, Alias: "external-sample"}},
				},
			},
			archives: map[string]domain.Archive{"assay-1": domain.Ena},
			states:   map[string]domain.ProcessingState{"assay-1": domain.StateSubmitted},
		}
		submittables, statuses := f.stores()
		testee := dispatch.NewReadinessEngine(submittables, statuses, nullLogger())

		ready, err := testee.Assess(context.Background(), submission, "")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		env, ok := ready[domain.Ena]
		if !ok {
			t.Fatalf("no envelope for %s", domain.Ena)
		}
		if !cmp.SliceEq(env.SubmittableIds(), []string{"assay-1"}) {
			t.Errorf("submittables: actual=%+v", env.SubmittableIds())
		}
	})

	t.Run("a status record pointing at a vanished submittable aborts the pass", func(t *testing.T) {
		submittables := sbmtmock.New()
		submittables.Impl.Get = func(context.Context, string) (domain.Submittable, error) {
			return domain.Submittable{}, domain.ErrNotFound
		}
		statuses := statusmock.New()
		statuses.Impl.IdsByKindInStates = func(
			context.Context, string, []domain.ProcessingState,
		) (map[domain.SubmittableKind][]string, error) {
			return map[domain.SubmittableKind][]string{domain.KindStudy: {"gone"}}, nil
		}
		testee := dispatch.NewReadinessEngine(submittables, statuses, nullLogger())

		_, err := testee.Assess(context.Background(), submission, "")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err: actual=%+v, expect wrapping %+v", err, domain.ErrNotFound)
		}
	})
}
