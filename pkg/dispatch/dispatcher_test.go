package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	busmock "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/bus/mock"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/completion"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/dispatch"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	filemock "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/file/db/mock"
	leasemock "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/lease/db/mock"
	statusmock "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/status/db/mock"
	submock "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submission/db/mock"
	sbmtmock "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submittable/db/mock"
	supportingmock "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/supporting/db/mock"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/utils/cmp"
)

type dispatcherMocks struct {
	submissions  *submock.SubmissionInterface
	submittables *sbmtmock.SubmittableInterface
	statuses     *statusmock.StatusInterface
	supporting   *supportingmock.SupportingInterface
	files        *filemock.FileInterface
	leases       *leasemock.LeaseInterface
	publisher    *busmock.Publisher
}

func newDispatcher(routing dispatch.Routing, m dispatcherMocks) *dispatch.Dispatcher {
	logger := nullLogger()
	completionService := completion.New(m.submissions, m.statuses, logger)
	readiness := dispatch.NewReadinessEngine(m.submittables, m.statuses, logger)
	return dispatch.New(
		m.submissions, m.submittables, m.statuses, m.supporting, m.files, m.leases,
		completionService, readiness, m.publisher, routing,
		"test-holder", time.Minute, logger,
	)
}

func leaseGranted(leases *leasemock.LeaseInterface) {
	leases.Impl.Acquire = func(context.Context, string, string, time.Duration) (bool, error) {
		return true, nil
	}
	leases.Impl.Release = func(context.Context, string, string) error {
		return nil
	}
}

func TestDispatcher_DispatchCycle(t *testing.T) {
	routing := dispatch.Routing{
		domain.Ena:        {RoutingKey: "usi.ena.agent", Enabled: true},
		domain.BioSamples: {RoutingKey: "usi.biosamples.agent", Enabled: true},
	}

	t.Run("when the submission is already settled, nothing happens", func(t *testing.T) {
		m := dispatcherMocks{
			submissions:  submock.New(),
			submittables: sbmtmock.New(),
			statuses:     statusmock.New(),
			supporting:   supportingmock.New(),
			files:        filemock.New(),
			leases:       leasemock.New(),
			publisher:    busmock.NewPublisher(),
		}
		m.submissions.Impl.Get = func(context.Context, string) (domain.Submission, error) {
			return domain.Submission{Id: "sub-1", Status: domain.SubmissionCompleted}, nil
		}

		testee := newDispatcher(routing, m)
		if err := testee.DispatchCycle(context.Background(), "sub-1", ""); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if m.statuses.Calls.Summary.Times() != 0 {
			t.Errorf("Summary: called %d times, expect 0", m.statuses.Calls.Summary.Times())
		}
		if m.leases.Calls.Acquire.Times() != 0 {
			t.Errorf("Acquire: called %d times, expect 0", m.leases.Calls.Acquire.Times())
		}
	})

	t.Run("when every submittable is terminal, the submission is settled instead of dispatched", func(t *testing.T) {
		m := dispatcherMocks{
			submissions:  submock.New(),
			submittables: sbmtmock.New(),
			statuses:     statusmock.New(),
			supporting:   supportingmock.New(),
			files:        filemock.New(),
			leases:       leasemock.New(),
			publisher:    busmock.NewPublisher(),
		}
		submission := domain.Submission{Id: "sub-1", Status: domain.SubmissionProcessing, Version: 3}
		m.submissions.Impl.Get = func(context.Context, string) (domain.Submission, error) {
			return submission, nil
		}
		m.statuses.Impl.Summary = func(context.Context, string) (map[domain.ProcessingState]int, error) {
			return map[domain.ProcessingState]int{
				domain.StateCompleted:       2,
				domain.StateArchiveDisabled: 1,
			}, nil
		}
		m.submissions.Impl.UpdateStatus = func(
			_ context.Context, s domain.Submission, status domain.SubmissionStatus, _ string,
		) error {
			if status != domain.SubmissionCompleted {
				t.Errorf("status: actual=%s, expect=%s", status, domain.SubmissionCompleted)
			}
			if s.Version != submission.Version {
				t.Errorf("version: actual=%d, expect=%d", s.Version, submission.Version)
			}
			return nil
		}

		testee := newDispatcher(routing, m)
		if err := testee.DispatchCycle(context.Background(), "sub-1", ""); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if m.submissions.Calls.UpdateStatus.Times() != 1 {
			t.Errorf("UpdateStatus: called %d times, expect 1", m.submissions.Calls.UpdateStatus.Times())
		}
		if m.leases.Calls.Acquire.Times() != 0 {
			t.Errorf("Acquire: called %d times, expect 0", m.leases.Calls.Acquire.Times())
		}
		if len(m.publisher.Calls.Publish) != 0 {
			t.Errorf("Publish: called %d times, expect 0", len(m.publisher.Calls.Publish))
		}
	})

	t.Run("when another worker holds the lease, the cycle backs off as in flight", func(t *testing.T) {
		m := dispatcherMocks{
			submissions:  submock.New(),
			submittables: sbmtmock.New(),
			statuses:     statusmock.New(),
			supporting:   supportingmock.New(),
			files:        filemock.New(),
			leases:       leasemock.New(),
			publisher:    busmock.NewPublisher(),
		}
		m.submissions.Impl.Get = func(context.Context, string) (domain.Submission, error) {
			return domain.Submission{Id: "sub-1", Status: domain.SubmissionProcessing}, nil
		}
		m.statuses.Impl.Summary = func(context.Context, string) (map[domain.ProcessingState]int, error) {
			return map[domain.ProcessingState]int{domain.StateSubmitted: 1}, nil
		}
		m.leases.Impl.Acquire = func(context.Context, string, string, time.Duration) (bool, error) {
			return false, nil
		}

		testee := newDispatcher(routing, m)
		err := testee.DispatchCycle(context.Background(), "sub-1", "")
		if !errors.Is(err, dispatch.ErrCycleInFlight) {
			t.Errorf("err: actual=%+v, expect wrapping %+v", err, dispatch.ErrCycleInFlight)
		}
		if m.leases.Calls.Release.Times() != 0 {
			t.Errorf("Release: called %d times, expect 0", m.leases.Calls.Release.Times())
		}
	})

	t.Run("ready submittables are marked Dispatched and posted on the archive's routing key", func(t *testing.T) {
		f := fixture{
			submission: domain.Submission{Id: "sub-1", Status: domain.SubmissionProcessing},
			submittables: []domain.Submittable{
				{Id: "study-1", Kind: domain.KindStudy, Alias: "st", SubmissionId: "sub-1"},
			},
			archives: map[string]domain.Archive{"study-1": domain.Ena},
			states:   map[string]domain.ProcessingState{"study-1": domain.StateSubmitted},
		}
		submittables, statuses := f.stores()
		statuses.Impl.Summary = func(context.Context, string) (map[domain.ProcessingState]int, error) {
			return map[domain.ProcessingState]int{domain.StateSubmitted: 1}, nil
		}
		statuses.Impl.TransitionAll = func(
			_ context.Context, ids []string, to domain.ProcessingState, allowedFrom []domain.ProcessingState,
		) (int, error) {
			if !cmp.SliceEq(ids, []string{"study-1"}) {
				t.Errorf("ids: actual=%+v", ids)
			}
			if to != domain.StateDispatched {
				t.Errorf("to: actual=%s, expect=%s", to, domain.StateDispatched)
			}
			if !cmp.SliceContentEq(allowedFrom, domain.DispatchableStates()) {
				t.Errorf("allowedFrom: actual=%+v", allowedFrom)
			}
			return len(ids), nil
		}

		m := dispatcherMocks{
			submissions:  submock.New(),
			submittables: submittables,
			statuses:     statuses,
			supporting:   supportingmock.New(),
			files:        filemock.New(),
			leases:       leasemock.New(),
			publisher:    busmock.NewPublisher(),
		}
		m.submissions.Impl.Get = func(context.Context, string) (domain.Submission, error) {
			return f.submission, nil
		}
		leaseGranted(m.leases)

		testee := newDispatcher(routing, m)
		if err := testee.DispatchCycle(context.Background(), "sub-1", "a.jwt"); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		published := m.publisher.ByRoutingKey("usi.ena.agent")
		if len(published) != 1 {
			t.Fatalf("publish on usi.ena.agent: %d messages, expect 1", len(published))
		}
		env := domain.SubmissionEnvelope{}
		if err := published[0].Unmarshal(&env); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if !cmp.SliceEq(env.SubmittableIds(), []string{"study-1"}) {
			t.Errorf("envelope submittables: actual=%+v", env.SubmittableIds())
		}
		if env.JWT != "a.jwt" {
			t.Errorf("envelope jwt: actual=%q", env.JWT)
		}
		if m.leases.Calls.Release.Times() != 1 {
			t.Errorf("Release: called %d times, expect 1", m.leases.Calls.Release.Times())
		}
	})

	t.Run("a disabled archive gets nothing; its submittables are skipped as ArchiveDisabled", func(t *testing.T) {
		disabledRouting := dispatch.Routing{
			domain.Ena: {RoutingKey: "usi.ena.agent", Enabled: false},
		}
		f := fixture{
			submission: domain.Submission{Id: "sub-1", Status: domain.SubmissionProcessing},
			submittables: []domain.Submittable{
				{Id: "study-1", Kind: domain.KindStudy, Alias: "st", SubmissionId: "sub-1"},
			},
			archives: map[string]domain.Archive{"study-1": domain.Ena},
			states:   map[string]domain.ProcessingState{"study-1": domain.StateSubmitted},
		}
		submittables, statuses := f.stores()
		statuses.Impl.Summary = func(context.Context, string) (map[domain.ProcessingState]int, error) {
			return map[domain.ProcessingState]int{domain.StateSubmitted: 1}, nil
		}
		statuses.Impl.TransitionAll = func(
			_ context.Context, ids []string, to domain.ProcessingState, _ []domain.ProcessingState,
		) (int, error) {
			if to != domain.StateArchiveDisabled {
				t.Errorf("to: actual=%s, expect=%s", to, domain.StateArchiveDisabled)
			}
			return len(ids), nil
		}

		m := dispatcherMocks{
			submissions:  submock.New(),
			submittables: submittables,
			statuses:     statuses,
			supporting:   supportingmock.New(),
			files:        filemock.New(),
			leases:       leasemock.New(),
			publisher:    busmock.NewPublisher(),
		}
		m.submissions.Impl.Get = func(context.Context, string) (domain.Submission, error) {
			return f.submission, nil
		}
		leaseGranted(m.leases)

		testee := newDispatcher(disabledRouting, m)
		if err := testee.DispatchCycle(context.Background(), "sub-1", ""); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if len(m.publisher.Calls.Publish) != 0 {
			t.Errorf("Publish: called %d times, expect 0", len(m.publisher.Calls.Publish))
		}
		if m.statuses.Calls.TransitionAll.Times() != 1 {
			t.Errorf("TransitionAll: called %d times, expect 1", m.statuses.Calls.TransitionAll.Times())
		}
	})

	t.Run("an archive without a route is a configuration gap", func(t *testing.T) {
		f := fixture{
			submission: domain.Submission{Id: "sub-1", Status: domain.SubmissionProcessing},
			submittables: []domain.Submittable{
				{Id: "study-1", Kind: domain.KindStudy, Alias: "st", SubmissionId: "sub-1"},
			},
			archives: map[string]domain.Archive{"study-1": domain.Pride},
			states:   map[string]domain.ProcessingState{"study-1": domain.StateSubmitted},
		}
		submittables, statuses := f.stores()
		statuses.Impl.Summary = func(context.Context, string) (map[domain.ProcessingState]int, error) {
			return map[domain.ProcessingState]int{domain.StateSubmitted: 1}, nil
		}

		m := dispatcherMocks{
			submissions:  submock.New(),
			submittables: submittables,
			statuses:     statuses,
			supporting:   supportingmock.New(),
			files:        filemock.New(),
			leases:       leasemock.New(),
			publisher:    busmock.NewPublisher(),
		}
		m.submissions.Impl.Get = func(context.Context, string) (domain.Submission, error) {
			return f.submission, nil
		}
		leaseGranted(m.leases)

		testee := newDispatcher(routing, m)
		err := testee.DispatchCycle(context.Background(), "sub-1", "")
		if !errors.Is(err, domain.ErrConfigurationGap) {
			t.Errorf("err: actual=%+v, expect wrapping %+v", err, domain.ErrConfigurationGap)
		}
		if len(m.publisher.Calls.Publish) != 0 {
			t.Errorf("Publish: called %d times, expect 0", len(m.publisher.Calls.Publish))
		}
	})
}
