// Package dispatch runs dispatch cycles: it decides which submittables are
// ready for their archives, enriches envelopes with context the agents need,
// and posts them on the bus.
package dispatch

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/bus"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/completion"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	filedb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/file/db"
	leasedb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/lease/db"
	statusdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/status/db"
	subdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submission/db"
	sbmtdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/submittable/db"
	supportingdb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/supporting/db"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/refresolve"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/utils/slices"
)

// ErrCycleInFlight: another worker holds the submission's dispatch lease.
// Transient; the triggering message should be redelivered later.
var ErrCycleInFlight = errors.New("a dispatch cycle for the submission is already in flight")

// Route is the bus destination of one archive.
type Route struct {
	RoutingKey string
	Enabled    bool
}

// Routing maps each configured archive to its route.
type Routing map[domain.Archive]Route

type Dispatcher struct {
	submissions  subdb.Interface
	submittables sbmtdb.Interface
	statuses     statusdb.Interface
	supporting   supportingdb.Interface
	files        filedb.Interface
	leases       leasedb.Interface

	completion *completion.Service
	readiness  *ReadinessEngine
	publisher  bus.Publisher
	routing    Routing

	// holder identifies this process on dispatch leases.
	holder   string
	leaseTtl time.Duration

	logger *log.Logger
}

func New(
	submissions subdb.Interface,
	submittables sbmtdb.Interface,
	statuses statusdb.Interface,
	supporting supportingdb.Interface,
	files filedb.Interface,
	leases leasedb.Interface,
	completionService *completion.Service,
	readiness *ReadinessEngine,
	publisher bus.Publisher,
	routing Routing,
	holder string,
	leaseTtl time.Duration,
	logger *log.Logger,
) *Dispatcher {
	return &Dispatcher{
		submissions:  submissions,
		submittables: submittables,
		statuses:     statuses,
		supporting:   supporting,
		files:        files,
		leases:       leases,
		completion:   completionService,
		readiness:    readiness,
		publisher:    publisher,
		routing:      routing,
		holder:       holder,
		leaseTtl:     leaseTtl,
		logger:       logger,
	}
}

// DispatchCycle runs one full dispatch pass over the submission.
//
// The cycle first checks for completion: when every submittable has reached a
// terminal state, the submission is settled and nothing is dispatched. An
// active submission is then assessed for readiness under the dispatch lease;
// per ready archive, dispatchable submittables are marked Dispatched and the
// enriched envelope is posted on the archive's routing key.
//
// The lease serializes cycles per submission. When another worker holds it,
// ErrCycleInFlight is returned so the triggering message gets redelivered;
// the state that triggered it will be reassessed then.
func (d *Dispatcher) DispatchCycle(ctx context.Context, submissionId string, jwt string) error {
	submission, err := d.submissions.Get(ctx, submissionId)
	if err != nil {
		return err
	}
	if submission.Status.Finished() {
		d.logger.Printf("submission %s is already %s; nothing to dispatch", submissionId, submission.Status)
		return nil
	}

	class, err := d.completion.Evaluate(ctx, submissionId)
	if err != nil {
		return err
	}
	if class.Finished() {
		return d.completion.MarkFinished(ctx, submissionId, class)
	}

	held, err := d.leases.Acquire(ctx, submissionId, d.holder, d.leaseTtl)
	if err != nil {
		return err
	}
	if !held {
		return xe.WrapWithNote("submission "+submissionId, ErrCycleInFlight)
	}
	defer func() {
		if err := d.leases.Release(context.WithoutCancel(ctx), submissionId, d.holder); err != nil {
			d.logger.Printf("releasing dispatch lease of %s: %s", submissionId, err)
		}
	}()

	ready, err := d.readiness.Assess(ctx, submission, jwt)
	if err != nil {
		return err
	}

	for _, archive := range sortedArchives(ready) {
		env := ready[archive]
		if err := d.dispatchToArchive(ctx, archive, env); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) dispatchToArchive(
	ctx context.Context,
	archive domain.Archive,
	env *domain.SubmissionEnvelope,
) error {
	route, configured := d.routing[archive]
	if !configured {
		// data reached an archive the deployment does not know how to talk
		// to. This needs an operator, not a retry.
		return xe.WrapWithNote(
			"no routing key configured for archive "+archive.String(),
			domain.ErrConfigurationGap,
		)
	}

	ids := env.SubmittableIds()

	if !route.Enabled {
		moved, err := d.statuses.TransitionAll(
			ctx, ids, domain.StateArchiveDisabled, domain.DispatchableStates(),
		)
		if err != nil {
			return err
		}
		d.logger.Printf(
			"submission %s: archive %s is disabled; %d submittables skipped",
			env.Submission.Id, archive, moved,
		)
		return nil
	}

	if err := d.enrich(ctx, env); err != nil {
		return err
	}

	moved, err := d.statuses.TransitionAll(
		ctx, ids, domain.StateDispatched, domain.DispatchableStates(),
	)
	if err != nil {
		return err
	}
	if moved == 0 {
		// everything already moved on. Under the lease this means a terminal
		// state landed since readiness was assessed; do not re-dispatch.
		d.logger.Printf(
			"submission %s: nothing left to dispatch to %s",
			env.Submission.Id, archive,
		)
		return nil
	}

	if err := d.publisher.Publish(ctx, route.RoutingKey, env); err != nil {
		return err
	}
	d.logger.Printf(
		"submission %s: dispatched %d submittables to %s (%s)",
		env.Submission.Id, moved, archive, route.RoutingKey,
	)
	return nil
}

// enrich stuffs the envelope with everything the archive agent needs beyond
// the ready submittables: the samples its assays refer to and the uploaded
// files its documents name.
func (d *Dispatcher) enrich(ctx context.Context, env *domain.SubmissionEnvelope) error {
	if err := d.insertSupportingSamples(ctx, env); err != nil {
		return err
	}
	return d.insertUploadedFiles(ctx, env)
}

func (d *Dispatcher) insertSupportingSamples(ctx context.Context, env *domain.SubmissionEnvelope) error {
	assays := env.Assays()
	if len(assays) == 0 {
		return nil
	}

	gathered, err := d.supporting.BySubmission(ctx, env.Submission.Id)
	if err != nil {
		return err
	}

	resolver := refresolve.New(d.submittables)
	samples := env.Samples()

	for _, assay := range assays {
		for _, ref := range assay.SampleRefs() {
			if _, ok := ref.FindMatch(samples); ok {
				continue
			}
			if _, ok := ref.FindMatch(env.SupportingSamples); ok {
				continue
			}
			if match, ok := ref.FindMatch(gathered); ok {
				env.SupportingSamples = append(env.SupportingSamples, match)
				continue
			}
			target, err := resolver.Resolve(ctx, &ref)
			if err != nil {
				return err
			}
			if target != nil {
				env.SupportingSamples = append(env.SupportingSamples, *target)
			}
			// still unresolved: the supporting information stage flags these
			// before dispatch gets this far.
		}
	}
	return nil
}

func (d *Dispatcher) insertUploadedFiles(ctx context.Context, env *domain.SubmissionEnvelope) error {
	withFiles := slices.Concat(env.ByKind(domain.KindAssayData), env.ByKind(domain.KindAnalysis))
	if len(withFiles) == 0 {
		return nil
	}

	files, err := d.files.BySubmission(ctx, env.Submission.Id)
	if err != nil {
		return err
	}
	byName := slices.ToMap(files, func(f domain.File) string { return f.Filename })

	seen := map[string]bool{}
	for _, submittable := range withFiles {
		for _, name := range fileRefNames(submittable) {
			if seen[name] {
				continue
			}
			seen[name] = true
			if f, ok := byName[name]; ok {
				env.UploadedFiles = append(env.UploadedFiles, f.AsUploaded())
			}
		}
	}
	return nil
}

func sortedArchives(envs map[domain.Archive]*domain.SubmissionEnvelope) []domain.Archive {
	archives := make([]domain.Archive, 0, len(envs))
	for a := range envs {
		archives = append(archives, a)
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i] < archives[j] })
	return archives
}
