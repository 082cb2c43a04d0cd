// Package consumers binds bus deliveries to the processing services.
//
// Each handler decodes one payload shape. Payloads that cannot be decoded, or
// that fail in a way no redelivery can fix, are wrapped with bus.ErrReject so
// the broker dead-letters them instead of redelivering forever.
package consumers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/accession"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/archiveassign"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/bus"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/dispatch"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/progress"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/token"
)

// trigger is the common part of the payloads that start a processing pass.
// Submission-submitted events carry a full envelope; processing-updated
// events carry just the submission id.
type trigger struct {
	SubmissionId string `json:"submissionId"`
	Submission   struct {
		Id string `json:"id"`
	} `json:"submission"`
	JWT string `json:"jwtToken"`
}

func (t trigger) submissionId() string {
	if t.SubmissionId != "" {
		return t.SubmissionId
	}
	return t.Submission.Id
}

func decode(d bus.Delivery, out any) error {
	if err := json.Unmarshal(d.Body, out); err != nil {
		return xe.WrapWithNote("undecodable payload on "+d.RoutingKey, errors.Join(bus.ErrReject, err))
	}
	return nil
}

func decodeTrigger(d bus.Delivery) (trigger, error) {
	t := trigger{}
	if err := decode(d, &t); err != nil {
		return trigger{}, err
	}
	if t.submissionId() == "" {
		return trigger{}, xe.WrapWithNote("payload without submission id on "+d.RoutingKey, bus.ErrReject)
	}
	return t, nil
}

// ArchiveAssignment stamps archives on freshly submitted submissions.
func ArchiveAssignment(svc *archiveassign.Service) bus.Handler {
	return func(ctx context.Context, d bus.Delivery) error {
		t, err := decodeTrigger(d)
		if err != nil {
			return err
		}
		err = svc.Process(ctx, t.submissionId())
		if errors.Is(err, domain.ErrConfigurationGap) {
			// redelivery cannot grow the rule table.
			return xe.WrapWithNote(err.Error(), bus.ErrReject)
		}
		return err
	}
}

// Dispatch runs a dispatch cycle whenever a submission's state may have moved.
func Dispatch(d *dispatch.Dispatcher, inspector *token.Inspector) bus.Handler {
	return func(ctx context.Context, delivery bus.Delivery) error {
		t, err := decodeTrigger(delivery)
		if err != nil {
			return err
		}
		inspector.Inspect(t.JWT, t.submissionId())
		err = d.DispatchCycle(ctx, t.submissionId(), t.JWT)
		if errors.Is(err, domain.ErrConfigurationGap) {
			return xe.WrapWithNote(err.Error(), bus.ErrReject)
		}
		return err
	}
}

// SupportingInfoCheck flags sample refs that must be fetched externally and
// asks for them on the bus.
func SupportingInfoCheck(engine *dispatch.SupportingInfoEngine, publisher bus.Publisher) bus.Handler {
	return func(ctx context.Context, d bus.Delivery) error {
		t, err := decodeTrigger(d)
		if err != nil {
			return err
		}
		required, err := engine.DetermineSupportingInformationRequired(ctx, t.submissionId(), t.JWT)
		if err != nil {
			return err
		}
		for _, env := range required {
			if err := publisher.Publish(ctx, bus.TopicSubmissionNeedsSamples, env); err != nil {
				return err
			}
		}
		return nil
	}
}

// Monitor absorbs archive agent certificates and announces the change so a
// new dispatch cycle runs.
func Monitor(svc *progress.Service, publisher bus.Publisher) bus.Handler {
	return func(ctx context.Context, d bus.Delivery) error {
		env := domain.ProcessingCertificateEnvelope{}
		if err := decode(d, &env); err != nil {
			return err
		}
		if env.SubmissionId == "" {
			return xe.WrapWithNote("certificate envelope without submission id", bus.ErrReject)
		}

		err := svc.AbsorbCertificates(ctx, env)
		if errors.Is(err, domain.ErrMissingSubmittableId) {
			return xe.WrapWithNote(err.Error(), bus.ErrReject)
		}
		if err != nil {
			return err
		}

		return publisher.Publish(ctx, bus.TopicProcessingUpdated, trigger{
			SubmissionId: env.SubmissionId,
			JWT:          env.JWT,
		})
	}
}

// AccessionIds folds reported accessions into per-submission wrappers.
func AccessionIds(acc *accession.Accumulator) bus.Handler {
	return func(ctx context.Context, d bus.Delivery) error {
		env := domain.ProcessingCertificateEnvelope{}
		if err := decode(d, &env); err != nil {
			return err
		}
		if env.SubmissionId == "" {
			return xe.WrapWithNote("certificate envelope without submission id", bus.ErrReject)
		}
		return acc.Consume(ctx, env)
	}
}

// SupportingInfoProvided stores externally fetched samples and retriggers
// dispatch for the submission.
func SupportingInfoProvided(svc *progress.Service, publisher bus.Publisher) bus.Handler {
	return func(ctx context.Context, d bus.Delivery) error {
		env := domain.SubmissionEnvelope{}
		if err := decode(d, &env); err != nil {
			return err
		}
		if env.Submission.Id == "" {
			return xe.WrapWithNote("envelope without submission id", bus.ErrReject)
		}

		if err := svc.StoreSupportingInformation(ctx, env); err != nil {
			return err
		}
		return publisher.Publish(ctx, bus.TopicProcessingUpdated, trigger{
			SubmissionId: env.Submission.Id,
			JWT:          env.JWT,
		})
	}
}
