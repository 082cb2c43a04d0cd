// Package accession accumulates BioStudies and BioSamples accessions per
// submission and publishes a combined notification once both sides are known.
package accession

import (
	"context"
	"log"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/bus"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
	accessiondb "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain/accession/db"
)

type Accumulator struct {
	store  accessiondb.Interface
	logger *log.Logger
}

func NewAccumulator(store accessiondb.Interface, logger *log.Logger) *Accumulator {
	return &Accumulator{store: store, logger: logger}
}

// Consume folds the accessions reported in the envelope into the submission's
// wrapper.
//
// Certificates from archives other than BioStudies and BioSamples are ignored.
// Each side is written as the full set from the envelope, so a redelivered
// envelope lands on the same wrapper content.
func (a *Accumulator) Consume(ctx context.Context, env domain.ProcessingCertificateEnvelope) error {
	bioStudies := ""
	bioSamples := []string{}
	for _, cert := range env.Certificates {
		if cert.Accession == "" {
			continue
		}
		switch cert.Archive {
		case domain.BioStudies:
			bioStudies = cert.Accession
		case domain.BioSamples:
			bioSamples = append(bioSamples, cert.Accession)
		}
	}
	if bioStudies == "" && len(bioSamples) == 0 {
		return nil
	}

	return a.store.Absorb(ctx, env.SubmissionId, func(w *domain.AccessionIdWrapper) {
		if bioStudies != "" {
			w.BioStudiesAccession = bioStudies
		}
		if len(bioSamples) != 0 {
			w.BioSamplesAccessions = bioSamples
		}
	})
}

type Publisher struct {
	store     accessiondb.Interface
	publisher bus.Publisher
	logger    *log.Logger
}

func NewPublisher(store accessiondb.Interface, publisher bus.Publisher, logger *log.Logger) *Publisher {
	return &Publisher{store: store, publisher: publisher, logger: logger}
}

// PublishReady pops one wrapper with both sides populated, publishes the
// combined notification, and stamps the wrapper as sent.
//
// Stamping happens in the same transaction as the pop, so each wrapper is
// published at most once even with concurrent sweeps. A failed publish rolls
// the pop back and the wrapper stays eligible.
//
// Returns true when a wrapper was published.
func (p *Publisher) PublishReady(ctx context.Context) (bool, error) {
	return p.store.PopReadyToPublish(ctx, func(w domain.AccessionIdWrapper) error {
		err := p.publisher.Publish(ctx, bus.TopicAccessionIdsPublished, domain.AccessionIdEnvelope{
			BioStudiesAccession:  w.BioStudiesAccession,
			BioSamplesAccessions: w.BioSamplesAccessions,
		})
		if err != nil {
			return err
		}
		p.logger.Printf("submission %s: published combined accession ids", w.SubmissionId)
		return nil
	})
}
