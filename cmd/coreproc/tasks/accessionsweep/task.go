package accessionsweep

import (
	"context"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/accession"
	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/loop/recurring"
)

// initial value for task
func Seed() any {
	return nil
}

// return:
//
// - task: publish the combined accession notification for one wrapper which
// has both its BioStudies and BioSamples sides populated.
func Task(publisher *accession.Publisher) recurring.Task[any] {
	return func(ctx context.Context, value any) (any, bool, error) {
		published, err := publisher.PublishReady(ctx)
		return value, published, err
	}
}
