package domain_test

import (
	"testing"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/domain"
)

func TestRef(t *testing.T) {
	t.Run("refs match by accession when they carry one", func(t *testing.T) {
		ref := domain.Ref{Kind: domain.KindSample, Alias: "other-alias", Accession: "SAMEA1"}
		if !ref.Matches(domain.Submittable{Kind: domain.KindSample, Alias: "sm", Accession: "SAMEA1"}) {
			t.Error("accession match should win over alias mismatch")
		}
		if ref.Matches(domain.Submittable{Kind: domain.KindSample, Alias: "other-alias"}) {
			t.Error("alias should not match when the ref carries an accession")
		}
	})

	t.Run("refs without an accession match by kind and alias", func(t *testing.T) {
		ref := domain.Ref{Kind: domain.KindSample, Alias: "sm"}
		if !ref.Matches(domain.Submittable{Kind: domain.KindSample, Alias: "sm"}) {
			t.Error("kind + alias should match")
		}
		if ref.Matches(domain.Submittable{Kind: domain.KindStudy, Alias: "sm"}) {
			t.Error("a different kind should not match")
		}
	})

	t.Run("identity keys accessioned and unaccessioned refs apart", func(t *testing.T) {
		byAccession := domain.Ref{Kind: domain.KindSample, Alias: "sm", Accession: "SAMEA1"}
		byAlias := domain.Ref{Kind: domain.KindSample, Alias: "sm"}
		if byAccession.Identity() == byAlias.Identity() {
			t.Error("identities should differ once an accession is known")
		}
		if byAlias.Identity() != (domain.Ref{Kind: domain.KindSample, Alias: "sm"}).Identity() {
			t.Error("equal refs should share an identity")
		}
	})

	t.Run("a ref with neither alias nor accession is empty", func(t *testing.T) {
		if !(domain.Ref{Kind: domain.KindSample}).Empty() {
			t.Error("should be empty")
		}
		if (domain.Ref{Kind: domain.KindSample, Alias: "sm"}).Empty() {
			t.Error("should not be empty")
		}
	})
}

func TestProcessingState(t *testing.T) {
	for _, state := range []domain.ProcessingState{
		domain.StateCompleted, domain.StateRejected, domain.StateError, domain.StateArchiveDisabled,
	} {
		if !state.Terminal() {
			t.Errorf("%s should be terminal", state)
		}
	}
	for _, state := range []domain.ProcessingState{
		domain.StateDraft, domain.StateSubmitted, domain.StateDispatched,
	} {
		if state.Terminal() {
			t.Errorf("%s should not be terminal", state)
		}
	}

	if !domain.StateArchiveDisabled.Successful() {
		t.Error("an intentional skip should count as successful")
	}
	if domain.StateRejected.Successful() || domain.StateError.Successful() {
		t.Error("rejections and errors should not count as successful")
	}

	for _, state := range domain.DispatchableStates() {
		if state.Terminal() {
			t.Errorf("dispatchable state %s should not be terminal", state)
		}
	}
}

func TestSubmissionEnvelope(t *testing.T) {
	t.Run("Add deduplicates by id", func(t *testing.T) {
		env := domain.NewSubmissionEnvelope(domain.Submission{Id: "sub-1"})
		env.Add(domain.Submittable{Id: "s-1", Kind: domain.KindSample})
		env.Add(domain.Submittable{Id: "s-1", Kind: domain.KindSample})
		env.Add(domain.Submittable{Id: "s-2", Kind: domain.KindSample})

		if len(env.Submittables) != 2 {
			t.Errorf("submittables: actual=%d, expect=2", len(env.Submittables))
		}
	})

	t.Run("RequireSupportingSample deduplicates by identity", func(t *testing.T) {
		env := domain.NewSubmissionEnvelope(domain.Submission{Id: "sub-1"})
		ref := domain.Ref{Kind: domain.KindSample, Alias: "sm"}
		env.RequireSupportingSample(ref)
		env.RequireSupportingSample(ref)

		if len(env.SupportingSamplesRequired) != 1 {
			t.Errorf("required: actual=%d, expect=1", len(env.SupportingSamplesRequired))
		}
		if !env.SupportingSampleRequired(ref) {
			t.Error("the ref should be flagged")
		}
	})

	t.Run("ByKind filters the envelope's content", func(t *testing.T) {
		env := domain.NewSubmissionEnvelope(domain.Submission{Id: "sub-1"})
		env.AddAll([]domain.Submittable{
			{Id: "s-1", Kind: domain.KindSample},
			{Id: "a-1", Kind: domain.KindAssay},
			{Id: "a-2", Kind: domain.KindAssay},
		})

		if got := env.Samples(); len(got) != 1 {
			t.Errorf("samples: actual=%+v", got)
		}
		if got := env.Assays(); len(got) != 2 {
			t.Errorf("assays: actual=%+v", got)
		}
	})
}

func TestAccessionIdWrapper_ReadyToPublish(t *testing.T) {
	base := domain.AccessionIdWrapper{
		SubmissionId:         "sub-1",
		BioStudiesAccession:  "S-SUBS1",
		BioSamplesAccessions: []string{"SAMEA1"},
	}

	if !base.ReadyToPublish() {
		t.Error("both sides populated and unsent should be ready")
	}

	missingStudy := base
	missingStudy.BioStudiesAccession = ""
	if missingStudy.ReadyToPublish() {
		t.Error("missing BioStudies side should not be ready")
	}

	missingSamples := base
	missingSamples.BioSamplesAccessions = nil
	if missingSamples.ReadyToPublish() {
		t.Error("missing BioSamples side should not be ready")
	}
}
