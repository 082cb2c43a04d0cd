package domain

// SubmissionEnvelope bundles a submission with the subset of its content
// moving together through one processing stage.
//
// It is reconstructed from the store per cycle, never persisted, and owned by
// whichever stage currently holds it.
type SubmissionEnvelope struct {
	Submission   Submission    `json:"submission"`
	Submittables []Submittable `json:"submittables,omitempty"`

	// SupportingSamples are externally held samples gathered for the
	// receiving archive.
	SupportingSamples []Submittable `json:"supportingSamples,omitempty"`

	// SupportingSamplesRequired are sample refs which must be fetched from
	// BioSamples before the envelope's content can be processed.
	SupportingSamplesRequired []Ref `json:"supportingSamplesRequired,omitempty"`

	UploadedFiles []UploadedFile `json:"uploadedFiles,omitempty"`

	// JWT is the caller credential passed through to archive agents.
	JWT string `json:"jwtToken,omitempty"`
}

func NewSubmissionEnvelope(submission Submission) *SubmissionEnvelope {
	return &SubmissionEnvelope{Submission: submission}
}

// Add puts s into the envelope unless it is already there.
func (e *SubmissionEnvelope) Add(s Submittable) {
	for _, existing := range e.Submittables {
		if existing.Id == s.Id {
			return
		}
	}
	e.Submittables = append(e.Submittables, s)
}

func (e *SubmissionEnvelope) AddAll(subs []Submittable) {
	for _, s := range subs {
		e.Add(s)
	}
}

// ByKind returns the envelope's submittables of one variant.
func (e *SubmissionEnvelope) ByKind(kind SubmittableKind) []Submittable {
	out := []Submittable{}
	for _, s := range e.Submittables {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func (e *SubmissionEnvelope) Samples() []Submittable {
	return e.ByKind(KindSample)
}

func (e *SubmissionEnvelope) Assays() []Submittable {
	return e.ByKind(KindAssay)
}

// RequireSupportingSample records a sample ref as still missing,
// deduplicated by ref identity.
func (e *SubmissionEnvelope) RequireSupportingSample(ref Ref) {
	for _, r := range e.SupportingSamplesRequired {
		if r.Identity() == ref.Identity() {
			return
		}
	}
	e.SupportingSamplesRequired = append(e.SupportingSamplesRequired, ref)
}

// SupportingSampleRequired reports whether ref is already flagged as missing.
func (e *SubmissionEnvelope) SupportingSampleRequired(ref Ref) bool {
	for _, r := range e.SupportingSamplesRequired {
		if r.Identity() == ref.Identity() {
			return true
		}
	}
	return false
}

// SubmittableIds of everything in the envelope, in insertion order.
func (e *SubmissionEnvelope) SubmittableIds() []string {
	ids := make([]string, len(e.Submittables))
	for i, s := range e.Submittables {
		ids[i] = s.Id
	}
	return ids
}
