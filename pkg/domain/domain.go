// Package domain holds the entities of submission processing:
// submissions, submittables, their processing statuses, and the
// message-borne aggregates moving between processing stages.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Archive is a downstream system which stores and accessions a category of data.
type Archive string

const (
	BioSamples   Archive = "BioSamples"
	BioStudies   Archive = "BioStudies"
	Ena          Archive = "Ena"
	ArrayExpress Archive = "ArrayExpress"
	Metabolights Archive = "Metabolights"
	Pride        Archive = "Pride"
	EgaArchive   Archive = "EgaArchive"
)

func (a Archive) String() string {
	return string(a)
}

func AsArchive(s string) (Archive, error) {
	switch s {
	case string(BioSamples):
		return BioSamples, nil
	case string(BioStudies):
		return BioStudies, nil
	case string(Ena):
		return Ena, nil
	case string(ArrayExpress):
		return ArrayExpress, nil
	case string(Metabolights):
		return Metabolights, nil
	case string(Pride):
		return Pride, nil
	case string(EgaArchive):
		return EgaArchive, nil
	default:
		return "", fmt.Errorf("'%s' is not an Archive", s)
	}
}

// SubmittableKind tags the closed set of submittable variants.
type SubmittableKind string

const (
	KindSample       SubmittableKind = "Sample"
	KindSampleGroup  SubmittableKind = "SampleGroup"
	KindStudy        SubmittableKind = "Study"
	KindAssay        SubmittableKind = "Assay"
	KindAssayData    SubmittableKind = "AssayData"
	KindAnalysis     SubmittableKind = "Analysis"
	KindProject      SubmittableKind = "Project"
	KindProtocol     SubmittableKind = "Protocol"
	KindEgaDac       SubmittableKind = "EgaDac"
	KindEgaDacPolicy SubmittableKind = "EgaDacPolicy"
	KindEgaDataset   SubmittableKind = "EgaDataset"
)

func (k SubmittableKind) String() string {
	return string(k)
}

// Kinds returns every submittable variant.
//
// Archive assignment rules are validated against this list at startup.
func Kinds() []SubmittableKind {
	return []SubmittableKind{
		KindSample, KindSampleGroup, KindStudy, KindAssay, KindAssayData,
		KindAnalysis, KindProject, KindProtocol,
		KindEgaDac, KindEgaDacPolicy, KindEgaDataset,
	}
}

func AsSubmittableKind(s string) (SubmittableKind, error) {
	for _, k := range Kinds() {
		if s == string(k) {
			return k, nil
		}
	}
	return "", fmt.Errorf("'%s' is not a SubmittableKind", s)
}

// SubmissionStatus is the lifecycle of a whole submission.
type SubmissionStatus string

const (
	SubmissionDraft      SubmissionStatus = "Draft"
	SubmissionSubmitted  SubmissionStatus = "Submitted"
	SubmissionProcessing SubmissionStatus = "Processing"
	SubmissionCompleted  SubmissionStatus = "Completed"
	SubmissionFailed     SubmissionStatus = "Failed"
)

func (s SubmissionStatus) String() string {
	return string(s)
}

// Finished means no further dispatch cycle will run for the submission.
func (s SubmissionStatus) Finished() bool {
	switch s {
	case SubmissionCompleted, SubmissionFailed:
		return true
	default:
		return false
	}
}

func AsSubmissionStatus(s string) (SubmissionStatus, error) {
	switch s {
	case string(SubmissionDraft):
		return SubmissionDraft, nil
	case string(SubmissionSubmitted):
		return SubmissionSubmitted, nil
	case string(SubmissionProcessing):
		return SubmissionProcessing, nil
	case string(SubmissionCompleted):
		return SubmissionCompleted, nil
	case string(SubmissionFailed):
		return SubmissionFailed, nil
	default:
		return "", fmt.Errorf("'%s' is not a SubmissionStatus", s)
	}
}

// ProcessingState is the lifecycle of one submittable.
//
// Draft -> Submitted -> Dispatched -> {Completed | Rejected | Error | ArchiveDisabled}
type ProcessingState string

const (
	StateDraft           ProcessingState = "Draft"
	StateSubmitted       ProcessingState = "Submitted"
	StateDispatched      ProcessingState = "Dispatched"
	StateCompleted       ProcessingState = "Completed"
	StateRejected        ProcessingState = "Rejected"
	StateError           ProcessingState = "Error"
	StateArchiveDisabled ProcessingState = "ArchiveDisabled"
)

func (p ProcessingState) String() string {
	return string(p)
}

// DispatchableStates are the states a submittable may be picked up from by a
// dispatch cycle. The readiness engine and the completion engine both consume
// this set, so they always agree on what "still active" means.
func DispatchableStates() []ProcessingState {
	return []ProcessingState{StateDraft, StateSubmitted}
}

// Terminal reports whether no archive agent will move the submittable further.
func (p ProcessingState) Terminal() bool {
	switch p {
	case StateCompleted, StateRejected, StateError, StateArchiveDisabled:
		return true
	default:
		return false
	}
}

// Successful means the submittable counts toward a successful submission.
// ArchiveDisabled is an intentional skip, not an error.
func (p ProcessingState) Successful() bool {
	switch p {
	case StateCompleted, StateArchiveDisabled:
		return true
	default:
		return false
	}
}

func AsProcessingState(s string) (ProcessingState, error) {
	switch s {
	case string(StateDraft):
		return StateDraft, nil
	case string(StateSubmitted):
		return StateSubmitted, nil
	case string(StateDispatched):
		return StateDispatched, nil
	case string(StateCompleted):
		return StateCompleted, nil
	case string(StateRejected):
		return StateRejected, nil
	case string(StateError):
		return StateError, nil
	case string(StateArchiveDisabled):
		return StateArchiveDisabled, nil
	default:
		return "", fmt.Errorf("'%s' is not a ProcessingState", s)
	}
}

// Submission is the top level unit of work.
type Submission struct {
	Id            string           `json:"id"`
	Team          string           `json:"team,omitempty"`
	Status        SubmissionStatus `json:"status"`
	StatusMessage string           `json:"statusMessage,omitempty"`
	SubmittedAt   time.Time        `json:"submittedAt"`

	// Version counts saves. Writes against a stale version are rejected.
	Version int64 `json:"-"`
}

// Ref is an outgoing reference from one submittable to another,
// by alias or, once known, by accession.
type Ref struct {
	Kind      SubmittableKind `json:"kind"`
	Alias     string          `json:"alias,omitempty"`
	Accession string          `json:"accession,omitempty"`
}

// Empty refs carry neither alias nor accession. They are artifacts of
// default-initialised documents and are treated as absent.
func (r Ref) Empty() bool {
	return r.Alias == "" && r.Accession == ""
}

func (r Ref) Accessioned() bool {
	return r.Accession != ""
}

// Identity keys a ref for per-pass lookup caching.
// Refs with the same identity resolve to the same target within one pass.
func (r Ref) Identity() string {
	if r.Accession != "" {
		return "accession:" + r.Accession
	}
	return "alias:" + string(r.Kind) + "/" + r.Alias
}

// FindMatch returns the submittable in candidates this ref points at, if any.
func (r Ref) FindMatch(candidates []Submittable) (Submittable, bool) {
	for _, c := range candidates {
		if r.Matches(c) {
			return c, true
		}
	}
	return Submittable{}, false
}

func (r Ref) Matches(s Submittable) bool {
	if r.Accession != "" {
		return s.Accession == r.Accession
	}
	return s.Kind == r.Kind && s.Alias == r.Alias
}

// Submittable is one record in a submission.
type Submittable struct {
	Id           string          `json:"id"`
	Kind         SubmittableKind `json:"kind"`
	Alias        string          `json:"alias"`
	SubmissionId string          `json:"submissionId"`
	DataType     string          `json:"dataType"`
	Accession    string          `json:"accession,omitempty"`
	Refs         []Ref           `json:"refs,omitempty"`

	// Document is the content payload as submitted. The core passes it
	// through to archive agents untouched.
	Document json.RawMessage `json:"document,omitempty"`
}

func (s Submittable) Accessioned() bool {
	return s.Accession != ""
}

// SampleRefs are the sample references this submittable uses.
// Assays reference the samples their measurements were taken from.
func (s Submittable) SampleRefs() []Ref {
	refs := []Ref{}
	for _, r := range s.Refs {
		if r.Kind == KindSample && !r.Empty() {
			refs = append(refs, r)
		}
	}
	return refs
}

// ProcessingStatus is the per-submittable lifecycle record.
type ProcessingStatus struct {
	SubmittableId string          `json:"submittableId"`
	SubmissionId  string          `json:"submissionId"`
	Kind          SubmittableKind `json:"kind"`

	// Archive is nil until archive assignment has run.
	Archive *Archive `json:"archive,omitempty"`

	Accession      string          `json:"accession,omitempty"`
	State          ProcessingState `json:"status"`
	Message        string          `json:"message,omitempty"`
	LastModifiedBy string          `json:"lastModifiedBy,omitempty"`
	LastModified   time.Time       `json:"lastModified"`

	Version int64 `json:"-"`
}

// File is an uploaded data file held by the platform for a submission.
type File struct {
	SubmissionId string
	Filename     string
	TargetPath   string
	TotalSize    int64
	Checksum     string
}

// UploadedFile is the envelope-borne view of a File.
type UploadedFile struct {
	SubmissionId string `json:"submissionId"`
	Filename     string `json:"filename"`
	Path         string `json:"path"`
	TotalSize    int64  `json:"totalSize"`
	Checksum     string `json:"checksum"`
}

func (f File) AsUploaded() UploadedFile {
	return UploadedFile{
		SubmissionId: f.SubmissionId,
		Filename:     f.Filename,
		Path:         f.TargetPath,
		TotalSize:    f.TotalSize,
		Checksum:     f.Checksum,
	}
}

// ProcessingCertificate is an archive agent's report about one submittable.
type ProcessingCertificate struct {
	SubmittableId string          `json:"submittableId"`
	Archive       Archive         `json:"archive"`
	State         ProcessingState `json:"processingStatus"`
	Accession     string          `json:"accession,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// ProcessingCertificateEnvelope batches certificates for one submission.
type ProcessingCertificateEnvelope struct {
	SubmissionId string                  `json:"submissionId"`
	Certificates []ProcessingCertificate `json:"processingCertificates"`
	JWT          string                  `json:"jwtToken,omitempty"`
}

// AccessionIdWrapper accumulates the BioStudies accession and the BioSamples
// accessions reported for one submission, so that a combined notification can
// be published once both are in hand.
type AccessionIdWrapper struct {
	SubmissionId         string
	BioStudiesAccession  string
	BioSamplesAccessions []string

	// MessageSentAt is set when the combined notification has been
	// published. Set at most once, never cleared.
	MessageSentAt *time.Time

	Version int64
}

// ReadyToPublish when both the BioStudies and BioSamples sides are populated
// and the combined notification has not gone out yet.
func (w AccessionIdWrapper) ReadyToPublish() bool {
	return w.MessageSentAt == nil &&
		w.BioStudiesAccession != "" &&
		len(w.BioSamplesAccessions) > 0
}

// AccessionIdEnvelope is the combined accession notification.
type AccessionIdEnvelope struct {
	BioStudiesAccession  string   `json:"bioStudiesAccessionId"`
	BioSamplesAccessions []string `json:"bioSamplesAccessionIds"`
}
