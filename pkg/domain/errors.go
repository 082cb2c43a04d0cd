package domain

import "errors"

// not-found: a referenced submission or submittable no longer exists.
// Fatal for the current operation; proceeding risks dispatching a torn graph.
var ErrNotFound = errors.New("entity not found")

// version conflict: an optimistic-lock write targeted a stale version.
// Retried from a fresh read, bounded, before surfacing as transient failure.
var ErrVersionConflict = errors.New("version conflict")

// malformed input: a certificate without a submittable id.
// No retry will fix this; it routes to the dead-letter path.
var ErrMissingSubmittableId = errors.New("processing certificate submittable id must not be empty")

// configuration gap: a submittable variant or data type with no
// archive-assignment rule, or a ready archive with no routing key.
var ErrConfigurationGap = errors.New("configuration gap")

// Messages shown on a submission's status while it is being worked on.
const (
	ProcessingStartedMessage    = "The processing of the submission has started."
	ProcessingInProgressMessage = "The processing of the submission is still in progress. Please, check back later."
	SubmittedNotStartedMessage  = "It looks like the submission is still in submitted status and our system did not start to process it. Please, check back later."
)
