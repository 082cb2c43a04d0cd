// Package bus abstracts the durable topic broker carrying processing events
// between the core and the archive agents.
package bus

import (
	"context"
	"errors"
)

// Exchange is the topic exchange every processing event goes through.
const Exchange = "usi-1:submission-exchange"

// Routing keys of events consumed and produced by the core.
const (
	TopicSubmissionSubmitted    = "usi.submission.submitted"
	TopicProcessingUpdated      = "usi.submission.processing.updated"
	TopicSubmissionNeedsSamples = "usi.submission.needs.samples"
	TopicAgentResults           = "usi.agentresults.produced"
	TopicSupportingInfoProvided = "usi.submission.supportingInfoProvided"
	TopicAccessionIdsPublished  = "usi.accessionids.published"
)

// Queues of this process. Competing consumers: each message is handled by
// exactly one worker at a time.
const (
	QueueArchiveAssignment      = "usi-submission-archive-assignment"
	QueueDispatcher             = "usi-submission-dispatcher"
	QueueSupportingInfoCheck    = "usi-submission-check-supporting-info"
	QueueMonitor                = "usi-submission-monitor"
	QueueAccessionIds           = "usi-accessionids-consumer"
	QueueSupportingInfoProvided = "usi-submission-supporting-info-provided"
)

// handlers return an error wrapping ErrReject for input no redelivery can fix
// (malformed payloads). Such messages go to the dead-letter path instead of
// being requeued.
var ErrReject = errors.New("rejected")

type Delivery struct {
	RoutingKey string
	Body       []byte
}

// Handler processes one delivery.
//
// A nil return acknowledges the message. An error requeues it, unless the
// error wraps ErrReject.
type Handler func(ctx context.Context, d Delivery) error

type Publisher interface {
	// Publish marshals payload as JSON and sends it with the routing key.
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Subscriber interface {
	// Subscribe binds the queue to the routing keys and consumes it with
	// handler until ctx is done. Blocking.
	Subscribe(ctx context.Context, queue string, bindings []string, handler Handler) error
}

type Bus interface {
	Publisher
	Subscriber

	Close() error
}
