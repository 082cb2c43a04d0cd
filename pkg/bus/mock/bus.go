package mock

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/bus"
)

type CallLog[T any] []T

func (l CallLog[T]) Times() uint {
	return uint(len(l))
}

type Published struct {
	RoutingKey string
	Body       []byte
}

// Unmarshal decodes the published payload into out.
func (p Published) Unmarshal(out any) error {
	return json.Unmarshal(p.Body, out)
}

type Publisher struct {
	Impl struct {
		Publish func(ctx context.Context, routingKey string, payload any) error
	}

	Calls struct {
		Publish CallLog[Published]
	}
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

var _ bus.Publisher = &Publisher{}

func (m *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m.Calls.Publish = append(m.Calls.Publish, Published{RoutingKey: routingKey, Body: body})
	if m.Impl.Publish != nil {
		return m.Impl.Publish(ctx, routingKey, payload)
	}
	return nil
}

// ByRoutingKey filters the publish log.
func (m *Publisher) ByRoutingKey(routingKey string) []Published {
	out := []Published{}
	for _, p := range m.Calls.Publish {
		if p.RoutingKey == routingKey {
			out = append(out, p)
		}
	}
	return out
}

type Subscriber struct {
	Impl struct {
		Subscribe func(ctx context.Context, queue string, bindings []string, handler bus.Handler) error
	}
}

var _ bus.Subscriber = &Subscriber{}

func (m *Subscriber) Subscribe(ctx context.Context, queue string, bindings []string, handler bus.Handler) error {
	if m.Impl.Subscribe != nil {
		return m.Impl.Subscribe(ctx, queue, bindings, handler)
	}
	panic(errors.New("it should not be called"))
}
