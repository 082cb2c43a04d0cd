// RabbitMQ-backed implementation of the bus interfaces.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/bus"
	xe "github.com/EMBL-EBI-SUBS/subs-core-processing/pkg/errors"
	amqp091 "github.com/rabbitmq/amqp091-go"
)

type rabbitBus struct {
	conn   *amqp091.Connection
	pubch  *amqp091.Channel
	logger *log.Logger
}

// Connect dials the broker and declares the submission exchange.
func Connect(uri string, logger *log.Logger) (bus.Bus, error) {
	conn, err := amqp091.Dial(uri)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	pubch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, xe.Wrap(err)
	}

	if err := declareExchange(pubch); err != nil {
		conn.Close()
		return nil, err
	}

	return &rabbitBus{conn: conn, pubch: pubch, logger: logger}, nil
}

func declareExchange(ch *amqp091.Channel) error {
	return xe.Wrap(ch.ExchangeDeclare(
		bus.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	))
}

func (b *rabbitBus) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return xe.Wrap(err)
	}

	return xe.Wrap(b.pubch.PublishWithContext(
		ctx,
		bus.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Body:         body,
		},
	))
}

func (b *rabbitBus) Subscribe(ctx context.Context, queue string, bindings []string, handler bus.Handler) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return xe.Wrap(err)
	}
	defer ch.Close()

	if err := declareExchange(ch); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return xe.Wrap(err)
	}

	for _, binding := range bindings {
		if err := ch.QueueBind(queue, binding, bus.Exchange, false, nil); err != nil {
			return xe.Wrap(err)
		}
	}

	// one unacked message per worker; redelivery is the retry mechanism.
	if err := ch.Qos(1, 0, false); err != nil {
		return xe.Wrap(err)
	}

	deliveries, err := ch.Consume(
		queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return xe.Wrap(err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return xe.New("consume channel closed: " + queue)
			}
			err := handler(ctx, bus.Delivery{RoutingKey: d.RoutingKey, Body: d.Body})
			if err == nil {
				if err := d.Ack(false); err != nil {
					return xe.Wrap(err)
				}
				continue
			}

			requeue := !errors.Is(err, bus.ErrReject)
			b.logger.Printf("handler failed on %s (requeue=%t): %s", queue, requeue, err)
			if err := d.Nack(false, requeue); err != nil {
				return xe.Wrap(err)
			}
		}
	}
}

func (b *rabbitBus) Close() error {
	return b.conn.Close()
}
