// Package service holds the adapters plugging external infrastructure
// (RabbitMQ, Redis) into the reservation engine's extension points.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/model"
	q "github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/reservation"
)

// AMQPPublisher publishes reservation events to a durable RabbitMQ queue
// through the default exchange.  It dials per publish, which is fine for
// the event rate of a single restaurant.  Errors are logged and returned;
// the engine never undoes a write because of them.
type AMQPPublisher struct {
	URL   string
	Queue string
	Log   *logrus.Logger
}

// NewAMQPPublisher returns a publisher for url and queue.
func NewAMQPPublisher(url, queue string, log *logrus.Logger) *AMQPPublisher {
	if queue == "" {
		queue = q.DefaultQueueName
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AMQPPublisher{URL: url, Queue: queue, Log: log}
}

// Publish implements reservation.Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, ev reservation.Event) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		p.Log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ToQueueEvent(ev))
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		MessageId:    ev.ReservationID + ":" + ev.Type + ":" + ev.OccurredAt.UTC().Format(model.ISOLayout),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		p.Log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

// ToQueueEvent converts an engine event into its wire payload.
func ToQueueEvent(ev reservation.Event) q.ReservationEvent {
	return q.ReservationEvent{
		Type:          ev.Type,
		ReservationID: ev.ReservationID,
		Status:        string(ev.Status),
		GuestEmail:    ev.GuestEmail,
		ArrivalTime:   ev.ArrivalTime.UTC().Format(model.ISOLayout),
		TableSize:     ev.TableSize,
		Actor:         ev.Actor,
		OccurredAt:    ev.OccurredAt.UTC().Format(model.ISOLayout),
	}
}
