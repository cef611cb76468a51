package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/roms-labs/ingest-svc/internal/dal/rabbitmq"
	"github.com/roms-labs/ingest-svc/internal/service/services/ingestsvc"
)

const consumerStopTimeout = 10 * time.Second

// service represents the service layer interface.
type service interface {
	Accept(ctx context.Context, payload []byte, meta ingestsvc.Metadata) (ingestsvc.AcceptResult, error)
}

// Consumer feeds broker deliveries into the same ingress boundary the HTTP
// transport uses. Backpressure maps to a requeueing nack, so a full queue
// leaves the message with the broker instead of dropping it.
type Consumer struct {
	client  *rabbitmq.Client
	service service
	queue   amqp.Queue
	stop    chan struct{}
	done    chan struct{}
}

// NewConsumer creates a new Consumer.
func NewConsumer(client *rabbitmq.Client, service service) *Consumer {
	queueName := viper.GetString("amqp.queue")
	if queueName == "" {
		panic("amqp.queue is not set in config")
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:       queueName,
		Durable:    true,
		AutoDelete: false,
		Exclusive:  false,
		NoWait:     false,
	})
	if err != nil {
		panic(err)
	}

	return &Consumer{
		client:  client,
		service: service,
		queue:   queue,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run starts consuming notifications from RabbitMQ.
func (c *Consumer) Run(ctx context.Context) error {
	consumerTag := viper.GetString("amqp.consumer_tag")
	if consumerTag == "" {
		consumerTag = "ingest-svc"
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:     c.queue.Name,
		Consumer:  consumerTag,
		AutoAck:   false,
		Exclusive: viper.GetBool("amqp.exclusive"),
		NoLocal:   viper.GetBool("amqp.no_local"),
		NoWait:    viper.GetBool("amqp.no_wait"),
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue.Name, "consumer_tag", consumerTag)

	maxInflight := viper.GetInt("amqp.max_inflight")
	if maxInflight <= 0 {
		maxInflight = 50
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInflight)

	go func() {
		for {
			select {
			case <-c.stop:
				slog.Info("Stopping consumer")
				close(c.done)

				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")
					close(c.done)

					return
				}

				g.Go(func() error {
					return c.processMessage(gctx, msg)
				})
			}
		}
	}()

	<-c.done
	if err := g.Wait(); err != nil {
		slog.Error("Error processing messages", "error", err)
	}

	return nil
}

// processMessage submits a single delivery to the ingress boundary.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) error {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	meta := ingestsvc.Metadata{
		Source:      "amqp",
		ContentType: msg.ContentType,
		Signature:   signatureHeader(msg.Headers),
	}

	result, err := c.service.Accept(ctx, msg.Body, meta)
	if err != nil {
		return c.reject(msg, result.Reason, err)
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return err
	}

	slog.Debug("Delivery accepted", "correlation_id", result.CorrelationID, "delivery_tag", msg.DeliveryTag)

	return nil
}

// reject nacks the delivery. Backpressure and shutdown requeue with the
// broker; malformed payloads are dropped for good. A cleanly nacked delivery
// is handled, not failed, so it does not poison the group.
func (c *Consumer) reject(msg amqp.Delivery, reason string, err error) error {
	requeue := errors.Is(err, ingestsvc.ErrQueueFull) || errors.Is(err, ingestsvc.ErrShuttingDown)

	slog.Warn("Delivery rejected", "reason", reason, "requeue", requeue, "delivery_tag", msg.DeliveryTag)

	if nackErr := msg.Nack(false, requeue); nackErr != nil {
		slog.Error("Failed to nack message", "error", nackErr)

		return nackErr
	}

	return nil
}

func signatureHeader(headers amqp.Table) string {
	if headers == nil {
		return ""
	}

	if v, ok := headers["x-webhook-signature"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return ""
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	close(c.stop)

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(consumerStopTimeout):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
