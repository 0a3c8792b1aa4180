package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/DioGolang/GoMonitor/pkg/logger"
	"github.com/DioGolang/GoMonitor/pkg/monitor"
	carrier "github.com/DioGolang/GoMonitor/pkg/otel"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var ErrDeliveriesClosed = errors.New("delivery channel closed by broker")

// AMQPChannel is the subset of *amqp.Channel the consumer needs.
type AMQPChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type ConsumerConfig struct {
	Queue      string
	Exchange   string
	RoutingKey string
	Workers    int
}

type Consumer struct {
	channel  AMQPChannel
	policies *monitor.Policies
	host     string
	appName  string
	logger   logger.Logger
	config   ConsumerConfig
}

func NewConsumer(
	ch AMQPChannel,
	policies *monitor.Policies,
	host, appName string,
	cfg ConsumerConfig,
	l logger.Logger,
) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Consumer{
		channel:  ch,
		policies: policies,
		host:     host,
		appName:  appName,
		logger:   l,
		config:   cfg,
	}
}

// Start consumes until ctx is done or the broker closes the deliveries.
// In-flight messages are finished before it returns.
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) error {
	if err := c.setupTopology(); err != nil {
		return fmt.Errorf("error when configuring topology: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.config.Queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(c.config.Workers)
	defer g.Wait()

	c.logger.Info(ctx, "Waiting for messages",
		logger.String("queue", c.config.Queue),
		logger.Int("workers", c.config.Workers),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}
			g.Go(func() error {
				c.handle(ctx, d, handler)
				return nil
			})
		}
	}
}

// handle runs detached from the consumer's cancellation so that a delivery
// taken before shutdown is finished, and the recorded status matches the
// ack or nack sent to the broker. Handlers bound their own work (see
// WrapCircuitBreaker).
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery, handler MessageHandler) {
	ctx = context.WithoutCancel(ctx)
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier.AMQPHeadersCarrier(d.Headers))
	ctx, span := otel.GetTracerProvider().Tracer("worker-tracer").Start(ctx, "ProcessMessage",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", c.config.Queue),
			attribute.String("messaging.rabbitmq.destination.routing_key", d.RoutingKey),
			attribute.String("messaging.message_id", d.MessageId),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error(ctx, "Message handler panicked", logger.Any("panic", r))
			span.SetStatus(codes.Error, "panic")
			c.nack(ctx, d, false)
		}
	}()

	metric := c.policies.IncomingMessage(c.host, c.appName, c.config.Queue, d.Exchange, d.RoutingKey)
	err := monitor.Monitor(ctx, metric, func(ctx context.Context) error {
		return handler(ctx, d.Body, d.Headers)
	})

	if err != nil {
		requeue := !d.Redelivered && !errors.Is(err, ErrPermanent)
		c.logger.Warn(ctx, "Message processing failed",
			logger.String("routing_key", d.RoutingKey),
			logger.Any("requeue", requeue),
			logger.WithError(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.nack(ctx, d, requeue)
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.Error(ctx, "Failed to ack message", logger.WithError(err))
		return
	}
	c.logger.Debug(ctx, "Message processed",
		logger.String("routing_key", d.RoutingKey),
		logger.Duration("elapsed", metric.Elapsed()),
	)
}

func (c *Consumer) nack(ctx context.Context, d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		c.logger.Error(ctx, "Failed to nack message", logger.WithError(err))
	}
}

func (c *Consumer) setupTopology() error {
	_, err := c.channel.QueueDeclare(
		c.config.Queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	if c.config.Exchange != "" {
		if err := c.channel.QueueBind(c.config.Queue, c.config.RoutingKey, c.config.Exchange, false, nil); err != nil {
			return err
		}
	}

	return c.channel.Qos(c.config.Workers, 0, false)
}
