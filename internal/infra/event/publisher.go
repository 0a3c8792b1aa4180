package event

import (
	"context"
	"time"

	"github.com/DioGolang/GoMonitor/pkg/logger"
	"github.com/DioGolang/GoMonitor/pkg/monitor"
	carrier "github.com/DioGolang/GoMonitor/pkg/otel"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
)

// AMQPPublisher is satisfied by *amqp.Channel.
type AMQPPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Message struct {
	Exchange    string
	RoutingKey  string
	ContentType string
	Body        []byte
	Headers     map[string]string
}

type Publisher struct {
	channel  AMQPPublisher
	policies *monitor.Policies
	host     string
	appName  string
	logger   logger.Logger
}

func NewPublisher(ch AMQPPublisher, policies *monitor.Policies, host, appName string, log logger.Logger) *Publisher {
	return &Publisher{
		channel:  ch,
		policies: policies,
		host:     host,
		appName:  appName,
		logger:   log,
	}
}

// Publish sends msg and records it with the outgoing message policy. A message
// without an x-event-id header gets a fresh one.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	metric := p.policies.OutgoingMessage(p.host, p.appName, msg.Exchange, msg.RoutingKey)
	err := monitor.Monitor(ctx, metric, func(ctx context.Context) error {
		headers := make(amqp.Table, len(msg.Headers)+3)
		for k, v := range msg.Headers {
			headers[k] = v
		}
		if _, ok := headers[HeaderEventID]; !ok {
			headers[HeaderEventID] = uuid.NewString()
		}
		otel.GetTextMapPropagator().Inject(ctx, carrier.AMQPHeadersCarrier(headers))

		contentType := msg.ContentType
		if contentType == "" {
			contentType = "application/json"
		}

		return p.channel.PublishWithContext(
			ctx,
			msg.Exchange,
			msg.RoutingKey,
			false,
			false,
			amqp.Publishing{
				Headers:      headers,
				ContentType:  contentType,
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now(),
				Body:         msg.Body,
			})
	})
	if err != nil {
		p.logger.Warn(ctx, "Failed to publish message",
			logger.String("exchange", msg.Exchange),
			logger.String("routing_key", msg.RoutingKey),
			logger.WithError(err),
		)
		return err
	}

	p.logger.Debug(ctx, "Message published",
		logger.String("exchange", msg.Exchange),
		logger.String("routing_key", msg.RoutingKey),
		logger.Duration("elapsed", metric.Elapsed()),
	)
	return nil
}
