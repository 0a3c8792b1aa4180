package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/hellofresh/health-go/v5"
	healthRabbit "github.com/hellofresh/health-go/v5/checks/rabbitmq"
)

// Pinger is satisfied by the redis adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthOptions struct {
	version string
	checks  []health.Config
}

type HealthOption func(*healthOptions)

func WithVersion(v string) HealthOption {
	return func(o *healthOptions) {
		o.version = v
	}
}

func WithPostgres(db *sql.DB) HealthOption {
	return func(o *healthOptions) {
		if db == nil {
			return
		}
		o.checks = append(o.checks, health.Config{
			Name:    "postgres",
			Timeout: 5 * time.Second,
			Check: func(ctx context.Context) error {
				return db.PingContext(ctx)
			},
		})
	}
}

func WithRedis(p Pinger) HealthOption {
	return func(o *healthOptions) {
		if p == nil {
			return
		}
		o.checks = append(o.checks, health.Config{
			Name:    "redis",
			Timeout: 3 * time.Second,
			Check:   p.Ping,
		})
	}
}

func WithRabbitMQ(dsn string) HealthOption {
	return func(o *healthOptions) {
		if dsn == "" {
			return
		}
		o.checks = append(o.checks, health.Config{
			Name:    "rabbitmq",
			Timeout: 3 * time.Second,
			Check: healthRabbit.New(healthRabbit.Config{
				DSN: dsn,
			}),
		})
	}
}

// ErrConnectionClosed is reported by WithConnection once the connection is gone.
var ErrConnectionClosed = errors.New("connection closed")

// WithConnection checks a long-lived connection owned by the process, such as
// the AMQP connection the publisher or consumer runs on.
func WithConnection(name string, isClosed func() bool) HealthOption {
	return WithCheck(name, func(context.Context) error {
		if isClosed() {
			return ErrConnectionClosed
		}
		return nil
	})
}

// WithCheck registers an arbitrary named check.
func WithCheck(name string, check func(ctx context.Context) error) HealthOption {
	return func(o *healthOptions) {
		o.checks = append(o.checks, health.Config{
			Name:    name,
			Timeout: 3 * time.Second,
			Check:   check,
		})
	}
}

func NewHealthHandler(serviceName string, opts ...HealthOption) (http.Handler, error) {
	options := &healthOptions{version: "1.0.0"}
	for _, opt := range opts {
		opt(options)
	}

	h, err := health.New(health.WithComponent(health.Component{
		Name:    serviceName,
		Version: options.version,
	}))
	if err != nil {
		return nil, err
	}

	for _, check := range options.checks {
		if err := h.Register(check); err != nil {
			return nil, err
		}
	}

	return h.Handler(), nil
}
