package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DioGolang/GoMonitor/configs"
	"github.com/DioGolang/GoMonitor/internal/app"
	"github.com/DioGolang/GoMonitor/internal/infra/event"
	"github.com/DioGolang/GoMonitor/internal/infra/storage"
	"github.com/DioGolang/GoMonitor/internal/infra/web/handler"
	"github.com/DioGolang/GoMonitor/pkg/logger"
	"github.com/DioGolang/GoMonitor/pkg/metrics"
	"github.com/DioGolang/GoMonitor/pkg/monitor"
	"github.com/DioGolang/GoMonitor/pkg/otel"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

const (
	handlerName     = "work-request"
	maxRetries      = 3
	retryBaseWait   = 200 * time.Millisecond
	handlerTimeout  = 30 * time.Second
	dedupTTL        = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	config, err := configs.LoadConfig(".")
	if err != nil {
		panic(err)
	}
	if config.AMQPURL == "" {
		panic("AMQP_URL is required by the worker")
	}

	log := logger.NewLogger(config.AppName+"-worker", config.IsProd())

	if err := run(config, log); err != nil {
		log.Error(context.Background(), "Worker stopped with error", logger.WithError(err))
		os.Exit(1)
	}
}

func run(config *configs.Conf, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := otel.InitProvider(ctx, otel.ProviderConfig{
		ServiceName:    config.AppName + "-worker",
		ServiceVersion: config.AppVersion,
		Environment:    config.AppEnv,
		CollectorAddr: config.OTelCollectorAddr,
	})
	if err != nil {
		return err
	}
	defer shutdownTracer()

	prom := metrics.NewPrometheusMetrics(prometheus.NewRegistry(), config.AppName)
	policies, err := monitor.NewPolicies(prom)
	if err != nil {
		panic(err)
	}

	host := configs.Hostname()
	worker := app.NewWorker(policies, log, app.WorkerConfig{
		Host:     host,
		AppName:  config.AppName,
		MinSleep: config.JobMinSleep,
		MaxSleep: config.JobMaxSleep,
	})

	conn, err := amqp.Dial(config.AMQPURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	work := event.WrapCircuitBreaker(event.NewCircuitBreaker(handlerName, log), handlerTimeout, app.WorkRequestHandler(worker))
	work = event.WrapExponentialBackoff(log, handlerName, maxRetries, retryBaseWait, work)

	healthOpts := []handler.HealthOption{
		handler.WithVersion(config.AppVersion),
		handler.WithRabbitMQ(config.AMQPURL),
		handler.WithConnection("amqp-connection", conn.IsClosed),
	}
	if addr := config.RedisAddr(); addr != "" {
		rdb := storage.NewRedisClient(addr)
		defer rdb.Close()
		store := storage.NewRedisAdapter(rdb)
		work = event.WrapIdempotency(log, store, handlerName, dedupTTL, work)
		healthOpts = append(healthOpts, handler.WithRedis(store))
	}

	healthHandler, err := handler.NewHealthHandler(config.AppName+"-worker", healthOpts...)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", prom.Handler())
	r.Method(http.MethodGet, "/health", healthHandler)
	metricsServer := &http.Server{
		Addr:              ":" + config.MetricsPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	consumer := event.NewConsumer(ch, policies, host, config.AppName, event.ConsumerConfig{
		Queue:      config.AMQPQueue,
		Exchange:   config.AMQPExchange,
		RoutingKey: config.AMQPRoutingKey,
		Workers:    config.AMQPWorkers,
	}, log)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Heartbeat(ctx, log, config.HeartbeatInterval)
		return nil
	})

	g.Go(func() error {
		log.Info(ctx, "Worker started", logger.String("queue", config.AMQPQueue))
		return consumer.Start(ctx, work)
	})

	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
