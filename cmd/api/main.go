package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DioGolang/GoMonitor/configs"
	"github.com/DioGolang/GoMonitor/internal/app"
	"github.com/DioGolang/GoMonitor/internal/infra/event"
	"github.com/DioGolang/GoMonitor/internal/infra/grpc/interceptor"
	"github.com/DioGolang/GoMonitor/internal/infra/storage"
	"github.com/DioGolang/GoMonitor/internal/infra/web"
	"github.com/DioGolang/GoMonitor/internal/infra/web/handler"
	"github.com/DioGolang/GoMonitor/internal/infra/web/middleware"
	"github.com/DioGolang/GoMonitor/pkg/logger"
	"github.com/DioGolang/GoMonitor/pkg/metrics"
	"github.com/DioGolang/GoMonitor/pkg/monitor"
	"github.com/DioGolang/GoMonitor/pkg/otel"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config, err := configs.LoadConfig(".")
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(config.AppName, config.IsProd())

	if err := run(config, log); err != nil {
		log.Error(context.Background(), "API stopped with error", logger.WithError(err))
		os.Exit(1)
	}
}

func run(config *configs.Conf, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := otel.InitProvider(ctx, otel.ProviderConfig{
		ServiceName:    config.AppName,
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
		// Instruments already registered with another schema cannot be fixed at runtime.
		panic(err)
	}

	host := configs.Hostname()
	worker := app.NewWorker(policies, log, app.WorkerConfig{
		Host:     host,
		AppName:  config.AppName,
		MinSleep: config.JobMinSleep,
		MaxSleep: config.JobMaxSleep,
	})

	healthOpts := []handler.HealthOption{
		handler.WithVersion(config.AppVersion),
		handler.WithRabbitMQ(config.AMQPURL),
	}

	var publisher handler.MessagePublisher
	if config.AMQPURL != "" {
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

		publisher = event.NewPublisher(ch, policies, host, config.AppName, log)
		healthOpts = append(healthOpts, handler.WithConnection("amqp-connection", conn.IsClosed))
	}

	if addr := config.RedisAddr(); addr != "" {
		rdb := storage.NewRedisClient(addr)
		defer rdb.Close()
		healthOpts = append(healthOpts, handler.WithRedis(storage.NewRedisAdapter(rdb)))
	}

	if config.DBDSN != "" {
		db, err := sql.Open("postgres", config.DBDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		healthOpts = append(healthOpts, handler.WithPostgres(db))
	}

	healthHandler, err := handler.NewHealthHandler(config.AppName, healthOpts...)
	if err != nil {
		return err
	}

	router := web.NewRouter(web.RouterConfig{
		ServiceName: config.AppName,
		Logger:      log,
		Observer:    prom,
		RateLimiter: middleware.NewRateLimiter(ctx, middleware.RateLimiterConfig{
			RequestsPerSecond: config.RateLimitRPS,
			Burst:             config.RateLimitBurst,
		}),
		Work:    handler.NewWorkHandler(worker, publisher, config.AMQPExchange, config.AMQPRoutingKey, stop, log),
		Metrics: prom.Handler(),
		Health:  healthHandler,
	})

	httpServer := &http.Server{
		Addr:              ":" + config.WebServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptor.UnaryServerInterceptor(policies, host, config.AppName)),
		grpc.ChainStreamInterceptor(interceptor.StreamServerInterceptor(policies, host, config.AppName)),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Heartbeat(ctx, log, config.HeartbeatInterval)
		return nil
	})

	g.Go(func() error {
		log.Info(ctx, "HTTP server running", logger.String("port", config.WebServerPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", ":"+config.GRPCPort)
		if err != nil {
			return err
		}
		log.Info(ctx, "gRPC server running", logger.String("port", config.GRPCPort))
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info(context.Background(), "Shutting down")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
