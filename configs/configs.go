package configs

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Conf struct {
	AppName           string        `mapstructure:"APP_NAME"`
	AppEnv            string        `mapstructure:"APP_ENV"`
	AppVersion        string        `mapstructure:"APP_VERSION"`
	WebServerPort     string        `mapstructure:"WEB_SERVER_PORT"`
	MetricsPort       string        `mapstructure:"METRICS_PORT"`
	GRPCPort          string        `mapstructure:"GRPC_PORT"`
	AMQPURL           string        `mapstructure:"AMQP_URL"`
	AMQPExchange      string        `mapstructure:"AMQP_EXCHANGE"`
	AMQPQueue         string        `mapstructure:"AMQP_QUEUE"`
	AMQPRoutingKey    string        `mapstructure:"AMQP_ROUTING_KEY"`
	AMQPWorkers       int           `mapstructure:"AMQP_WORKERS"`
	RedisHost         string        `mapstructure:"REDIS_HOST"`
	RedisPort         string        `mapstructure:"REDIS_PORT"`
	DBDSN             string        `mapstructure:"DB_DSN"`
	OTelCollectorAddr string        `mapstructure:"OTEL_COLLECTOR_ADDR"`
	HeartbeatInterval time.Duration `mapstructure:"HEARTBEAT_INTERVAL"`
	JobMinSleep       time.Duration `mapstructure:"JOB_MIN_SLEEP"`
	JobMaxSleep       time.Duration `mapstructure:"JOB_MAX_SLEEP"`
	RateLimitRPS      int           `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
}

var defaults = map[string]any{
	"APP_NAME":            "gomonitor",
	"APP_ENV":             "development",
	"APP_VERSION":         "1.0.0",
	"WEB_SERVER_PORT":     "8000",
	"METRICS_PORT":        "8001",
	"GRPC_PORT":           "50051",
	"AMQP_URL":            "",
	"AMQP_EXCHANGE":       "amq.direct",
	"AMQP_QUEUE":          "work.requests",
	"AMQP_ROUTING_KEY":    "work.requests",
	"AMQP_WORKERS":        4,
	"REDIS_HOST":          "",
	"REDIS_PORT":          "6379",
	"DB_DSN":              "",
	"OTEL_COLLECTOR_ADDR": "",
	"HEARTBEAT_INTERVAL":  "10s",
	"JOB_MIN_SLEEP":       "500ms",
	"JOB_MAX_SLEEP":       "2s",
	"RATE_LIMIT_RPS":      50,
	"RATE_LIMIT_BURST":    100,
}

// LoadConfig reads <path>/.env when present and lets the environment override it.
func LoadConfig(path string) (*Conf, error) {
	var cfg *Conf

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Conf) IsProd() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c *Conf) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + c.RedisPort
}

var hostname = sync.OnceValue(func() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
})

// Hostname is the host label shared by every metric policy.
func Hostname() string {
	return hostname()
}
