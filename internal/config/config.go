package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
// `required:"true"` makes an environment variable mandatory.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // e.g., development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`    // e.g., debug, info, warn, error
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Mpesa      MpesaConfig
	Auth       AuthConfig
	Tracing    TracingConfig
	Notify     NotifyConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port            string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead     time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"30s"`
	TimeoutIdle     time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
	TimeoutHandler  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_HANDLER" default:"25s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// PostgresConfig holds PostgreSQL database connection details.
type PostgresConfig struct {
	Host         string        `envconfig:"POSTGRES_HOST" required:"true"`
	Port         string        `envconfig:"POSTGRES_PORT" default:"5432"`
	User         string        `envconfig:"POSTGRES_USER" required:"true"`
	Password     string        `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName       string        `envconfig:"POSTGRES_DBNAME" required:"true"`
	SSLMode      string        `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	MaxOpenConns int           `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int           `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"25"`
	ConnMaxIdle  time.Duration `envconfig:"POSTGRES_CONN_MAX_IDLE_TIME" default:"15m"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// RedisConfig holds the session store and cache connection details.
type RedisConfig struct {
	Addr          string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password      string        `envconfig:"REDIS_PASSWORD"`
	DB            int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL    time.Duration `envconfig:"REDIS_SESSION_TTL" default:"1h"`
	CategoriesTTL time.Duration `envconfig:"REDIS_CATEGORIES_TTL" default:"5m"`
}

// KafkaConfig holds notification publishing settings.
// An empty broker list switches notifications to log-only delivery.
type KafkaConfig struct {
	Brokers           string `envconfig:"KAFKA_BROKERS"` // comma-separated host:port list
	NotificationTopic string `envconfig:"KAFKA_NOTIFICATION_TOPIC" default:"storefront.notifications"`
}

// BrokerList splits Brokers on commas, dropping blanks.
func (kc *KafkaConfig) BrokerList() []string {
	brokers := []string{}
	for _, b := range strings.Split(kc.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// MpesaConfig holds the Daraja API credentials and STK Push parameters.
type MpesaConfig struct {
	BaseURL         string        `envconfig:"MPESA_BASE_URL" default:"https://sandbox.safaricom.co.ke"`
	ConsumerKey     string        `envconfig:"MPESA_CONSUMER_KEY"`
	ConsumerSecret  string        `envconfig:"MPESA_CONSUMER_SECRET"`
	ShortCode       string        `envconfig:"MPESA_SHORTCODE" default:"174379"`
	Passkey         string        `envconfig:"MPESA_PASSKEY"`
	CallbackURL     string        `envconfig:"MPESA_CALLBACK_URL"`
	TransactionType string        `envconfig:"MPESA_TRANSACTION_TYPE" default:"CustomerPayBillOnline"`
	Timeout         time.Duration `envconfig:"MPESA_TIMEOUT" default:"30s"`
}

// AuthConfig holds the bearer-token verification settings.
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
}

// TracingConfig holds the OpenTelemetry exporter settings.
// An empty endpoint leaves tracing disabled.
type TracingConfig struct {
	JaegerEndpoint string `envconfig:"JAEGER_ENDPOINT"` // e.g. http://jaeger:14268/api/traces
	ServiceName    string `envconfig:"TRACING_SERVICE_NAME" default:"storefront-service"`
}

// NotifyConfig controls customer notifications.
type NotifyConfig struct {
	Timeout  time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"` // per checkout, across both channels
	ShopName string        `envconfig:"NOTIFY_SHOP_NAME" default:"Vaashon Shop"`
}

var cfg Config
var loaded bool

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if cfg.Mpesa.Timeout <= 0 {
		return nil, fmt.Errorf("invalid MPESA_TIMEOUT: %s", cfg.Mpesa.Timeout)
	}
	loaded = true
	return &cfg, nil
}

// Get returns the loaded configuration.
// Panics if Load() has not been called successfully.
func Get() *Config {
	if !loaded {
		panic("config: configuration has not been loaded, call config.Load() first")
	}
	return &cfg
}
