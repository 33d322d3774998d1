package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
)

type Server struct {
	Port               string `mapstructure:"port"`
	ReadTimeoutMs      int    `mapstructure:"read-timeout-ms"`
	WriteTimeoutMs     int    `mapstructure:"write-timeout-ms"`
	ShutdownTimeoutMs  int    `mapstructure:"shutdown-timeout-ms"`
	CorsAllowedOrigins string `mapstructure:"cors-allowed-origins"`
	MaxBodyBytes       int64  `mapstructure:"max-body-bytes"`
}

type Provider struct {
	BaseURL         string `mapstructure:"base-url"`
	AccessToken     string `mapstructure:"access-token"`
	TimeoutMs       int    `mapstructure:"timeout-ms"`
	NotificationURL string `mapstructure:"notification-url"`
	PayerEmail      string `mapstructure:"payer-email"`
}

type Webhook struct {
	Secret              string `mapstructure:"secret"`
	RequireSignature    bool   `mapstructure:"require-signature"`
	SignatureHeader     string `mapstructure:"signature-header"`
	DescriptionFallback bool   `mapstructure:"description-fallback"`
}

type Supabase struct {
	URL         string `mapstructure:"url"`
	ServiceRole string `mapstructure:"service-role"`
	Table       string `mapstructure:"table"`
}

type Postgres struct {
	DSN           string `mapstructure:"dsn"`
	MigrationsDir string `mapstructure:"migrations-dir"`
}

type Datastore struct {
	Driver    string   `mapstructure:"driver"`
	TimeoutMs int      `mapstructure:"timeout-ms"`
	Supabase  Supabase `mapstructure:"supabase"`
	Postgres  Postgres `mapstructure:"postgres"`
}

type KafkaWriter struct {
	BatchSize      int `mapstructure:"batch-size"`
	BatchTimeoutMs int `mapstructure:"batch-timeout-ms"`
}

type Kafka struct {
	Brokers string      `mapstructure:"brokers"`
	Topic   string      `mapstructure:"topic"`
	GroupID string      `mapstructure:"group-id"`
	Writer  KafkaWriter `mapstructure:"writer"`
}

func (k Kafka) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

type Redrive struct {
	Enabled      bool `mapstructure:"enabled"`
	Parallelism  int  `mapstructure:"parallelism"`
	MaxAttempts  int  `mapstructure:"max-attempts"`
	RetryDelayMs int  `mapstructure:"retry-delay-ms"`
}

type Metrics struct {
	URL          string `mapstructure:"url"`
	IntervalMs   int    `mapstructure:"interval-ms"`
	CommonLabels string `mapstructure:"common-labels"`
}

type Logs struct {
	URL   string `mapstructure:"url"`
	Level string `mapstructure:"level"`
}

type Config struct {
	Server    Server    `mapstructure:"server"`
	Provider  Provider  `mapstructure:"provider"`
	Webhook   Webhook   `mapstructure:"webhook"`
	Datastore Datastore `mapstructure:"datastore"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Redrive   Redrive   `mapstructure:"redrive"`
	Metrics   Metrics   `mapstructure:"metrics"`
	Logs      Logs      `mapstructure:"logs"`
}

var defaults = map[string]any{
	"server.port":                 "3000",
	"server.read-timeout-ms":      5_000,
	"server.write-timeout-ms":     15_000,
	"server.shutdown-timeout-ms":  10_000,
	"server.cors-allowed-origins": "*",
	"server.max-body-bytes":       1 << 20,

	"provider.base-url":         "https://api.mercadopago.com",
	"provider.access-token":     "",
	"provider.timeout-ms":       10_000,
	"provider.notification-url": "",
	"provider.payer-email":      "cliente@exemplo.com",

	"webhook.secret":               "",
	"webhook.require-signature":    true,
	"webhook.signature-header":     "X-Signature",
	"webhook.description-fallback": false,

	"datastore.driver":                  DriverSupabase,
	"datastore.timeout-ms":              5_000,
	"datastore.supabase.url":            "",
	"datastore.supabase.service-role":   "",
	"datastore.supabase.table":          "sales",
	"datastore.postgres.dsn":            "",
	"datastore.postgres.migrations-dir": "",

	"kafka.brokers":                 "",
	"kafka.topic":                   "pix-payment-events",
	"kafka.group-id":                "pix-service",
	"kafka.writer.batch-size":       100,
	"kafka.writer.batch-timeout-ms": 100,

	"redrive.enabled":        false,
	"redrive.parallelism":    16,
	"redrive.max-attempts":   5,
	"redrive.retry-delay-ms": 10_000,

	"metrics.url":           "",
	"metrics.interval-ms":   10_000,
	"metrics.common-labels": "",

	"logs.url":   "",
	"logs.level": "info",
}

// Environment names kept from the first deployments of the service.
var envAliases = map[string]string{
	"provider.access-token":           "MP_ACCESS_TOKEN",
	"webhook.secret":                  "MP_WEBHOOK_SECRET",
	"datastore.supabase.url":          "SUPABASE_URL",
	"datastore.supabase.service-role": "SUPABASE_SERVICE_ROLE",
	"datastore.postgres.dsn":          "DATABASE_URL",
	"server.port":                     "PORT",
	"kafka.brokers":                   "KAFKA_BROKERS",
	"logs.url":                        "LOKI_URL",
	"metrics.url":                     "METRICS_PUSH_URL",
}

// LoadConfig reads .env, then config.yaml from path, then the environment.
// Missing files are not an error; missing secrets are reported by Validate.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "loading .env")
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "binding %s", env)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}

	return &config, nil
}

func MustLoadConfig(path string) *Config {
	config, err := LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	return config
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var missing []string

	if c.Provider.AccessToken == "" {
		missing = append(missing, "provider.access-token (MP_ACCESS_TOKEN)")
	}
	if c.Webhook.RequireSignature && c.Webhook.Secret == "" {
		missing = append(missing, "webhook.secret (MP_WEBHOOK_SECRET)")
	}

	switch c.Datastore.Driver {
	case DriverSupabase:
		if c.Datastore.Supabase.URL == "" {
			missing = append(missing, "datastore.supabase.url (SUPABASE_URL)")
		}
		if c.Datastore.Supabase.ServiceRole == "" {
			missing = append(missing, "datastore.supabase.service-role (SUPABASE_SERVICE_ROLE)")
		}
	case DriverPostgres:
		if c.Datastore.Postgres.DSN == "" {
			missing = append(missing, "datastore.postgres.dsn (DATABASE_URL)")
		}
	default:
		return fmt.Errorf("unknown datastore.driver %q", c.Datastore.Driver)
	}

	if c.Redrive.Enabled && !c.Kafka.Enabled() {
		missing = append(missing, "kafka.brokers (KAFKA_BROKERS) required by redrive")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
