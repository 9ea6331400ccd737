// Package config loads relay settings: built-in defaults, then an optional
// TOML file, then RELAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/eventrelay/internal/awsx"
	"github.com/alfredjeanlab/eventrelay/internal/bus"
	"github.com/alfredjeanlab/eventrelay/internal/dedup"
	"github.com/alfredjeanlab/eventrelay/internal/drain"
	"github.com/alfredjeanlab/eventrelay/internal/model"
)

// DefaultQueueURL is the LocalStack address of the student event queue.
const DefaultQueueURL = "http://sqs.us-east-1.localhost.localstack.cloud:4566/000000000000/StudentEventQueue"

// Dedup backends.
const (
	DedupNone   = "none"
	DedupMemory = "memory"
	DedupRedis  = "redis"
)

type Config struct {
	AppEnv    string `toml:"app_env"`    // RELAY_APP_ENV (default "dev")
	LogFormat string `toml:"log_format"` // RELAY_LOG_FORMAT ("text" or "json")
	LogLevel  string `toml:"log_level"`  // RELAY_LOG_LEVEL (default "info")

	HTTPAddr    string `toml:"http_addr"`    // RELAY_HTTP_ADDR (default ":8080")
	GRPCAddr    string `toml:"grpc_addr"`    // RELAY_GRPC_ADDR (default ":9090")
	MetricsAddr string `toml:"metrics_addr"` // RELAY_METRICS_ADDR (default ":9091")
	AuthToken   string `toml:"auth_token"`   // RELAY_AUTH_TOKEN (optional, empty = auth disabled)

	AWS        AWS        `toml:"aws"`
	Bus        Bus        `toml:"bus"`
	Drain      Drain      `toml:"drain"`
	NATS       NATS       `toml:"nats"`
	Dedup      Dedup      `toml:"dedup"`
	Quarantine Quarantine `toml:"quarantine"`
}

type AWS struct {
	Region          string `toml:"region"`            // RELAY_AWS_REGION (default "us-east-1")
	Endpoint        string `toml:"endpoint"`          // RELAY_AWS_ENDPOINT (LocalStack: "http://localhost:4566")
	AccessKeyID     string `toml:"access_key_id"`     // RELAY_AWS_ACCESS_KEY_ID
	SecretAccessKey string `toml:"secret_access_key"` // RELAY_AWS_SECRET_ACCESS_KEY
}

type Bus struct {
	Name       string `toml:"name"`        // RELAY_BUS_NAME (default "StudentEventBus")
	Source     string `toml:"source"`      // RELAY_BUS_SOURCE
	DetailType string `toml:"detail_type"` // RELAY_BUS_DETAIL_TYPE
	BatchSize  int    `toml:"batch_size"`  // RELAY_BATCH_SIZE (default 20)
}

type Drain struct {
	QueueURL    string        `toml:"queue_url"`    // RELAY_QUEUE_URL
	Schedule    string        `toml:"schedule"`     // RELAY_DRAIN_SCHEDULE (six-field cron)
	MaxMessages int           `toml:"max_messages"` // RELAY_DRAIN_MAX_MESSAGES (1..10)
	WaitTime    time.Duration `toml:"wait_time"`    // RELAY_DRAIN_WAIT_TIME (default 2s)
	RunOnStart  bool          `toml:"run_on_start"` // RELAY_DRAIN_RUN_ON_START
}

type NATS struct {
	URL    string `toml:"url"`    // RELAY_NATS_URL (optional, empty = no fan-out)
	Prefix string `toml:"prefix"` // RELAY_NATS_PREFIX
}

type Dedup struct {
	Backend   string        `toml:"backend"`    // RELAY_DEDUP_BACKEND (none, memory, redis)
	RedisURL  string        `toml:"redis_url"`  // RELAY_REDIS_URL (implies redis backend)
	TTL       time.Duration `toml:"ttl"`        // RELAY_DEDUP_TTL (default 10m)
	Capacity  int           `toml:"capacity"`   // RELAY_DEDUP_CAPACITY (memory backend, default 1024)
	KeyPrefix string        `toml:"key_prefix"` // RELAY_DEDUP_KEY_PREFIX
}

type Quarantine struct {
	Bucket string `toml:"bucket"` // RELAY_QUARANTINE_BUCKET (enables quarantine when set)
	Prefix string `toml:"prefix"` // RELAY_QUARANTINE_PREFIX (default "quarantine")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AppEnv:      "dev",
		LogFormat:   "text",
		LogLevel:    "info",
		HTTPAddr:    ":8080",
		GRPCAddr:    ":9090",
		MetricsAddr: ":9091",
		AWS:         AWS{Region: "us-east-1"},
		Bus: Bus{
			Name:       model.DefaultEventBusName,
			Source:     model.DefaultSource,
			DetailType: model.DefaultDetailType,
			BatchSize:  20,
		},
		Drain: Drain{
			QueueURL:    DefaultQueueURL,
			Schedule:    drain.DefaultSchedule,
			MaxMessages: drain.DefaultMaxMessages,
			WaitTime:    drain.DefaultWaitTime,
		},
		Dedup: Dedup{
			Backend:   DedupNone,
			TTL:       10 * time.Minute,
			Capacity:  dedup.DefaultCapacity,
			KeyPrefix: "relay:dedup:",
		},
		Quarantine: Quarantine{Prefix: "quarantine"},
	}
}

// Load builds the effective configuration. path names an optional TOML
// file; when empty, RELAY_CONFIG is consulted.
func Load(path string) (*Config, error) {
	c := Default()

	if path == "" {
		path = os.Getenv("RELAY_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if c.Dedup.RedisURL != "" && (c.Dedup.Backend == "" || c.Dedup.Backend == DedupNone) {
		c.Dedup.Backend = DedupRedis
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	envString("RELAY_APP_ENV", &c.AppEnv)
	envString("RELAY_LOG_FORMAT", &c.LogFormat)
	envString("RELAY_LOG_LEVEL", &c.LogLevel)
	envString("RELAY_HTTP_ADDR", &c.HTTPAddr)
	envString("RELAY_GRPC_ADDR", &c.GRPCAddr)
	envString("RELAY_METRICS_ADDR", &c.MetricsAddr)
	envString("RELAY_AUTH_TOKEN", &c.AuthToken)

	envString("RELAY_AWS_REGION", &c.AWS.Region)
	envString("RELAY_AWS_ENDPOINT", &c.AWS.Endpoint)
	envString("RELAY_AWS_ACCESS_KEY_ID", &c.AWS.AccessKeyID)
	envString("RELAY_AWS_SECRET_ACCESS_KEY", &c.AWS.SecretAccessKey)

	envString("RELAY_BUS_NAME", &c.Bus.Name)
	envString("RELAY_BUS_SOURCE", &c.Bus.Source)
	envString("RELAY_BUS_DETAIL_TYPE", &c.Bus.DetailType)

	envString("RELAY_QUEUE_URL", &c.Drain.QueueURL)
	envString("RELAY_DRAIN_SCHEDULE", &c.Drain.Schedule)

	envString("RELAY_NATS_URL", &c.NATS.URL)
	envString("RELAY_NATS_PREFIX", &c.NATS.Prefix)

	envString("RELAY_DEDUP_BACKEND", &c.Dedup.Backend)
	envString("RELAY_REDIS_URL", &c.Dedup.RedisURL)
	envString("RELAY_DEDUP_KEY_PREFIX", &c.Dedup.KeyPrefix)

	envString("RELAY_QUARANTINE_BUCKET", &c.Quarantine.Bucket)
	envString("RELAY_QUARANTINE_PREFIX", &c.Quarantine.Prefix)

	return errors.Join(
		envInt("RELAY_BATCH_SIZE", &c.Bus.BatchSize),
		envInt("RELAY_DRAIN_MAX_MESSAGES", &c.Drain.MaxMessages),
		envDuration("RELAY_DRAIN_WAIT_TIME", &c.Drain.WaitTime),
		envBool("RELAY_DRAIN_RUN_ON_START", &c.Drain.RunOnStart),
		envDuration("RELAY_DEDUP_TTL", &c.Dedup.TTL),
		envInt("RELAY_DEDUP_CAPACITY", &c.Dedup.Capacity),
	)
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	var errs []error
	if _, err := drain.ParseSchedule(c.Drain.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("drain.schedule: %w", err))
	}
	if c.Drain.MaxMessages < 1 || c.Drain.MaxMessages > 10 {
		errs = append(errs, fmt.Errorf("drain.max_messages must be between 1 and 10, got %d", c.Drain.MaxMessages))
	}
	if c.Drain.WaitTime < 0 || c.Drain.WaitTime > 20*time.Second {
		errs = append(errs, fmt.Errorf("drain.wait_time must be between 0s and 20s, got %s", c.Drain.WaitTime))
	}
	if c.Bus.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("bus.batch_size must be positive, got %d", c.Bus.BatchSize))
	}
	if c.Bus.Name == "" || c.Bus.Source == "" || c.Bus.DetailType == "" {
		errs = append(errs, errors.New("bus.name, bus.source and bus.detail_type are required"))
	}
	if c.AWS.Region == "" {
		errs = append(errs, errors.New("aws.region is required"))
	}
	switch c.Dedup.Backend {
	case DedupNone, DedupMemory:
	case DedupRedis:
		if c.Dedup.RedisURL == "" {
			errs = append(errs, errors.New("dedup.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("dedup.backend must be none, memory or redis, got %q", c.Dedup.Backend))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Warnings reports settings that load and validate but are likely to fail
// at runtime.
func (c *Config) Warnings() []string {
	var warns []string
	if c.AWS.Endpoint == "" && c.Bus.BatchSize > bus.MaxEntries {
		warns = append(warns, fmt.Sprintf(
			"bus.batch_size %d exceeds the EventBridge limit of %d entries per call; batch publishes will be rejected unless aws.endpoint points at an emulator",
			c.Bus.BatchSize, bus.MaxEntries))
	}
	return warns
}

// ValidateDrain checks settings the drain worker needs on top of Validate.
func (c *Config) ValidateDrain() error {
	if c.Drain.QueueURL == "" {
		return errors.New("RELAY_QUEUE_URL is required")
	}
	return nil
}

// Route returns the bus routing for published envelopes.
func (c *Config) Route() model.Route {
	return model.Route{
		Source:       c.Bus.Source,
		DetailType:   c.Bus.DetailType,
		EventBusName: c.Bus.Name,
	}
}

// AWSOptions returns the options for awsx.Load.
func (c *Config) AWSOptions() awsx.Options {
	return awsx.Options{
		Region:          c.AWS.Region,
		Endpoint:        c.AWS.Endpoint,
		AccessKeyID:     c.AWS.AccessKeyID,
		SecretAccessKey: c.AWS.SecretAccessKey,
	}
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.AuthToken != "" {
		cp.AuthToken = "********"
	}
	if cp.AWS.SecretAccessKey != "" {
		cp.AWS.SecretAccessKey = "********"
	}
	return &cp
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}
