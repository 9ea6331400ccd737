package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/eventrelay/internal/bus"
	"github.com/alfredjeanlab/eventrelay/internal/dedup"
)

// relayEnvVars lists every variable Load reads; tests clear them all.
var relayEnvVars = []string{
	"RELAY_CONFIG", "RELAY_APP_ENV", "RELAY_LOG_FORMAT", "RELAY_LOG_LEVEL",
	"RELAY_HTTP_ADDR", "RELAY_GRPC_ADDR", "RELAY_METRICS_ADDR", "RELAY_AUTH_TOKEN",
	"RELAY_AWS_REGION", "RELAY_AWS_ENDPOINT", "RELAY_AWS_ACCESS_KEY_ID", "RELAY_AWS_SECRET_ACCESS_KEY",
	"RELAY_BUS_NAME", "RELAY_BUS_SOURCE", "RELAY_BUS_DETAIL_TYPE", "RELAY_BATCH_SIZE",
	"RELAY_QUEUE_URL", "RELAY_DRAIN_SCHEDULE", "RELAY_DRAIN_MAX_MESSAGES", "RELAY_DRAIN_WAIT_TIME",
	"RELAY_DRAIN_RUN_ON_START", "RELAY_NATS_URL", "RELAY_NATS_PREFIX",
	"RELAY_DEDUP_BACKEND", "RELAY_REDIS_URL", "RELAY_DEDUP_TTL", "RELAY_DEDUP_CAPACITY", "RELAY_DEDUP_KEY_PREFIX",
	"RELAY_QUARANTINE_BUCKET", "RELAY_QUARANTINE_PREFIX",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range relayEnvVars {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearAllEnv(t)

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HTTPAddr != ":8080" || c.GRPCAddr != ":9090" || c.MetricsAddr != ":9091" {
		t.Errorf("addresses = %q %q %q", c.HTTPAddr, c.GRPCAddr, c.MetricsAddr)
	}
	if c.Drain.QueueURL != DefaultQueueURL {
		t.Errorf("QueueURL = %q", c.Drain.QueueURL)
	}
	if c.Drain.Schedule != "0 */2 * * * *" || c.Drain.MaxMessages != 10 || c.Drain.WaitTime != 2*time.Second {
		t.Errorf("drain = %+v", c.Drain)
	}
	if c.Bus.BatchSize != 20 || c.Bus.Name != "StudentEventBus" {
		t.Errorf("bus = %+v", c.Bus)
	}
	if c.Dedup.Backend != DedupNone || c.Dedup.Capacity != dedup.DefaultCapacity {
		t.Errorf("dedup = %+v", c.Dedup)
	}
	r := c.Route()
	if r.Source != "com.student.registration" || r.DetailType != "StudentRegistered" || r.EventBusName != "StudentEventBus" {
		t.Errorf("Route() = %+v", r)
	}
}

func TestLoad_Env(t *testing.T) {
	for _, tc := range []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "CustomAddresses",
			env: map[string]string{
				"RELAY_HTTP_ADDR": ":3000",
				"RELAY_GRPC_ADDR": ":5050",
				"RELAY_NATS_URL":  "nats://localhost:4222",
			},
			check: func(t *testing.T, c *Config) {
				if c.HTTPAddr != ":3000" || c.GRPCAddr != ":5050" || c.NATS.URL != "nats://localhost:4222" {
					t.Errorf("got %q %q %q", c.HTTPAddr, c.GRPCAddr, c.NATS.URL)
				}
			},
		},
		{
			name: "DrainSettings",
			env: map[string]string{
				"RELAY_DRAIN_SCHEDULE":     "*/30 * * * * *",
				"RELAY_DRAIN_MAX_MESSAGES": "5",
				"RELAY_DRAIN_WAIT_TIME":    "0s",
				"RELAY_DRAIN_RUN_ON_START": "true",
			},
			check: func(t *testing.T, c *Config) {
				if c.Drain.Schedule != "*/30 * * * * *" || c.Drain.MaxMessages != 5 || c.Drain.WaitTime != 0 || !c.Drain.RunOnStart {
					t.Errorf("drain = %+v", c.Drain)
				}
			},
		},
		{
			name: "RedisURLImpliesRedisBackend",
			env:  map[string]string{"RELAY_REDIS_URL": "redis://localhost:6379/0"},
			check: func(t *testing.T, c *Config) {
				if c.Dedup.Backend != DedupRedis {
					t.Errorf("Backend = %q", c.Dedup.Backend)
				}
			},
		},
		{
			name: "AWSOptions",
			env: map[string]string{
				"RELAY_AWS_ENDPOINT":          "http://localhost:4566",
				"RELAY_AWS_ACCESS_KEY_ID":     "fake",
				"RELAY_AWS_SECRET_ACCESS_KEY": "fake",
			},
			check: func(t *testing.T, c *Config) {
				o := c.AWSOptions()
				if o.Region != "us-east-1" || o.Endpoint != "http://localhost:4566" || o.AccessKeyID != "fake" {
					t.Errorf("AWSOptions() = %+v", o)
				}
			},
		},
		{name: "BadInt", env: map[string]string{"RELAY_BATCH_SIZE": "many"}, wantErr: "RELAY_BATCH_SIZE"},
		{name: "BadDuration", env: map[string]string{"RELAY_DEDUP_TTL": "forever"}, wantErr: "RELAY_DEDUP_TTL"},
		{name: "BadBool", env: map[string]string{"RELAY_DRAIN_RUN_ON_START": "maybe"}, wantErr: "RELAY_DRAIN_RUN_ON_START"},
		{name: "BadSchedule", env: map[string]string{"RELAY_DRAIN_SCHEDULE": "*/2 * * * *"}, wantErr: "drain.schedule"},
		{name: "MaxMessagesTooHigh", env: map[string]string{"RELAY_DRAIN_MAX_MESSAGES": "11"}, wantErr: "max_messages"},
		{name: "ZeroBatch", env: map[string]string{"RELAY_BATCH_SIZE": "0"}, wantErr: "batch_size"},
		{name: "UnknownDedup", env: map[string]string{"RELAY_DEDUP_BACKEND": "disk"}, wantErr: "dedup.backend"},
		{name: "RedisWithoutURL", env: map[string]string{"RELAY_DEDUP_BACKEND": "redis"}, wantErr: "redis_url"},
		{name: "BadLogFormat", env: map[string]string{"RELAY_LOG_FORMAT": "xml"}, wantErr: "log_format"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			c, err := Load("")
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("Load() error = %v, want mention of %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			tc.check(t, c)
		})
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearAllEnv(t)
	path := writeConfig(t, `
http_addr = ":7000"
auth_token = "from-file"

[bus]
name = "FileBus"
batch_size = 5

[drain]
queue_url = "http://example/queue"
wait_time = "5s"

[dedup]
backend = "memory"
ttl = "1m"

[quarantine]
bucket = "dead-letters"
`)
	t.Setenv("RELAY_AUTH_TOKEN", "from-env")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HTTPAddr != ":7000" {
		t.Errorf("HTTPAddr = %q, want file value", c.HTTPAddr)
	}
	if c.AuthToken != "from-env" {
		t.Errorf("AuthToken = %q, env must win over file", c.AuthToken)
	}
	if c.Bus.Name != "FileBus" || c.Bus.BatchSize != 5 || c.Bus.Source != "com.student.registration" {
		t.Errorf("bus = %+v", c.Bus)
	}
	if c.Drain.QueueURL != "http://example/queue" || c.Drain.WaitTime != 5*time.Second {
		t.Errorf("drain = %+v", c.Drain)
	}
	if c.Dedup.Backend != DedupMemory || c.Dedup.TTL != time.Minute {
		t.Errorf("dedup = %+v", c.Dedup)
	}
	if c.Quarantine.Bucket != "dead-letters" || c.Quarantine.Prefix != "quarantine" {
		t.Errorf("quarantine = %+v", c.Quarantine)
	}
}

func TestLoad_ConfigFromEnvPath(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("RELAY_CONFIG", writeConfig(t, `grpc_addr = ":6000"`))

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.GRPCAddr != ":6000" {
		t.Errorf("GRPCAddr = %q", c.GRPCAddr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearAllEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	clearAllEnv(t)
	if _, err := Load(writeConfig(t, "http_addr = ")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWarnings_BatchSizeOverPutEventsLimit(t *testing.T) {
	for _, tc := range []struct {
		name      string
		endpoint  string
		batchSize int
		warn      bool
	}{
		{"DefaultsAgainstAWS", "", 20, true},
		{"AtLimit", "", bus.MaxEntries, false},
		{"Emulator", "http://localhost:4566", 20, false},
		{"SmallBatch", "", 5, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			c.AWS.Endpoint = tc.endpoint
			c.Bus.BatchSize = tc.batchSize
			if err := c.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			warns := c.Warnings()
			if got := len(warns) > 0; got != tc.warn {
				t.Fatalf("warnings = %q, want warn=%v", warns, tc.warn)
			}
			if tc.warn && !strings.Contains(warns[0], "bus.batch_size") {
				t.Errorf("warning = %q", warns[0])
			}
		})
	}
}

func TestValidateDrain(t *testing.T) {
	c := Default()
	if err := c.ValidateDrain(); err != nil {
		t.Errorf("ValidateDrain() on defaults: %v", err)
	}
	c.Drain.QueueURL = ""
	if err := c.ValidateDrain(); err == nil {
		t.Error("expected error without queue URL")
	}
}

func TestRedacted(t *testing.T) {
	c := Default()
	c.AuthToken = "secret"
	c.AWS.SecretAccessKey = "also-secret"

	r := c.Redacted()
	if r.AuthToken == "secret" || r.AWS.SecretAccessKey == "also-secret" {
		t.Errorf("secrets not masked: %+v", r)
	}
	if c.AuthToken != "secret" {
		t.Error("Redacted must not modify the original")
	}
}
