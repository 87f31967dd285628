package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "consumer.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	if cfg.Instance.ID == "" {
		t.Error("Instance.ID not generated")
	}
	if cfg.Feed.Transport != "websocket" {
		t.Errorf("Feed.Transport = %q, want websocket", cfg.Feed.Transport)
	}
	if cfg.Feed.Websocket.URL != DefaultRelayURL {
		t.Errorf("Feed.Websocket.URL = %q, want %q", cfg.Feed.Websocket.URL, DefaultRelayURL)
	}
	if cfg.Store.Backend != "redis" {
		t.Errorf("Store.Backend = %q, want redis", cfg.Store.Backend)
	}
	if cfg.Dispatcher.Workers != DefaultWorkers {
		t.Errorf("Dispatcher.Workers = %d, want %d", cfg.Dispatcher.Workers, DefaultWorkers)
	}
	if cfg.Dispatcher.QueueSize != DefaultQueueSize {
		t.Errorf("Dispatcher.QueueSize = %d, want %d", cfg.Dispatcher.QueueSize, DefaultQueueSize)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Instance:   InstanceConfig{ID: "consumer-1"},
		Dispatcher: DispatcherConfig{Workers: 8, QueueSize: 1024},
	}
	cfg.applyDefaults()

	if cfg.Instance.ID != "consumer-1" {
		t.Errorf("Instance.ID = %q, want consumer-1", cfg.Instance.ID)
	}
	if cfg.Dispatcher.Workers != 8 || cfg.Dispatcher.QueueSize != 1024 {
		t.Errorf("Dispatcher = %+v, want workers 8 queue 1024", cfg.Dispatcher)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var cfg Config
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{
			"missing instance id",
			func(c *Config) { c.Instance.ID = "" },
			"instance.id is required",
		},
		{
			"unknown transport",
			func(c *Config) { c.Feed.Transport = "zmq" },
			"feed.transport must be",
		},
		{
			"websocket without url",
			func(c *Config) { c.Feed.Websocket.URL = "" },
			"feed.websocket.url is required",
		},
		{
			"kafka without brokers",
			func(c *Config) { c.Feed.Transport = "kafka" },
			"feed.kafka.brokers is required",
		},
		{
			"kafka without topic",
			func(c *Config) {
				c.Feed.Transport = "kafka"
				c.Feed.Kafka.Brokers = []string{"localhost:9092"}
			},
			"feed.kafka.topic is required",
		},
		{
			"unknown store backend",
			func(c *Config) { c.Store.Backend = "postgres" },
			"store.backend must be",
		},
		{
			"memory backend needs no addr",
			func(c *Config) {
				c.Store.Backend = "memory"
				c.Store.Redis.Addr = ""
			},
			"",
		},
		{
			"zero workers",
			func(c *Config) { c.Dispatcher.Workers = -1 },
			"dispatcher.workers must be >= 1",
		},
		{
			"zero queue",
			func(c *Config) { c.Dispatcher.QueueSize = -1 },
			"dispatcher.queue_size must be >= 1",
		},
		{
			"bad log level",
			func(c *Config) { c.Logging.Level = "verbose" },
			"logging.level must be",
		},
		{
			"bad metrics port",
			func(c *Config) { c.Metrics.Port = 70000 },
			"metrics.port must be between",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
instance:
  id: consumer-test
feed:
  transport: kafka
  kafka:
    brokers: ["localhost:9092"]
    topic: market-frames
store:
  backend: memory
dispatcher:
  workers: 2
stats:
  log_interval: 30s
logging:
  level: debug
`)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate() = %v", err)
	}

	if cfg.Instance.ID != "consumer-test" {
		t.Errorf("Instance.ID = %q", cfg.Instance.ID)
	}
	if cfg.Feed.Transport != "kafka" || cfg.Feed.Kafka.Topic != "market-frames" {
		t.Errorf("Feed = %+v", cfg.Feed)
	}
	if cfg.Feed.Kafka.GroupID != DefaultKafkaGroupID {
		t.Errorf("Kafka.GroupID = %q, want default %q", cfg.Feed.Kafka.GroupID, DefaultKafkaGroupID)
	}
	if cfg.Dispatcher.Workers != 2 {
		t.Errorf("Dispatcher.Workers = %d, want 2", cfg.Dispatcher.Workers)
	}
	if cfg.Dispatcher.QueueSize != DefaultQueueSize {
		t.Errorf("Dispatcher.QueueSize = %d, want default %d", cfg.Dispatcher.QueueSize, DefaultQueueSize)
	}
	if cfg.Stats.LogInterval != 30*time.Second {
		t.Errorf("Stats.LogInterval = %v, want 30s", cfg.Stats.LogInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("FIREHOSE_TEST_REDIS_ADDR", "redis.internal:6379")

	path := writeConfig(t, `
store:
  backend: redis
  redis:
    addr: ${FIREHOSE_TEST_REDIS_ADDR}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Store.Redis.Addr != "redis.internal:6379" {
		t.Errorf("Redis.Addr = %q, want expanded value", cfg.Store.Redis.Addr)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() on missing file = nil, want error")
	}

	path := writeConfig(t, "feed: [not: a: mapping")
	if _, err := Load(path); err == nil {
		t.Error("Load() on malformed yaml = nil, want error")
	}
}
