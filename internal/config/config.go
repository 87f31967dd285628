// Package config loads and validates the consumer's YAML configuration.
package config

import "time"

// Config is the root configuration for a consumer instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Feed       FeedConfig       `yaml:"feed"`
	Store      StoreConfig      `yaml:"store"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Stats      StatsConfig      `yaml:"stats"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// InstanceConfig identifies this consumer.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// FeedConfig selects and configures the relay transport.
type FeedConfig struct {
	Transport string          `yaml:"transport"` // "websocket" or "kafka"
	Websocket WebsocketConfig `yaml:"websocket"`
	Kafka     KafkaConfig     `yaml:"kafka"`
}

// WebsocketConfig holds the WebSocket relay subscription settings.
type WebsocketConfig struct {
	URL                string        `yaml:"url"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	BufferSize         int           `yaml:"buffer_size"`
}

// KafkaConfig holds the Kafka relay-mirror settings.
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	GroupID    string   `yaml:"group_id"`
	BufferSize int      `yaml:"buffer_size"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Backend string      `yaml:"backend"` // "redis" or "memory"
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds the Redis backend settings.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	ScanCount int64  `yaml:"scan_count"`
}

// DispatcherConfig holds worker-pool settings.
type DispatcherConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// StatsConfig holds stats collector settings.
type StatsConfig struct {
	LogInterval time.Duration `yaml:"log_interval"`
}

// LoggingConfig holds logging settings. When File is set, logs rotate via
// lumberjack instead of going to stdout.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig holds the health/metrics HTTP server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
