package config

import (
	"time"

	"github.com/google/uuid"
)

// Default values for optional configuration fields.
const (
	DefaultTransport          = "websocket"
	DefaultRelayURL           = "wss://relay-eu-germany-1.eve-emdr.com:8050"
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultReadTimeout        = 60 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultFeedBufferSize     = 1024
	DefaultKafkaGroupID       = "market-firehose"
	DefaultStoreBackend       = "redis"
	DefaultRedisAddr          = "localhost:6379"
	DefaultRedisScanCount     = 512
	DefaultWorkers            = 4
	DefaultQueueSize          = 256
	DefaultStatsLogInterval   = 10 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogMaxSizeMB       = 100
	DefaultLogMaxBackups      = 5
	DefaultLogMaxAgeDays      = 14
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
)

func (c *Config) applyDefaults() {
	// Instance defaults
	if c.Instance.ID == "" {
		c.Instance.ID = uuid.NewString()
	}

	// Feed defaults
	if c.Feed.Transport == "" {
		c.Feed.Transport = DefaultTransport
	}
	if c.Feed.Websocket.URL == "" {
		c.Feed.Websocket.URL = DefaultRelayURL
	}
	if c.Feed.Websocket.HandshakeTimeout == 0 {
		c.Feed.Websocket.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Feed.Websocket.ReadTimeout == 0 {
		c.Feed.Websocket.ReadTimeout = DefaultReadTimeout
	}
	if c.Feed.Websocket.ReconnectBaseDelay == 0 {
		c.Feed.Websocket.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.Websocket.ReconnectMaxDelay == 0 {
		c.Feed.Websocket.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Feed.Websocket.BufferSize == 0 {
		c.Feed.Websocket.BufferSize = DefaultFeedBufferSize
	}
	if c.Feed.Kafka.GroupID == "" {
		c.Feed.Kafka.GroupID = DefaultKafkaGroupID
	}
	if c.Feed.Kafka.BufferSize == 0 {
		c.Feed.Kafka.BufferSize = DefaultFeedBufferSize
	}

	// Store defaults
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultStoreBackend
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = DefaultRedisAddr
	}
	if c.Store.Redis.ScanCount == 0 {
		c.Store.Redis.ScanCount = DefaultRedisScanCount
	}

	// Dispatcher defaults
	if c.Dispatcher.Workers == 0 {
		c.Dispatcher.Workers = DefaultWorkers
	}
	if c.Dispatcher.QueueSize == 0 {
		c.Dispatcher.QueueSize = DefaultQueueSize
	}

	// Stats defaults
	if c.Stats.LogInterval == 0 {
		c.Stats.LogInterval = DefaultStatsLogInterval
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
