package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch c.Feed.Transport {
	case "websocket":
		if c.Feed.Websocket.URL == "" {
			return errors.New("feed.websocket.url is required")
		}
	case "kafka":
		if len(c.Feed.Kafka.Brokers) == 0 {
			return errors.New("feed.kafka.brokers is required")
		}
		if c.Feed.Kafka.Topic == "" {
			return errors.New("feed.kafka.topic is required")
		}
		if c.Feed.Kafka.GroupID == "" {
			return errors.New("feed.kafka.group_id is required")
		}
	default:
		return fmt.Errorf("feed.transport must be \"websocket\" or \"kafka\", got %q", c.Feed.Transport)
	}

	switch c.Store.Backend {
	case "redis":
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required")
		}
	case "memory":
	default:
		return fmt.Errorf("store.backend must be \"redis\" or \"memory\", got %q", c.Store.Backend)
	}

	if c.Dispatcher.Workers < 1 {
		return errors.New("dispatcher.workers must be >= 1")
	}
	if c.Dispatcher.QueueSize < 1 {
		return errors.New("dispatcher.queue_size must be >= 1")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}
