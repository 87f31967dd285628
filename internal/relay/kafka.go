package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// KafkaConfig holds Kafka transport settings.
type KafkaConfig struct {
	Brokers    []string
	Topic      string
	GroupID    string
	BufferSize int
}

// KafkaSource consumes relay frames from a Kafka topic as a consumer group.
// Frame payloads are the same compressed documents the WebSocket transport
// delivers.
type KafkaSource struct {
	cfg    KafkaConfig
	logger *slog.Logger

	group  sarama.ConsumerGroup
	frames chan Frame

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKafkaSource creates the consumer group.
func NewKafkaSource(cfg KafkaConfig, logger *slog.Logger) (*KafkaSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}

	sc := sarama.NewConfig()
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRange(),
	}
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return &KafkaSource{
		cfg:    cfg,
		logger: logger,
		group:  group,
		frames: make(chan Frame, cfg.BufferSize),
	}, nil
}

// Start launches the consume loop.
func (s *KafkaSource) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.wg.Add(1)
	go s.logErrors()

	s.logger.Info("relay kafka source started",
		"topic", s.cfg.Topic,
		"group", s.cfg.GroupID,
	)
	return nil
}

// Frames returns the frame channel.
func (s *KafkaSource) Frames() <-chan Frame {
	return s.frames
}

// Stop leaves the group and closes the frame channel.
func (s *KafkaSource) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	err := s.group.Close()
	close(s.frames)
	s.logger.Info("relay kafka source stopped")
	return err
}

// run re-joins the group after every rebalance until Stop.
func (s *KafkaSource) run() {
	defer s.wg.Done()

	handler := &frameHandler{source: s}
	for {
		if err := s.group.Consume(s.ctx, []string{s.cfg.Topic}, handler); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("kafka consume failed", "error", err)
		}
		if s.ctx.Err() != nil {
			return
		}
	}
}

func (s *KafkaSource) logErrors() {
	defer s.wg.Done()

	for {
		select {
		case err, ok := <-s.group.Errors():
			if !ok {
				return
			}
			s.logger.Warn("kafka consumer group error", "error", err)
		case <-s.ctx.Done():
			return
		}
	}
}

// frameHandler adapts the consumer-group callbacks to the frame channel.
type frameHandler struct {
	source *KafkaSource
}

func (h *frameHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *frameHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *frameHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		select {
		case h.source.frames <- Frame{Data: msg.Value, ReceivedAt: time.Now()}:
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
	return nil
}
