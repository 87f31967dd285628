package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig holds WebSocket transport settings.
type WSConfig struct {
	URL                string
	HandshakeTimeout   time.Duration
	ReadTimeout        time.Duration // max silence before the connection is considered dead
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	BufferSize         int // frame channel capacity
}

// DefaultWSConfig returns sensible defaults.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout:   10 * time.Second,
		ReadTimeout:        60 * time.Second,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		BufferSize:         1024,
	}
}

// WSSource subscribes to a relay WebSocket endpoint and reconnects with
// exponential backoff when the connection drops.
type WSSource struct {
	cfg    WSConfig
	logger *slog.Logger

	frames chan Frame

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWSSource creates a WebSocket feed source.
func NewWSSource(cfg WSConfig, logger *slog.Logger) *WSSource {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	return &WSSource{
		cfg:    cfg,
		logger: logger,
		frames: make(chan Frame, cfg.BufferSize),
	}
}

// Start launches the subscribe/reconnect loop.
func (s *WSSource) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("relay websocket source started", "url", s.cfg.URL)
	return nil
}

// Frames returns the frame channel.
func (s *WSSource) Frames() <-chan Frame {
	return s.frames
}

// Stop shuts the source down and closes the frame channel.
func (s *WSSource) Stop(ctx context.Context) error {
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
		close(s.frames)
		s.logger.Info("relay websocket source stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run dials, reads until failure, and redials with exponential backoff.
func (s *WSSource) run() {
	defer s.wg.Done()

	delay := s.cfg.ReconnectBaseDelay

	for {
		if s.ctx.Err() != nil {
			return
		}

		conn, err := s.dial()
		if err != nil {
			s.logger.Warn("relay dial failed", "url", s.cfg.URL, "error", err, "retry_in", delay)
			if !s.sleep(delay) {
				return
			}
			delay = s.nextDelay(delay)
			continue
		}

		s.logger.Info("relay connected", "url", s.cfg.URL)
		delay = s.cfg.ReconnectBaseDelay

		s.readLoop(conn)
		conn.Close()

		if s.ctx.Err() != nil {
			return
		}
		s.logger.Warn("relay connection lost, reconnecting", "url", s.cfg.URL)
	}
}

func (s *WSSource) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(s.ctx, s.cfg.URL, nil)
	return conn, err
}

// readLoop delivers frames until the connection fails or Stop is called.
func (s *WSSource) readLoop(conn *websocket.Conn) {
	for {
		if s.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil {
				s.logger.Warn("relay read failed", "error", err)
			}
			return
		}

		select {
		case s.frames <- Frame{Data: data, ReceivedAt: time.Now()}:
		case <-s.ctx.Done():
			return
		}
	}
}

// sleep waits for d or until Stop; reports whether to keep running.
func (s *WSSource) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *WSSource) nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > s.cfg.ReconnectMaxDelay {
		d = s.cfg.ReconnectMaxDelay
	}
	return d
}
