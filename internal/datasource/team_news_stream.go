package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Team-news message types that affect a prediction already in cache
const (
	NewsTypeLineup    = "lineup"
	NewsTypeInjury    = "injury"
	NewsTypePostponed = "postponed"
)

// TeamNewsMessage is one event on the provider's team-news stream
type TeamNewsMessage struct {
	Type      string    `json:"type"`
	FixtureID string    `json:"fixture_id"`
	TeamID    string    `json:"team_id"`
	Detail    string    `json:"detail"`
	At        time.Time `json:"at"`
}

// FixtureInvalidator drops cached predictions for a fixture
type FixtureInvalidator interface {
	InvalidateFixture(fixtureID string)
}

// StreamConfig holds connection settings for the team-news stream
type StreamConfig struct {
	URL            string
	APIKey         string
	ReconnectMin   time.Duration
	ReconnectMax   time.Duration
	PingInterval   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

// DefaultStreamConfig returns recommended defaults
func DefaultStreamConfig(url, apiKey string) StreamConfig {
	return StreamConfig{
		URL:            url,
		APIKey:         apiKey,
		ReconnectMin:   time.Second,
		ReconnectMax:   time.Minute,
		PingInterval:   30 * time.Second,
		ReadTimeout:    90 * time.Second,
		MaxMessageSize: 1 << 16,
	}
}

// TeamNewsStream maintains a websocket subscription to the provider's
// team-news feed and invalidates cached predictions when lineups or
// injury news arrive for a fixture. Reconnects with exponential backoff.
type TeamNewsStream struct {
	cfg         StreamConfig
	invalidator FixtureInvalidator
	logger      *logrus.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	running bool
	done    chan struct{}
}

// NewTeamNewsStream creates a new team-news stream listener
func NewTeamNewsStream(cfg StreamConfig, invalidator FixtureInvalidator, logger *logrus.Logger) *TeamNewsStream {
	return &TeamNewsStream{
		cfg:         cfg,
		invalidator: invalidator,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Start begins consuming the stream until the context is cancelled
func (s *TeamNewsStream) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("team news stream already running")
	}
	s.running = true
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Stop closes the stream and waits for the read loop to exit
func (s *TeamNewsStream) Stop() {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
	<-s.done
}

func (s *TeamNewsStream) run(ctx context.Context) {
	defer close(s.done)

	backoff := s.cfg.ReconnectMin
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.connect(ctx)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"url":     s.cfg.URL,
				"backoff": backoff.String(),
			}).Warnf("Team news stream connect failed: %v", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > s.cfg.ReconnectMax {
				backoff = s.cfg.ReconnectMax
			}
			continue
		}

		backoff = s.cfg.ReconnectMin
		s.logger.WithField("url", s.cfg.URL).Info("Team news stream connected")

		s.readLoop(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}
}

func (s *TeamNewsStream) connect(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.cfg.APIKey != "" {
		header.Set("X-API-Key", s.cfg.APIKey)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(s.cfg.MaxMessageSize)

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	return conn, nil
}

func (s *TeamNewsStream) readLoop(ctx context.Context, conn *websocket.Conn) {
	pinger := time.NewTicker(s.cfg.PingInterval)
	defer pinger.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-pinger.C:
				deadline := time.Now().Add(10 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warnf("Team news stream read error: %v", err)
			}
			return
		}
		s.handleMessage(data)
	}
}

func (s *TeamNewsStream) handleMessage(data []byte) {
	var msg TeamNewsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warnf("Failed to decode team news message: %v", err)
		return
	}
	if msg.FixtureID == "" {
		return
	}

	switch msg.Type {
	case NewsTypeLineup, NewsTypeInjury, NewsTypePostponed:
		s.invalidator.InvalidateFixture(msg.FixtureID)
		s.logger.WithFields(logrus.Fields{
			"fixture_id": msg.FixtureID,
			"type":       msg.Type,
		}).Info("Invalidated cached prediction on team news")
	default:
		s.logger.WithField("type", msg.Type).Debug("Ignoring team news message")
	}
}
