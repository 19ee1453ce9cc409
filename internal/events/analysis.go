// Package events consumes analysis-completed notifications published by the
// upstream analysis pipeline.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Harshitk-cp/dreamlog/internal/domain"
	"github.com/Harshitk-cp/dreamlog/internal/metrics"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	DefaultAnalysisSubject = "dreams.analysis.completed"
	defaultDrainTimeout    = 5 * time.Second
	drainPollInterval      = 10 * time.Millisecond
)

// AnalysisEvent is the message body published when a dream analysis finishes.
// An empty status is treated as done.
type AnalysisEvent struct {
	UserID  uuid.UUID             `json:"user_id"`
	DreamID uuid.UUID             `json:"dream_id"`
	Status  domain.AnalysisStatus `json:"status"`
}

type Trigger interface {
	Trigger(userID uuid.UUID)
}

// AnalysisSubscriber starts detached pattern detection for every completed
// analysis it receives.
type AnalysisSubscriber struct {
	conn    *nats.Conn
	subject string
	trigger Trigger
	logger  *zap.Logger
	metrics *metrics.Metrics

	drainTimeout time.Duration
	sub          *nats.Subscription
}

func NewAnalysisSubscriber(conn *nats.Conn, subject string, t Trigger, logger *zap.Logger) *AnalysisSubscriber {
	if subject == "" {
		subject = DefaultAnalysisSubject
	}
	return &AnalysisSubscriber{
		conn:         conn,
		subject:      subject,
		trigger:      t,
		logger:       logger,
		drainTimeout: defaultDrainTimeout,
	}
}

func (s *AnalysisSubscriber) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Connect dials NATS with reconnects enabled.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("dreamlog"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

func (s *AnalysisSubscriber) Start() error {
	sub, err := s.conn.Subscribe(s.subject, s.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	s.sub = sub
	s.logger.Info("analysis subscriber started", zap.String("subject", s.subject))
	return nil
}

// Stop drains the subscription and blocks until the handler has processed
// every pending message, so no Trigger call happens after Stop returns.
// It gives up after the drain timeout.
func (s *AnalysisSubscriber) Stop() {
	if s.sub == nil {
		return
	}
	sub := s.sub
	s.sub = nil

	if err := sub.Drain(); err != nil {
		s.logger.Warn("failed to drain analysis subscription", zap.Error(err))
		return
	}

	deadline := time.Now().Add(s.drainTimeout)
	for sub.IsValid() {
		if time.Now().After(deadline) {
			s.logger.Warn("timed out draining analysis subscription",
				zap.String("subject", s.subject),
				zap.Duration("timeout", s.drainTimeout))
			return
		}
		time.Sleep(drainPollInterval)
	}
}

func (s *AnalysisSubscriber) handle(msg *nats.Msg) {
	var ev AnalysisEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil || ev.UserID == uuid.Nil {
		s.metrics.RecordAnalysisEvent("invalid")
		s.logger.Warn("dropping malformed analysis event",
			zap.String("subject", msg.Subject),
			zap.ByteString("data", msg.Data))
		return
	}

	if ev.Status != "" && ev.Status != domain.AnalysisDone {
		s.metrics.RecordAnalysisEvent("ignored")
		return
	}

	s.metrics.RecordAnalysisEvent("triggered")
	s.logger.Debug("analysis event received",
		zap.String("user_id", ev.UserID.String()),
		zap.String("dream_id", ev.DreamID.String()))
	s.trigger.Trigger(ev.UserID)
}
