// Package events publishes finalized transcript turns to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/sculptai/posecoach/metrics"
)

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// TurnEvent is the published record for one finalized transcript turn.
type TurnEvent struct {
	SessionID string    `json:"sessionId"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
}

// Publisher writes turn events to a Kafka topic. When disabled it runs in
// log-only mode so the session path never depends on a broker.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
}

// New creates a publisher. A nil or disabled config yields log-only mode.
func New(cfg *Config) *Publisher {
	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, transcript events run in log-only mode")
		return &Publisher{enabled: false}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}

	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("Kafka transcript publisher initialized")
	return &Publisher{writer: writer, topic: cfg.Topic, enabled: true}
}

// Enabled reports whether events reach a broker.
func (p *Publisher) Enabled() bool { return p.enabled }

// PublishTurn publishes one finalized turn keyed by session ID.
func (p *Publisher) PublishTurn(ctx context.Context, ev TurnEvent) error {
	start := time.Now()

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal turn event")
		return err
	}

	log.Debug().Str("sessionId", ev.SessionID).Str("speaker", ev.Speaker).Msg("publishing turn event")

	if !p.enabled || p.writer == nil {
		metrics.TranscriptPublishDuration.Observe(time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(ev.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte("transcript.turn")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().Err(err).Str("topic", p.topic).Msg("failed to write turn event to Kafka")
		metrics.TranscriptPublishDuration.Observe(time.Since(start).Seconds())
		return err
	}

	metrics.TranscriptPublishDuration.Observe(time.Since(start).Seconds())
	return nil
}

// Close closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
