// Package events announces session transitions to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"presenter-studio/internal/models"
)

// SessionEvent is published after every session phase transition.
type SessionEvent struct {
	EventID           string               `json:"event_id"`
	SessionID         string               `json:"session_id"`
	Presenter         string               `json:"presenter"`
	Phase             string               `json:"phase"`
	Status            models.SessionStatus `json:"status"`
	SegmentIndex      *int                 `json:"segment_index,omitempty"`
	FinalVideoPath    string               `json:"final_video_path,omitempty"`
	EnhancedVideoPath string               `json:"enhanced_video_path,omitempty"`
	Failure           *models.Failure      `json:"failure,omitempty"`
	At                time.Time            `json:"at"`
}

// Publisher sends session events.
type Publisher interface {
	Publish(ctx context.Context, event SessionEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, SessionEvent) error { return nil }
func (NopPublisher) Close() error                                { return nil }

// RabbitMQPublisher publishes events to a durable fanout exchange.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewRabbitMQPublisher dials url, opens a channel and declares the exchange.
func NewRabbitMQPublisher(url, exchange string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchange, err)
	}

	logger = logger.Named("events")
	logger.Info("Session event exchange declared", zap.String("exchange", exchange))
	return &RabbitMQPublisher{conn: conn, ch: ch, exchange: exchange, logger: logger}, nil
}

// Publish sends event as a persistent JSON message.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event SessionEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		"",         // routing key, unused by fanout
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.At,
			Type:         "session." + string(event.Status),
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish session event",
			zap.String("session_id", event.SessionID),
			zap.String("status", string(event.Status)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish session event: %w", err)
	}
	p.logger.Debug("Session event published",
		zap.String("session_id", event.SessionID),
		zap.String("event_id", event.EventID),
	)
	return nil
}

// Close closes the channel and the connection.
func (p *RabbitMQPublisher) Close() error {
	var firstErr error
	if p.ch != nil {
		firstErr = p.ch.Close()
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
