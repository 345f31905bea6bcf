package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/config"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/models"
	"github.com/comment-lens/youtube-comment-analysis-go/pkg/logger"
)

// Routing keys for published events.
const (
	routingKeyVideoIngested     = "video.ingested"
	routingKeyAnalysisCompleted = "analysis.completed"
)

// VideoIngestedEvent announces a newly saved video to external consumers.
type VideoIngestedEvent struct {
	VideoID       int64     `json:"video_id"`
	YouTubeID     string    `json:"youtube_id"`
	UserID        int64     `json:"user_id"`
	Title         string    `json:"title"`
	CommentsSaved int       `json:"comments_saved"`
	IngestedAt    time.Time `json:"ingested_at"`
}

// AnalysisCompletedEvent announces a finished sentiment analysis run.
type AnalysisCompletedEvent struct {
	SessionID         string    `json:"session_id"`
	VideoID           int64     `json:"video_id"`
	UserID            int64     `json:"user_id"`
	Status            string    `json:"status"`
	ProcessedComments int       `json:"processed_comments"`
	TotalComments     int       `json:"total_comments"`
	CompletedAt       time.Time `json:"completed_at"`
}

// EventPublisher publishes domain events to a RabbitMQ topic exchange for
// external consumers. A nil *EventPublisher is valid and publishes nothing;
// analysis and ingestion never depend on it being configured.
type EventPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	mu      sync.RWMutex
}

// NewEventPublisher connects to RabbitMQ and declares the topic exchange.
func NewEventPublisher(cfg *config.RabbitMQConfig) (*EventPublisher, error) {
	p := &EventPublisher{config: cfg}

	if err := p.connect(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *EventPublisher) connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		p.config.User, p.config.Password, p.config.Host, p.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.config.Exchange, // name
		"topic",           // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = ch

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("exchange", p.config.Exchange),
		zap.String("host", p.config.Host),
	)

	return nil
}

// PublishVideoIngested publishes a video.ingested event.
func (p *EventPublisher) PublishVideoIngested(ctx context.Context, video *models.Video, commentsSaved int) error {
	if p == nil {
		return nil
	}

	return p.publish(ctx, routingKeyVideoIngested, VideoIngestedEvent{
		VideoID:       video.ID,
		YouTubeID:     video.YouTubeID,
		UserID:        video.UserID,
		Title:         video.Title,
		CommentsSaved: commentsSaved,
		IngestedAt:    time.Now(),
	})
}

// PublishAnalysisCompleted publishes an analysis.completed event.
func (p *EventPublisher) PublishAnalysisCompleted(ctx context.Context, session *models.AnalysisSession) error {
	if p == nil {
		return nil
	}

	return p.publish(ctx, routingKeyAnalysisCompleted, AnalysisCompletedEvent{
		SessionID:         session.ID.String(),
		VideoID:           session.VideoID,
		UserID:            session.UserID,
		Status:            string(session.Status),
		ProcessedComments: session.ProcessedComments,
		TotalComments:     session.TotalComments,
		CompletedAt:       time.Now(),
	})
}

func (p *EventPublisher) publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.channel == nil {
		return fmt.Errorf("publisher channel is not open")
	}

	err = p.channel.PublishWithContext(ctx,
		p.config.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	return nil
}

// IsHealthy reports whether the underlying connection is open.
func (p *EventPublisher) IsHealthy() bool {
	if p == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.conn != nil && !p.conn.IsClosed()
}

// Close closes the channel and connection.
func (p *EventPublisher) Close() error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
