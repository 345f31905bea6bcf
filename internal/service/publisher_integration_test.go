//go:build integration
// +build integration

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/config"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/models"
)

func setupTestRabbitMQ(t *testing.T) (*config.RabbitMQConfig, func()) {
	ctx := context.Background()

	rabbitmqContainer, err := rabbitmq.Run(ctx,
		"rabbitmq:3.13-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start rabbitmq container: %v", err)
	}

	host, err := rabbitmqContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get host: %v", err)
	}

	port, err := rabbitmqContainer.MappedPort(ctx, "5672/tcp")
	if err != nil {
		t.Fatalf("Failed to get port: %v", err)
	}

	cfg := &config.RabbitMQConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "guest",
		Password: "guest",
		Exchange: "test.video.analysis",
	}

	cleanup := func() {
		if err := rabbitmqContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return cfg, cleanup
}

func TestNewEventPublisher(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg, cleanup := setupTestRabbitMQ(t)
	defer cleanup()

	// Allow some time for RabbitMQ to be fully ready
	time.Sleep(2 * time.Second)

	p, err := NewEventPublisher(cfg)
	if err != nil {
		t.Fatalf("NewEventPublisher() error = %v", err)
	}
	defer p.Close()

	if !p.IsHealthy() {
		t.Error("IsHealthy() = false for a fresh connection")
	}
}

func TestEventPublisherPublish(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg, cleanup := setupTestRabbitMQ(t)
	defer cleanup()

	time.Sleep(2 * time.Second)

	p, err := NewEventPublisher(cfg)
	if err != nil {
		t.Fatalf("NewEventPublisher() error = %v", err)
	}
	defer p.Close()

	ctx := context.Background()

	video := &models.Video{ID: 1, YouTubeID: "abc123", UserID: 7, Title: "Test Video"}
	if err := p.PublishVideoIngested(ctx, video, 42); err != nil {
		t.Errorf("PublishVideoIngested() error = %v", err)
	}

	session := &models.AnalysisSession{
		ID:                uuid.New(),
		VideoID:           1,
		UserID:            7,
		Status:            models.SessionStatusCompleted,
		TotalComments:     42,
		ProcessedComments: 42,
	}
	if err := p.PublishAnalysisCompleted(ctx, session); err != nil {
		t.Errorf("PublishAnalysisCompleted() error = %v", err)
	}
}

func TestEventPublisherCloseMakesUnhealthy(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg, cleanup := setupTestRabbitMQ(t)
	defer cleanup()

	time.Sleep(2 * time.Second)

	p, err := NewEventPublisher(cfg)
	if err != nil {
		t.Fatalf("NewEventPublisher() error = %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if p.IsHealthy() {
		t.Error("IsHealthy() = true after Close()")
	}
}
