package main

import (
	"context"
	"errors"
	"testing"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/config"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/service"
)

func TestNewVideoProviderRequiresAPIKey(t *testing.T) {
	cfg := &config.Config{}

	_, err := newVideoProvider(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("newVideoProvider() error = nil, want configuration error")
	}

	var configErr *service.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("newVideoProvider() error = %T, want *service.ConfigError", err)
	}
}
