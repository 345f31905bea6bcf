package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/llm"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/youtube"
)

// TxBeginner starts database transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// VideoProvider is the port to the external video platform. The concrete
// implementation is youtube.Client; tests substitute fakes.
type VideoProvider interface {
	// GetVideoInfo returns full metadata for one video, cache-first.
	// Returns youtube.ErrVideoNotFound when the platform has no such video.
	GetVideoInfo(ctx context.Context, videoID string) (*youtube.VideoMetadata, error)

	// GetVideoBasicInfo returns the lightweight metadata variant.
	GetVideoBasicInfo(ctx context.Context, videoID string) (*youtube.BasicMetadata, error)

	// FetchComments returns up to maxResults top-level comments in time order.
	FetchComments(ctx context.Context, videoID string, maxResults int) ([]*youtube.CommentData, error)
}

// TextAnalyzer is the port to the remote language model. The concrete
// implementation is llm.Client; a disabled analyzer returns empty results
// rather than errors.
type TextAnalyzer interface {
	Enabled() bool
	AnalyzeSentiment(ctx context.Context, text string) (*llm.SentimentResult, error)
	ExtractKeywords(ctx context.Context, texts []string, maxKeywords int) ([]string, error)
}
