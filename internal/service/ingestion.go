package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/db"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/metrics"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/models"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/repository"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/youtube"
	"github.com/comment-lens/youtube-comment-analysis-go/pkg/logger"
)

// IngestResult is the outcome of one ingestion request.
type IngestResult struct {
	Video         *models.Video
	AlreadySaved  bool
	CommentsSaved int
}

// VideoPreview is the lightweight response for URL preview requests.
type VideoPreview struct {
	YouTubeID string                 `json:"youtube_id"`
	Metadata  *youtube.BasicMetadata `json:"metadata"`
}

// IngestionService saves videos and their comments from submitted URLs.
// Ingestion is idempotent per (video, user): re-submitting a saved URL
// returns the existing row without refetching metadata.
type IngestionService struct {
	pool        TxBeginner
	videoRepo   repository.VideoRepository
	provider    VideoProvider
	publisher   *EventPublisher
	maxComments int
}

// NewIngestionService creates a new IngestionService. maxComments bounds
// how many comments one ingestion fetches; zero or negative means the
// default cap.
func NewIngestionService(
	pool TxBeginner,
	videoRepo repository.VideoRepository,
	provider VideoProvider,
	publisher *EventPublisher,
	maxComments int,
) *IngestionService {
	if maxComments <= 0 {
		maxComments = youtube.DefaultMaxComments
	}
	return &IngestionService{
		pool:        pool,
		videoRepo:   videoRepo,
		provider:    provider,
		publisher:   publisher,
		maxComments: maxComments,
	}
}

// IngestVideo resolves the submitted URL to a video ID, fetches metadata and
// comments from the provider, and stores everything in one transaction. When
// the user already saved this video the stored row is returned unchanged.
func (s *IngestionService) IngestVideo(ctx context.Context, userID int64, rawURL string) (*IngestResult, error) {
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		metrics.VideoIngestions.WithLabelValues("failed").Inc()
		return nil, &InvalidURLError{URL: rawURL}
	}

	existing, err := s.videoRepo.FindExisting(ctx, videoID, userID)
	if err == nil {
		metrics.VideoIngestions.WithLabelValues("already_saved").Inc()
		return &IngestResult{Video: existing, AlreadySaved: true}, nil
	}
	if !db.IsNotFound(err) {
		metrics.VideoIngestions.WithLabelValues("failed").Inc()
		return nil, &StorageError{Message: "look up existing video", Cause: err}
	}

	meta, err := s.provider.GetVideoInfo(ctx, videoID)
	if err != nil {
		metrics.VideoIngestions.WithLabelValues("failed").Inc()
		if errors.Is(err, youtube.ErrVideoNotFound) {
			return nil, &NotFoundError{Resource: "video", ID: videoID}
		}
		return nil, &UpstreamError{Message: "fetch video metadata", Cause: err}
	}

	commentData, err := s.provider.FetchComments(ctx, videoID, s.maxComments)
	if err != nil {
		metrics.VideoIngestions.WithLabelValues("failed").Inc()
		return nil, &UpstreamError{Message: "fetch video comments", Cause: err}
	}
	metrics.CommentsFetched.Add(float64(len(commentData)))

	comments := make([]*models.Comment, 0, len(commentData))
	for _, data := range commentData {
		comments = append(comments, data.ToComment())
	}

	video := meta.ToVideo(userID)

	result, err := s.store(ctx, videoID, userID, video, comments)
	if err != nil {
		metrics.VideoIngestions.WithLabelValues("failed").Inc()
		return nil, err
	}

	if result.AlreadySaved {
		metrics.VideoIngestions.WithLabelValues("already_saved").Inc()
		return result, nil
	}
	metrics.VideoIngestions.WithLabelValues("saved").Inc()

	if err := s.publisher.PublishVideoIngested(ctx, result.Video, result.CommentsSaved); err != nil {
		logger.Log.Warn("Failed to publish video.ingested event",
			zap.Error(err),
			zap.Int64("videoId", result.Video.ID),
		)
	}

	logger.Log.Info("Video ingested",
		zap.Int64("videoId", result.Video.ID),
		zap.String("youtubeId", videoID),
		zap.Int64("userId", userID),
		zap.Int("commentsSaved", result.CommentsSaved),
	)

	return result, nil
}

// store writes the video and its comments inside one transaction. A
// duplicate-key failure on the video insert means a concurrent request won
// the race; the stored row is returned as already saved.
func (s *IngestionService) store(ctx context.Context, videoID string, userID int64, video *models.Video, comments []*models.Comment) (*IngestResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, &StorageError{Message: "begin transaction", Cause: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	txRepo := s.videoRepo.WithTx(tx)

	if err := txRepo.CreateVideo(ctx, video); err != nil {
		if db.IsDuplicateKey(err) {
			_ = tx.Rollback(ctx)
			existing, findErr := s.videoRepo.FindExisting(ctx, videoID, userID)
			if findErr != nil {
				return nil, &StorageError{Message: "look up existing video", Cause: findErr}
			}
			return &IngestResult{Video: existing, AlreadySaved: true}, nil
		}
		return nil, &StorageError{Message: "save video", Cause: err}
	}

	if err := txRepo.UpsertComments(ctx, video.ID, comments); err != nil {
		return nil, &StorageError{Message: "save comments", Cause: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &StorageError{Message: "commit transaction", Cause: err}
	}

	return &IngestResult{Video: video, CommentsSaved: len(comments)}, nil
}

// Preview validates a watch URL and returns lightweight metadata without
// saving anything.
func (s *IngestionService) Preview(ctx context.Context, rawURL string) (*VideoPreview, error) {
	if !youtube.IsValidWatchURL(rawURL) {
		return nil, &InvalidURLError{URL: rawURL}
	}

	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL}
	}

	basic, err := s.provider.GetVideoBasicInfo(ctx, videoID)
	if err != nil {
		if errors.Is(err, youtube.ErrVideoNotFound) {
			return nil, &NotFoundError{Resource: "video", ID: videoID}
		}
		return nil, &UpstreamError{Message: "fetch video preview", Cause: err}
	}

	return &VideoPreview{YouTubeID: videoID, Metadata: basic}, nil
}

// ListVideos returns the user's saved videos with comment counters,
// newest first.
func (s *IngestionService) ListVideos(ctx context.Context, userID int64) ([]*models.VideoWithStats, error) {
	videos, err := s.videoRepo.ListUserVideos(ctx, userID)
	if err != nil {
		return nil, &StorageError{Message: "list videos", Cause: err}
	}
	if videos == nil {
		videos = []*models.VideoWithStats{}
	}
	return videos, nil
}

// GetVideo returns one of the user's saved videos by local ID.
func (s *IngestionService) GetVideo(ctx context.Context, videoID, userID int64) (*models.Video, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "video", ID: fmt.Sprintf("%d", videoID)}
		}
		return nil, &StorageError{Message: "get video", Cause: err}
	}
	if video.UserID != userID {
		return nil, &NotFoundError{Resource: "video", ID: fmt.Sprintf("%d", videoID)}
	}
	return video, nil
}
