package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/analysis"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/db"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/metrics"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/models"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/repository"
	"github.com/comment-lens/youtube-comment-analysis-go/pkg/logger"
)

const (
	// maxKeywords caps the keyword list stored per video.
	maxKeywords = 10

	// topWords caps the word-frequency table returned to clients.
	topWords = 20
)

// SentimentSummary aggregates one sentiment run. It is stored as the
// session's result blob.
type SentimentSummary struct {
	Positive     int      `json:"positive"`
	Negative     int      `json:"negative"`
	Neutral      int      `json:"neutral"`
	Unclassified int      `json:"unclassified"`
	AverageScore *float64 `json:"average_score"`
}

// WordFrequencyResult is the response of the word-frequency pass.
type WordFrequencyResult struct {
	WordFrequency []analysis.WordCount `json:"word_frequency"`
	TotalWords    int                  `json:"total_words"`
	TotalComments int                  `json:"total_comments"`
}

// AnalysisService runs the three analysis passes over a video's stored
// comments: per-comment sentiment, corpus keyword extraction, and local
// word-frequency counting.
type AnalysisService struct {
	videoRepo   repository.VideoRepository
	sessionRepo repository.AnalysisSessionRepository
	analyzer    TextAnalyzer
	publisher   *EventPublisher
}

// NewAnalysisService creates a new AnalysisService.
func NewAnalysisService(
	videoRepo repository.VideoRepository,
	sessionRepo repository.AnalysisSessionRepository,
	analyzer TextAnalyzer,
	publisher *EventPublisher,
) *AnalysisService {
	return &AnalysisService{
		videoRepo:   videoRepo,
		sessionRepo: sessionRepo,
		analyzer:    analyzer,
		publisher:   publisher,
	}
}

// getOwnedVideo loads a video and verifies ownership. Videos belonging to
// other users are reported as not found.
func (s *AnalysisService) getOwnedVideo(ctx context.Context, videoID, userID int64) (*models.Video, error) {
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

// RunSentimentAnalysis classifies every not-yet-analyzed comment of the
// video and tracks progress in an analysis session. Each result is written
// as soon as it arrives, so a failed run keeps everything classified before
// the failure. A disabled analyzer still walks the comments and records
// null classifications.
func (s *AnalysisService) RunSentimentAnalysis(ctx context.Context, videoID, userID int64) (*models.AnalysisSession, error) {
	start := time.Now()

	video, err := s.getOwnedVideo(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}

	comments, err := s.videoRepo.GetUnanalyzedComments(ctx, video.ID)
	if err != nil {
		return nil, &StorageError{Message: "load unanalyzed comments", Cause: err}
	}

	session := &models.AnalysisSession{
		ID:      uuid.New(),
		VideoID: video.ID,
		UserID:  userID,
		Status:  models.SessionStatusPending,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, &StorageError{Message: "create analysis session", Cause: err}
	}

	if err := s.sessionRepo.MarkProcessing(ctx, session.ID, time.Now(), len(comments)); err != nil {
		return nil, &StorageError{Message: "start analysis session", Cause: err}
	}
	session.Status = models.SessionStatusProcessing
	session.TotalComments = len(comments)

	summary := SentimentSummary{}
	var scoreSum float64
	var scored int

	for i, comment := range comments {
		result, err := s.analyzer.AnalyzeSentiment(ctx, comment.TextDisplay)
		if err != nil {
			return nil, s.failSession(ctx, session, fmt.Errorf("analyze comment %d: %w", comment.ID, err))
		}

		if err := s.videoRepo.UpdateCommentSentiment(ctx, comment.ID, result.Score, result.Label, result.Raw); err != nil {
			return nil, s.failSession(ctx, session, fmt.Errorf("store sentiment for comment %d: %w", comment.ID, err))
		}

		if result.Score != nil {
			scoreSum += *result.Score
			scored++
		}
		switch {
		case result.Label == nil:
			summary.Unclassified++
		case *result.Label == models.SentimentPositive:
			summary.Positive++
		case *result.Label == models.SentimentNegative:
			summary.Negative++
		default:
			summary.Neutral++
		}

		session.ProcessedComments = i + 1
		if err := s.sessionRepo.UpdateProgress(ctx, session.ID, session.ProcessedComments); err != nil {
			logger.Log.Warn("Failed to update session progress",
				zap.Error(err),
				zap.String("sessionId", session.ID.String()),
			)
		}
	}

	if scored > 0 {
		avg := scoreSum / float64(scored)
		summary.AverageScore = &avg
	}

	results, err := json.Marshal(summary)
	if err != nil {
		return nil, s.failSession(ctx, session, fmt.Errorf("marshal summary: %w", err))
	}

	if err := s.sessionRepo.Complete(ctx, session.ID, results); err != nil {
		return nil, &StorageError{Message: "complete analysis session", Cause: err}
	}
	session.Status = models.SessionStatusCompleted
	session.AnalysisResults = results

	now := time.Now()
	if err := s.videoRepo.MarkAnalyzed(ctx, video.ID, now); err != nil {
		return nil, &StorageError{Message: "mark video analyzed", Cause: err}
	}

	if err := s.publisher.PublishAnalysisCompleted(ctx, session); err != nil {
		logger.Log.Warn("Failed to publish analysis.completed event",
			zap.Error(err),
			zap.String("sessionId", session.ID.String()),
		)
	}

	metrics.AnalysisRuns.WithLabelValues("sentiment", "completed").Inc()
	metrics.AnalysisDuration.WithLabelValues("sentiment").Observe(time.Since(start).Seconds())

	logger.Log.Info("Sentiment analysis completed",
		zap.Int64("videoId", video.ID),
		zap.String("sessionId", session.ID.String()),
		zap.Int("comments", session.ProcessedComments),
	)

	return session, nil
}

// failSession marks the session failed and wraps the cause. The session
// failure itself is only logged; the original error is what callers see.
func (s *AnalysisService) failSession(ctx context.Context, session *models.AnalysisSession, cause error) error {
	metrics.AnalysisRuns.WithLabelValues("sentiment", "failed").Inc()

	if err := s.sessionRepo.Fail(ctx, session.ID, cause.Error()); err != nil {
		logger.Log.Error("Failed to mark session failed",
			zap.Error(err),
			zap.String("sessionId", session.ID.String()),
		)
	}

	return &UpstreamError{Message: "sentiment analysis failed", Cause: cause}
}

// RunKeywordExtraction asks the language model for up to ten keywords over
// the video's comments and stores them on the video. A video with no stored
// comments yields an empty list without calling the model. When no model is
// configured nothing is persisted, so the video's keywords stay NULL rather
// than recording an empty extraction.
func (s *AnalysisService) RunKeywordExtraction(ctx context.Context, videoID, userID int64) ([]string, error) {
	start := time.Now()

	video, err := s.getOwnedVideo(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}

	if !s.analyzer.Enabled() {
		logger.Log.Info("Keyword extraction skipped, no language model configured",
			zap.Int64("videoId", video.ID),
		)
		return []string{}, nil
	}

	texts, err := s.videoRepo.GetCommentTexts(ctx, video.ID)
	if err != nil {
		return nil, &StorageError{Message: "load comment texts", Cause: err}
	}

	keywords := []string{}
	if len(texts) > 0 {
		keywords, err = s.analyzer.ExtractKeywords(ctx, texts, maxKeywords)
		if err != nil {
			metrics.AnalysisRuns.WithLabelValues("keywords", "failed").Inc()
			return nil, &UpstreamError{Message: "keyword extraction failed", Cause: err}
		}
	}

	if err := s.videoRepo.UpdateKeywords(ctx, video.ID, keywords); err != nil {
		return nil, &StorageError{Message: "store keywords", Cause: err}
	}

	metrics.AnalysisRuns.WithLabelValues("keywords", "completed").Inc()
	metrics.AnalysisDuration.WithLabelValues("keywords").Observe(time.Since(start).Seconds())

	return keywords, nil
}

// RunWordFrequencyAnalysis counts word occurrences across the video's
// comments locally and returns the top entries. Nothing is persisted.
func (s *AnalysisService) RunWordFrequencyAnalysis(ctx context.Context, videoID, userID int64) (*WordFrequencyResult, error) {
	start := time.Now()

	video, err := s.getOwnedVideo(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}

	texts, err := s.videoRepo.GetCommentTexts(ctx, video.ID)
	if err != nil {
		return nil, &StorageError{Message: "load comment texts", Cause: err}
	}

	freqs := analysis.Frequencies(texts)

	metrics.AnalysisRuns.WithLabelValues("word_frequency", "completed").Inc()
	metrics.AnalysisDuration.WithLabelValues("word_frequency").Observe(time.Since(start).Seconds())

	return &WordFrequencyResult{
		WordFrequency: analysis.Top(freqs, topWords),
		TotalWords:    analysis.TotalCount(freqs),
		TotalComments: len(texts),
	}, nil
}

// GetSession returns one of the user's analysis sessions by ID.
func (s *AnalysisService) GetSession(ctx context.Context, id uuid.UUID, userID int64) (*models.AnalysisSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "analysis session", ID: id.String()}
		}
		return nil, &StorageError{Message: "get analysis session", Cause: err}
	}
	if session.UserID != userID {
		return nil, &NotFoundError{Resource: "analysis session", ID: id.String()}
	}
	return session, nil
}
