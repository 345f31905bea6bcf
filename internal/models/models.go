// Package models contains the persisted entities and shared DTOs for the
// comment analysis service.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the state of an analysis session.
type SessionStatus string

// SessionStatus constants define the possible states of an analysis run.
const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
)

// Sentiment labels produced by the sentiment analysis pass.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Video is a YouTube video saved by a user. A user may save the same
// external video only once; (YouTubeID, UserID) is unique.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Video struct {
	ID                   int64      `json:"id"`
	YouTubeID            string     `json:"youtube_id"`
	UserID               int64      `json:"user_id"`
	Title                string     `json:"title"`
	Description          *string    `json:"description"`
	ChannelTitle         string     `json:"channel_title"`
	ChannelID            string     `json:"channel_id"`
	ThumbnailURL         *string    `json:"thumbnail_url"`
	ThumbnailMediumURL   *string    `json:"thumbnail_medium_url"`
	ThumbnailHighURL     *string    `json:"thumbnail_high_url"`
	ViewCount            int64      `json:"view_count"`
	LikeCount            int64      `json:"like_count"`
	CommentCount         int64      `json:"comment_count"`
	PublishedAt          *time.Time `json:"published_at"`
	Duration             *string    `json:"duration"`
	Tags                 []string   `json:"tags"`
	CategoryID           *string    `json:"category_id"`
	DefaultLanguage      *string    `json:"default_language"`
	DefaultAudioLanguage *string    `json:"default_audio_language"`
	IsPublic             bool       `json:"is_public"`
	IsAnalyzed           bool       `json:"is_analyzed"`
	LastAnalyzedAt       *time.Time `json:"last_analyzed_at"`
	Keywords             []string   `json:"keywords"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// VideoWithStats is a Video annotated with stored-comment counters for
// listing endpoints. AnalyzedComments counts comments with a non-null
// sentiment label.
type VideoWithStats struct {
	Video
	StoredComments   int64 `json:"comments_count"`
	AnalyzedComments int64 `json:"analyzed_count"`
}

// Comment is a top-level YouTube comment belonging to one video.
// (VideoID, YouTubeCommentID) is unique; re-ingestion updates rather than
// duplicates. Sentiment fields are written only by the sentiment pass.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Comment struct {
	ID                int64      `json:"id"`
	VideoID           int64      `json:"video_id"`
	YouTubeCommentID  string     `json:"youtube_comment_id"`
	AuthorDisplayName *string    `json:"author_display_name"`
	AuthorChannelID   *string    `json:"author_channel_id"`
	TextDisplay       string     `json:"text_display"`
	LikeCount         int64      `json:"like_count"`
	PublishedAt       *time.Time `json:"published_at"`
	UpdatedAtYouTube  *time.Time `json:"updated_at_youtube"`
	IsPublic          bool       `json:"is_public"`
	SentimentScore    *float64   `json:"sentiment_score"`
	SentimentLabel    *string    `json:"sentiment_label"`
	SentimentRaw      []byte     `json:"sentiment_raw,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AnalysisSession tracks one sentiment analysis run over a video's comments.
// External consumers poll it for progress.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type AnalysisSession struct {
	ID                uuid.UUID     `json:"id"`
	VideoID           int64         `json:"video_id"`
	UserID            int64         `json:"user_id"`
	Status            SessionStatus `json:"status"`
	TotalComments     int           `json:"total_comments"`
	ProcessedComments int           `json:"processed_comments"`
	AnalysisResults   []byte        `json:"analysis_results,omitempty"`
	ErrorMessage      *string       `json:"error_message"`
	StartedAt         *time.Time    `json:"started_at"`
	CompletedAt       *time.Time    `json:"completed_at"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// ErrorResponse is the JSON error envelope returned by the HTTP layer.
type ErrorResponse struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}
