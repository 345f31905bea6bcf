// Package repository provides persistence for videos, comments, and
// analysis sessions. It is the only component with write access to those
// tables.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/db"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/models"
)

// Querier is the subset of pgx operations the repositories need. It is
// satisfied by both *pgxpool.Pool and pgx.Tx, which lets a service run
// repository calls inside a transaction via WithTx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VideoRepository defines operations for managing videos and their comments.
type VideoRepository interface {
	// FindExisting retrieves the video a user has already saved for the
	// given YouTube ID. Returns db.ErrNotFound if none exists.
	FindExisting(ctx context.Context, youtubeID string, userID int64) (*models.Video, error)

	// GetByID retrieves a single video by its local ID.
	GetByID(ctx context.Context, id int64) (*models.Video, error)

	// CreateVideo inserts a new video row. Fails with db.ErrDuplicateKey if
	// the user already saved this YouTube video.
	CreateVideo(ctx context.Context, video *models.Video) error

	// UpsertComments inserts or updates comments keyed by
	// (video_id, youtube_comment_id). Updates never touch the sentiment
	// columns, so re-ingestion preserves prior analysis results.
	UpsertComments(ctx context.Context, videoID int64, comments []*models.Comment) error

	// GetUnanalyzedComments retrieves all comments whose sentiment label is
	// still null.
	GetUnanalyzedComments(ctx context.Context, videoID int64) ([]*models.Comment, error)

	// GetCommentTexts retrieves the display text of all comments for a video.
	GetCommentTexts(ctx context.Context, videoID int64) ([]string, error)

	// UpdateCommentSentiment writes the sentiment result for one comment.
	UpdateCommentSentiment(ctx context.Context, commentID int64, score *float64, label *string, raw []byte) error

	// UpdateKeywords overwrites the video's extracted keyword list.
	UpdateKeywords(ctx context.Context, videoID int64, keywords []string) error

	// MarkAnalyzed flags the video as analyzed at the given time.
	MarkAnalyzed(ctx context.Context, videoID int64, at time.Time) error

	// ListUserVideos retrieves a user's saved videos with stored-comment and
	// analyzed-comment counts, newest first.
	ListUserVideos(ctx context.Context, userID int64) ([]*models.VideoWithStats, error)

	// WithTx returns a copy of the repository bound to the given transaction.
	WithTx(tx pgx.Tx) VideoRepository
}

type videoRepository struct {
	q Querier
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(q Querier) VideoRepository {
	return &videoRepository{q: q}
}

func (r *videoRepository) WithTx(tx pgx.Tx) VideoRepository {
	return &videoRepository{q: tx}
}

const videoColumns = `id, youtube_id, user_id, title, description, channel_title, channel_id,
	thumbnail_url, thumbnail_medium_url, thumbnail_high_url,
	view_count, like_count, comment_count, published_at, duration, tags,
	category_id, default_language, default_audio_language,
	is_public, is_analyzed, last_analyzed_at, keywords, created_at, updated_at`

func scanVideo(row pgx.Row, video *models.Video) error {
	return row.Scan(
		&video.ID,
		&video.YouTubeID,
		&video.UserID,
		&video.Title,
		&video.Description,
		&video.ChannelTitle,
		&video.ChannelID,
		&video.ThumbnailURL,
		&video.ThumbnailMediumURL,
		&video.ThumbnailHighURL,
		&video.ViewCount,
		&video.LikeCount,
		&video.CommentCount,
		&video.PublishedAt,
		&video.Duration,
		&video.Tags,
		&video.CategoryID,
		&video.DefaultLanguage,
		&video.DefaultAudioLanguage,
		&video.IsPublic,
		&video.IsAnalyzed,
		&video.LastAnalyzedAt,
		&video.Keywords,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
}

func (r *videoRepository) FindExisting(ctx context.Context, youtubeID string, userID int64) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE youtube_id = $1 AND user_id = $2`

	video := &models.Video{}
	if err := scanVideo(r.q.QueryRow(ctx, query, youtubeID, userID), video); err != nil {
		return nil, db.WrapError(err, "find existing video")
	}

	return video, nil
}

func (r *videoRepository) GetByID(ctx context.Context, id int64) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	video := &models.Video{}
	if err := scanVideo(r.q.QueryRow(ctx, query, id), video); err != nil {
		return nil, db.WrapError(err, "get video by id")
	}

	return video, nil
}

func (r *videoRepository) CreateVideo(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (youtube_id, user_id, title, description, channel_title, channel_id,
			thumbnail_url, thumbnail_medium_url, thumbnail_high_url,
			view_count, like_count, comment_count, published_at, duration, tags,
			category_id, default_language, default_audio_language, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, is_analyzed, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		video.YouTubeID,
		video.UserID,
		video.Title,
		video.Description,
		video.ChannelTitle,
		video.ChannelID,
		video.ThumbnailURL,
		video.ThumbnailMediumURL,
		video.ThumbnailHighURL,
		video.ViewCount,
		video.LikeCount,
		video.CommentCount,
		video.PublishedAt,
		video.Duration,
		video.Tags,
		video.CategoryID,
		video.DefaultLanguage,
		video.DefaultAudioLanguage,
		video.IsPublic,
	).Scan(
		&video.ID,
		&video.IsAnalyzed,
		&video.CreatedAt,
		&video.UpdatedAt,
	)

	if err != nil {
		return db.WrapError(err, "create video")
	}

	return nil
}

func (r *videoRepository) UpsertComments(ctx context.Context, videoID int64, comments []*models.Comment) error {
	// Only ingestion fields appear in the DO UPDATE clause. Sentiment
	// columns stay untouched so re-ingestion never wipes prior analysis.
	query := `
		INSERT INTO comments (video_id, youtube_comment_id, author_display_name, author_channel_id,
			text_display, like_count, published_at, updated_at_youtube, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (video_id, youtube_comment_id) DO UPDATE
		SET author_display_name = EXCLUDED.author_display_name,
		    author_channel_id = EXCLUDED.author_channel_id,
		    text_display = EXCLUDED.text_display,
		    like_count = EXCLUDED.like_count,
		    published_at = EXCLUDED.published_at,
		    updated_at_youtube = EXCLUDED.updated_at_youtube,
		    is_public = EXCLUDED.is_public,
		    updated_at = NOW()
		RETURNING id
	`

	for _, comment := range comments {
		err := r.q.QueryRow(ctx, query,
			videoID,
			comment.YouTubeCommentID,
			comment.AuthorDisplayName,
			comment.AuthorChannelID,
			comment.TextDisplay,
			comment.LikeCount,
			comment.PublishedAt,
			comment.UpdatedAtYouTube,
			comment.IsPublic,
		).Scan(&comment.ID)
		if err != nil {
			return db.WrapError(err, "upsert comment")
		}
		comment.VideoID = videoID
	}

	return nil
}

const commentColumns = `id, video_id, youtube_comment_id, author_display_name, author_channel_id,
	text_display, like_count, published_at, updated_at_youtube, is_public,
	sentiment_score, sentiment_label, sentiment_raw, created_at, updated_at`

func (r *videoRepository) GetUnanalyzedComments(ctx context.Context, videoID int64) ([]*models.Comment, error) {
	query := `SELECT ` + commentColumns + `
		FROM comments
		WHERE video_id = $1 AND sentiment_label IS NULL
		ORDER BY id`

	rows, err := r.q.Query(ctx, query, videoID)
	if err != nil {
		return nil, db.WrapError(err, "get unanalyzed comments")
	}
	defer rows.Close()

	return scanComments(rows)
}

func (r *videoRepository) GetCommentTexts(ctx context.Context, videoID int64) ([]string, error) {
	query := `SELECT text_display FROM comments WHERE video_id = $1 ORDER BY id`

	rows, err := r.q.Query(ctx, query, videoID)
	if err != nil {
		return nil, db.WrapError(err, "get comment texts")
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan comment text: %w", err)
		}
		texts = append(texts, text)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comment texts: %w", err)
	}

	return texts, nil
}

func (r *videoRepository) UpdateCommentSentiment(ctx context.Context, commentID int64, score *float64, label *string, raw []byte) error {
	query := `
		UPDATE comments
		SET sentiment_score = $2, sentiment_label = $3, sentiment_raw = $4, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, commentID, score, label, raw)
	if err != nil {
		return db.WrapError(err, "update comment sentiment")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "update comment sentiment")
	}

	return nil
}

func (r *videoRepository) UpdateKeywords(ctx context.Context, videoID int64, keywords []string) error {
	query := `UPDATE videos SET keywords = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, videoID, keywords)
	if err != nil {
		return db.WrapError(err, "update keywords")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "update keywords")
	}

	return nil
}

func (r *videoRepository) MarkAnalyzed(ctx context.Context, videoID int64, at time.Time) error {
	query := `UPDATE videos SET is_analyzed = TRUE, last_analyzed_at = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, videoID, at)
	if err != nil {
		return db.WrapError(err, "mark video analyzed")
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, "mark video analyzed")
	}

	return nil
}

func (r *videoRepository) ListUserVideos(ctx context.Context, userID int64) ([]*models.VideoWithStats, error) {
	query := `
		SELECT v.id, v.youtube_id, v.user_id, v.title, v.description, v.channel_title, v.channel_id,
			v.thumbnail_url, v.thumbnail_medium_url, v.thumbnail_high_url,
			v.view_count, v.like_count, v.comment_count, v.published_at, v.duration, v.tags,
			v.category_id, v.default_language, v.default_audio_language,
			v.is_public, v.is_analyzed, v.last_analyzed_at, v.keywords, v.created_at, v.updated_at,
			COUNT(c.id) AS comments_count,
			COUNT(c.id) FILTER (WHERE c.sentiment_label IS NOT NULL) AS analyzed_count
		FROM videos v
		LEFT JOIN comments c ON c.video_id = v.id
		WHERE v.user_id = $1
		GROUP BY v.id
		ORDER BY v.created_at DESC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, db.WrapError(err, "list user videos")
	}
	defer rows.Close()

	var videos []*models.VideoWithStats
	for rows.Next() {
		video := &models.VideoWithStats{}
		err := rows.Scan(
			&video.ID,
			&video.YouTubeID,
			&video.UserID,
			&video.Title,
			&video.Description,
			&video.ChannelTitle,
			&video.ChannelID,
			&video.ThumbnailURL,
			&video.ThumbnailMediumURL,
			&video.ThumbnailHighURL,
			&video.ViewCount,
			&video.LikeCount,
			&video.CommentCount,
			&video.PublishedAt,
			&video.Duration,
			&video.Tags,
			&video.CategoryID,
			&video.DefaultLanguage,
			&video.DefaultAudioLanguage,
			&video.IsPublic,
			&video.IsAnalyzed,
			&video.LastAnalyzedAt,
			&video.Keywords,
			&video.CreatedAt,
			&video.UpdatedAt,
			&video.StoredComments,
			&video.AnalyzedComments,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user videos: %w", err)
	}

	return videos, nil
}

// Helper function to scan multiple comments from query results
func scanComments(rows pgx.Rows) ([]*models.Comment, error) {
	var comments []*models.Comment

	for rows.Next() {
		comment := &models.Comment{}
		err := rows.Scan(
			&comment.ID,
			&comment.VideoID,
			&comment.YouTubeCommentID,
			&comment.AuthorDisplayName,
			&comment.AuthorChannelID,
			&comment.TextDisplay,
			&comment.LikeCount,
			&comment.PublishedAt,
			&comment.UpdatedAtYouTube,
			&comment.IsPublic,
			&comment.SentimentScore,
			&comment.SentimentLabel,
			&comment.SentimentRaw,
			&comment.CreatedAt,
			&comment.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}
