// Package youtube implements the external video provider port over the
// YouTube Data API v3, plus URL resolution for user-submitted links.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/cache"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/models"
	"github.com/comment-lens/youtube-comment-analysis-go/pkg/logger"
)

// ErrVideoNotFound is returned when the API reports no matching video.
var ErrVideoNotFound = errors.New("video not found")

const (
	// maxPageSize is the YouTube API hard limit for commentThreads.list.
	maxPageSize = 100

	// DefaultMaxComments is the ingestion-time comment cap.
	DefaultMaxComments = 500
)

// VideoMetadata holds snippet, statistics, and content details for a video.
// It is the value stored under the video_{id} cache key.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoMetadata struct {
	YouTubeID            string     `json:"youtube_id"`
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
}

// ToVideo converts fetched metadata into a video row owned by the given user.
func (m *VideoMetadata) ToVideo(userID int64) *models.Video {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return &models.Video{
		YouTubeID:            m.YouTubeID,
		UserID:               userID,
		Title:                m.Title,
		Description:          m.Description,
		ChannelTitle:         m.ChannelTitle,
		ChannelID:            m.ChannelID,
		ThumbnailURL:         m.ThumbnailURL,
		ThumbnailMediumURL:   m.ThumbnailMediumURL,
		ThumbnailHighURL:     m.ThumbnailHighURL,
		ViewCount:            m.ViewCount,
		LikeCount:            m.LikeCount,
		CommentCount:         m.CommentCount,
		PublishedAt:          m.PublishedAt,
		Duration:             m.Duration,
		Tags:                 tags,
		CategoryID:           m.CategoryID,
		DefaultLanguage:      m.DefaultLanguage,
		DefaultAudioLanguage: m.DefaultAudioLanguage,
		IsPublic:             m.IsPublic,
	}
}

// BasicMetadata is the lightweight snippet-only variant, cached under
// video_basic_{id} with a shorter TTL.
type BasicMetadata struct {
	YouTubeID    string     `json:"youtube_id"`
	Title        string     `json:"title"`
	ChannelTitle string     `json:"channel_title"`
	ThumbnailURL *string    `json:"thumbnail_url"`
	PublishedAt  *time.Time `json:"published_at"`
}

// CommentData is one top-level comment as returned by the comment-thread
// listing.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CommentData struct {
	YouTubeCommentID  string     `json:"youtube_comment_id"`
	AuthorDisplayName string     `json:"author_display_name"`
	AuthorChannelID   *string    `json:"author_channel_id"`
	TextDisplay       string     `json:"text_display"`
	LikeCount         int64      `json:"like_count"`
	PublishedAt       *time.Time `json:"published_at"`
	UpdatedAt         *time.Time `json:"updated_at_youtube"`
	IsPublic          bool       `json:"is_public"`
}

// ToComment converts fetched comment data into a comment row.
func (c *CommentData) ToComment() *models.Comment {
	return &models.Comment{
		YouTubeCommentID:  c.YouTubeCommentID,
		AuthorDisplayName: strPtr(c.AuthorDisplayName),
		AuthorChannelID:   c.AuthorChannelID,
		TextDisplay:       c.TextDisplay,
		LikeCount:         c.LikeCount,
		PublishedAt:       c.PublishedAt,
		UpdatedAtYouTube:  c.UpdatedAt,
		IsPublic:          c.IsPublic,
	}
}

// api abstracts the two YouTube API calls the client makes, so pagination
// and caching behavior can be tested without the network.
type api interface {
	listVideos(ctx context.Context, videoID string, parts []string) (*yt.VideoListResponse, error)
	listCommentThreads(ctx context.Context, videoID string, pageSize int64, pageToken string) (*yt.CommentThreadListResponse, error)
}

type googleAPI struct {
	service *yt.Service
}

func (g *googleAPI) listVideos(ctx context.Context, videoID string, parts []string) (*yt.VideoListResponse, error) {
	return g.service.Videos.List(parts).Id(videoID).Context(ctx).Do()
}

func (g *googleAPI) listCommentThreads(ctx context.Context, videoID string, pageSize int64, pageToken string) (*yt.CommentThreadListResponse, error) {
	call := g.service.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		Order("time").
		TextFormat("plainText").
		MaxResults(pageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}

// metadataCache is the slice of the cache the client needs. A nil
// *cache.Cache satisfies it and misses on every lookup.
type metadataCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Client wraps the YouTube Data API v3 client with a metadata cache.
type Client struct {
	api       api
	metaCache metadataCache
}

// NewClient creates a new YouTube API client. The API key is required.
func NewClient(ctx context.Context, apiKey, applicationName string, metaCache *cache.Cache) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	service, err := yt.NewService(ctx, option.WithAPIKey(apiKey), option.WithUserAgent(applicationName))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{
		api:       &googleAPI{service: service},
		metaCache: metaCache,
	}, nil
}

// GetVideoInfo retrieves snippet, statistics, and content details for one
// video, consulting the cache first. Returns ErrVideoNotFound when the API
// reports zero matching items.
func (c *Client) GetVideoInfo(ctx context.Context, videoID string) (*VideoMetadata, error) {
	key := cache.VideoKey(videoID)

	var cached VideoMetadata
	hit, err := c.metaCache.Get(ctx, key, &cached)
	if err != nil {
		logger.Log.Warn("Metadata cache read failed",
			zap.Error(err),
			zap.String("videoId", videoID),
		)
	}
	if hit {
		return &cached, nil
	}

	resp, err := c.api.listVideos(ctx, videoID, []string{"snippet", "statistics", "contentDetails", "status"})
	if err != nil {
		return nil, fmt.Errorf("fetch video info from YouTube API: %w", err)
	}

	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}

	meta := mapVideoMetadata(videoID, resp.Items[0])

	if err := c.metaCache.Set(ctx, key, meta, cache.VideoTTL); err != nil {
		logger.Log.Warn("Metadata cache write failed",
			zap.Error(err),
			zap.String("videoId", videoID),
		)
	}

	return meta, nil
}

// GetVideoBasicInfo retrieves the lightweight snippet-only metadata variant.
func (c *Client) GetVideoBasicInfo(ctx context.Context, videoID string) (*BasicMetadata, error) {
	key := cache.VideoBasicKey(videoID)

	var cached BasicMetadata
	hit, err := c.metaCache.Get(ctx, key, &cached)
	if err != nil {
		logger.Log.Warn("Metadata cache read failed",
			zap.Error(err),
			zap.String("videoId", videoID),
		)
	}
	if hit {
		return &cached, nil
	}

	resp, err := c.api.listVideos(ctx, videoID, []string{"snippet"})
	if err != nil {
		return nil, fmt.Errorf("fetch basic video info from YouTube API: %w", err)
	}

	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}

	basic := &BasicMetadata{YouTubeID: videoID}
	if snippet := resp.Items[0].Snippet; snippet != nil {
		basic.Title = snippet.Title
		basic.ChannelTitle = snippet.ChannelTitle
		basic.PublishedAt = parseTime(snippet.PublishedAt)
		if snippet.Thumbnails != nil && snippet.Thumbnails.Medium != nil {
			basic.ThumbnailURL = strPtr(snippet.Thumbnails.Medium.Url)
		}
	}

	if err := c.metaCache.Set(ctx, key, basic, cache.VideoBasicTTL); err != nil {
		logger.Log.Warn("Metadata cache write failed",
			zap.Error(err),
			zap.String("videoId", videoID),
		)
	}

	return basic, nil
}

// GetCommentCount returns the upstream comment count for a video, or zero
// when the video is absent.
func (c *Client) GetCommentCount(ctx context.Context, videoID string) (int64, error) {
	resp, err := c.api.listVideos(ctx, videoID, []string{"statistics"})
	if err != nil {
		return 0, fmt.Errorf("fetch comment count from YouTube API: %w", err)
	}

	if len(resp.Items) == 0 || resp.Items[0].Statistics == nil {
		return 0, nil
	}

	return int64(resp.Items[0].Statistics.CommentCount), nil
}

// FetchComments paginates through the comment-thread listing in time order,
// accumulating top-level comments until maxResults are collected or no
// further page token is returned. No page beyond the cap is requested, and
// a page is cut off mid-way once the cap is reached.
func (c *Client) FetchComments(ctx context.Context, videoID string, maxResults int) ([]*CommentData, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxComments
	}

	var comments []*CommentData
	pageToken := ""

	for len(comments) < maxResults {
		pageSize := int64(maxResults - len(comments))
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		resp, err := c.api.listCommentThreads(ctx, videoID, pageSize, pageToken)
		if err != nil {
			return nil, fmt.Errorf("fetch comment threads from YouTube API: %w", err)
		}

		for _, item := range resp.Items {
			if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
				continue
			}
			comments = append(comments, mapCommentData(item))
			if len(comments) >= maxResults {
				break
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return comments, nil
}

func mapVideoMetadata(videoID string, video *yt.Video) *VideoMetadata {
	meta := &VideoMetadata{
		YouTubeID: videoID,
		Tags:      []string{},
	}

	if snippet := video.Snippet; snippet != nil {
		meta.Title = snippet.Title
		meta.Description = strPtr(snippet.Description)
		meta.ChannelTitle = snippet.ChannelTitle
		meta.ChannelID = snippet.ChannelId
		meta.PublishedAt = parseTime(snippet.PublishedAt)
		meta.CategoryID = strPtr(snippet.CategoryId)
		meta.DefaultLanguage = strPtr(snippet.DefaultLanguage)
		meta.DefaultAudioLanguage = strPtr(snippet.DefaultAudioLanguage)
		if snippet.Tags != nil {
			meta.Tags = snippet.Tags
		}
		if thumbs := snippet.Thumbnails; thumbs != nil {
			if thumbs.Default != nil {
				meta.ThumbnailURL = strPtr(thumbs.Default.Url)
			}
			if thumbs.Medium != nil {
				meta.ThumbnailMediumURL = strPtr(thumbs.Medium.Url)
			}
			if thumbs.High != nil {
				meta.ThumbnailHighURL = strPtr(thumbs.High.Url)
			}
		}
	}

	if stats := video.Statistics; stats != nil {
		meta.ViewCount = int64(stats.ViewCount)
		meta.LikeCount = int64(stats.LikeCount)
		meta.CommentCount = int64(stats.CommentCount)
	}

	if details := video.ContentDetails; details != nil {
		meta.Duration = strPtr(details.Duration)
	}

	if status := video.Status; status != nil {
		meta.IsPublic = status.PrivacyStatus == "public"
	}

	return meta
}

func mapCommentData(item *yt.CommentThread) *CommentData {
	snippet := item.Snippet.TopLevelComment.Snippet

	data := &CommentData{
		YouTubeCommentID:  item.Id,
		AuthorDisplayName: snippet.AuthorDisplayName,
		TextDisplay:       snippet.TextDisplay,
		LikeCount:         snippet.LikeCount,
		PublishedAt:       parseTime(snippet.PublishedAt),
		UpdatedAt:         parseTime(snippet.UpdatedAt),
		IsPublic:          true,
	}

	if snippet.AuthorChannelId != nil {
		data.AuthorChannelID = strPtr(snippet.AuthorChannelId.Value)
	}

	return data
}

// Helper functions for pointer conversions

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseTime parses RFC3339 timestamps from the YouTube API.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
