// Package handler provides HTTP request handlers for the application.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/middleware"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/models"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/service"
	"github.com/comment-lens/youtube-comment-analysis-go/pkg/logger"
)

// VideoHandler handles video ingestion and analysis endpoints.
type VideoHandler struct {
	ingestion *service.IngestionService
	analysis  *service.AnalysisService
	debug     bool
}

// NewVideoHandler creates a new VideoHandler. In debug mode error responses
// carry the underlying error message.
func NewVideoHandler(ingestion *service.IngestionService, analysis *service.AnalysisService, debug bool) *VideoHandler {
	return &VideoHandler{
		ingestion: ingestion,
		analysis:  analysis,
		debug:     debug,
	}
}

// RegisterRoutes registers the authenticated API routes.
func (h *VideoHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/videos", h.SaveVideo)
	api.GET("/videos/preview", h.PreviewVideo)
	api.GET("/videos/:id", h.GetVideo)
	api.POST("/videos/:id/analyze-comments", h.AnalyzeComments)
	api.POST("/videos/:id/extract-keywords", h.ExtractKeywords)
	api.POST("/videos/:id/analyze-word-frequency", h.AnalyzeWordFrequency)
	api.GET("/my-videos", h.ListMyVideos)
	api.GET("/analysis-sessions/:id", h.GetAnalysisSession)
}

// SaveVideoRequest is the body of POST /api/videos.
type SaveVideoRequest struct {
	VideoURL string `json:"video_url" binding:"required"`
}

// SaveVideoResponse is the body returned by POST /api/videos.
type SaveVideoResponse struct {
	Video         *models.Video `json:"video"`
	AlreadySaved  bool          `json:"already_saved"`
	CommentsSaved int           `json:"comments_saved"`
}

// SaveVideo handles POST /api/videos. Saving a new video returns 201;
// re-submitting an already saved URL returns 200 with the stored row.
func (h *VideoHandler) SaveVideo(c *gin.Context) {
	var req SaveVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "validation failed", "video_url is required")
		return
	}

	result, err := h.ingestion.IngestVideo(c.Request.Context(), middleware.UserID(c), req.VideoURL)
	if err != nil {
		h.handleError(c, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadySaved {
		status = http.StatusOK
	}

	c.JSON(status, SaveVideoResponse{
		Video:         result.Video,
		AlreadySaved:  result.AlreadySaved,
		CommentsSaved: result.CommentsSaved,
	})
}

// PreviewVideo handles GET /api/videos/preview?url=... and returns
// lightweight metadata without saving.
func (h *VideoHandler) PreviewVideo(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		h.sendError(c, http.StatusBadRequest, "validation failed", "url query parameter is required")
		return
	}

	preview, err := h.ingestion.Preview(c.Request.Context(), rawURL)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

// GetVideo handles GET /api/videos/:id.
func (h *VideoHandler) GetVideo(c *gin.Context) {
	videoID, ok := h.videoID(c)
	if !ok {
		return
	}

	video, err := h.ingestion.GetVideo(c.Request.Context(), videoID, middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, video)
}

// ListMyVideos handles GET /api/my-videos.
func (h *VideoHandler) ListMyVideos(c *gin.Context) {
	videos, err := h.ingestion.ListVideos(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": videos,
		"total": len(videos),
	})
}

// AnalyzeComments handles POST /api/videos/:id/analyze-comments.
func (h *VideoHandler) AnalyzeComments(c *gin.Context) {
	videoID, ok := h.videoID(c)
	if !ok {
		return
	}

	session, err := h.analysis.RunSentimentAnalysis(c.Request.Context(), videoID, middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// ExtractKeywords handles POST /api/videos/:id/extract-keywords.
func (h *VideoHandler) ExtractKeywords(c *gin.Context) {
	videoID, ok := h.videoID(c)
	if !ok {
		return
	}

	keywords, err := h.analysis.RunKeywordExtraction(c.Request.Context(), videoID, middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"keywords": keywords})
}

// AnalyzeWordFrequency handles POST /api/videos/:id/analyze-word-frequency.
func (h *VideoHandler) AnalyzeWordFrequency(c *gin.Context) {
	videoID, ok := h.videoID(c)
	if !ok {
		return
	}

	result, err := h.analysis.RunWordFrequencyAnalysis(c.Request.Context(), videoID, middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAnalysisSession handles GET /api/analysis-sessions/:id.
func (h *VideoHandler) GetAnalysisSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "validation failed", "session ID must be a valid UUID")
		return
	}

	session, err := h.analysis.GetSession(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *VideoHandler) videoID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "validation failed", "video ID must be an integer")
		return 0, false
	}
	return id, true
}

// handleError maps service errors to HTTP responses.
func (h *VideoHandler) handleError(c *gin.Context, err error) {
	var (
		invalidURL *service.InvalidURLError
		notFound   *service.NotFoundError
		upstream   *service.UpstreamError
		storage    *service.StorageError
		configErr  *service.ConfigError
	)

	switch {
	case errors.As(err, &invalidURL):
		h.sendError(c, http.StatusBadRequest, "invalid URL", invalidURL.Error())
	case errors.As(err, &notFound):
		h.sendError(c, http.StatusNotFound, "not found", notFound.Error())
	case errors.As(err, &upstream):
		logger.Log.Error("Upstream provider error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		h.sendError(c, http.StatusBadGateway, "upstream error", h.detail(err, "the video provider request failed"))
	case errors.As(err, &configErr):
		logger.Log.Error("Configuration error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		h.sendError(c, http.StatusInternalServerError, "configuration error", h.detail(err, "the service is misconfigured"))
	case errors.As(err, &storage):
		logger.Log.Error("Storage error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		h.sendError(c, http.StatusInternalServerError, "internal server error", h.detail(err, "failed to access storage"))
	default:
		logger.Log.Error("Unhandled error",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		h.sendError(c, http.StatusInternalServerError, "internal server error", h.detail(err, "an unexpected error occurred"))
	}
}

// detail returns the underlying error message in debug mode and a generic
// message otherwise.
func (h *VideoHandler) detail(err error, generic string) string {
	if h.debug {
		return err.Error()
	}
	return generic
}

func (h *VideoHandler) sendError(c *gin.Context, status int, errText, message string) {
	c.JSON(status, models.ErrorResponse{
		Status:    status,
		Error:     errText,
		Message:   message,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}
