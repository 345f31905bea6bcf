package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/db"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/models"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/youtube"
)

func testMetadata(youtubeID string) *youtube.VideoMetadata {
	published := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &youtube.VideoMetadata{
		YouTubeID:    youtubeID,
		Title:        "Test Video",
		ChannelTitle: "Test Channel",
		ChannelID:    "UC123",
		ViewCount:    100,
		CommentCount: 3,
		PublishedAt:  &published,
		Tags:         []string{},
		IsPublic:     true,
	}
}

func testCommentData(n int) []*youtube.CommentData {
	comments := make([]*youtube.CommentData, n)
	for i := range comments {
		comments[i] = &youtube.CommentData{
			YouTubeCommentID: fmt.Sprintf("yc-%d", i),
			TextDisplay:      "a comment",
			IsPublic:         true,
		}
	}
	return comments
}

func newIngestionFixture(provider *fakeProvider) (*IngestionService, *fakeVideoRepo, *fakeDB) {
	repo := newFakeVideoRepo()
	pool := &fakeDB{}
	svc := NewIngestionService(pool, repo, provider, nil, 500)
	return svc, repo, pool
}

func TestIngestVideoSavesVideoAndComments(t *testing.T) {
	provider := &fakeProvider{
		meta:     testMetadata("abc123"),
		comments: testCommentData(3),
	}
	svc, repo, pool := newIngestionFixture(provider)

	result, err := svc.IngestVideo(context.Background(), 7, "https://www.youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("IngestVideo() unexpected error: %v", err)
	}

	if result.AlreadySaved {
		t.Error("AlreadySaved = true for a new video")
	}
	if result.CommentsSaved != 3 {
		t.Errorf("CommentsSaved = %d, want 3", result.CommentsSaved)
	}
	if result.Video.UserID != 7 {
		t.Errorf("Video.UserID = %d, want 7", result.Video.UserID)
	}
	if result.Video.YouTubeID != "abc123" {
		t.Errorf("Video.YouTubeID = %q, want abc123", result.Video.YouTubeID)
	}
	if len(repo.upserted[result.Video.ID]) != 3 {
		t.Errorf("stored %d comments, want 3", len(repo.upserted[result.Video.ID]))
	}
	if !pool.tx.committed {
		t.Error("transaction was not committed")
	}
}

func TestIngestVideoIsIdempotent(t *testing.T) {
	provider := &fakeProvider{
		meta:     testMetadata("abc123"),
		comments: testCommentData(2),
	}
	svc, _, _ := newIngestionFixture(provider)

	first, err := svc.IngestVideo(context.Background(), 7, "https://www.youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("first IngestVideo() unexpected error: %v", err)
	}

	second, err := svc.IngestVideo(context.Background(), 7, "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("second IngestVideo() unexpected error: %v", err)
	}

	if !second.AlreadySaved {
		t.Error("AlreadySaved = false on re-submission")
	}
	if second.Video.ID != first.Video.ID {
		t.Errorf("second ingest returned video %d, want %d", second.Video.ID, first.Video.ID)
	}
	if provider.infoCalls != 1 {
		t.Errorf("metadata fetched %d times, want 1 (no refetch for saved videos)", provider.infoCalls)
	}
	if provider.fetchCalls != 1 {
		t.Errorf("comments fetched %d times, want 1", provider.fetchCalls)
	}
}

func TestIngestVideoInvalidURL(t *testing.T) {
	provider := &fakeProvider{}
	svc, _, _ := newIngestionFixture(provider)

	_, err := svc.IngestVideo(context.Background(), 7, "https://example.com/video")

	var invalidURL *InvalidURLError
	if !errors.As(err, &invalidURL) {
		t.Fatalf("IngestVideo() error = %v, want InvalidURLError", err)
	}
	if provider.infoCalls != 0 {
		t.Error("provider was called for an invalid URL")
	}
}

func TestIngestVideoUpstreamNotFound(t *testing.T) {
	provider := &fakeProvider{
		metaErr: fmt.Errorf("%w: abc123", youtube.ErrVideoNotFound),
	}
	svc, _, _ := newIngestionFixture(provider)

	_, err := svc.IngestVideo(context.Background(), 7, "https://youtu.be/abc123")

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("IngestVideo() error = %v, want NotFoundError", err)
	}
}

func TestIngestVideoUpstreamFailure(t *testing.T) {
	provider := &fakeProvider{metaErr: errors.New("quota exceeded")}
	svc, _, _ := newIngestionFixture(provider)

	_, err := svc.IngestVideo(context.Background(), 7, "https://youtu.be/abc123")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("IngestVideo() error = %v, want UpstreamError", err)
	}
}

func TestIngestVideoCommentFetchFailure(t *testing.T) {
	provider := &fakeProvider{
		meta:        testMetadata("abc123"),
		commentsErr: errors.New("comments disabled"),
	}
	svc, repo, _ := newIngestionFixture(provider)

	_, err := svc.IngestVideo(context.Background(), 7, "https://youtu.be/abc123")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("IngestVideo() error = %v, want UpstreamError", err)
	}
	if len(repo.created) != 0 {
		t.Error("video was saved despite comment fetch failure")
	}
}

func TestIngestVideoConcurrentDuplicateReturnsExisting(t *testing.T) {
	provider := &fakeProvider{
		meta:     testMetadata("abc123"),
		comments: testCommentData(1),
	}
	svc, repo, _ := newIngestionFixture(provider)

	// Simulate losing an insert race: the unique constraint fires, and the
	// winner's row is already visible.
	winner := &models.Video{ID: 42, YouTubeID: "abc123", UserID: 7, Title: "Test Video"}
	repo.existing["abc123"] = winner
	repo.createErr = db.WrapError(duplicateKeyErr(), "create video")

	// FindExisting is consulted before the insert, so clear it for the first
	// lookup only by routing through a repo that hides the row once.
	hider := &firstLookupMiss{fakeVideoRepo: repo}
	svc = NewIngestionService(&fakeDB{}, hider, provider, nil, 500)

	result, err := svc.IngestVideo(context.Background(), 7, "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("IngestVideo() unexpected error: %v", err)
	}
	if !result.AlreadySaved {
		t.Error("AlreadySaved = false after losing the insert race")
	}
	if result.Video.ID != 42 {
		t.Errorf("returned video %d, want the winner's row 42", result.Video.ID)
	}
}

func TestPreview(t *testing.T) {
	provider := &fakeProvider{
		basic: &youtube.BasicMetadata{YouTubeID: "abc123", Title: "Basic"},
	}
	svc, _, _ := newIngestionFixture(provider)

	preview, err := svc.Preview(context.Background(), "https://www.youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("Preview() unexpected error: %v", err)
	}
	if preview.YouTubeID != "abc123" {
		t.Errorf("Preview YouTubeID = %q, want abc123", preview.YouTubeID)
	}
	if preview.Metadata.Title != "Basic" {
		t.Errorf("Preview title = %q, want Basic", preview.Metadata.Title)
	}
}

func TestPreviewRejectsLooseURLs(t *testing.T) {
	provider := &fakeProvider{}
	svc, _, _ := newIngestionFixture(provider)

	// Extraction would find an ID here, but preview validation is anchored.
	_, err := svc.Preview(context.Background(), "see https://www.youtube.com/watch?v=abc123")

	var invalidURL *InvalidURLError
	if !errors.As(err, &invalidURL) {
		t.Fatalf("Preview() error = %v, want InvalidURLError", err)
	}
}

func TestListVideosReturnsEmptySlice(t *testing.T) {
	svc, _, _ := newIngestionFixture(&fakeProvider{})

	videos, err := svc.ListVideos(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListVideos() unexpected error: %v", err)
	}
	if videos == nil {
		t.Error("ListVideos() = nil, want empty slice")
	}
}

func TestGetVideoHidesOtherUsersVideos(t *testing.T) {
	svc, repo, _ := newIngestionFixture(&fakeProvider{})
	repo.byID[1] = &models.Video{ID: 1, UserID: 7}

	if _, err := svc.GetVideo(context.Background(), 1, 7); err != nil {
		t.Fatalf("GetVideo() for owner unexpected error: %v", err)
	}

	_, err := svc.GetVideo(context.Background(), 1, 8)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("GetVideo() for other user error = %v, want NotFoundError", err)
	}
}

// firstLookupMiss hides the stored row from the first FindExisting call so
// the insert path runs and collides with the unique constraint.
type firstLookupMiss struct {
	*fakeVideoRepo
	looked bool
}

func (r *firstLookupMiss) FindExisting(ctx context.Context, youtubeID string, userID int64) (*models.Video, error) {
	if !r.looked {
		r.looked = true
		return nil, db.WrapError(errNoRows(), "find existing video")
	}
	return r.fakeVideoRepo.FindExisting(ctx, youtubeID, userID)
}
