package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/db"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/llm"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/models"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/repository"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/youtube"
	"github.com/comment-lens/youtube-comment-analysis-go/pkg/logger"
)

func init() {
	// Initialize logger to prevent nil pointer errors
	_ = logger.Init("error", "")
}

// fakeTx satisfies pgx.Tx for transaction bookkeeping in unit tests.
type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                         { return nil }

type fakeDB struct {
	tx       *fakeTx
	beginErr error
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	if d.tx == nil {
		d.tx = &fakeTx{}
	}
	return d.tx, nil
}

type sentimentWrite struct {
	commentID int64
	score     *float64
	label     *string
}

// fakeVideoRepo is an in-memory stand-in for the video repository.
type fakeVideoRepo struct {
	existing map[string]*models.Video
	byID     map[int64]*models.Video

	nextID    int64
	created   []*models.Video
	createErr error

	upserted  map[int64][]*models.Comment
	upsertErr error

	unanalyzed []*models.Comment
	texts      []string

	sentimentWrites []sentimentWrite
	keywords        map[int64][]string
	analyzedAt      map[int64]time.Time
	listed          []*models.VideoWithStats
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{
		existing:   map[string]*models.Video{},
		byID:       map[int64]*models.Video{},
		upserted:   map[int64][]*models.Comment{},
		keywords:   map[int64][]string{},
		analyzedAt: map[int64]time.Time{},
	}
}

func (r *fakeVideoRepo) FindExisting(_ context.Context, youtubeID string, userID int64) (*models.Video, error) {
	if v, ok := r.existing[youtubeID]; ok && v.UserID == userID {
		return v, nil
	}
	return nil, db.WrapError(pgx.ErrNoRows, "find existing video")
}

func (r *fakeVideoRepo) GetByID(_ context.Context, id int64) (*models.Video, error) {
	if v, ok := r.byID[id]; ok {
		return v, nil
	}
	return nil, db.WrapError(pgx.ErrNoRows, "get video by id")
}

func (r *fakeVideoRepo) CreateVideo(_ context.Context, video *models.Video) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	video.ID = r.nextID
	video.CreatedAt = time.Now()
	video.UpdatedAt = video.CreatedAt
	r.created = append(r.created, video)
	r.existing[video.YouTubeID] = video
	r.byID[video.ID] = video
	return nil
}

func (r *fakeVideoRepo) UpsertComments(_ context.Context, videoID int64, comments []*models.Comment) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserted[videoID] = append(r.upserted[videoID], comments...)
	return nil
}

func (r *fakeVideoRepo) GetUnanalyzedComments(_ context.Context, _ int64) ([]*models.Comment, error) {
	return r.unanalyzed, nil
}

func (r *fakeVideoRepo) GetCommentTexts(_ context.Context, _ int64) ([]string, error) {
	return r.texts, nil
}

func (r *fakeVideoRepo) UpdateCommentSentiment(_ context.Context, commentID int64, score *float64, label *string, _ []byte) error {
	r.sentimentWrites = append(r.sentimentWrites, sentimentWrite{commentID: commentID, score: score, label: label})
	return nil
}

func (r *fakeVideoRepo) UpdateKeywords(_ context.Context, videoID int64, keywords []string) error {
	r.keywords[videoID] = keywords
	return nil
}

func (r *fakeVideoRepo) MarkAnalyzed(_ context.Context, videoID int64, at time.Time) error {
	r.analyzedAt[videoID] = at
	return nil
}

func (r *fakeVideoRepo) ListUserVideos(_ context.Context, _ int64) ([]*models.VideoWithStats, error) {
	return r.listed, nil
}

func (r *fakeVideoRepo) WithTx(_ pgx.Tx) repository.VideoRepository { return r }

// fakeSessionRepo records session lifecycle transitions.
type fakeSessionRepo struct {
	sessions  map[uuid.UUID]*models.AnalysisSession
	progress  []int
	completed bool
	failed    bool
	failMsg   string
	results   []byte
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[uuid.UUID]*models.AnalysisSession{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *models.AnalysisSession) error {
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	stored := *session
	r.sessions[session.ID] = &stored
	return nil
}

func (r *fakeSessionRepo) MarkProcessing(_ context.Context, id uuid.UUID, startedAt time.Time, totalComments int) error {
	s := r.sessions[id]
	s.Status = models.SessionStatusProcessing
	s.StartedAt = &startedAt
	s.TotalComments = totalComments
	return nil
}

func (r *fakeSessionRepo) UpdateProgress(_ context.Context, id uuid.UUID, processed int) error {
	r.progress = append(r.progress, processed)
	r.sessions[id].ProcessedComments = processed
	return nil
}

func (r *fakeSessionRepo) Complete(_ context.Context, id uuid.UUID, results []byte) error {
	r.completed = true
	r.results = results
	s := r.sessions[id]
	s.Status = models.SessionStatusCompleted
	s.AnalysisResults = results
	return nil
}

func (r *fakeSessionRepo) Fail(_ context.Context, id uuid.UUID, errorMessage string) error {
	r.failed = true
	r.failMsg = errorMessage
	s := r.sessions[id]
	s.Status = models.SessionStatusFailed
	s.ErrorMessage = &errorMessage
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.AnalysisSession, error) {
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	return nil, db.WrapError(pgx.ErrNoRows, "get analysis session")
}

// fakeProvider is a canned VideoProvider.
type fakeProvider struct {
	meta        *youtube.VideoMetadata
	metaErr     error
	basic       *youtube.BasicMetadata
	basicErr    error
	comments    []*youtube.CommentData
	commentsErr error

	infoCalls  int
	fetchCalls int
}

func (p *fakeProvider) GetVideoInfo(context.Context, string) (*youtube.VideoMetadata, error) {
	p.infoCalls++
	if p.metaErr != nil {
		return nil, p.metaErr
	}
	return p.meta, nil
}

func (p *fakeProvider) GetVideoBasicInfo(context.Context, string) (*youtube.BasicMetadata, error) {
	if p.basicErr != nil {
		return nil, p.basicErr
	}
	return p.basic, nil
}

func (p *fakeProvider) FetchComments(context.Context, string, int) ([]*youtube.CommentData, error) {
	p.fetchCalls++
	if p.commentsErr != nil {
		return nil, p.commentsErr
	}
	return p.comments, nil
}

// fakeAnalyzer is a canned TextAnalyzer.
type fakeAnalyzer struct {
	enabled      bool
	results      []*llm.SentimentResult
	sentimentErr error
	errAfter     int

	keywords    []string
	keywordsErr error

	sentimentCalls int
	keywordCalls   int
}

func (a *fakeAnalyzer) Enabled() bool { return a.enabled }

func (a *fakeAnalyzer) AnalyzeSentiment(context.Context, string) (*llm.SentimentResult, error) {
	call := a.sentimentCalls
	a.sentimentCalls++
	if a.sentimentErr != nil && call >= a.errAfter {
		return nil, a.sentimentErr
	}
	if call < len(a.results) {
		return a.results[call], nil
	}
	return &llm.SentimentResult{}, nil
}

func (a *fakeAnalyzer) ExtractKeywords(context.Context, []string, int) ([]string, error) {
	a.keywordCalls++
	if a.keywordsErr != nil {
		return nil, a.keywordsErr
	}
	return a.keywords, nil
}

func sentiment(score float64, label string) *llm.SentimentResult {
	return &llm.SentimentResult{Score: &score, Label: &label}
}

func errNoRows() error { return pgx.ErrNoRows }

func duplicateKeyErr() error {
	return &pgconn.PgError{Code: "23505", ConstraintName: "videos_youtube_id_user_id_key"}
}
