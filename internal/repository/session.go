package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/db"
	"github.com/comment-lens/youtube-comment-analysis-go/internal/models"
)

// AnalysisSessionRepository defines operations for tracking analysis runs.
type AnalysisSessionRepository interface {
	// Create inserts a new pending session.
	Create(ctx context.Context, session *models.AnalysisSession) error

	// MarkProcessing transitions a session to processing and records the
	// start time and total comment count.
	MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time, totalComments int) error

	// UpdateProgress records the number of comments processed so far.
	UpdateProgress(ctx context.Context, id uuid.UUID, processed int) error

	// Complete transitions a session to completed with its result blob.
	Complete(ctx context.Context, id uuid.UUID, results []byte) error

	// Fail transitions a session to failed with an error message.
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error

	// GetByID retrieves a session by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisSession, error)
}

type analysisSessionRepository struct {
	q Querier
}

// NewAnalysisSessionRepository creates a new AnalysisSessionRepository.
func NewAnalysisSessionRepository(q Querier) AnalysisSessionRepository {
	return &analysisSessionRepository{q: q}
}

func (r *analysisSessionRepository) Create(ctx context.Context, session *models.AnalysisSession) error {
	query := `
		INSERT INTO analysis_sessions (id, video_id, user_id, status, total_comments, processed_comments)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		session.ID,
		session.VideoID,
		session.UserID,
		session.Status,
		session.TotalComments,
		session.ProcessedComments,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return db.WrapError(err, "create analysis session")
	}

	return nil
}

func (r *analysisSessionRepository) MarkProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time, totalComments int) error {
	query := `
		UPDATE analysis_sessions
		SET status = $2, started_at = $3, total_comments = $4, updated_at = NOW()
		WHERE id = $1
	`

	return r.exec(ctx, query, "mark session processing", id, models.SessionStatusProcessing, startedAt, totalComments)
}

func (r *analysisSessionRepository) UpdateProgress(ctx context.Context, id uuid.UUID, processed int) error {
	query := `
		UPDATE analysis_sessions
		SET processed_comments = $2, updated_at = NOW()
		WHERE id = $1
	`

	return r.exec(ctx, query, "update session progress", id, processed)
}

func (r *analysisSessionRepository) Complete(ctx context.Context, id uuid.UUID, results []byte) error {
	query := `
		UPDATE analysis_sessions
		SET status = $2, analysis_results = $3, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	return r.exec(ctx, query, "complete session", id, models.SessionStatusCompleted, results)
}

func (r *analysisSessionRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE analysis_sessions
		SET status = $2, error_message = $3, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	return r.exec(ctx, query, "fail session", id, models.SessionStatusFailed, errorMessage)
}

func (r *analysisSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisSession, error) {
	query := `
		SELECT id, video_id, user_id, status, total_comments, processed_comments,
			analysis_results, error_message, started_at, completed_at, created_at, updated_at
		FROM analysis_sessions
		WHERE id = $1
	`

	session := &models.AnalysisSession{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.VideoID,
		&session.UserID,
		&session.Status,
		&session.TotalComments,
		&session.ProcessedComments,
		&session.AnalysisResults,
		&session.ErrorMessage,
		&session.StartedAt,
		&session.CompletedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get analysis session")
	}

	return session, nil
}

func (r *analysisSessionRepository) exec(ctx context.Context, query, operation string, args ...any) error {
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return db.WrapError(err, operation)
	}
	if tag.RowsAffected() == 0 {
		return db.WrapError(pgx.ErrNoRows, operation)
	}
	return nil
}
