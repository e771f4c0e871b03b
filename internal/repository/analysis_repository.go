package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prperemyshlev/postoptima-api/internal/domain"
	"github.com/prperemyshlev/postoptima-api/pkg/database"
)

const defaultHistoryLimit = 100

// analysisRepository implements AnalysisRepository interface
type analysisRepository struct {
	db *database.Postgres
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *database.Postgres) AnalysisRepository {
	return &analysisRepository{db: db}
}

// Create inserts a single analysis owned by owner
func (r *analysisRepository) Create(ctx context.Context, owner domain.User, analysis *domain.Analysis) error {
	query := `
		INSERT INTO analyses (id, user_id, platform, original_content, optimized_content,
			suggestions, algorithm_score, engagement_prediction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if analysis.ID == "" {
		analysis.ID = uuid.New().String()
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = time.Now().UTC()
	}
	analysis.UserID = owner.ID
	if analysis.Suggestions == nil {
		analysis.Suggestions = []string{}
	}

	return r.db.Scoped(scopeFor(owner)).Do(ctx, func(q database.Querier) error {
		_, err := q.ExecContext(ctx, query,
			analysis.ID,
			analysis.UserID,
			string(analysis.Platform),
			analysis.OriginalContent,
			analysis.OptimizedContent,
			pq.Array(analysis.Suggestions),
			analysis.AlgorithmScore,
			analysis.EngagementPrediction,
			analysis.CreatedAt,
		)
		if err != nil {
			return mapPQError(err, "failed to create analysis")
		}
		return nil
	})
}

// ListByUser returns the owner's analyses, newest first
func (r *analysisRepository) ListByUser(ctx context.Context, owner domain.User, limit int) ([]*domain.Analysis, error) {
	query := `
		SELECT id, user_id, platform, original_content, optimized_content,
			suggestions, algorithm_score, engagement_prediction, created_at
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var analyses []*domain.Analysis
	err := r.db.Scoped(scopeFor(owner)).Do(ctx, func(q database.Querier) error {
		rows, err := q.QueryContext(ctx, query, owner.ID, limit)
		if err != nil {
			return mapPQError(err, "failed to list analyses")
		}
		defer rows.Close()

		for rows.Next() {
			analysis := &domain.Analysis{}
			var platform string
			if err := rows.Scan(
				&analysis.ID,
				&analysis.UserID,
				&platform,
				&analysis.OriginalContent,
				&analysis.OptimizedContent,
				pq.Array(&analysis.Suggestions),
				&analysis.AlgorithmScore,
				&analysis.EngagementPrediction,
				&analysis.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to scan analysis: %w", err)
			}
			analysis.Platform = domain.Platform(platform)
			analyses = append(analyses, analysis)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate analyses: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return analyses, nil
}
