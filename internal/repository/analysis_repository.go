package repository

import (
	"context"
	"encoding/json"

	"github.com/Blaze-0903/NextStepAI/internal/database"
	"github.com/Blaze-0903/NextStepAI/internal/domain/match"
)

type PostgresAnalysisRepository struct {
	db database.DB
}

func NewPostgresAnalysisRepository(db database.DB) *PostgresAnalysisRepository {
	return &PostgresAnalysisRepository{db: db}
}

func (r *PostgresAnalysisRepository) Create(ctx context.Context, a match.Analysis) error {
	skills, err := json.Marshal(a.UserSkills)
	if err != nil {
		return err
	}
	matches, err := json.Marshal(a.CareerMatches)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO resume_analyses (id, filename, user_skills, career_matches, object_key, created_at)
		 VALUES ($1, $2, $3::jsonb, $4::jsonb, NULLIF($5, ''), $6)`,
		a.ID, a.Filename, string(skills), string(matches), a.ObjectKey, a.CreatedAt.UTC(),
	)
	return err
}
