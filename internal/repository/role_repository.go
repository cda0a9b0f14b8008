package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Blaze-0903/NextStepAI/internal/database"
	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
)

type PostgresRoleRepository struct {
	db database.DB
}

func NewPostgresRoleRepository(db database.DB) *PostgresRoleRepository {
	return &PostgresRoleRepository{db: db}
}

// FetchAllRoles returns roles in insertion order.
func (r *PostgresRoleRepository) FetchAllRoles(ctx context.Context) ([]job.Role, error) {
	rows, err := r.db.Query(ctx,
		`SELECT title, COALESCE(description, ''), salary_low, salary_high, experience_level, skill_weights
		 FROM ontology_job_roles
		 ORDER BY id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]job.Role, 0)
	for rows.Next() {
		var (
			role    job.Role
			weights []byte
		)
		if err := rows.Scan(&role.Title, &role.Description, &role.SalaryRange[0], &role.SalaryRange[1], &role.ExperienceLevel, &weights); err != nil {
			return nil, err
		}
		if len(weights) > 0 {
			if err := json.Unmarshal(weights, &role.SkillWeights); err != nil {
				return nil, fmt.Errorf("role %q skill_weights: %w", role.Title, err)
			}
		}
		if role.SkillWeights == nil {
			role.SkillWeights = []job.SkillWeight{}
		}
		out = append(out, role.Normalize())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const insertRoleSQL = `INSERT INTO ontology_job_roles (title, description, salary_low, salary_high, experience_level, skill_weights)
	VALUES ($1, $2, $3, $4, $5, $6::jsonb)`

func (r *PostgresRoleRepository) AppendRole(ctx context.Context, role job.Role) error {
	args, err := roleArgs(role)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, insertRoleSQL, args...)
	return err
}

func (r *PostgresRoleRepository) RoleExists(ctx context.Context, title string) (bool, error) {
	var exists bool
	row := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM ontology_job_roles WHERE title = $1)`, title)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresRoleRepository) ReplaceRoles(ctx context.Context, roles []job.Role) error {
	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE ontology_job_roles RESTART IDENTITY`); err != nil {
			return err
		}
		for _, role := range roles {
			args, err := roleArgs(role)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, insertRoleSQL, args...); err != nil {
				return fmt.Errorf("insert role %q: %w", role.Title, err)
			}
		}
		return nil
	})
}

func roleArgs(role job.Role) ([]any, error) {
	role = role.Normalize()
	weights := role.SkillWeights
	if weights == nil {
		weights = []job.SkillWeight{}
	}
	b, err := json.Marshal(weights)
	if err != nil {
		return nil, err
	}
	return []any{role.Title, role.Description, role.SalaryRange.Low(), role.SalaryRange.High(), role.ExperienceLevel, string(b)}, nil
}
