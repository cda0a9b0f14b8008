package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/database"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"
)

type PostgresSkillRepository struct {
	db database.DB
}

func NewPostgresSkillRepository(db database.DB) *PostgresSkillRepository {
	return &PostgresSkillRepository{db: db}
}

func (r *PostgresSkillRepository) FetchAllSkills(ctx context.Context) (map[string]skill.Skill, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, COALESCE(type, ''), aliases, learning_resources, mention_frequency, last_seen_in_market
		 FROM ontology_skills
		 ORDER BY name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]skill.Skill)
	for rows.Next() {
		var (
			s         skill.Skill
			aliases   []byte
			resources []byte
			lastSeen  *time.Time
		)
		if err := rows.Scan(&s.Name, &s.Type, &aliases, &resources, &s.MentionFrequency, &lastSeen); err != nil {
			return nil, err
		}
		if err := unmarshalList(aliases, &s.Aliases); err != nil {
			return nil, fmt.Errorf("skill %q aliases: %w", s.Name, err)
		}
		if err := unmarshalList(resources, &s.LearningResources); err != nil {
			return nil, fmt.Errorf("skill %q learning_resources: %w", s.Name, err)
		}
		if lastSeen != nil {
			s.LastSeenInMarket = skill.NewDate(*lastSeen)
		}
		out[s.Name] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const upsertSkillSQL = `INSERT INTO ontology_skills (name, type, aliases, learning_resources, mention_frequency, last_seen_in_market, updated_at)
	VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6, NOW())
	ON CONFLICT (name) DO UPDATE SET
		type = EXCLUDED.type,
		aliases = EXCLUDED.aliases,
		learning_resources = EXCLUDED.learning_resources,
		mention_frequency = EXCLUDED.mention_frequency,
		last_seen_in_market = EXCLUDED.last_seen_in_market,
		updated_at = NOW()`

func (r *PostgresSkillRepository) UpsertSkill(ctx context.Context, s skill.Skill) error {
	args, err := skillArgs(s)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, upsertSkillSQL, args...)
	return err
}

// SaveMarketStats updates frequency and last-seen in one transaction.
func (r *PostgresSkillRepository) SaveMarketStats(ctx context.Context, skills []skill.Skill) error {
	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		for _, s := range skills {
			if _, err := tx.Exec(ctx,
				`UPDATE ontology_skills
				 SET mention_frequency = $2, last_seen_in_market = $3, updated_at = NOW()
				 WHERE name = $1`,
				s.Name, s.MentionFrequency, s.LastSeenInMarket.Ptr(),
			); err != nil {
				return fmt.Errorf("update market stats for %q: %w", s.Name, err)
			}
		}
		return nil
	})
}

// ReplaceSkills swaps the whole skill collection.
func (r *PostgresSkillRepository) ReplaceSkills(ctx context.Context, skills []skill.Skill) error {
	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM ontology_skills`); err != nil {
			return err
		}
		for _, s := range skills {
			args, err := skillArgs(s)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, upsertSkillSQL, args...); err != nil {
				return fmt.Errorf("insert skill %q: %w", s.Name, err)
			}
		}
		return nil
	})
}

func skillArgs(s skill.Skill) ([]any, error) {
	aliases, err := marshalList(s.Aliases)
	if err != nil {
		return nil, err
	}
	resources, err := marshalList(s.LearningResources)
	if err != nil {
		return nil, err
	}
	return []any{s.Name, s.Type, aliases, resources, max(0, s.MentionFrequency), s.LastSeenInMarket.Ptr()}, nil
}

func marshalList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalList(b []byte, out *[]string) error {
	if len(b) == 0 {
		*out = []string{}
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return err
	}
	if *out == nil {
		*out = []string{}
	}
	return nil
}
