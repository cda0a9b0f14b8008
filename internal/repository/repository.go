package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/match"
	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record not found")

type SkillRepository interface {
	FetchAllSkills(ctx context.Context) (map[string]skill.Skill, error)
	UpsertSkill(ctx context.Context, s skill.Skill) error
	// SaveMarketStats writes only mention_frequency and last_seen_in_market.
	SaveMarketStats(ctx context.Context, skills []skill.Skill) error
	ReplaceSkills(ctx context.Context, skills []skill.Skill) error
}

type RoleRepository interface {
	FetchAllRoles(ctx context.Context) ([]job.Role, error)
	AppendRole(ctx context.Context, r job.Role) error
	RoleExists(ctx context.Context, title string) (bool, error)
	ReplaceRoles(ctx context.Context, roles []job.Role) error
}

// Ontology bundles the two ontology collections behind one value.
type Ontology struct {
	SkillRepository
	RoleRepository
}

type PendingUpdateRepository interface {
	// Insert stores u unless a pending entry with the same kind and subject
	// exists; inserted reports which happened.
	Insert(ctx context.Context, u pending.Update) (inserted bool, err error)
	HasPending(ctx context.Context, kind pending.Kind, subject string) (bool, error)
	// FindPending returns ErrNotFound unless id exists with status pending.
	FindPending(ctx context.Context, id uuid.UUID) (pending.Update, error)
	ListByStatus(ctx context.Context, status pending.Status) ([]pending.Update, error)
	// MarkReviewed terminates a pending entry; ErrNotFound if it is no longer pending.
	MarkReviewed(ctx context.Context, id uuid.UUID, status pending.Status, reviewer string, at time.Time) error
}

type AnalysisRepository interface {
	Create(ctx context.Context, a match.Analysis) error
}
