package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"

	"go.uber.org/zap"
)

// OntologyOverview is the public view of the live snapshot.
type OntologyOverview struct {
	Version     int64         `json:"version"`
	LoadedAt    time.Time     `json:"loaded_at"`
	SkillsCount int           `json:"skills_count"`
	RolesCount  int           `json:"roles_count"`
	RoleTitles  []string      `json:"role_titles"`
	Skills      []skill.Skill `json:"skills"`
	JobRoles    []job.Role    `json:"job_roles"`
	Warnings    int           `json:"data_quality_warnings"`
}

type OntologyUsecase interface {
	Overview(ctx context.Context) (OntologyOverview, error)
}

type Ontology struct {
	store  SnapshotSource
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewOntologyUsecase serves overviews from cache when one is given. Cache
// failures fall back to building from the snapshot.
func NewOntologyUsecase(store SnapshotSource, cache Cache, ttl time.Duration, logger *zap.Logger) *Ontology {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ontology{store: store, cache: cache, ttl: ttl, logger: logger.With(zap.String("component", "ontology_overview"))}
}

func (u *Ontology) Overview(ctx context.Context) (OntologyOverview, error) {
	snap := u.store.Snapshot()
	key := OntologyCacheKey(snap.Version)

	if u.cache != nil {
		var cached OntologyOverview
		hit, err := u.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			u.logger.Warn("overview cache read failed", zap.String("key", key), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	skills := snap.Skills()
	list := make([]skill.Skill, 0, len(skills))
	for _, s := range skills {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	out := OntologyOverview{
		Version:     snap.Version,
		LoadedAt:    snap.LoadedAt,
		SkillsCount: snap.SkillCount(),
		RolesCount:  snap.RoleCount(),
		RoleTitles:  snap.RoleTitles(),
		Skills:      list,
		JobRoles:    snap.Roles(),
		Warnings:    len(snap.Warnings()),
	}

	if u.cache != nil {
		if err := u.cache.SetJSON(ctx, key, out, u.ttl); err != nil {
			u.logger.Warn("overview cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}
