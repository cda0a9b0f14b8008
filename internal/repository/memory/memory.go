// Package memory is an in-process implementation of the repository
// interfaces. It backs tests and database-less development runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/match"
	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"
	"github.com/Blaze-0903/NextStepAI/internal/repository"

	"github.com/google/uuid"
)

type Store struct {
	mu       sync.RWMutex
	skills   map[string]skill.Skill
	roles    []job.Role
	updates  map[uuid.UUID]pending.Update
	order    []uuid.UUID
	analyses []match.Analysis
}

func New() *Store {
	return &Store{
		skills:  map[string]skill.Skill{},
		updates: map[uuid.UUID]pending.Update{},
	}
}

// Ontology returns s wired as both ontology collections.
func (s *Store) Ontology() repository.Ontology {
	return repository.Ontology{SkillRepository: s, RoleRepository: s}
}

func (s *Store) FetchAllSkills(_ context.Context) (map[string]skill.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]skill.Skill, len(s.skills))
	for k, v := range s.skills {
		out[k] = v.Clone()
	}
	return out, nil
}

func (s *Store) UpsertSkill(_ context.Context, sk skill.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills[sk.Name] = sk.Clone()
	return nil
}

func (s *Store) SaveMarketStats(_ context.Context, skills []skill.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sk := range skills {
		cur, ok := s.skills[sk.Name]
		if !ok {
			continue
		}
		cur.MentionFrequency = sk.MentionFrequency
		cur.LastSeenInMarket = sk.LastSeenInMarket
		s.skills[sk.Name] = cur
	}
	return nil
}

func (s *Store) ReplaceSkills(_ context.Context, skills []skill.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills = make(map[string]skill.Skill, len(skills))
	for _, sk := range skills {
		s.skills[sk.Name] = sk.Clone()
	}
	return nil
}

func (s *Store) FetchAllRoles(_ context.Context) ([]job.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]job.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *Store) AppendRole(_ context.Context, r job.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles = append(s.roles, r.Clone())
	return nil
}

func (s *Store) RoleExists(_ context.Context, title string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ReplaceRoles(_ context.Context, roles []job.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles = make([]job.Role, 0, len(roles))
	for _, r := range roles {
		s.roles = append(s.roles, r.Clone())
	}
	return nil
}

func (s *Store) Insert(_ context.Context, u pending.Update) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Status == pending.StatusPending && s.hasPendingLocked(u.Kind(), u.Subject()) {
		return false, nil
	}
	if _, ok := s.updates[u.ID]; !ok {
		s.order = append(s.order, u.ID)
	}
	s.updates[u.ID] = u
	return true, nil
}

func (s *Store) HasPending(_ context.Context, kind pending.Kind, subject string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasPendingLocked(kind, subject), nil
}

func (s *Store) hasPendingLocked(kind pending.Kind, subject string) bool {
	for _, u := range s.updates {
		if u.Status == pending.StatusPending && u.Kind() == kind && u.Subject() == subject {
			return true
		}
	}
	return false
}

func (s *Store) FindPending(_ context.Context, id uuid.UUID) (pending.Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.updates[id]
	if !ok || u.Status != pending.StatusPending {
		return pending.Update{}, repository.ErrNotFound
	}
	return u, nil
}

// Get returns an update regardless of status.
func (s *Store) Get(id uuid.UUID) (pending.Update, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.updates[id]
	return u, ok
}

func (s *Store) ListByStatus(_ context.Context, status pending.Status) ([]pending.Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pending.Update, 0)
	for _, id := range s.order {
		if u := s.updates[id]; u.Status == status {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DiscoveredAt.After(out[j].DiscoveredAt)
	})
	return out, nil
}

func (s *Store) MarkReviewed(_ context.Context, id uuid.UUID, status pending.Status, reviewer string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.updates[id]
	if !ok || u.Status != pending.StatusPending {
		return repository.ErrNotFound
	}
	at = at.UTC()
	u.Status = status
	u.ReviewedAt = &at
	u.ReviewedBy = reviewer
	s.updates[id] = u
	return nil
}

func (s *Store) Create(_ context.Context, a match.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses = append(s.analyses, a)
	return nil
}

func (s *Store) Analyses() []match.Analysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]match.Analysis(nil), s.analyses...)
}
