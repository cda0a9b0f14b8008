package ontology

import (
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"
	"github.com/Blaze-0903/NextStepAI/internal/extraction"
)

// Snapshot is one consistent (skills, roles, extractor) triple. It is never
// mutated after publication.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time

	skills    map[string]skill.Skill
	roles     []job.Role
	extractor *extraction.Extractor
	warnings  []Warning
}

func newSnapshot(version int64, loadedAt time.Time, skills map[string]skill.Skill, roles []job.Role) *Snapshot {
	if skills == nil {
		skills = map[string]skill.Skill{}
	}
	ex := extraction.New(Dictionary(skills))
	return &Snapshot{
		Version:   version,
		LoadedAt:  loadedAt,
		skills:    skills,
		roles:     roles,
		extractor: ex,
		warnings:  inspect(skills, roles, ex),
	}
}

// Dictionary derives the extractor dictionary from a skill set.
func Dictionary(skills map[string]skill.Skill) extraction.Dictionary {
	d := make(extraction.Dictionary, len(skills))
	for name, s := range skills {
		d[name] = append([]string(nil), s.Aliases...)
	}
	return d
}

func (s *Snapshot) Extract(text string) []string {
	return s.extractor.Extract(text)
}

func (s *Snapshot) Skill(name string) (skill.Skill, bool) {
	sk, ok := s.skills[name]
	if !ok {
		return skill.Skill{}, false
	}
	return sk.Clone(), true
}

func (s *Snapshot) HasSkill(name string) bool {
	_, ok := s.skills[name]
	return ok
}

func (s *Snapshot) HasRole(title string) bool {
	for _, r := range s.roles {
		if r.Title == title {
			return true
		}
	}
	return false
}

// LearningResources returns the resources of a known skill, or an empty list.
func (s *Snapshot) LearningResources(name string) []string {
	sk, ok := s.skills[name]
	if !ok || len(sk.LearningResources) == 0 {
		return []string{}
	}
	return append([]string(nil), sk.LearningResources...)
}

// Skills returns a copy of the skill map.
func (s *Snapshot) Skills() map[string]skill.Skill {
	out := maps.Clone(s.skills)
	for k, v := range out {
		out[k] = v.Clone()
	}
	return out
}

// Roles returns a copy of the role list in backing-store order.
func (s *Snapshot) Roles() []job.Role {
	out := slices.Clone(s.roles)
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

func (s *Snapshot) SkillNames() []string {
	out := make([]string, 0, len(s.skills))
	for n := range s.skills {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s *Snapshot) RoleTitles() []string {
	out := make([]string, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r.Title)
	}
	return out
}

func (s *Snapshot) SkillCount() int { return len(s.skills) }
func (s *Snapshot) RoleCount() int  { return len(s.roles) }

func (s *Snapshot) Warnings() []Warning {
	return slices.Clone(s.warnings)
}
