package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
)

const (
	coreShare  = 0.7
	totalShare = 0.3
)

// ResourceLookup resolves learning resources for a skill name. Unknown names
// yield an empty list.
type ResourceLookup interface {
	LearningResources(name string) []string
}

// SkillSet is a set of canonical skill names.
type SkillSet map[string]struct{}

func NewSkillSet(names ...string) SkillSet {
	s := make(SkillSet, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func (s SkillSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s SkillSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type MatchedSkill struct {
	Skill  string  `json:"skill"`
	Weight float64 `json:"weight"`
	IsCore bool    `json:"is_core"`
}

type MissingSkill struct {
	Skill             string   `json:"skill"`
	Weight            float64  `json:"weight"`
	IsCore            bool     `json:"is_core"`
	LearningResources []string `json:"learning_resources"`
}

type Result struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	SalaryRange     job.SalaryRange `json:"salary_range"`
	ExperienceLevel string          `json:"experience_level"`
	MatchScore      float64         `json:"match_score"`
	CoreMatchScore  float64         `json:"core_match_score"`
	TotalMatchScore float64         `json:"total_match_score"`
	MatchingSkills  []MatchedSkill  `json:"matching_skills"`
	MissingSkills   []MissingSkill  `json:"missing_skills"`
}

// Score computes the weighted match of userSkills against role.
//
// totalPct is achieved/max weight over all requirements (0 when the role has
// none). corePct is the same over core requirements and is 100 when the role
// declares no core skill. The blended score is 0.7*core + 0.3*total.
func Score(userSkills SkillSet, role job.Role, lookup ResourceLookup) Result {
	var maxTotal, maxCore, achievedTotal, achievedCore float64

	// Sums are taken in requirement order so float rounding does not depend
	// on how the role lists its weights.
	reqs := append([]job.SkillWeight(nil), role.SkillWeights...)
	sort.Slice(reqs, func(i, j int) bool {
		return requirementLess(reqs[i].IsCore, reqs[i].Weight, reqs[i].Skill,
			reqs[j].IsCore, reqs[j].Weight, reqs[j].Skill)
	})

	matching := make([]MatchedSkill, 0, len(reqs))
	missing := make([]MissingSkill, 0, len(reqs))

	for _, w := range reqs {
		maxTotal += w.Weight
		if w.IsCore {
			maxCore += w.Weight
		}

		if userSkills.Has(w.Skill) {
			achievedTotal += w.Weight
			if w.IsCore {
				achievedCore += w.Weight
			}
			matching = append(matching, MatchedSkill{Skill: w.Skill, Weight: w.Weight, IsCore: w.IsCore})
			continue
		}

		missing = append(missing, MissingSkill{
			Skill:             w.Skill,
			Weight:            w.Weight,
			IsCore:            w.IsCore,
			LearningResources: resourcesFor(lookup, w.Skill),
		})
	}

	totalPct := 0.0
	if maxTotal > 0 {
		totalPct = achievedTotal / maxTotal * 100
	}
	corePct := 100.0
	if maxCore > 0 {
		corePct = achievedCore / maxCore * 100
	}

	return Result{
		Title:           role.Title,
		Description:     role.Description,
		SalaryRange:     role.SalaryRange,
		ExperienceLevel: role.ExperienceLevel,
		MatchScore:      round1(corePct*coreShare + totalPct*totalShare),
		CoreMatchScore:  round1(corePct),
		TotalMatchScore: round1(totalPct),
		MatchingSkills:  matching,
		MissingSkills:   missing,
	}
}

// requirementLess orders core before non-core, then heavier first, then by name.
func requirementLess(coreA bool, weightA float64, nameA string, coreB bool, weightB float64, nameB string) bool {
	if coreA != coreB {
		return coreA
	}
	if weightA != weightB {
		return weightA > weightB
	}
	return nameA < nameB
}

func resourcesFor(lookup ResourceLookup, name string) []string {
	if lookup == nil {
		return []string{}
	}
	res := lookup.LearningResources(name)
	if res == nil {
		return []string{}
	}
	return res
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
