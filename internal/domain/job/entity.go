package job

import (
	"encoding/json"
	"strings"
)

const (
	LevelEntry  = "entry"
	LevelMid    = "mid"
	LevelSenior = "senior"

	// DefaultSkillWeight applies when a requirement omits its weight.
	DefaultSkillWeight = 0.5
)

// SalaryRange is [low, high] with low <= high.
type SalaryRange [2]float64

func (r SalaryRange) Low() float64  { return r[0] }
func (r SalaryRange) High() float64 { return r[1] }
func (r SalaryRange) Ordered() bool { return r[0] <= r[1] }

// SkillWeight is a role requirement. Skill references a canonical skill name
// and need not exist in the skill set.
type SkillWeight struct {
	Skill  string  `json:"skill" validate:"required"`
	Weight float64 `json:"weight" validate:"gt=0"`
	IsCore bool    `json:"is_core"`
}

// UnmarshalJSON fills in the documented defaults (weight 0.5, is_core false)
// for fields the payload leaves out.
func (w *SkillWeight) UnmarshalJSON(b []byte) error {
	var raw struct {
		Skill  string   `json:"skill"`
		Weight *float64 `json:"weight"`
		IsCore *bool    `json:"is_core"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	w.Skill = strings.TrimSpace(raw.Skill)
	w.Weight = DefaultSkillWeight
	if raw.Weight != nil {
		w.Weight = *raw.Weight
	}
	w.IsCore = false
	if raw.IsCore != nil {
		w.IsCore = *raw.IsCore
	}
	return nil
}

// Role is a job role of the ontology. Title is unique within the active set.
type Role struct {
	Title           string        `json:"title" validate:"required"`
	Description     string        `json:"description"`
	SalaryRange     SalaryRange   `json:"salary_range"`
	ExperienceLevel string        `json:"experience_level" validate:"omitempty,oneof=entry mid senior"`
	SkillWeights    []SkillWeight `json:"skill_weights" validate:"dive"`
}

// Normalize trims the title and defaults an empty experience level to mid.
func (r Role) Normalize() Role {
	r.Title = strings.TrimSpace(r.Title)
	r.ExperienceLevel = strings.ToLower(strings.TrimSpace(r.ExperienceLevel))
	if r.ExperienceLevel == "" {
		r.ExperienceLevel = LevelMid
	}
	return r
}

func (r Role) Clone() Role {
	c := r
	c.SkillWeights = append([]SkillWeight(nil), r.SkillWeights...)
	return c
}

func (r Role) SkillNames() []string {
	out := make([]string, 0, len(r.SkillWeights))
	for _, w := range r.SkillWeights {
		out = append(out, w.Skill)
	}
	return out
}
