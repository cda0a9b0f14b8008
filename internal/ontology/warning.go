package ontology

import (
	"fmt"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"
	"github.com/Blaze-0903/NextStepAI/internal/extraction"
)

const (
	WarningUnknownSkill   = "unknown_skill_reference"
	WarningAliasCollision = "alias_collision"
)

// Warning is a data-quality problem found while building a snapshot. It is
// logged and never fails a reload.
type Warning struct {
	Kind    string
	Subject string
	Detail  string
}

func inspect(skills map[string]skill.Skill, roles []job.Role, ex *extraction.Extractor) []Warning {
	var out []Warning
	for _, r := range roles {
		for _, w := range r.SkillWeights {
			if _, ok := skills[w.Skill]; ok {
				continue
			}
			out = append(out, Warning{
				Kind:    WarningUnknownSkill,
				Subject: r.Title,
				Detail:  fmt.Sprintf("requirement %q is not a known skill", w.Skill),
			})
		}
	}
	for _, c := range ex.Collisions() {
		out = append(out, Warning{
			Kind:    WarningAliasCollision,
			Subject: c.Dropped,
			Detail:  fmt.Sprintf("surface form %q already belongs to %q", c.Form, c.Owner),
		})
	}
	return out
}
