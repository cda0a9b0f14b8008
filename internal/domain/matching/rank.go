package matching

import (
	"sort"
	"strings"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
)

const DefaultRankLimit = 10

// Rank scores every role (optionally only those whose experience level equals
// experienceLevel) and returns the best limit results by match score. Roles
// with equal scores keep their input order.
func Rank(userSkills SkillSet, roles []job.Role, experienceLevel string, lookup ResourceLookup, limit int) []Result {
	if limit <= 0 {
		limit = DefaultRankLimit
	}
	experienceLevel = strings.TrimSpace(experienceLevel)

	out := make([]Result, 0, len(roles))
	for _, r := range roles {
		if experienceLevel != "" && r.ExperienceLevel != experienceLevel {
			continue
		}
		out = append(out, Score(userSkills, r, lookup))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MatchScore > out[j].MatchScore
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
