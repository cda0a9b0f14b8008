package skill

import "strings"

// Skill is one canonical entry of the ontology. Name is the unique key;
// Aliases widen the surface forms the extractor recognises.
type Skill struct {
	Name              string   `json:"name" validate:"required"`
	Type              string   `json:"type"`
	Aliases           []string `json:"aliases"`
	LearningResources []string `json:"learning_resources"`
	MentionFrequency  int      `json:"mention_frequency" validate:"gte=0"`
	LastSeenInMarket  Date     `json:"last_seen_in_market"`
}

// SurfaceForms returns the canonical name followed by every non-blank alias.
func (s Skill) SurfaceForms() []string {
	out := make([]string, 0, len(s.Aliases)+1)
	if n := strings.TrimSpace(s.Name); n != "" {
		out = append(out, n)
	}
	for _, a := range s.Aliases {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (s Skill) Clone() Skill {
	c := s
	c.Aliases = append([]string(nil), s.Aliases...)
	c.LearningResources = append([]string(nil), s.LearningResources...)
	return c
}
