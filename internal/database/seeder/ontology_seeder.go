package seeder

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Blaze-0903/NextStepAI/internal/database"
	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"
	"github.com/Blaze-0903/NextStepAI/internal/pkg/validation"
	"github.com/Blaze-0903/NextStepAI/internal/repository"

	"github.com/xeipuuv/gojsonschema"
)

// DefaultMentionFrequency is given to seeded skills that carry none.
const DefaultMentionFrequency = 1000

//go:embed ontology.schema.json
var ontologySchema []byte

var ErrInvalidOntologyFile = errors.New("invalid ontology file")

// OntologyFile is the parsed seed document.
type OntologyFile struct {
	Skills []skill.Skill
	Roles  []job.Role
}

type fileSkill struct {
	Type              string     `json:"type"`
	Aliases           []string   `json:"aliases"`
	LearningResources []string   `json:"learning_resources"`
	MentionFrequency  *int       `json:"mention_frequency"`
	LastSeenInMarket  skill.Date `json:"last_seen_in_market"`
}

type fileDoc struct {
	Skills map[string]fileSkill `json:"skills"`
	Roles  []job.Role           `json:"job_roles"`
}

func LoadOntologyFile(path string) (OntologyFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return OntologyFile{}, err
	}
	return ParseOntology(b)
}

// ParseOntology validates b against the embedded schema, applies defaults and
// validates every record. Skills come back sorted by name.
func ParseOntology(b []byte) (OntologyFile, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(ontologySchema), gojsonschema.NewBytesLoader(b))
	if err != nil {
		return OntologyFile{}, fmt.Errorf("%w: %v", ErrInvalidOntologyFile, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			msgs = append(msgs, field+": "+desc.Description())
		}
		return OntologyFile{}, fmt.Errorf("%w: %s", ErrInvalidOntologyFile, strings.Join(msgs, "; "))
	}

	var doc fileDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return OntologyFile{}, fmt.Errorf("%w: %v", ErrInvalidOntologyFile, err)
	}

	out := OntologyFile{
		Skills: make([]skill.Skill, 0, len(doc.Skills)),
		Roles:  make([]job.Role, 0, len(doc.Roles)),
	}
	for name, fs := range doc.Skills {
		s := skill.Skill{
			Name:              strings.TrimSpace(name),
			Type:              fs.Type,
			Aliases:           fs.Aliases,
			LearningResources: fs.LearningResources,
			MentionFrequency:  DefaultMentionFrequency,
			LastSeenInMarket:  fs.LastSeenInMarket,
		}
		if fs.MentionFrequency != nil {
			s.MentionFrequency = *fs.MentionFrequency
		}
		if s.Aliases == nil {
			s.Aliases = []string{}
		}
		if s.LearningResources == nil {
			s.LearningResources = []string{}
		}
		if err := validation.Struct(s); err != nil {
			return OntologyFile{}, fmt.Errorf("skill %q: %w", name, err)
		}
		out.Skills = append(out.Skills, s)
	}
	sort.Slice(out.Skills, func(i, j int) bool { return out.Skills[i].Name < out.Skills[j].Name })

	for i, r := range doc.Roles {
		r = r.Normalize()
		if err := validation.Struct(r); err != nil {
			return OntologyFile{}, fmt.Errorf("job role %d (%q): %w", i, r.Title, err)
		}
		out.Roles = append(out.Roles, r)
	}
	return out, nil
}

// OntologySeeder replaces the ontology collections with the contents of a
// seed file. DB is optional; when set the target tables are checked first.
type OntologySeeder struct {
	Path  string
	Store repository.Ontology
	DB    database.DB
}

func (OntologySeeder) Name() string { return "ontology" }

func (s OntologySeeder) Run(ctx context.Context) error {
	file, err := LoadOntologyFile(s.Path)
	if err != nil {
		return err
	}

	if s.DB != nil {
		if err := ensureOntologySchema(ctx, s.DB); err != nil {
			return err
		}
	}

	if err := s.Store.ReplaceSkills(ctx, file.Skills); err != nil {
		return fmt.Errorf("replace skills: %w", err)
	}
	if err := s.Store.ReplaceRoles(ctx, file.Roles); err != nil {
		return fmt.Errorf("replace roles: %w", err)
	}
	return nil
}
