package evolution

import (
	"context"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/ontology"
)

// SkillCandidate is a new skill a market source suggests adding.
type SkillCandidate struct {
	Proposal   pending.SkillProposal
	Reason     string
	Confidence float64
}

type RoleCandidate struct {
	Proposal   pending.RoleProposal
	Reason     string
	Confidence float64
}

// Signals is what one market observation period produced.
type Signals struct {
	Seen            map[string]struct{}
	CandidateSkills []SkillCandidate
	CandidateRoles  []RoleCandidate
}

// SignalSource supplies the skills seen in the market this period and pools
// of candidate additions. snap is the ontology live at collection time.
type SignalSource interface {
	Collect(ctx context.Context, snap *ontology.Snapshot) (Signals, error)
}

// SimulatedSeenSkills is the fixed "seen this period" list of the simulated
// market. Angular is intentionally absent so it decays and gets flagged.
var SimulatedSeenSkills = []string{
	"Python", "JavaScript", "React", "Machine Learning", "Data Analysis", "SQL",
	"Git", "Docker", "AWS", "Node.js", "TypeScript", "HTML", "CSS", "REST API",
	"MongoDB", "Pandas", "NumPy", "TensorFlow", "PyTorch", "Kubernetes", "Java",
	"C++", "Django", "Flask", "FastAPI", "Vue.js", "Tableau", "Power BI", "Agile",
	"Communication", "Leadership", "Problem Solving", "Linux", "Network Firewalls",
	"SIEM Tools", "Intrusion Detection", "Statistics", "Excel",
}

// CandidatePool returns the built-in discovery pools.
func CandidatePool() ([]SkillCandidate, []RoleCandidate) {
	skills := []SkillCandidate{
		{
			Proposal: pending.SkillProposal{
				Name:              "GraphQL",
				Type:              "Technology",
				Aliases:           []string{"graph ql", "gql"},
				LearningResources: []string{"https://graphql.org/learn/"},
			},
			Reason:     "Trending in 1,250 'Junior Web Developer' postings",
			Confidence: 0.92,
		},
		{
			Proposal: pending.SkillProposal{
				Name:              "Terraform",
				Type:              "Tool",
				Aliases:           []string{"infrastructure as code", "iac"},
				LearningResources: []string{"https://learn.hashicorp.com/terraform"},
			},
			Reason:     "Required in 68% of 'Junior DevOps' positions",
			Confidence: 0.95,
		},
	}
	roles := []RoleCandidate{
		{
			Proposal: pending.RoleProposal{Role: job.Role{
				Title:           "Junior Data Scientist",
				Description:     "Assists senior data scientists in analyzing data and building models.",
				SalaryRange:     job.SalaryRange{85000, 115000},
				ExperienceLevel: job.LevelEntry,
				SkillWeights: []job.SkillWeight{
					{Skill: "Python", Weight: 1.0, IsCore: true},
					{Skill: "Data Analysis", Weight: 1.0, IsCore: true},
					{Skill: "SQL", Weight: 0.7, IsCore: true},
				},
			}},
			Reason:     "High volume of 'Graduate Data Scientist' postings",
			Confidence: 0.91,
		},
	}
	return skills, roles
}

// SimulatedSource stands in for job-portal scraping.
type SimulatedSource struct{}

func (SimulatedSource) Collect(_ context.Context, _ *ontology.Snapshot) (Signals, error) {
	seen := make(map[string]struct{}, len(SimulatedSeenSkills))
	for _, n := range SimulatedSeenSkills {
		seen[n] = struct{}{}
	}
	skills, roles := CandidatePool()
	return Signals{Seen: seen, CandidateSkills: skills, CandidateRoles: roles}, nil
}
