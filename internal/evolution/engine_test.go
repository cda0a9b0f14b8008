package evolution

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"
	"github.com/Blaze-0903/NextStepAI/internal/ontology"
	"github.com/Blaze-0903/NextStepAI/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runDay = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

type staticSource struct {
	seen   []string
	skills []SkillCandidate
	roles  []RoleCandidate
}

func (s staticSource) Collect(context.Context, *ontology.Snapshot) (Signals, error) {
	seen := map[string]struct{}{}
	for _, n := range s.seen {
		seen[n] = struct{}{}
	}
	return Signals{Seen: seen, CandidateSkills: s.skills, CandidateRoles: s.roles}, nil
}

type failingInsert struct {
	*memory.Store
}

func (failingInsert) Insert(context.Context, pending.Update) (bool, error) {
	return false, errors.New("pending table unavailable")
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func (l *fakeLocker) SetIfNotExists(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = value
	return true, nil
}

func (l *fakeLocker) Delete(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

type recordingNotifier struct {
	created  []pending.Update
	versions []int64
}

func (n *recordingNotifier) PendingCreated(_ context.Context, u []pending.Update) {
	n.created = append(n.created, u...)
}

func (n *recordingNotifier) OntologyChanged(_ context.Context, v int64) {
	n.versions = append(n.versions, v)
}

func seed(t *testing.T) *memory.Store {
	t.Helper()
	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.ReplaceSkills(ctx, []skill.Skill{
		{Name: "Python", MentionFrequency: 500, LastSeenInMarket: skill.NewDate(runDay.AddDate(0, 0, -3))},
		{Name: "SQL", MentionFrequency: 5},
		{Name: "Angular", MentionFrequency: 900, LastSeenInMarket: skill.NewDate(runDay.AddDate(-1, 0, 0))},
	}))
	require.NoError(t, mem.ReplaceRoles(ctx, []job.Role{{
		Title:        "Data Analyst",
		SkillWeights: []job.SkillWeight{{Skill: "Python", Weight: 1, IsCore: true}},
	}}))
	return mem
}

func graphQLCandidate() SkillCandidate {
	return SkillCandidate{
		Proposal:   pending.SkillProposal{Name: "GraphQL", Aliases: []string{"gql"}},
		Reason:     "trending",
		Confidence: 0.92,
	}
}

func newTestEngine(t *testing.T, mem *memory.Store, src SignalSource, opts ...Option) (*Engine, *ontology.Store) {
	t.Helper()
	store := ontology.NewStore(mem, nil)
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	base := []Option{
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithClock(func() time.Time { return runDay }),
		WithSignalSource(src),
	}
	return NewEngine(DefaultConfig(), mem, mem, store, append(base, opts...)...), store
}

func TestEngine_AgesFrequencies(t *testing.T) {
	mem := seed(t)
	e, store := newTestEngine(t, mem, staticSource{seen: []string{"Python"}})

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	skills, _ := mem.FetchAllSkills(context.Background())
	py := skills["Python"]
	assert.GreaterOrEqual(t, py.MentionFrequency, 550)
	assert.LessOrEqual(t, py.MentionFrequency, 650)
	assert.Equal(t, "2024-06-01", py.LastSeenInMarket.String())

	assert.Equal(t, 0, skills["SQL"].MentionFrequency, "floored at zero")
	assert.True(t, skills["SQL"].LastSeenInMarket.IsZero())
	assert.Equal(t, 890, skills["Angular"].MentionFrequency)

	assert.Equal(t, []string{"Python"}, report.Incremented)
	assert.Equal(t, []string{"Angular", "SQL"}, report.Depreciated)
	assert.Equal(t, int64(2), report.SnapshotVersion)

	live, ok := store.Skill("Python")
	require.True(t, ok)
	assert.Equal(t, py.MentionFrequency, live.MentionFrequency)
}

func TestEngine_FrequencyNeverNegative(t *testing.T) {
	mem := seed(t)
	e, _ := newTestEngine(t, mem, staticSource{})

	for i := 0; i < 5; i++ {
		_, err := e.Run(context.Background())
		require.NoError(t, err)
	}
	skills, _ := mem.FetchAllSkills(context.Background())
	for name, s := range skills {
		assert.GreaterOrEqual(t, s.MentionFrequency, 0, name)
	}
	assert.Equal(t, 0, skills["SQL"].MentionFrequency)
	assert.Equal(t, 450, skills["Python"].MentionFrequency)
}

func TestEngine_ProposalsAreDeduplicated(t *testing.T) {
	mem := seed(t)
	src := staticSource{
		seen:   []string{"Python", "SQL", "Angular"},
		skills: []SkillCandidate{graphQLCandidate()},
		roles: []RoleCandidate{{
			Proposal: pending.RoleProposal{Role: job.Role{
				Title:        "Junior Data Scientist",
				SkillWeights: []job.SkillWeight{{Skill: "Python", Weight: 1, IsCore: true}},
			}},
			Reason:     "postings",
			Confidence: 0.91,
		}},
	}
	require.NoError(t, mem.UpsertSkill(context.Background(), skill.Skill{Name: "SQL", MentionFrequency: 500}))
	n := &recordingNotifier{}
	e, _ := newTestEngine(t, mem, src, WithNotifier(n))

	first, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"GraphQL"}, first.ProposedSkills)
	assert.Equal(t, []string{"Junior Data Scientist"}, first.ProposedRoles)

	second, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.ProposedSkills)
	assert.Empty(t, second.ProposedRoles)
	assert.ElementsMatch(t, []string{"GraphQL", "Junior Data Scientist"}, second.Skipped)

	list, err := mem.ListByStatus(context.Background(), pending.StatusPending)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, u := range list {
		if u.Kind() == pending.KindSkill {
			assert.InDelta(t, 0.92, u.ConfidenceOr(0), 1e-9)
			assert.Equal(t, "trending", u.DiscoveryReason)
		}
		assert.Equal(t, pending.StatusPending, u.Status)
	}
	assert.Len(t, n.created, 2)
	assert.Len(t, n.versions, 2)
}

func TestEngine_SkipsCandidatesAlreadyInOntology(t *testing.T) {
	mem := seed(t)
	src := staticSource{
		seen:   []string{"Python", "SQL", "Angular"},
		skills: []SkillCandidate{{Proposal: pending.SkillProposal{Name: "Python"}, Confidence: 0.9}},
		roles:  []RoleCandidate{{Proposal: pending.RoleProposal{Role: job.Role{Title: "Data Analyst"}}, Confidence: 0.9}},
	}
	require.NoError(t, mem.UpsertSkill(context.Background(), skill.Skill{Name: "SQL", MentionFrequency: 500}))
	e, _ := newTestEngine(t, mem, src)

	report, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.ProposedSkills)
	assert.Empty(t, report.ProposedRoles)

	list, _ := mem.ListByStatus(context.Background(), pending.StatusPending)
	assert.Empty(t, list)
}

func TestEngine_FlagsLowFrequencyAndStaleSkills(t *testing.T) {
	mem := seed(t)
	e, _ := newTestEngine(t, mem, staticSource{seen: []string{"Python"}})

	report, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Angular", "SQL"}, report.Flagged)

	list, _ := mem.ListByStatus(context.Background(), pending.StatusPending)
	reasons := map[string]string{}
	for _, u := range list {
		require.Equal(t, pending.KindReviewObsolete, u.Kind())
		assert.Nil(t, u.Confidence)
		reasons[u.Subject()] = u.DiscoveryReason
	}
	assert.Equal(t, "Not seen in market for 366 days (Threshold: 180).", reasons["Angular"])
	assert.Equal(t, "Mention frequency (0) is below threshold (100).", reasons["SQL"])

	again, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.Flagged, "pending flags are not duplicated")
}

func TestEngine_RejectedFlagDoesNotBlockNewFlag(t *testing.T) {
	mem := seed(t)
	e, _ := newTestEngine(t, mem, staticSource{seen: []string{"Python", "Angular"}})

	report, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"SQL"}, report.Flagged)

	list, _ := mem.ListByStatus(context.Background(), pending.StatusPending)
	require.Len(t, list, 1)
	require.NoError(t, mem.MarkReviewed(context.Background(), list[0].ID, pending.StatusRejected, "Admin", runDay))

	report, err = e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"SQL"}, report.Flagged)
}

func TestEngine_PersistsAgingWhenProposalStorageFails(t *testing.T) {
	mem := seed(t)
	store := ontology.NewStore(mem, nil)
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	e := NewEngine(DefaultConfig(), mem, failingInsert{mem}, store,
		WithRand(rand.New(rand.NewPCG(3, 4))),
		WithClock(func() time.Time { return runDay }),
		WithSignalSource(staticSource{skills: []SkillCandidate{graphQLCandidate()}}),
	)

	report, err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pending table unavailable")
	assert.Empty(t, report.ProposedSkills)

	skills, _ := mem.FetchAllSkills(context.Background())
	assert.Equal(t, 490, skills["Python"].MentionFrequency)
	assert.Equal(t, int64(2), report.SnapshotVersion, "store reloaded after persisting")
}

func TestEngine_LockedRunIsRejected(t *testing.T) {
	mem := seed(t)
	locker := &fakeLocker{held: map[string]string{lockKey: "other"}}
	e, _ := newTestEngine(t, mem, staticSource{}, WithLocker(locker))

	_, err := e.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	delete(locker.held, lockKey)
	_, err = e.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, locker.held, "lock released after run")
}

func TestEngine_SimulatedSourceProposesFromPool(t *testing.T) {
	mem := seed(t)
	e, _ := newTestEngine(t, mem, SimulatedSource{})

	report, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.ProposedSkills, 1)
	assert.Contains(t, []string{"GraphQL", "Terraform"}, report.ProposedSkills[0])
	assert.Equal(t, []string{"Junior Data Scientist"}, report.ProposedRoles)
	assert.NotContains(t, report.Incremented, "Angular")
}
