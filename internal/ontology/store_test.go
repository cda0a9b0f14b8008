package ontology

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBacking struct {
	mu       sync.Mutex
	skills   map[string]skill.Skill
	roles    []job.Role
	skillErr error
	roleErr  error
}

func (f *fakeBacking) FetchAllSkills(context.Context) (map[string]skill.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.skillErr != nil {
		return nil, f.skillErr
	}
	out := make(map[string]skill.Skill, len(f.skills))
	for k, v := range f.skills {
		out[k] = v.Clone()
	}
	return out, nil
}

func (f *fakeBacking) FetchAllRoles(context.Context) ([]job.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roleErr != nil {
		return nil, f.roleErr
	}
	return append([]job.Role(nil), f.roles...), nil
}

func (f *fakeBacking) set(skills map[string]skill.Skill, roles []job.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skills = skills
	f.roles = roles
}

func baseBacking() *fakeBacking {
	return &fakeBacking{
		skills: map[string]skill.Skill{
			"Python": {Name: "Python", Aliases: []string{"py"}, LearningResources: []string{"https://docs.python.org"}},
			"SQL":    {Name: "SQL"},
		},
		roles: []job.Role{{
			Title: "Data Analyst",
			SkillWeights: []job.SkillWeight{
				{Skill: "Python", Weight: 1, IsCore: true},
				{Skill: "SQL", Weight: 0.8},
			},
		}},
	}
}

func TestStore_EmptyBeforeFirstReload(t *testing.T) {
	s := NewStore(baseBacking(), nil)
	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, int64(0), snap.Version)
	assert.Empty(t, snap.Extract("python"))
	assert.Equal(t, []string{}, snap.LearningResources("Python"))
}

func TestStore_ReloadPublishesNewSnapshot(t *testing.T) {
	b := baseBacking()
	s := NewStore(b, nil)

	snap, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
	assert.Same(t, snap, s.Snapshot())
	assert.Equal(t, []string{"Python", "SQL"}, snap.Extract("py and sql"))
	assert.Equal(t, []string{"https://docs.python.org"}, snap.LearningResources("Python"))
	assert.True(t, snap.HasRole("Data Analyst"))

	b.set(map[string]skill.Skill{"Go": {Name: "Go", Aliases: []string{"golang"}}}, nil)
	next, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Version)
	assert.Equal(t, []string{"Go"}, s.Snapshot().Extract("golang and python"))

	assert.Equal(t, []string{"Python", "SQL"}, snap.Extract("py and sql"), "old snapshot is untouched")
}

func TestStore_FailedReloadKeepsPreviousSnapshot(t *testing.T) {
	b := baseBacking()
	s := NewStore(b, nil)
	first, err := s.Reload(context.Background())
	require.NoError(t, err)

	b.roleErr = errors.New("connection refused")
	_, err = s.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Same(t, first, s.Snapshot())

	b.roleErr = nil
	b.skillErr = errors.New("timeout")
	_, err = s.Reload(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Same(t, first, s.Snapshot())
}

func TestStore_ReportsDataQualityWarnings(t *testing.T) {
	b := baseBacking()
	b.roles = append(b.roles, job.Role{Title: "Ghost", SkillWeights: []job.SkillWeight{{Skill: "Cobol", Weight: 1}}})
	b.skills["Pythonic"] = skill.Skill{Name: "Pythonic", Aliases: []string{"py"}}

	s := NewStore(b, nil)
	snap, err := s.Reload(context.Background())
	require.NoError(t, err)

	kinds := map[string]string{}
	for _, w := range snap.Warnings() {
		kinds[w.Kind] = w.Subject
	}
	assert.Equal(t, "Ghost", kinds[WarningUnknownSkill])
	assert.Equal(t, "Pythonic", kinds[WarningAliasCollision])
}

func TestStore_OnReloadListeners(t *testing.T) {
	s := NewStore(baseBacking(), nil)
	var got []int64
	s.OnReload(func(snap *Snapshot) { got = append(got, snap.Version) })

	_, err := s.Reload(context.Background())
	require.NoError(t, err)
	_, err = s.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got)
}

func TestStore_ReadersSeeConsistentTriples(t *testing.T) {
	b := baseBacking()
	s := NewStore(b, nil)
	_, err := s.Reload(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snap := s.Snapshot()
				for _, name := range snap.Extract("py sql golang rust") {
					if !snap.HasSkill(name) {
						t.Errorf("extracted %q missing from its own snapshot v%d", name, snap.Version)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			b.set(map[string]skill.Skill{"Go": {Name: "Go", Aliases: []string{"golang"}}, "Rust": {Name: "Rust"}}, nil)
		} else {
			b.set(baseBacking().skills, baseBacking().roles)
		}
		_, err := s.Reload(context.Background())
		require.NoError(t, err)
	}
	cancel()
	wg.Wait()
}

func TestStore_WithWriteLockSerializes(t *testing.T) {
	s := NewStore(baseBacking(), nil)
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithWriteLock(context.Background(), func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
