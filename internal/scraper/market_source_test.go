package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"
	"github.com/Blaze-0903/NextStepAI/internal/evolution"
	"github.com/Blaze-0903/NextStepAI/internal/ontology"
	"github.com/Blaze-0903/NextStepAI/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body>
<nav>Sign in</nav>
<div class="job">Junior Developer. We use Python, SQL and a bit of gql.</div>
<div class="job">Data role: <b>pandas</b>, Python, data analysis.</div>
<div class="job">   </div>
</body></html>`

func snapshot(t *testing.T) *ontology.Snapshot {
	t.Helper()
	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.ReplaceSkills(ctx, []skill.Skill{
		{Name: "Python", Aliases: []string{"py"}},
		{Name: "SQL"},
		{Name: "Pandas"},
		{Name: "Data Analysis"},
		{Name: "Angular"},
	}))
	require.NoError(t, mem.ReplaceRoles(ctx, nil))
	store := ontology.NewStore(mem, nil)
	snap, err := store.Reload(ctx)
	require.NoError(t, err)
	return snap
}

type stubFetcher struct {
	pages map[string]Page
	calls atomic.Int32
}

func (f *stubFetcher) Fetch(_ context.Context, u string) (Page, error) {
	f.calls.Add(1)
	p, ok := f.pages[u]
	if !ok {
		return Page{}, fmt.Errorf("fetch %s: status 404", u)
	}
	return p, nil
}

func TestCollyFetcher_SelectsPostings(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	page, err := CollyFetcher{Selector: "div.job"}.Fetch(context.Background(), srv.URL+"/jobs")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Junior Developer. We use Python, SQL and a bit of gql.",
		"Data role: pandas, Python, data analysis.",
	}, page.Postings)
	assert.Equal(t, userAgent, ua.Load())
}

func TestCollyFetcher_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := CollyFetcher{}.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")
}

func TestCollyFetcher_InvalidURL(t *testing.T) {
	_, err := CollyFetcher{}.Fetch(context.Background(), "not a url")
	require.Error(t, err)
}

func TestParsePage_DefaultSelector(t *testing.T) {
	page, err := parsePage("u", "<html><body><p>Go\n\n developer</p></body></html>", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go developer"}, page.Postings)
}

func TestMarketSource_Collect(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]Page{
		"https://a.example/jobs": {Postings: []string{"Python and SQL, gql a plus"}},
		"https://b.example/jobs": {Postings: []string{"Pandas, data analysis, Python"}},
	}}
	src := NewMarketSource(MarketSourceConfig{
		URLs:    []string{"https://a.example/jobs", "https://b.example/jobs", "https://a.example/jobs", "https://c.example/404"},
		Workers: 2,
	}, fetcher, nil)

	sig, err := src.Collect(context.Background(), snapshot(t))
	require.NoError(t, err)
	assert.Equal(t, int32(3), fetcher.calls.Load())

	assert.Contains(t, sig.Seen, "Python")
	assert.Contains(t, sig.Seen, "SQL")
	assert.Contains(t, sig.Seen, "Pandas")
	assert.Contains(t, sig.Seen, "Data Analysis")
	assert.NotContains(t, sig.Seen, "Angular")

	require.Len(t, sig.CandidateSkills, 1)
	assert.Equal(t, "GraphQL", sig.CandidateSkills[0].Proposal.Name)
	assert.Equal(t, "Mentioned in 1 of 2 scraped postings", sig.CandidateSkills[0].Reason)
	assert.InDelta(t, 0.92, sig.CandidateSkills[0].Confidence, 1e-9)

	require.Len(t, sig.CandidateRoles, 1)
	assert.Equal(t, "Junior Data Scientist", sig.CandidateRoles[0].Proposal.Title)
}

func TestMarketSource_MinMentions(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]Page{
		"https://a.example/jobs": {Postings: []string{"gql", "Python"}},
	}}
	src := NewMarketSource(MarketSourceConfig{URLs: []string{"https://a.example/jobs"}, MinMentions: 2}, fetcher, nil)

	sig, err := src.Collect(context.Background(), snapshot(t))
	require.NoError(t, err)
	assert.Empty(t, sig.CandidateSkills)
	assert.Empty(t, sig.CandidateRoles, "SQL and Data Analysis were not seen")
}

func TestMarketSource_NothingFetched(t *testing.T) {
	src := NewMarketSource(MarketSourceConfig{URLs: []string{"https://x.example"}}, &stubFetcher{}, nil)
	_, err := src.Collect(context.Background(), snapshot(t))
	assert.ErrorIs(t, err, ErrNoPostings)

	_, err = NewMarketSource(MarketSourceConfig{}, &stubFetcher{}, nil).Collect(context.Background(), snapshot(t))
	assert.ErrorIs(t, err, ErrNoPostings)
}

func TestMarketSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewMarketSource(MarketSourceConfig{URLs: []string{"https://a.example/jobs"}}, &stubFetcher{}, nil)
	_, err := src.Collect(ctx, snapshot(t))
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrNoPostings))
}

func TestSupportedRoles_IgnoresNonCoreSkills(t *testing.T) {
	pool := []evolution.RoleCandidate{{Proposal: pending.RoleProposal{Role: job.Role{
		Title:        "R",
		SkillWeights: []job.SkillWeight{{Skill: "A", IsCore: true}, {Skill: "B"}},
	}}}}
	got := supportedRoles(pool, map[string]struct{}{"A": {}})
	assert.Len(t, got, 1)
}

func TestWorkerPool_RunsEveryTask(t *testing.T) {
	ctx := context.Background()
	p := NewWorkerPool(3, 0)
	out := p.Run(ctx)
	go func() {
		for i := 0; i < 10; i++ {
			i := i
			p.Submit(ctx, func(context.Context) (Page, error) {
				if i%5 == 0 {
					return Page{}, errors.New("boom")
				}
				return Page{URL: fmt.Sprint(i)}, nil
			})
		}
		p.Close()
	}()

	var ok, failed int
	for r := range out {
		if r.Err != nil {
			failed++
			continue
		}
		ok++
	}
	assert.Equal(t, 8, ok)
	assert.Equal(t, 2, failed)
}
