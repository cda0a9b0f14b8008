// Package scraper turns live job-listing pages into market signals for the
// ontology evolution engine.
package scraper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Blaze-0903/NextStepAI/internal/evolution"
	"github.com/Blaze-0903/NextStepAI/internal/extraction"
	"github.com/Blaze-0903/NextStepAI/internal/ontology"

	"go.uber.org/zap"
)

type MarketSourceConfig struct {
	URLs    []string
	Workers int
	// RateLimit caps page fetches per second across all workers. Zero disables it.
	RateLimit int
	// MinMentions is how many postings must name a candidate skill before it
	// is proposed.
	MinMentions int
}

// MarketSource implements evolution.SignalSource by scraping listing pages.
// A skill counts as seen when any posting names it or one of its aliases.
type MarketSource struct {
	cfg     MarketSourceConfig
	fetcher PageFetcher
	logger  *zap.Logger

	candidates func() ([]evolution.SkillCandidate, []evolution.RoleCandidate)
}

func NewMarketSource(cfg MarketSourceConfig, fetcher PageFetcher, logger *zap.Logger) *MarketSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MinMentions <= 0 {
		cfg.MinMentions = 1
	}
	return &MarketSource{
		cfg:        cfg,
		fetcher:    fetcher,
		logger:     logger.With(zap.String("component", "market_source")),
		candidates: evolution.CandidatePool,
	}
}

func (m *MarketSource) Collect(ctx context.Context, snap *ontology.Snapshot) (evolution.Signals, error) {
	postings, err := m.scrape(ctx)
	if err != nil {
		return evolution.Signals{}, err
	}

	seen := make(map[string]struct{})
	for _, p := range postings {
		for _, name := range snap.Extract(p) {
			seen[name] = struct{}{}
		}
	}

	skillPool, rolePool := m.candidates()
	skills := m.mentionedCandidates(skillPool, postings)
	roles := supportedRoles(rolePool, seen)

	m.logger.Info("market signals collected",
		zap.Int("postings", len(postings)),
		zap.Int("seen", len(seen)),
		zap.Int("candidate_skills", len(skills)),
		zap.Int("candidate_roles", len(roles)),
	)
	return evolution.Signals{Seen: seen, CandidateSkills: skills, CandidateRoles: roles}, nil
}

// scrape fetches every configured page. Individual page failures are logged;
// the collection fails only when nothing at all was retrieved.
func (m *MarketSource) scrape(ctx context.Context) ([]string, error) {
	urls := uniqueURLs(m.cfg.URLs)
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no market urls configured", ErrNoPostings)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := NewWorkerPool(m.cfg.Workers, len(urls))
	pool.SetRateLimit(m.cfg.RateLimit)
	results := pool.Run(runCtx)

	for _, u := range urls {
		u := u
		pool.Submit(runCtx, func(ctx context.Context) (Page, error) {
			return m.fetcher.Fetch(ctx, u)
		})
	}
	pool.Close()

	var (
		postings []string
		failed   int
	)
	for res := range results {
		if res.Err != nil {
			failed++
			m.logger.Warn("market page fetch failed", zap.Error(res.Err))
			continue
		}
		postings = append(postings, res.Page.Postings...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(postings) == 0 {
		return nil, fmt.Errorf("%w: %d of %d pages failed", ErrNoPostings, failed, len(urls))
	}
	return postings, nil
}

func (m *MarketSource) mentionedCandidates(pool []evolution.SkillCandidate, postings []string) []evolution.SkillCandidate {
	if len(pool) == 0 {
		return nil
	}
	dict := make(extraction.Dictionary, len(pool))
	for _, c := range pool {
		dict[c.Proposal.Name] = c.Proposal.Aliases
	}
	ex := extraction.New(dict)

	mentions := make(map[string]int, len(pool))
	for _, p := range postings {
		for _, name := range ex.Extract(p) {
			mentions[name]++
		}
	}

	var out []evolution.SkillCandidate
	for _, c := range pool {
		n := mentions[c.Proposal.Name]
		if n < m.cfg.MinMentions {
			continue
		}
		c.Reason = fmt.Sprintf("Mentioned in %d of %d scraped postings", n, len(postings))
		out = append(out, c)
	}
	return out
}

// supportedRoles keeps the role candidates whose core skills were all seen.
func supportedRoles(pool []evolution.RoleCandidate, seen map[string]struct{}) []evolution.RoleCandidate {
	var out []evolution.RoleCandidate
	for _, c := range pool {
		ok := true
		for _, w := range c.Proposal.SkillWeights {
			if !w.IsCore {
				continue
			}
			if _, hit := seen[w.Skill]; !hit {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, c)
		}
	}
	return out
}

func uniqueURLs(in []string) []string {
	set := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, u := range in {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := set[u]; dup {
			continue
		}
		set[u] = struct{}{}
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
