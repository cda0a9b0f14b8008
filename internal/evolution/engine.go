// Package evolution ages skill market frequencies, proposes new ontology
// entries and flags stale skills for review.
package evolution

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"
	"github.com/Blaze-0903/NextStepAI/internal/ontology"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrRunInProgress = errors.New("ontology evolution run already in progress")

const lockKey = "ontology:evolution:lock"

type Config struct {
	DepreciationStep int
	FlagThreshold    int
	StaleAfterDays   int
	IncrementMin     int
	IncrementMax     int
	NewSkillSample   int
	NewRoleSample    int
	LockTTL          time.Duration
}

func DefaultConfig() Config {
	return Config{
		DepreciationStep: 10,
		FlagThreshold:    100,
		StaleAfterDays:   180,
		IncrementMin:     50,
		IncrementMax:     150,
		NewSkillSample:   1,
		NewRoleSample:    1,
		LockTTL:          10 * time.Minute,
	}
}

type OntologyRepository interface {
	FetchAllSkills(ctx context.Context) (map[string]skill.Skill, error)
	FetchAllRoles(ctx context.Context) ([]job.Role, error)
	SaveMarketStats(ctx context.Context, skills []skill.Skill) error
}

type PendingRepository interface {
	Insert(ctx context.Context, u pending.Update) (bool, error)
	HasPending(ctx context.Context, kind pending.Kind, subject string) (bool, error)
}

type Notifier interface {
	PendingCreated(ctx context.Context, updates []pending.Update)
	OntologyChanged(ctx context.Context, version int64)
}

// Locker guards a run across processes. The Redis cache satisfies it.
type Locker interface {
	SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Report summarises one run.
type Report struct {
	RunID           uuid.UUID  `json:"run_id"`
	RunDate         skill.Date `json:"run_date"`
	Incremented     []string   `json:"incremented"`
	Depreciated     []string   `json:"depreciated"`
	ProposedSkills  []string   `json:"proposed_skills"`
	ProposedRoles   []string   `json:"proposed_roles"`
	Flagged         []string   `json:"flagged"`
	Skipped         []string   `json:"skipped"`
	SnapshotVersion int64      `json:"snapshot_version"`
}

type Engine struct {
	cfg      Config
	repo     OntologyRepository
	pending  PendingRepository
	store    *ontology.Store
	source   SignalSource
	notifier Notifier
	locker   Locker
	logger   *zap.Logger
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Engine)

func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithLocker makes runs exclusive across processes sharing the lock backend.
func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithSignalSource(s SignalSource) Option {
	return func(e *Engine) { e.source = s }
}

func NewEngine(cfg Config, repo OntologyRepository, pendingRepo PendingRepository, store *ontology.Store, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		repo:    repo,
		pending: pendingRepo,
		store:   store,
		source:  SimulatedSource{},
		logger:  zap.NewNop(),
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Run executes one evolution pass. Frequency aging is persisted even when
// storing proposals or flags fails; those failures are joined into the
// returned error alongside a populated report.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.New(), RunDate: skill.NewDate(e.now())}
	log := e.logger.With(zap.String("component", "evolution"), zap.String("run_id", report.RunID.String()))

	if e.locker != nil {
		ok, err := e.locker.SetIfNotExists(ctx, lockKey, report.RunID.String(), e.cfg.LockTTL)
		if err != nil {
			return report, fmt.Errorf("acquire evolution lock: %w", err)
		}
		if !ok {
			return report, ErrRunInProgress
		}
		defer func() {
			if err := e.locker.Delete(context.WithoutCancel(ctx), lockKey); err != nil {
				log.Warn("release evolution lock failed", zap.Error(err))
			}
		}()
	}

	var created []pending.Update
	err := e.store.WithWriteLock(ctx, func(ctx context.Context) error {
		var err error
		created, err = e.run(ctx, &report, log)
		return err
	})

	if len(created) > 0 && e.notifier != nil {
		e.notifier.PendingCreated(ctx, created)
	}
	if report.SnapshotVersion > 0 && e.notifier != nil {
		e.notifier.OntologyChanged(ctx, report.SnapshotVersion)
	}

	fields := []zap.Field{
		zap.Int("incremented", len(report.Incremented)),
		zap.Int("depreciated", len(report.Depreciated)),
		zap.Strings("proposed_skills", report.ProposedSkills),
		zap.Strings("proposed_roles", report.ProposedRoles),
		zap.Strings("flagged", report.Flagged),
		zap.Int64("snapshot_version", report.SnapshotVersion),
	}
	if err != nil {
		log.Error("evolution run finished with errors", append(fields, zap.Error(err))...)
	} else {
		log.Info("evolution run finished", fields...)
	}
	return report, err
}

func (e *Engine) run(ctx context.Context, report *Report, log *zap.Logger) ([]pending.Update, error) {
	skills, err := e.repo.FetchAllSkills(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch skills: %w", ontology.ErrUpstream, err)
	}
	roles, err := e.repo.FetchAllRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch roles: %w", ontology.ErrUpstream, err)
	}

	signals, err := e.source.Collect(ctx, e.store.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("collect market signals: %w", err)
	}

	names := make([]string, 0, len(skills))
	for n := range skills {
		names = append(names, n)
	}
	sort.Strings(names)

	aged := e.age(names, skills, signals.Seen, report)

	var (
		errs    []error
		created []pending.Update
	)

	u, err := e.proposeSkills(ctx, skills, signals.CandidateSkills, report, log)
	created = append(created, u...)
	if err != nil {
		errs = append(errs, err)
	}

	u, err = e.proposeRoles(ctx, roles, signals.CandidateRoles, report, log)
	created = append(created, u...)
	if err != nil {
		errs = append(errs, err)
	}

	u, err = e.flagObsolete(ctx, names, skills, report, log)
	created = append(created, u...)
	if err != nil {
		errs = append(errs, err)
	}

	if err := e.repo.SaveMarketStats(ctx, aged); err != nil {
		errs = append(errs, fmt.Errorf("%w: persist market stats: %w", ontology.ErrUpstream, err))
		return created, errors.Join(errs...)
	}

	snap, err := e.store.Reload(ctx)
	if err != nil {
		errs = append(errs, err)
	} else {
		report.SnapshotVersion = snap.Version
	}
	return created, errors.Join(errs...)
}

// age applies the seen/unseen frequency rule to skills in place and returns
// the updated records in name order.
func (e *Engine) age(names []string, skills map[string]skill.Skill, seen map[string]struct{}, report *Report) []skill.Skill {
	out := make([]skill.Skill, 0, len(names))
	for _, name := range names {
		s := skills[name]
		if _, ok := seen[name]; ok {
			s.MentionFrequency += e.increment()
			s.LastSeenInMarket = report.RunDate
			report.Incremented = append(report.Incremented, name)
		} else {
			s.MentionFrequency = max(0, s.MentionFrequency-e.cfg.DepreciationStep)
			report.Depreciated = append(report.Depreciated, name)
		}
		skills[name] = s
		out = append(out, s)
	}
	return out
}

func (e *Engine) increment() int {
	lo, hi := e.cfg.IncrementMin, e.cfg.IncrementMax
	if hi < lo {
		hi = lo
	}
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return lo + e.rng.IntN(hi-lo+1)
}

func (e *Engine) sample(n, k int) []int {
	if k <= 0 || n == 0 {
		return nil
	}
	e.rngMu.Lock()
	perm := e.rng.Perm(n)
	e.rngMu.Unlock()
	if k < n {
		perm = perm[:k]
	}
	return perm
}

func (e *Engine) proposeSkills(ctx context.Context, known map[string]skill.Skill, pool []SkillCandidate, report *Report, log *zap.Logger) ([]pending.Update, error) {
	var (
		created []pending.Update
		errs    []error
	)
	for _, i := range e.sample(len(pool), e.cfg.NewSkillSample) {
		c := pool[i]
		name := c.Proposal.Name
		if _, ok := known[name]; ok {
			report.Skipped = append(report.Skipped, name)
			log.Debug("skill proposal skipped, already in ontology", zap.String("skill", name))
			continue
		}
		u, ok, err := e.insertProposal(ctx, c.Proposal, c.Reason, c.Confidence)
		if err != nil {
			errs = append(errs, fmt.Errorf("propose skill %q: %w", name, err))
			continue
		}
		if !ok {
			report.Skipped = append(report.Skipped, name)
			log.Debug("skill proposal skipped, already pending", zap.String("skill", name))
			continue
		}
		report.ProposedSkills = append(report.ProposedSkills, name)
		created = append(created, u)
	}
	return created, errors.Join(errs...)
}

func (e *Engine) proposeRoles(ctx context.Context, known []job.Role, pool []RoleCandidate, report *Report, log *zap.Logger) ([]pending.Update, error) {
	titles := make(map[string]struct{}, len(known))
	for _, r := range known {
		titles[r.Title] = struct{}{}
	}

	var (
		created []pending.Update
		errs    []error
	)
	for _, i := range e.sample(len(pool), e.cfg.NewRoleSample) {
		c := pool[i]
		c.Proposal.Role = c.Proposal.Role.Normalize()
		title := c.Proposal.Title
		if _, ok := titles[title]; ok {
			report.Skipped = append(report.Skipped, title)
			log.Debug("role proposal skipped, already in ontology", zap.String("role", title))
			continue
		}
		u, ok, err := e.insertProposal(ctx, c.Proposal, c.Reason, c.Confidence)
		if err != nil {
			errs = append(errs, fmt.Errorf("propose role %q: %w", title, err))
			continue
		}
		if !ok {
			report.Skipped = append(report.Skipped, title)
			log.Debug("role proposal skipped, already pending", zap.String("role", title))
			continue
		}
		report.ProposedRoles = append(report.ProposedRoles, title)
		created = append(created, u)
	}
	return created, errors.Join(errs...)
}

func (e *Engine) insertProposal(ctx context.Context, p pending.Payload, reason string, confidence float64) (pending.Update, bool, error) {
	if err := pending.Validate(p); err != nil {
		return pending.Update{}, false, err
	}
	exists, err := e.pending.HasPending(ctx, p.Kind(), p.Subject())
	if err != nil {
		return pending.Update{}, false, err
	}
	if exists {
		return pending.Update{}, false, nil
	}
	conf := confidence
	u := pending.New(p, reason, &conf, e.now())
	ok, err := e.pending.Insert(ctx, u)
	if err != nil {
		return pending.Update{}, false, err
	}
	return u, ok, nil
}

func (e *Engine) flagObsolete(ctx context.Context, names []string, skills map[string]skill.Skill, report *Report, log *zap.Logger) ([]pending.Update, error) {
	var (
		created []pending.Update
		errs    []error
	)
	for _, name := range names {
		reason := e.obsoleteReason(skills[name], report.RunDate)
		if reason == "" {
			continue
		}

		exists, err := e.pending.HasPending(ctx, pending.KindReviewObsolete, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("flag %q: %w", name, err))
			continue
		}
		if exists {
			continue
		}

		u := pending.New(pending.ObsoleteFlag{Name: name}, reason, nil, e.now())
		ok, err := e.pending.Insert(ctx, u)
		if err != nil {
			errs = append(errs, fmt.Errorf("flag %q: %w", name, err))
			continue
		}
		if ok {
			report.Flagged = append(report.Flagged, name)
			created = append(created, u)
			log.Info("skill flagged for obsolescence review", zap.String("skill", name), zap.String("reason", reason))
		}
	}
	return created, errors.Join(errs...)
}

// obsoleteReason returns why s should be reviewed, or "" when it is healthy.
// A skill never seen in the market is not considered stale.
func (e *Engine) obsoleteReason(s skill.Skill, today skill.Date) string {
	var reasons []string
	if s.MentionFrequency < e.cfg.FlagThreshold {
		reasons = append(reasons, fmt.Sprintf("Mention frequency (%d) is below threshold (%d).", s.MentionFrequency, e.cfg.FlagThreshold))
	}
	if !s.LastSeenInMarket.IsZero() {
		if days := s.LastSeenInMarket.DaysUntil(today); days > e.cfg.StaleAfterDays {
			reasons = append(reasons, fmt.Sprintf("Not seen in market for %d days (Threshold: %d).", days, e.cfg.StaleAfterDays))
		}
	}
	return strings.Join(reasons, " ")
}
