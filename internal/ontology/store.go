// Package ontology holds the live ontology snapshot used by extraction and
// scoring, and serializes the workflows that change it.
package ontology

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUpstream marks failures of the backing store. A reload that fails with it
// leaves the previous snapshot live.
var ErrUpstream = errors.New("ontology backing store unavailable")

type Backing interface {
	FetchAllSkills(ctx context.Context) (map[string]skill.Skill, error)
	FetchAllRoles(ctx context.Context) ([]job.Role, error)
}

type Store struct {
	backing Backing
	logger  *zap.Logger
	now     func() time.Time

	current atomic.Pointer[Snapshot]

	reloadMu sync.Mutex
	version  int64

	writeMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []func(*Snapshot)
}

// NewStore returns a store serving an empty snapshot (version 0) until the
// first successful Reload.
func NewStore(backing Backing, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{backing: backing, logger: logger, now: time.Now}
	s.current.Store(newSnapshot(0, time.Time{}, nil, nil))
	return s
}

// Snapshot returns the current snapshot. Callers must use a single snapshot for
// one extraction + scoring pass.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

func (s *Store) Skill(name string) (skill.Skill, bool) {
	return s.Snapshot().Skill(name)
}

// Reload fetches skills and roles, builds a new extractor and publishes the
// result with a single pointer swap.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()

	var (
		skills map[string]skill.Skill
		roles  []job.Role
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		skills, err = s.backing.FetchAllSkills(gctx)
		if err != nil {
			return fmt.Errorf("fetch skills: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		roles, err = s.backing.FetchAllRoles(gctx)
		if err != nil {
			return fmt.Errorf("fetch roles: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("ontology reload failed, keeping previous snapshot",
			zap.Int64("live_version", s.Snapshot().Version),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	snap := newSnapshot(s.version+1, s.now().UTC(), skills, roles)
	s.version = snap.Version
	s.current.Store(snap)

	for _, w := range snap.warnings {
		s.logger.Warn("ontology data quality warning",
			zap.String("kind", w.Kind),
			zap.String("subject", w.Subject),
			zap.String("detail", w.Detail),
		)
	}
	s.logger.Info("ontology reloaded",
		zap.Int64("version", snap.Version),
		zap.Int("skills", snap.SkillCount()),
		zap.Int("roles", snap.RoleCount()),
		zap.Int("patterns", snap.extractor.Patterns()),
		zap.Duration("took", time.Since(start)),
	)

	s.listenersMu.RLock()
	listeners := slices.Clone(s.listeners)
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}

	return snap, nil
}

// WithWriteLock runs fn while holding the store's writer lock. Every workflow
// that reads the backing ontology, mutates it and reloads goes through here.
func (s *Store) WithWriteLock(ctx context.Context, fn func(ctx context.Context) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn(ctx)
}

// OnReload registers fn to run after every successful reload.
func (s *Store) OnReload(fn func(*Snapshot)) {
	if fn == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}
