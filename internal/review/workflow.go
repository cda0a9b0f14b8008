// Package review applies administrator decisions to pending ontology updates.
package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/job"
	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/domain/skill"
	"github.com/Blaze-0903/NextStepAI/internal/ontology"
	"github.com/Blaze-0903/NextStepAI/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultReviewer is recorded when a decision names no reviewer.
const DefaultReviewer = "Admin"

var (
	ErrNotFound        = errors.New("update not found or already reviewed")
	ErrInvalidDecision = errors.New("decision must be 'approve' or 'reject'")
)

type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case Approve:
		return Approve, nil
	case Reject:
		return Reject, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDecision, s)
}

type OntologyWriter interface {
	UpsertSkill(ctx context.Context, s skill.Skill) error
	AppendRole(ctx context.Context, r job.Role) error
	RoleExists(ctx context.Context, title string) (bool, error)
}

type Notifier interface {
	Reviewed(ctx context.Context, u pending.Update)
	OntologyChanged(ctx context.Context, version int64)
}

// Outcome describes what a decision did.
type Outcome struct {
	Update   pending.Update
	Applied  bool
	Snapshot int64
}

type Workflow struct {
	ontology OntologyWriter
	pending  repository.PendingUpdateRepository
	store    *ontology.Store
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Workflow)

func WithNotifier(n Notifier) Option {
	return func(w *Workflow) { w.notifier = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

func NewWorkflow(o OntologyWriter, p repository.PendingUpdateRepository, store *ontology.Store, opts ...Option) *Workflow {
	w := &Workflow{ontology: o, pending: p, store: store, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Pending lists updates awaiting review, newest first.
func (w *Workflow) Pending(ctx context.Context) ([]pending.Update, error) {
	list, err := w.pending.ListByStatus(ctx, pending.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("%w: list pending updates: %w", ontology.ErrUpstream, err)
	}
	return list, nil
}

// Decide approves or rejects the pending update id. An approved skill or role
// is written to the ontology and the live snapshot reloaded before the update
// is marked reviewed. If that fails the update stays pending.
func (w *Workflow) Decide(ctx context.Context, id uuid.UUID, decision Decision, reviewer string) (Outcome, error) {
	if decision != Approve && decision != Reject {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		reviewer = DefaultReviewer
	}

	var out Outcome
	err := w.store.WithWriteLock(ctx, func(ctx context.Context) error {
		u, err := w.pending.FindPending(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: find update: %w", ontology.ErrUpstream, err)
		}

		status := pending.StatusRejected
		if decision == Approve {
			status = pending.StatusApproved
			applied, err := w.apply(ctx, u)
			if err != nil {
				return err
			}
			if applied {
				snap, err := w.store.Reload(ctx)
				if err != nil {
					return err
				}
				out.Applied = true
				out.Snapshot = snap.Version
			}
		}

		at := w.now().UTC()
		if err := w.pending.MarkReviewed(ctx, u.ID, status, reviewer, at); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: mark reviewed: %w", ontology.ErrUpstream, err)
		}
		u.Status = status
		u.ReviewedAt = &at
		u.ReviewedBy = reviewer
		out.Update = u
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	w.logger.Info("pending update reviewed",
		zap.String("id", id.String()),
		zap.String("type", string(out.Update.Kind())),
		zap.String("subject", out.Update.Subject()),
		zap.String("status", string(out.Update.Status)),
		zap.String("reviewer", reviewer),
	)
	if w.notifier != nil {
		w.notifier.Reviewed(ctx, out.Update)
		if out.Applied {
			w.notifier.OntologyChanged(ctx, out.Snapshot)
		}
	}
	return out, nil
}

// apply writes an approved update to the ontology. It reports whether the
// ontology changed.
func (w *Workflow) apply(ctx context.Context, u pending.Update) (bool, error) {
	switch p := u.Payload.(type) {
	case pending.SkillProposal:
		freq := int(math.Round(u.ConfidenceOr(pending.DefaultConfidence) * 1000))
		s := p.ToSkill(freq, skill.NewDate(w.now()))
		if err := w.ontology.UpsertSkill(ctx, s); err != nil {
			return false, fmt.Errorf("%w: write skill %q: %w", ontology.ErrUpstream, s.Name, err)
		}
		return true, nil

	case pending.RoleProposal:
		exists, err := w.ontology.RoleExists(ctx, p.Title)
		if err != nil {
			return false, fmt.Errorf("%w: check role %q: %w", ontology.ErrUpstream, p.Title, err)
		}
		if exists {
			w.logger.Info("approved role already in ontology, not appended", zap.String("role", p.Title))
			return false, nil
		}
		if err := w.ontology.AppendRole(ctx, p.Role.Normalize()); err != nil {
			return false, fmt.Errorf("%w: write role %q: %w", ontology.ErrUpstream, p.Title, err)
		}
		return true, nil

	case pending.ObsoleteFlag:
		// Acknowledgement only; the skill is kept.
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", pending.ErrUnknownKind, u.Kind())
}
