package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/evolution"
	"github.com/Blaze-0903/NextStepAI/internal/ontology"
	"github.com/Blaze-0903/NextStepAI/internal/pkg/jwt"
	"github.com/Blaze-0903/NextStepAI/internal/review"
	ucauth "github.com/Blaze-0903/NextStepAI/internal/usecase/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Reviewer  string
}

type ReviewInput struct {
	UpdateID string
	Decision string
	Reviewer string
}

type AdminUsecase interface {
	Login(ctx context.Context, password, reviewer string) (LoginResult, error)
	PendingUpdates(ctx context.Context) ([]pending.Update, error)
	Review(ctx context.Context, in ReviewInput) (review.Outcome, error)
	TriggerEvolution(ctx context.Context, requestedBy string) (evolution.Job, error)
}

type PasswordVerifier interface {
	Verify(password string) error
}

type ReviewWorkflow interface {
	Pending(ctx context.Context) ([]pending.Update, error)
	Decide(ctx context.Context, id uuid.UUID, decision review.Decision, reviewer string) (review.Outcome, error)
}

type EvolutionTrigger interface {
	Fire(ctx context.Context, requestedBy string) (evolution.Job, error)
}

type Admin struct {
	creds    PasswordVerifier
	jwt      jwt.Service
	workflow ReviewWorkflow
	trigger  EvolutionTrigger
	logger   *zap.Logger
}

func NewAdminUsecase(creds PasswordVerifier, jwtSvc jwt.Service, workflow ReviewWorkflow, trigger EvolutionTrigger, logger *zap.Logger) *Admin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Admin{
		creds:    creds,
		jwt:      jwtSvc,
		workflow: workflow,
		trigger:  trigger,
		logger:   logger.With(zap.String("component", "admin")),
	}
}

func (u *Admin) Login(_ context.Context, password, reviewer string) (LoginResult, error) {
	if err := u.creds.Verify(password); err != nil {
		if errors.Is(err, ucauth.ErrNotConfigured) {
			return LoginResult{}, ErrAdminDisabled
		}
		u.logger.Info("admin login rejected")
		return LoginResult{}, ErrUnauthorized
	}

	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		reviewer = review.DefaultReviewer
	}
	tok, exp, err := u.jwt.GenerateAdminToken(reviewer)
	if err != nil {
		return LoginResult{}, ErrInternal
	}
	return LoginResult{Token: tok, ExpiresAt: exp, Reviewer: reviewer}, nil
}

func (u *Admin) PendingUpdates(ctx context.Context) ([]pending.Update, error) {
	items, err := u.workflow.Pending(ctx)
	if err != nil {
		u.logger.Error("list pending updates failed", zap.Error(err))
		return nil, ErrUpstream
	}
	return items, nil
}

func (u *Admin) Review(ctx context.Context, in ReviewInput) (review.Outcome, error) {
	decision, err := review.ParseDecision(in.Decision)
	if err != nil {
		return review.Outcome{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	id, err := uuid.Parse(strings.TrimSpace(in.UpdateID))
	if err != nil {
		return review.Outcome{}, ErrPendingUpdateNotFound
	}

	out, err := u.workflow.Decide(ctx, id, decision, in.Reviewer)
	if err != nil {
		switch {
		case errors.Is(err, review.ErrNotFound):
			return review.Outcome{}, ErrPendingUpdateNotFound
		case errors.Is(err, ontology.ErrUpstream):
			u.logger.Error("review failed upstream", zap.String("update_id", id.String()), zap.Error(err))
			return review.Outcome{}, ErrUpstream
		}
		u.logger.Error("review failed", zap.String("update_id", id.String()), zap.Error(err))
		return review.Outcome{}, ErrInternal
	}
	return out, nil
}

func (u *Admin) TriggerEvolution(ctx context.Context, requestedBy string) (evolution.Job, error) {
	job, err := u.trigger.Fire(ctx, requestedBy)
	if err != nil {
		if errors.Is(err, evolution.ErrRunInProgress) {
			return evolution.Job{}, ErrRunInProgress
		}
		u.logger.Error("evolution trigger failed", zap.Error(err))
		return evolution.Job{}, ErrUpstream
	}
	return job, nil
}
