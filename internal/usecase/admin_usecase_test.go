package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Blaze-0903/NextStepAI/internal/domain/pending"
	"github.com/Blaze-0903/NextStepAI/internal/evolution"
	"github.com/Blaze-0903/NextStepAI/internal/ontology"
	"github.com/Blaze-0903/NextStepAI/internal/pkg/jwt"
	"github.com/Blaze-0903/NextStepAI/internal/review"
	ucauth "github.com/Blaze-0903/NextStepAI/internal/usecase/auth"

	"github.com/google/uuid"
)

type fakeVerifier struct{ err error }

func (f fakeVerifier) Verify(string) error { return f.err }

type mockWorkflow struct {
	items      []pending.Update
	listErr    error
	decideErr  error
	lastID     uuid.UUID
	lastDec    review.Decision
	lastByName string
}

func (m *mockWorkflow) Pending(context.Context) ([]pending.Update, error) {
	return m.items, m.listErr
}

func (m *mockWorkflow) Decide(_ context.Context, id uuid.UUID, d review.Decision, reviewer string) (review.Outcome, error) {
	m.lastID, m.lastDec, m.lastByName = id, d, reviewer
	if m.decideErr != nil {
		return review.Outcome{}, m.decideErr
	}
	return review.Outcome{Update: pending.Update{ID: id}, Applied: d == review.Approve, Snapshot: 3}, nil
}

type mockTrigger struct{ err error }

func (m mockTrigger) Fire(_ context.Context, by string) (evolution.Job, error) {
	if m.err != nil {
		return evolution.Job{}, m.err
	}
	return evolution.Job{ID: uuid.New(), RequestedBy: by}, nil
}

func newAdmin(v PasswordVerifier, wf *mockWorkflow, tr EvolutionTrigger) *Admin {
	return NewAdminUsecase(v, jwt.NewHMACService("secret", time.Hour, "nextstep"), wf, tr, nil)
}

func TestAdmin_Login(t *testing.T) {
	uc := newAdmin(fakeVerifier{}, &mockWorkflow{}, mockTrigger{})
	res, err := uc.Login(context.Background(), "pw", "  ")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Reviewer != review.DefaultReviewer || res.Token == "" {
		t.Fatalf("unexpected login result: %+v", res)
	}
	claims, err := jwt.NewHMACService("secret", time.Hour, "nextstep").ValidateToken(res.Token)
	if err != nil || claims.Reviewer != review.DefaultReviewer {
		t.Fatalf("token does not validate: %v %+v", err, claims)
	}
}

func TestAdmin_LoginRejected(t *testing.T) {
	_, err := newAdmin(fakeVerifier{err: ucauth.ErrInvalidCredentials}, &mockWorkflow{}, mockTrigger{}).
		Login(context.Background(), "nope", "Dana")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	_, err = newAdmin(fakeVerifier{err: ucauth.ErrNotConfigured}, &mockWorkflow{}, mockTrigger{}).
		Login(context.Background(), "nope", "Dana")
	if !errors.Is(err, ErrAdminDisabled) {
		t.Fatalf("expected ErrAdminDisabled, got %v", err)
	}
}

func TestAdmin_ReviewMapsErrors(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name     string
		in       ReviewInput
		wfErr    error
		expected error
	}{
		{"bad decision", ReviewInput{UpdateID: id.String(), Decision: "maybe"}, nil, ErrInvalidInput},
		{"bad id", ReviewInput{UpdateID: "x", Decision: "approve"}, nil, ErrPendingUpdateNotFound},
		{"not found", ReviewInput{UpdateID: id.String(), Decision: "approve"}, review.ErrNotFound, ErrPendingUpdateNotFound},
		{"upstream", ReviewInput{UpdateID: id.String(), Decision: "approve"}, fmt.Errorf("reload: %w", ontology.ErrUpstream), ErrUpstream},
		{"other", ReviewInput{UpdateID: id.String(), Decision: "reject"}, errors.New("boom"), ErrInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := newAdmin(fakeVerifier{}, &mockWorkflow{decideErr: tc.wfErr}, mockTrigger{})
			_, err := uc.Review(context.Background(), tc.in)
			if !errors.Is(err, tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, err)
			}
		})
	}
}

func TestAdmin_ReviewPassesThrough(t *testing.T) {
	wf := &mockWorkflow{}
	uc := newAdmin(fakeVerifier{}, wf, mockTrigger{})
	id := uuid.New()

	out, err := uc.Review(context.Background(), ReviewInput{UpdateID: id.String(), Decision: "APPROVE", Reviewer: "Dana"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !out.Applied || wf.lastID != id || wf.lastDec != review.Approve || wf.lastByName != "Dana" {
		t.Fatalf("unexpected call: %+v %+v", out, wf)
	}
}

func TestAdmin_PendingUpdates(t *testing.T) {
	items := []pending.Update{{ID: uuid.New()}}
	got, err := newAdmin(fakeVerifier{}, &mockWorkflow{items: items}, mockTrigger{}).PendingUpdates(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected result: %v %v", got, err)
	}

	_, err = newAdmin(fakeVerifier{}, &mockWorkflow{listErr: errors.New("db down")}, mockTrigger{}).PendingUpdates(context.Background())
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestAdmin_TriggerEvolution(t *testing.T) {
	job, err := newAdmin(fakeVerifier{}, &mockWorkflow{}, mockTrigger{}).TriggerEvolution(context.Background(), "Dana")
	if err != nil || job.RequestedBy != "Dana" {
		t.Fatalf("unexpected result: %+v %v", job, err)
	}

	_, err = newAdmin(fakeVerifier{}, &mockWorkflow{}, mockTrigger{err: evolution.ErrRunInProgress}).TriggerEvolution(context.Background(), "Dana")
	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}

	_, err = newAdmin(fakeVerifier{}, &mockWorkflow{}, mockTrigger{err: errors.New("amqp closed")}).TriggerEvolution(context.Background(), "Dana")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
