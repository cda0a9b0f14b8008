package evolution

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job is a request for one evolution run, carried over the work queue.
type Job struct {
	ID          uuid.UUID `json:"id"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

type JobPublisher interface {
	Publish(ctx context.Context, job Job) error
}

// Trigger starts evolution runs on demand without blocking the caller. With a
// publisher the run is queued for a worker; otherwise it runs in-process.
type Trigger struct {
	runner    Runner
	publisher JobPublisher
	logger    *zap.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

func NewTrigger(r Runner, publisher JobPublisher, logger *zap.Logger) *Trigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{runner: r, publisher: publisher, logger: logger}
}

// Fire requests a run and returns the job describing it. An in-process run
// already underway yields ErrRunInProgress.
func (t *Trigger) Fire(ctx context.Context, requestedBy string) (Job, error) {
	job := Job{ID: uuid.New(), RequestedBy: requestedBy, RequestedAt: time.Now().UTC()}

	if t.publisher != nil {
		if err := t.publisher.Publish(ctx, job); err != nil {
			return Job{}, fmt.Errorf("enqueue evolution job: %w", err)
		}
		t.logger.Info("evolution job enqueued", zap.String("job_id", job.ID.String()), zap.String("requested_by", requestedBy))
		return job, nil
	}

	if !t.running.CompareAndSwap(false, true) {
		return Job{}, ErrRunInProgress
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.running.Store(false)
		t.Handle(context.WithoutCancel(ctx), job)
	}()
	return job, nil
}

// Handle runs job synchronously. It is the queue consumer's handler as well.
func (t *Trigger) Handle(ctx context.Context, job Job) error {
	log := t.logger.With(zap.String("job_id", job.ID.String()), zap.String("requested_by", job.RequestedBy))
	log.Info("evolution job started")
	report, err := t.runner.Run(ctx)
	if err != nil {
		log.Error("evolution job failed", zap.Error(err))
		return err
	}
	log.Info("evolution job completed",
		zap.Strings("proposed_skills", report.ProposedSkills),
		zap.Strings("proposed_roles", report.ProposedRoles),
		zap.Strings("flagged", report.Flagged),
	)
	return nil
}

// Wait blocks until in-process runs started by Fire have returned.
func (t *Trigger) Wait() {
	t.wg.Wait()
}
