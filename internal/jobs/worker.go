package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/repos"
	"github.com/gramsight/gramsight-backend/internal/types"
)

// Enqueuer inserts job rows. Passing the caller's open transaction makes the
// job visible exactly when the caller's data commit does, so a chained stage
// never observes stale state.
type Enqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, jobType, entityID string, payload map[string]interface{}) (uuid.UUID, error)
}

type enqueuer struct {
	repo repos.JobRunRepo
	log  *logger.Logger
}

func NewEnqueuer(repo repos.JobRunRepo, baseLog *logger.Logger) Enqueuer {
	return &enqueuer{repo: repo, log: baseLog.With("component", "JobEnqueuer")}
}

func (e *enqueuer) Enqueue(ctx context.Context, tx *gorm.DB, jobType, entityID string, payload map[string]interface{}) (uuid.UUID, error) {
	job := &types.JobRun{
		JobType:   jobType,
		EntityID:  entityID,
		Status:    types.JobStatusQueued,
		NextRunAt: time.Now(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to encode job payload: %w", err)
		}
		job.Payload = datatypes.JSON(raw)
	}
	created, err := e.repo.Create(ctx, tx, []*types.JobRun{job})
	if err != nil {
		return uuid.Nil, err
	}
	return created[0].ID, nil
}

// Worker claims runnable job rows and executes registered handlers.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *Registry

	pollInterval      time.Duration
	heartbeatInterval time.Duration
	staleRunning      time.Duration
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *Registry) *Worker {
	return &Worker{
		db:                db,
		log:               baseLog.With("component", "JobWorker"),
		repo:              repo,
		registry:          registry,
		pollInterval:      1 * time.Second,
		heartbeatInterval: 15 * time.Second,
		staleRunning:      2 * time.Minute,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for {
					job, err := w.repo.ClaimNextRunnable(ctx, w.db, w.staleRunning)
					if err != nil {
						w.log.Warn("ClaimNextRunnable failed", "error", err)
						break
					}
					if job == nil {
						break
					}
					w.execute(ctx, job)
				}
			}
		}
	}()
}

func (w *Worker) execute(ctx context.Context, job *types.JobRun) {
	handler, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type", "job_type", job.JobType, "job_id", job.ID)
		w.finish(ctx, job, Fail("no handler registered for job_type="+job.JobType))
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(w.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := w.repo.Heartbeat(hbCtx, w.db, job.ID); err != nil {
					w.log.Warn("Heartbeat failed", "job_id", job.ID, "error", err)
				}
			}
		}
	}()

	result := w.runHandler(ctx, handler, job)
	stopHeartbeat()

	w.finish(ctx, job, result)
}

func (w *Worker) runHandler(ctx context.Context, handler Handler, job *types.JobRun) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
			result = Fail(fmt.Sprintf("panic: %v", r))
		}
	}()
	return handler.Run(ctx, job)
}

// finish persists the outcome. A failed envelope with a retryable error and
// attempts left is rescheduled with exponential backoff; everything else is
// terminal.
func (w *Worker) finish(ctx context.Context, job *types.JobRun, result Result) {
	result.Attempts = job.Attempts
	now := time.Now()

	if result.Success {
		err := w.repo.UpdateFields(ctx, w.db, job.ID, map[string]interface{}{
			"status":    types.JobStatusSucceeded,
			"result":    result.ToJSON(),
			"locked_at": nil,
		})
		if err != nil {
			w.log.Error("Failed to persist job success", "job_id", job.ID, "error", err)
		}
		return
	}

	priorRetries := job.Attempts - 1
	if Retryable(result.Error) && priorRetries < MaxRetries {
		delay := BackoffDelay(priorRetries)
		w.log.Warn("Retryable job failure, rescheduling",
			"job_id", job.ID,
			"job_type", job.JobType,
			"attempt", job.Attempts,
			"delay", delay.String(),
			"error", result.Error,
		)
		err := w.repo.UpdateFields(ctx, w.db, job.ID, map[string]interface{}{
			"status":      types.JobStatusRetrying,
			"next_run_at": now.Add(delay),
			"last_error":  result.Error,
			"result":      result.ToJSON(),
			"locked_at":   nil,
		})
		if err != nil {
			w.log.Error("Failed to reschedule job", "job_id", job.ID, "error", err)
		}
		return
	}

	w.log.Error("Job failed terminally",
		"job_id", job.ID,
		"job_type", job.JobType,
		"attempts", job.Attempts,
		"error", result.Error,
	)
	err := w.repo.UpdateFields(ctx, w.db, job.ID, map[string]interface{}{
		"status":     types.JobStatusFailed,
		"last_error": result.Error,
		"result":     result.ToJSON(),
		"locked_at":  nil,
	})
	if err != nil {
		w.log.Error("Failed to persist job failure", "job_id", job.ID, "error", err)
	}
}
