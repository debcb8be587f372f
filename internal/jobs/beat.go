package jobs

import (
	"context"
	"time"

	"github.com/gramsight/gramsight-backend/internal/clients/redisx"
	"github.com/gramsight/gramsight-backend/internal/logger"
)

// BeatEntry is one periodic sweep dispatch.
type BeatEntry struct {
	JobType  string
	Interval time.Duration
}

// Beat enqueues sweep jobs on fixed intervals. Each tick is guarded by a
// redis lease so only one process dispatches in a multi-process deployment.
type Beat struct {
	enqueuer Enqueuer
	redis    *redisx.Service
	log      *logger.Logger
	entries  []BeatEntry
}

func NewBeat(enqueuer Enqueuer, redis *redisx.Service, baseLog *logger.Logger, entries []BeatEntry) *Beat {
	return &Beat{
		enqueuer: enqueuer,
		redis:    redis,
		log:      baseLog.With("component", "JobBeat"),
		entries:  entries,
	}
}

func (b *Beat) Start(ctx context.Context) {
	for _, entry := range b.entries {
		go b.runEntry(ctx, entry)
	}
}

func (b *Beat) runEntry(ctx context.Context, entry BeatEntry) {
	ticker := time.NewTicker(entry.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.dispatch(ctx, entry)
		}
	}
}

func (b *Beat) dispatch(ctx context.Context, entry BeatEntry) {
	leaseTTL := entry.Interval / 2
	if leaseTTL > 5*time.Minute {
		leaseTTL = 5 * time.Minute
	}
	if b.redis != nil {
		ok, err := b.redis.AcquireLease(ctx, "beat:"+entry.JobType, leaseTTL)
		if err != nil {
			b.log.Warn("Beat lease check failed, dispatching anyway", "job_type", entry.JobType, "error", err)
		} else if !ok {
			return
		}
	}
	if _, err := b.enqueuer.Enqueue(ctx, nil, entry.JobType, "", nil); err != nil {
		b.log.Error("Failed to enqueue sweep job", "job_type", entry.JobType, "error", err)
		return
	}
	b.log.Debug("Sweep job enqueued", "job_type", entry.JobType)
}
