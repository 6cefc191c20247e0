// Package worker contains the background pipeline that turns a paid
// assessment into a finished blueprint and sends the delivery email. The
// api package holds a worker.Enqueuer and calls Enqueue; it never imports
// the concrete Runner or Job types.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ─── ENQUEUER INTERFACE ───────────────────────────────────────────────────────

// Enqueuer is the narrow interface the api package uses to hand off work
// after a payment is confirmed. In tests, any struct with an Enqueue method
// satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, assessmentID uuid.UUID) error
}

// Processor runs one assessment through the pipeline. *Job satisfies it.
type Processor interface {
	Run(ctx context.Context, assessmentID uuid.UUID) error
}

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. Zero fields take the
// values from DefaultRunnerConfig.
type RunnerConfig struct {
	// Workers is the number of concurrent job goroutines. Default: 3.
	Workers int

	// PollInterval is how often the poller checks ListPendingAssessments for
	// work the in-process channel missed, e.g. after a restart. Default: 30s.
	PollInterval time.Duration

	// JobTimeout is the per-attempt context deadline. Default: 5 minutes.
	// Set this longer than the slowest provider chain.
	JobTimeout time.Duration

	// MaxRetries is the number of attempts before the assessment is marked
	// as failed. Default: 3.
	MaxRetries int

	// RetryBackoff is the base of the exponential back-off between attempts.
	// Attempt n waits RetryBackoff<<n. Default: 1s.
	RetryBackoff time.Duration
}

// DefaultRunnerConfig returns production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:      3,
		PollInterval: 30 * time.Second,
		JobTimeout:   5 * time.Minute,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}
}

// ErrQueueFull is returned by Enqueue when the buffer is full. The poller
// picks the assessment up on its next cycle.
var ErrQueueFull = errors.New("worker: queue is full, assessment will be picked up by poller")

// Runner manages a pool of worker goroutines. It accepts jobs via an
// in-process channel (fast path, used for new payments) and also polls the
// database to pick up assessments that were in flight when the process last
// stopped (recovery path).
type Runner struct {
	job    Processor
	reader Reader
	store  Store
	cfg    RunnerConfig
	logger *slog.Logger

	queue chan uuid.UUID
	wg    sync.WaitGroup
}

// NewRunner constructs a Runner. Call Start to begin processing.
func NewRunner(
	job Processor,
	reader Reader,
	st Store,
	cfg RunnerConfig,
	logger *slog.Logger,
) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}

	return &Runner{
		job:    job,
		reader: reader,
		store:  st,
		cfg:    cfg,
		logger: logger,
		queue:  make(chan uuid.UUID, cfg.Workers*2),
	}
}

// Enqueue pushes an assessment onto the in-process channel. It never blocks
// the HTTP response: a full buffer returns ErrQueueFull.
func (r *Runner) Enqueue(_ context.Context, assessmentID uuid.UUID) error {
	select {
	case r.queue <- assessmentID:
		r.logger.Info("worker: enqueued assessment", "assessment_id", assessmentID)
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the worker pool and the poller. It blocks until ctx is
// cancelled and every goroutine has returned.
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "workers", r.cfg.Workers, "poll_interval", r.cfg.PollInterval)

	for i := range r.cfg.Workers {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.wg.Add(1)
	go r.poll(ctx)

	r.wg.Wait()
	r.logger.Info("worker: stopped")
}

func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)
	log.Debug("worker: goroutine started")

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker: goroutine stopping")
			return
		case assessmentID := <-r.queue:
			r.runWithRetry(ctx, assessmentID, log)
		}
	}
}

// poll checks ListPendingAssessments once at startup and then on every
// PollInterval tick.
func (r *Runner) poll(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	r.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.pollOnce(ctx)
		}
	}
}

func (r *Runner) pollOnce(ctx context.Context) {
	pending, err := r.reader.ListPendingAssessments(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("worker: poll failed", "error", err)
		}
		return
	}
	for _, a := range pending {
		select {
		case r.queue <- a.ID:
			r.logger.Debug("worker: poller enqueued assessment", "assessment_id", a.ID)
		default:
			// Queue full; next poll cycle.
		}
	}
}

// runWithRetry executes the job up to MaxRetries times, then marks the
// assessment failed so the poller stops picking it up.
func (r *Runner) runWithRetry(ctx context.Context, assessmentID uuid.UUID, log *slog.Logger) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
		lastErr = r.job.Run(jobCtx, assessmentID)
		cancel()

		if lastErr == nil {
			log.Info("worker: job completed", "assessment_id", assessmentID, "attempt", attempt)
			return
		}

		log.Warn("worker: job attempt failed",
			"assessment_id", assessmentID,
			"attempt", attempt,
			"max", r.cfg.MaxRetries,
			"error", lastErr,
		)

		if attempt < r.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.cfg.RetryBackoff << attempt):
			}
		}
	}

	log.Error("worker: job permanently failed", "assessment_id", assessmentID, "error", lastErr)
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := r.store.MarkBlueprintFailed(failCtx, assessmentID, lastErr.Error()); err != nil {
		log.Error("worker: failed to mark assessment as failed", "assessment_id", assessmentID, "error", err)
	}
}
