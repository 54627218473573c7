package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is the unit of work a [Scheduler] runs on each tick.
type Job func(ctx context.Context) error

// RunResult holds the outcome of one scheduled run.
type RunResult struct {
	// RunID uniquely identifies the run in logs.
	RunID string

	// StartedAt is when the job was invoked.
	StartedAt time.Time

	// Duration is how long the job took.
	Duration time.Duration

	// Error is the job's error, or a recovered panic.
	Error error
}

// Scheduler runs a single [Job] immediately and then once per interval.
//
// Runs never overlap: a tick that fires while a run is in progress is
// dropped by the underlying ticker. Results are emitted to a buffered
// channel; if nobody reads them the oldest unread results are dropped
// rather than blocking the schedule.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	job      Job
	interval time.Duration
	results  chan RunResult
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// resultsBuffer bounds how many unread results a Scheduler keeps.
const resultsBuffer = 16

// NewScheduler creates a new [Scheduler] for job.
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler(job Job, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		job:      job,
		interval: interval,
		results:  make(chan RunResult, resultsBuffer),
		logger:   logger,
	}
}

// Results returns a receive-only channel that emits one [RunResult] per run.
//
// The channel is closed when the scheduler stops.
func (s *Scheduler) Results() <-chan RunResult {
	return s.results
}

// Start begins the run loop in a background goroutine.
//
// The job runs immediately, then every interval until [Scheduler.Stop] is
// called or ctx is cancelled. Start is idempotent. If Stop was called
// before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx // capture under lock to avoid race

	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })

		s.runOnce(runCtx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.runOnce(runCtx)
			}
		}
	}()
}

// Stop halts the scheduler and waits for an in-flight run to complete.
//
// Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// runOnce invokes the job and publishes its result.
func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	result := RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	result.Error = s.safeRun(ctx, result.RunID)
	result.Duration = time.Since(result.StartedAt)

	s.publish(result)
}

// publish sends a result without blocking, evicting the oldest unread
// result when the buffer is full.
func (s *Scheduler) publish(result RunResult) {
	for {
		select {
		case s.results <- result:
			return
		default:
		}
		select {
		case <-s.results:
		default:
		}
	}
}

// safeRun calls the job with panic recovery.
// A panic is logged with its stack trace and returned as an error carrying
// the run ID so the log entry can be found.
func (s *Scheduler) safeRun(ctx context.Context, runID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled job panic",
				"run_id", runID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("job panic (run_id: %s)", runID)
		}
	}()
	return s.job(ctx)
}
