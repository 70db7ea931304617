// Package scheduler serializes all outbound market data requests through
// a single FIFO queue. At most one request is in flight at any instant,
// and the start of each dispatched request is separated from the
// completion of the previous one by a configurable courtesy delay, so the
// upstream provider's rate limits are respected regardless of how many
// callers are waiting.
package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"portfolio_tracker/pkg/metrics"
)

// ErrClosed is returned by Do after Close has been called.
var ErrClosed = errors.New("scheduler: closed")

// job is one deferred unit of work. Each job reports back on its own
// result channel, so a failure in one queued item never aborts the queue
// or any other caller.
type job struct {
	kind   string
	run    func(ctx context.Context) error
	result chan error
}

// Scheduler owns the request queue and the single dispatch worker.
type Scheduler struct {
	logger     *zap.Logger
	jobs       chan job
	quit       chan struct{}
	done       chan struct{}
	minDelay   time.Duration
	jobTimeout time.Duration
}

// New creates a Scheduler and starts its dispatch worker.
//
// minDelay is the courtesy delay between the completion of one dispatched
// request and the start of the next. jobTimeout bounds each dispatched
// request so a hung upstream call fails that caller open and the queue
// advances instead of stalling forever.
func New(minDelay, jobTimeout time.Duration, queueSize int, logger *zap.Logger) *Scheduler {
	if queueSize <= 0 {
		queueSize = 64
	}
	s := &Scheduler{
		logger:     logger.Named("Scheduler"),
		jobs:       make(chan job, queueSize),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		minDelay:   minDelay,
		jobTimeout: jobTimeout,
	}
	go s.run()
	return s
}

// Do places fn on the queue and waits for its result. The caller's
// context governs only the enqueue and the wait: once dispatched, fn runs
// to completion (or its own timeout) even if the caller has walked away,
// so a successful fetch still lands in the cache.
func (s *Scheduler) Do(ctx context.Context, kind string, fn func(ctx context.Context) error) error {
	j := job{kind: kind, run: fn, result: make(chan error, 1)}

	select {
	case s.jobs <- j:
		metrics.SchedulerQueueDepth.Inc()
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.result:
		return err
	case <-s.done:
		// The worker has exited; the job may have been enqueued after
		// the final drain and will never be picked up.
		select {
		case err := <-j.result:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		// The job still runs; the result is simply discarded.
		return ctx.Err()
	}
}

// Close stops the worker. Jobs still queued are failed with ErrClosed.
func (s *Scheduler) Close() {
	close(s.quit)
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			s.drain()
			return
		case j := <-s.jobs:
			metrics.SchedulerQueueDepth.Dec()
			s.dispatch(j)
			if !s.pause() {
				s.drain()
				return
			}
		}
	}
}

// dispatch runs one job with a detached, time-bounded context and
// delivers its result to the waiting caller.
func (s *Scheduler) dispatch(j job) {
	ctx := context.Background()
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	started := time.Now()
	err := j.run(ctx)
	elapsed := time.Since(started)

	metrics.UpstreamRequestDuration.WithLabelValues(j.kind).Observe(elapsed.Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(j.kind, "error").Inc()
		s.logger.Warn("Dispatched request failed",
			zap.String("kind", j.kind),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	} else {
		metrics.UpstreamRequestsTotal.WithLabelValues(j.kind, "ok").Inc()
		s.logger.Debug("Dispatched request completed",
			zap.String("kind", j.kind),
			zap.Duration("elapsed", elapsed))
	}

	j.result <- err
}

// pause waits out the courtesy delay, anchored at the completion of the
// previous request. Returns false if the scheduler was closed meanwhile.
func (s *Scheduler) pause() bool {
	if s.minDelay <= 0 {
		return true
	}
	t := time.NewTimer(s.minDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.quit:
		return false
	}
}

// drain fails every still-queued job so no caller blocks forever.
func (s *Scheduler) drain() {
	for {
		select {
		case j := <-s.jobs:
			metrics.SchedulerQueueDepth.Dec()
			j.result <- ErrClosed
		default:
			return
		}
	}
}
