package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"artdiff/internal/metrics"
	"artdiff/internal/model"
)

// Job asks for the difference of one comparison to be generated.
type Job struct {
	ComparisonID string
	RevisionA    string
	RevisionB    string
}

func (j Job) key() [2]string { return [2]string{j.RevisionA, j.RevisionB} }

// GenerateFunc performs a job.
type GenerateFunc func(ctx context.Context, comparisonID string) (*model.VisualComparison, error)

// Queue runs difference generation in the background. At most one job per
// ordered revision pair is queued or running at any time; enqueuing a pair
// that is already pending is a no-op.
type Queue struct {
	generate GenerateFunc
	events   *Events
	logger   *slog.Logger
	workers  int

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Job
	active  map[[2]string]bool
	closed  bool

	group *errgroup.Group
}

// NewQueue creates a queue. Start must be called before jobs are processed.
func NewQueue(workers int, generate GenerateFunc, events *Events, logger *slog.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		generate: generate,
		events:   events,
		logger:   logger,
		workers:  workers,
		active:   make(map[[2]string]bool),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start launches the workers. Cancelling ctx stops them once their current
// job finishes; pending jobs are then dropped.
func (q *Queue) Start(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	q.mu.Lock()
	q.group = g
	q.mu.Unlock()
	context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		q.cond.Broadcast()
	})
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			q.work(ctx)
			return nil
		})
	}
}

// Enqueue adds a job and reports whether it was accepted.
func (q *Queue) Enqueue(j Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.active[j.key()] {
		return false
	}
	q.active[j.key()] = true
	q.pending = append(q.pending, j)
	metrics.QueueDepth.Inc()
	q.cond.Signal()
	return true
}

// Len returns the number of jobs queued or running.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}

// Close stops accepting jobs, waits for the queued ones to finish and stops
// the workers. Jobs on a queue that was never started are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	g := q.group
	if g == nil {
		if n := q.dropPending(); n > 0 {
			q.logger.Warn("dropped jobs of a queue that was never started", "jobs", n)
		}
	}
	q.mu.Unlock()
	q.cond.Broadcast()
	if g != nil {
		_ = g.Wait()
	}
}

// dropPending forgets every job not yet running. q.mu must be held.
func (q *Queue) dropPending() int {
	n := len(q.pending)
	for _, j := range q.pending {
		delete(q.active, j.key())
		metrics.QueueDepth.Dec()
	}
	q.pending = nil
	return n
}

func (q *Queue) next(ctx context.Context) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}
	if ctx.Err() != nil {
		q.dropPending()
	}
	if len(q.pending) == 0 {
		return Job{}, false
	}
	j := q.pending[0]
	q.pending = q.pending[1:]
	return j, true
}

func (q *Queue) done(j Job) {
	q.mu.Lock()
	delete(q.active, j.key())
	q.mu.Unlock()
	metrics.QueueDepth.Dec()
}

func (q *Queue) work(ctx context.Context) {
	for {
		j, ok := q.next(ctx)
		if !ok {
			return
		}
		q.run(ctx, j)
		q.done(j)
	}
}

func (q *Queue) run(ctx context.Context, j Job) {
	c, err := q.generate(ctx, j.ComparisonID)
	switch {
	case errors.Is(err, model.ErrAlreadyGenerated):
		q.logger.Debug("difference already generated", "comparison", j.ComparisonID)
	case err != nil:
		q.logger.Error("difference generation failed", "comparison", j.ComparisonID, "error", err)
		if q.events != nil {
			q.events.Emit(EventGenerateFailed, GenerateFailure{ComparisonID: j.ComparisonID, Err: err})
		}
	default:
		if q.events != nil {
			q.events.Emit(EventDifferenceGenerated, c)
		}
	}
}
