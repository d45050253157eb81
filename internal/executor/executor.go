package executor

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Waiter is anything whose completion can be awaited, typically a previous
// Job of the same builder.
type Waiter interface {
	Done() <-chan struct{}
}

type abortable interface {
	Abort()
}

// Stats counts job outcomes since the executor was created.
type Stats struct {
	Submitted int64
	Delivered int64
	Discarded int64
	Pending   int
}

// Executor is a bounded pool of query workers.
type Executor struct {
	semaphore chan struct{}
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]abortable
	wg      sync.WaitGroup

	submitted atomic.Int64
	delivered atomic.Int64
	discarded atomic.Int64
}

// New creates an executor running at most workers storage calls at a time.
// workers <= 0 means runtime.NumCPU().
func New(workers int, logger *slog.Logger) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		semaphore: make(chan struct{}, workers),
		logger:    logger,
		pending:   make(map[uuid.UUID]abortable),
	}
}

// Job is one submitted execution delivering a single value of type T.
type Job[T any] struct {
	id        uuid.UUID
	aborted   atomic.Bool
	delivered atomic.Bool
	value     T // set before done is closed
	out       chan T
	done      chan struct{}
}

func newJob[T any]() *Job[T] {
	return &Job[T]{
		id:   uuid.New(),
		out:  make(chan T, 1),
		done: make(chan struct{}),
	}
}

// Completed returns a job that is already finished and delivers nothing.
func Completed[T any]() *Job[T] {
	j := newJob[T]()
	close(j.done)
	return j
}

// ID returns the job's unique id.
func (j *Job[T]) ID() uuid.UUID { return j.id }

// Abort requests that the job's result be discarded.
func (j *Job[T]) Abort() { j.aborted.Store(true) }

// Aborted reports whether Abort was called.
func (j *Job[T]) Aborted() bool { return j.aborted.Load() }

// Delivered reports whether a value was sent on the job.
func (j *Job[T]) Delivered() bool { return j.delivered.Load() }

// Done is closed when the job has finished, whether or not it delivered.
func (j *Job[T]) Done() <-chan struct{} { return j.done }

// Results returns the delivery channel. It receives at most one value.
func (j *Job[T]) Results() <-chan T { return j.out }

// Wait blocks until the job finishes or ctx is done. The boolean is false when
// nothing was delivered. Wait does not consume Results and may be called
// any number of times.
func (j *Job[T]) Wait(ctx context.Context) (T, bool) {
	var zero T
	select {
	case <-j.done:
	case <-ctx.Done():
		return zero, false
	}
	if !j.delivered.Load() {
		return zero, false
	}
	return j.value, true
}

// Submit schedules fetch on the pool, after the Waiter (if any) is done, and
// delivers decode's result on the job. fetch performs the blocking storage
// call; decode runs only if the job was not aborted meanwhile.
func Submit[R, T any](e *Executor, ctx context.Context, after Waiter, fetch func(context.Context) R, decode func(R) T) *Job[T] {
	j := newJob[T]()
	e.track(j.id, j)
	e.submitted.Add(1)
	e.logger.Debug("job submitted", "job", j.id)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(j.done)
		defer e.forget(j.id)

		// Wait for the previous job of the same builder
		if after != nil {
			select {
			case <-after.Done():
			case <-ctx.Done():
				e.discard(j, "context done before start")
				return
			}
		}

		if j.Aborted() {
			e.discard(j, "aborted before start")
			return
		}

		select {
		case <-ctx.Done():
			e.discard(j, "context done before start")
			return
		case e.semaphore <- struct{}{}:
			// Acquire worker slot
		}
		raw := fetch(ctx)
		<-e.semaphore // Release worker slot

		if j.Aborted() {
			e.discard(j, "aborted after storage call")
			return
		}
		v := decode(raw)
		if j.Aborted() {
			e.discard(j, "aborted before delivery")
			return
		}

		j.value = v
		j.delivered.Store(true)
		j.out <- v
		e.delivered.Add(1)
	}()
	return j
}

// AbortAll flags every outstanding job.
func (e *Executor) AbortAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, j := range e.pending {
		j.Abort()
	}
}

// Wait blocks until every submitted job has finished.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Stats returns a snapshot of job counters.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	pending := len(e.pending)
	e.mu.Unlock()
	return Stats{
		Submitted: e.submitted.Load(),
		Delivered: e.delivered.Load(),
		Discarded: e.discarded.Load(),
		Pending:   pending,
	}
}

func (e *Executor) track(id uuid.UUID, j abortable) {
	e.mu.Lock()
	e.pending[id] = j
	e.mu.Unlock()
}

func (e *Executor) forget(id uuid.UUID) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

func (e *Executor) discard(j interface{ ID() uuid.UUID }, reason string) {
	e.discarded.Add(1)
	e.logger.Debug("job discarded", "job", j.ID(), "reason", reason)
}
