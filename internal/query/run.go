package query

import (
	"context"

	"github.com/dshills/servicecache/internal/decoder"
	"github.com/dshills/servicecache/internal/executor"
	"github.com/dshills/servicecache/pkg/types"
)

// Run submits the configured query. A builder without a query type has
// nothing to do and returns an already finished job that delivers nothing.
// A run issued while a previous one is outstanding starts after it.
func (b *Builder) Run(ctx context.Context) *executor.Job[decoder.Result] {
	b.mu.Lock()
	defer b.mu.Unlock()

	kind := b.kind
	if kind == types.KindNone {
		return executor.Completed[decoder.Result]()
	}

	text := b.render()
	asData := b.asData
	after := b.last

	fetch := func(ctx context.Context) []string {
		if text == "" {
			// Kinds without storage tables deliver a typed empty list
			return nil
		}
		rows, err := b.engine.Query(ctx, text)
		if err != nil {
			b.logger.Warn("collection query failed",
				"prefix", b.factory.Prefix(),
				"kind", kind,
				"error", err)
			return nil
		}
		return rows
	}
	decode := func(rows []string) decoder.Result {
		return b.decoder.Decode(kind, rows, asData)
	}

	// A nil *Job stored in the interface would not compare equal to nil
	var wait executor.Waiter
	if after != nil {
		wait = after
	}
	job := executor.Submit(b.executor, ctx, wait, fetch, decode)

	b.last = job
	b.jobs = append(b.pending(), job)
	b.state = Executing
	return job
}

// pending returns jobs that have not finished yet.
func (b *Builder) pending() []*executor.Job[decoder.Result] {
	out := b.jobs[:0]
	for _, j := range b.jobs {
		select {
		case <-j.Done():
		default:
			out = append(out, j)
		}
	}
	return out
}

// AbortQuery discards the results of every outstanding run. Storage calls
// already in progress finish but deliver nothing.
func (b *Builder) AbortQuery() *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, j := range b.pending() {
		j.Abort()
	}
	b.jobs = nil
	if b.state == Executing {
		b.state = Aborted
	}
	return b
}

// Collect runs the query and waits for its result. An aborted or empty run
// yields the typed empty result.
func (b *Builder) Collect(ctx context.Context) decoder.Result {
	b.mu.Lock()
	kind, asData := b.kind, b.asData
	b.mu.Unlock()

	res, ok := b.Run(ctx).Wait(ctx)
	if !ok {
		return decoder.Empty(kind, asData)
	}
	return res
}
