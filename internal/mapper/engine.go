// Package mapper transforms legacy rows into destination entities.
//
// Every concrete mapper is the same two-state loop: SCANNING pulls rows,
// builds pending entities and appends them to a bounded buffer; COMMITTING
// flushes the buffer in one store transaction, registers the assigned ids
// in the reference index and reports progress. The Checkpointer implements
// that shared loop; mappers supply only the per-row transform and the
// per-batch flush.
package mapper

import (
	"context"
	"fmt"

	"github.com/dbsmedya/congregate/internal/logger"
	"github.com/dbsmedya/congregate/internal/progress"
	"github.com/dbsmedya/congregate/internal/store"
)

// FlushFunc persists one buffered batch inside the given transaction.
// Any error rolls the whole transaction back.
type FlushFunc[T any] func(ctx context.Context, tx store.Tx, batch []T) error

// RegisterFunc records the ids assigned during a committed batch in the
// reference index. It runs after the transaction commits and before any
// later row is scanned, so rows referencing this batch resolve in memory.
type RegisterFunc[T any] func(batch []T)

// Checkpointer is the incremental-commit engine shared by all mappers.
//
// Add appends one pending entity; every ReportEvery additions a progress
// ping is emitted and every CommitEvery additions the buffer is committed.
// Flush commits whatever remains at end of stream. A failed commit keeps
// the buffer intact and propagates; prior checkpoints stay durable.
type Checkpointer[T any] struct {
	store    store.Store
	reporter progress.Reporter
	log      *logger.Logger

	label       string
	reportEvery int
	commitEvery int
	total       int // -1 when the source row count is unknown

	flush    FlushFunc[T]
	register RegisterFunc[T]

	buffer    []T
	completed int
	batches   int
}

// CheckpointerOptions configures a Checkpointer.
type CheckpointerOptions struct {
	Store    store.Store
	Reporter progress.Reporter
	Log      *logger.Logger

	// Label names the entity kind in progress messages ("people").
	Label string

	// ReportEvery is the reporting interval N; CommitEvery the checkpoint
	// interval M, conventionally 10N.
	ReportEvery int
	CommitEvery int

	// Total is the expected number of produced entities, -1 when unknown.
	Total int
}

// NewCheckpointer creates an engine with the given flush and register hooks.
func NewCheckpointer[T any](opts CheckpointerOptions, flush FlushFunc[T], register RegisterFunc[T]) *Checkpointer[T] {
	if opts.ReportEvery <= 0 {
		opts.ReportEvery = 100
	}
	if opts.CommitEvery <= 0 {
		opts.CommitEvery = opts.ReportEvery * 10
	}
	if opts.Reporter == nil {
		opts.Reporter = progress.Nop{}
	}
	if opts.Total == 0 {
		opts.Total = -1
	}

	return &Checkpointer[T]{
		store:       opts.Store,
		reporter:    opts.Reporter,
		log:         opts.Log,
		label:       opts.Label,
		reportEvery: opts.ReportEvery,
		commitEvery: opts.CommitEvery,
		total:       opts.Total,
		flush:       flush,
		register:    register,
	}
}

// Add buffers one pending entity. Cancellation is honoured at this row
// boundary: an already-cancelled context returns before buffering, leaving
// destination state at the last committed checkpoint.
func (c *Checkpointer[T]) Add(ctx context.Context, item T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.buffer = append(c.buffer, item)
	c.completed++

	if c.completed%c.reportEvery == 0 {
		c.report()
	}

	if c.completed%c.commitEvery == 0 {
		return c.checkpoint(ctx)
	}

	return nil
}

// Flush commits the remaining partial buffer at end of stream and emits a
// final progress report.
func (c *Checkpointer[T]) Flush(ctx context.Context) error {
	if len(c.buffer) > 0 {
		if err := c.checkpoint(ctx); err != nil {
			return err
		}
	}
	c.report()
	return nil
}

// checkpoint commits the current buffer in one transaction, registers the
// new ids, recycles the session and reports cumulative progress.
func (c *Checkpointer[T]) checkpoint(ctx context.Context) error {
	batch := c.buffer

	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		return c.flush(ctx, tx, batch)
	})
	if err != nil {
		// Buffer retained; the caller decides whether the run aborts.
		return fmt.Errorf("checkpoint %d of %s failed: %w", c.batches+1, c.label, err)
	}

	if c.register != nil {
		c.register(batch)
	}

	c.buffer = nil
	c.batches++

	if err := c.store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to recycle session after %s checkpoint: %w", c.label, err)
	}

	if c.log != nil {
		c.log.WithBatch(c.batches).Debugw("checkpoint committed",
			"entities", len(batch), "completed", c.completed)
	}

	return nil
}

// report emits one progress callback with the cumulative count.
func (c *Checkpointer[T]) report() {
	percent := -1
	if c.total > 0 {
		percent = c.completed * 100 / c.total
		if percent > 100 {
			percent = 100
		}
	}
	c.reporter.Report(percent, fmt.Sprintf("%s: %d imported", c.label, c.completed))
}

// Completed returns the count of entities produced so far.
func (c *Checkpointer[T]) Completed() int {
	return c.completed
}

// Batches returns the number of committed checkpoints.
func (c *Checkpointer[T]) Batches() int {
	return c.batches
}
