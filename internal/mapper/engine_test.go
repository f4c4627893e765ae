package mapper

import (
	"context"
	"errors"
	"testing"

	"github.com/dbsmedya/congregate/internal/logger"
	"github.com/dbsmedya/congregate/internal/store"
)

func newCountingEngine(st store.Store, reportEvery, commitEvery, total int, flushed *[][]int) *Checkpointer[int] {
	opts := CheckpointerOptions{
		Store:       st,
		Log:         logger.NewDefault(),
		Label:       "widgets",
		ReportEvery: reportEvery,
		CommitEvery: commitEvery,
		Total:       total,
	}
	return NewCheckpointer[int](opts, func(ctx context.Context, tx store.Tx, batch []int) error {
		committed := make([]int, len(batch))
		copy(committed, batch)
		*flushed = append(*flushed, committed)
		return nil
	}, nil)
}

func TestCheckpointer_ChunkedCommits(t *testing.T) {
	st := store.NewMemStore()
	var flushed [][]int
	engine := newCountingEngine(st, 5, 5, 12, &flushed)

	ctx := context.Background()
	for i := 0; i < 12; i++ {
		if err := engine.Add(ctx, i); err != nil {
			t.Fatalf("add %d failed: %v", i, err)
		}
	}
	if err := engine.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	// 12 entities with a checkpoint every 5: chunks of 5, 5 and 2.
	if len(flushed) != 3 {
		t.Fatalf("expected 3 commits, got %d", len(flushed))
	}
	sizes := []int{len(flushed[0]), len(flushed[1]), len(flushed[2])}
	if sizes[0] != 5 || sizes[1] != 5 || sizes[2] != 2 {
		t.Errorf("expected chunk sizes 5,5,2, got %v", sizes)
	}

	if st.CommitCalls != 3 {
		t.Errorf("expected 3 store commits, got %d", st.CommitCalls)
	}
	if st.ResetCalls != 3 {
		t.Errorf("expected session recycled after each checkpoint, got %d", st.ResetCalls)
	}
	if engine.Completed() != 12 {
		t.Errorf("expected 12 completed, got %d", engine.Completed())
	}
	if engine.Batches() != 3 {
		t.Errorf("expected 3 batches, got %d", engine.Batches())
	}
}

func TestCheckpointer_ExactMultipleLeavesNoTail(t *testing.T) {
	st := store.NewMemStore()
	var flushed [][]int
	engine := newCountingEngine(st, 5, 5, 10, &flushed)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := engine.Add(ctx, i); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	if err := engine.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	// No empty trailing commit when the count divides evenly.
	if len(flushed) != 2 {
		t.Errorf("expected 2 commits, got %d", len(flushed))
	}
}

func TestCheckpointer_FailedCommitRetainsBuffer(t *testing.T) {
	st := store.NewMemStore()
	var flushed [][]int
	engine := newCountingEngine(st, 5, 5, -1, &flushed)

	boom := errors.New("deadlock")
	st.FailNextCommit = boom

	ctx := context.Background()
	var addErr error
	for i := 0; i < 5; i++ {
		if addErr = engine.Add(ctx, i); addErr != nil {
			break
		}
	}
	if addErr == nil {
		t.Fatal("expected the fifth add to fail its checkpoint")
	}
	if !errors.Is(addErr, boom) {
		t.Errorf("expected commit error propagated, got %v", addErr)
	}

	// The buffer survives the failure: a later flush commits all 5.
	if err := engine.Flush(ctx); err != nil {
		t.Fatalf("retry flush failed: %v", err)
	}
	if len(flushed) != 1 || len(flushed[0]) != 5 {
		t.Fatalf("expected one commit of 5 retained entities, got %v", flushed)
	}
}

func TestCheckpointer_CancellationBetweenCheckpoints(t *testing.T) {
	st := store.NewMemStore()
	var flushed [][]int
	engine := newCountingEngine(st, 5, 5, -1, &flushed)

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 7; i++ {
		if err := engine.Add(ctx, i); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	cancel()

	err := engine.Add(ctx, 7)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The first checkpoint committed; the two uncommitted entities stay
	// buffered and nothing after the cancellation was flushed.
	if len(flushed) != 1 || len(flushed[0]) != 5 {
		t.Errorf("expected exactly the first chunk committed, got %v", flushed)
	}
}

func TestCheckpointer_ProgressCadence(t *testing.T) {
	st := store.NewMemStore()
	reporter := &recordingReporter{}
	opts := CheckpointerOptions{
		Store:       st,
		Reporter:    reporter,
		Label:       "widgets",
		ReportEvery: 2,
		CommitEvery: 10,
		Total:       8,
	}
	engine := NewCheckpointer[int](opts, func(ctx context.Context, tx store.Tx, batch []int) error {
		return nil
	}, nil)

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		if err := engine.Add(ctx, i); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	if err := engine.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	// Pings at 2, 4, 6, 8 plus the final flush report.
	if len(reporter.percents) != 5 {
		t.Fatalf("expected 5 reports, got %d: %v", len(reporter.percents), reporter.percents)
	}
	want := []int{25, 50, 75, 100, 100}
	for i, p := range reporter.percents {
		if p != want[i] {
			t.Errorf("report %d: expected %d%%, got %d%%", i, want[i], p)
		}
	}
}

func TestCheckpointer_UnknownTotalReportsIndeterminate(t *testing.T) {
	st := store.NewMemStore()
	reporter := &recordingReporter{}
	opts := CheckpointerOptions{
		Store:       st,
		Reporter:    reporter,
		Label:       "widgets",
		ReportEvery: 2,
		CommitEvery: 10,
		Total:       -1,
	}
	engine := NewCheckpointer[int](opts, func(ctx context.Context, tx store.Tx, batch []int) error {
		return nil
	}, nil)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := engine.Add(ctx, i); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	if len(reporter.percents) != 1 || reporter.percents[0] != -1 {
		t.Errorf("expected a single -1 report, got %v", reporter.percents)
	}
}

func TestCheckpointer_RegisterRunsAfterCommit(t *testing.T) {
	st := store.NewMemStore()
	var registered []int
	opts := CheckpointerOptions{
		Store:       st,
		Label:       "widgets",
		ReportEvery: 2,
		CommitEvery: 2,
	}
	engine := NewCheckpointer[int](opts, func(ctx context.Context, tx store.Tx, batch []int) error {
		return nil
	}, func(batch []int) {
		registered = append(registered, batch...)
	})

	ctx := context.Background()
	st.FailNextCommit = errors.New("boom")
	_ = engine.Add(ctx, 1)
	if err := engine.Add(ctx, 2); err == nil {
		t.Fatal("expected checkpoint failure")
	}
	if len(registered) != 0 {
		t.Fatal("register must not run for a rolled-back batch")
	}

	if err := engine.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if len(registered) != 2 {
		t.Errorf("expected both entities registered after commit, got %v", registered)
	}
}
