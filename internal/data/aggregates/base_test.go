package aggregates

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/domain/live"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
)

// flakyRunner fails the first `failures` transactions with err and runs the
// rest on the real database.
type flakyRunner struct {
	mu       sync.Mutex
	next     TxRunner
	failures int
	err      error
	calls    int
}

func (r *flakyRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.calls++
	fail := r.calls <= r.failures
	r.mu.Unlock()
	if fail {
		return r.err
	}
	return r.next.InTx(ctx, fn)
}

func seedBlock(t *testing.T, f *fixture) (lessonID, blockID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	o := testutil.SeedOrganization(t, ctx, f.db)
	c := testutil.SeedCourse(t, ctx, f.db, o.ID)
	l := testutil.SeedLesson(t, ctx, f.db, c.ID)
	b := testutil.SeedBlock(t, ctx, f.db, l.ID, 1, 1)
	return l.ID, b.ID
}

func TestRecordRetriesBusyDatabase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lessonID, blockID := seedBlock(t, f)
	runner := &flakyRunner{next: GormTx(f.db), failures: 1, err: errors.New("database is locked")}
	f.base.Runner = runner
	agg := newInteractionAggregate(f)

	user := uuid.New()
	if _, err := agg.Record(ctx, domainagg.RecordInteractionInput{UserID: user, LessonID: lessonID, BlockID: blockID, IsComplete: true}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if runner.calls != 2 {
		t.Fatalf("transactions: want 2 got=%d", runner.calls)
	}
	if len(f.hooks.Retries) != 1 || f.hooks.Retries[0] != "interaction.record" {
		t.Fatalf("retries: %+v", f.hooks.Retries)
	}
	if len(f.hooks.Operations) != 1 || f.hooks.Operations[0].Status != "success" {
		t.Fatalf("operations: %+v", f.hooks.Operations)
	}
	row, err := f.interactions.GetByUserAndBlock(dbctx.Context{Ctx: ctx}, user, blockID)
	if err != nil || row == nil || row.AttemptCount != 1 {
		t.Fatalf("row after retry: %+v err=%v", row, err)
	}
}

func TestRecordStopsAfterContractAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lessonID, blockID := seedBlock(t, f)
	runner := &flakyRunner{next: GormTx(f.db), failures: 100, err: errors.New("serialization failure")}
	f.base.Runner = runner
	agg := newInteractionAggregate(f)

	_, err := agg.Record(ctx, domainagg.RecordInteractionInput{UserID: uuid.New(), LessonID: lessonID, BlockID: blockID, IsComplete: true})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("want retryable got=%v", err)
	}
	attempts := domainagg.InteractionAggregateContract.MaxAttempts
	if runner.calls != attempts {
		t.Fatalf("transactions: want %d got=%d", attempts, runner.calls)
	}
	if len(f.hooks.Retries) != attempts-1 {
		t.Fatalf("retries: want %d got=%+v", attempts-1, f.hooks.Retries)
	}
	if got := f.hooks.Operations[len(f.hooks.Operations)-1].Status; got != string(domainagg.CodeRetryable) {
		t.Fatalf("final status: got=%s", got)
	}
}

func TestRecordDoesNotRetryCanceledContext(t *testing.T) {
	f := newFixture(t)
	lessonID, blockID := seedBlock(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := &flakyRunner{next: GormTx(f.db), failures: 100, err: context.Canceled}
	f.base.Runner = runner
	agg := newInteractionAggregate(f)

	_, err := agg.Record(ctx, domainagg.RecordInteractionInput{UserID: uuid.New(), LessonID: lessonID, BlockID: blockID})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("want retryable got=%v", err)
	}
	if runner.calls != 1 || len(f.hooks.Retries) != 0 {
		t.Fatalf("canceled write retried: calls=%d retries=%v", runner.calls, f.hooks.Retries)
	}
}

func TestRecordRollsBackWhenCommitFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lessonID, blockID := seedBlock(t, f)
	inner := GormTx(f.db)
	f.base.Runner = TxRunnerFunc(func(ctx context.Context, fn func(dbc dbctx.Context) error) error {
		return inner.InTx(ctx, func(dbc dbctx.Context) error {
			if err := fn(dbc); err != nil {
				return err
			}
			return errors.New("commit refused")
		})
	})
	agg := newInteractionAggregate(f)

	user := uuid.New()
	_, err := agg.Record(ctx, domainagg.RecordInteractionInput{UserID: user, LessonID: lessonID, BlockID: blockID, IsComplete: true})
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("want internal got=%v", err)
	}
	row, err := f.interactions.GetByUserAndBlock(dbctx.Context{Ctx: ctx}, user, blockID)
	if err != nil {
		t.Fatalf("GetByUserAndBlock: %v", err)
	}
	if row != nil {
		t.Fatalf("rolled back write left a row: %+v", row)
	}
}

func TestCommitStateConflictIsNotRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := testutil.SeedOrganization(t, ctx, f.db)
	s := testutil.SeedLiveSession(t, ctx, f.db, o.ID, uuid.New(), live.StatusWaiting)
	runner := &flakyRunner{next: GormTx(f.db)}
	f.base.Runner = runner
	agg := newLiveSessionAggregate(f)

	in := startInput(s)
	in.ExpectedVersion = s.Version + 5
	if _, err := agg.CommitState(ctx, in); !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict got=%v", err)
	}
	if runner.calls != 1 || len(f.hooks.Retries) != 0 {
		t.Fatalf("conflict retried: calls=%d retries=%v", runner.calls, f.hooks.Retries)
	}
	if len(f.hooks.Conflicts) != 1 {
		t.Fatalf("conflicts: %+v", f.hooks.Conflicts)
	}
}

func TestExecuteWriteRequiresOwnedTransaction(t *testing.T) {
	f := newFixture(t)
	called := false
	err := executeWrite(context.Background(), f.base, domainagg.Contract{Name: "Learning.Detached"}, "detached.write",
		func(dbctx.Context) error {
			called = true
			return nil
		})
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("want internal got=%v", err)
	}
	if called {
		t.Fatalf("write ran without an owned transaction")
	}
}

func TestAggregateContracts(t *testing.T) {
	f := newFixture(t)
	aggs := []domainagg.Aggregate{
		newInteractionAggregate(f),
		newLiveSessionAggregate(f),
		NewLessonBlocksAggregate(LessonBlocksAggregateDeps{Base: f.base, Lessons: f.lessons, Blocks: f.blocks, Interactions: f.interactions}),
	}
	for _, a := range aggs {
		c := a.Contract()
		if !c.RequiresAggregateOwnedTx() || c.Attempts() < 1 || c.Name == "" {
			t.Fatalf("contract %+v", c)
		}
	}
	if (domainagg.Contract{}).Attempts() != 1 {
		t.Fatalf("zero contract must run once")
	}
}

func TestAggregateErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{InvariantError("x"), string(domainagg.CodeInvariantViolation)},
		{ConflictError("x"), string(domainagg.CodeConflict)},
		{RetryableError("x"), string(domainagg.CodeRetryable)},
		{context.DeadlineExceeded, string(domainagg.CodeRetryable)},
	}
	for _, tc := range cases {
		if got := aggregateErrorStatus(tc.err); got != tc.want {
			t.Fatalf("status(%v): want=%s got=%s", tc.err, tc.want, got)
		}
	}
}

type spyHooks struct {
	mu         sync.Mutex
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

type spyOperation struct {
	Name   string
	Status string
	Took   time.Duration
}

func (h *spyHooks) ObserveOperation(name, status string, took time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status, Took: took})
}

func (h *spyHooks) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *spyHooks) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, name)
}
