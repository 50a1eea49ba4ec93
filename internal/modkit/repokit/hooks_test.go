package repokit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"aggbridge/internal/platform/store"
)

// hookRunner records Tx and pass-through calls for the hook tests
type hookRunner struct {
	q       Queryer
	txCalls int
	seen    []string
}

func (r *hookRunner) Tx(_ context.Context, fn func(q Queryer) error) error {
	r.txCalls++
	return fn(r.q)
}

func (r *hookRunner) Exec(_ context.Context, sql string, _ ...any) (store.CommandTag, error) {
	r.seen = append(r.seen, "exec:"+sql)
	return nil, nil
}

func (r *hookRunner) Query(_ context.Context, sql string, _ ...any) (store.Rows, error) {
	r.seen = append(r.seen, "query:"+sql)
	return nil, nil
}

func (r *hookRunner) QueryRow(_ context.Context, sql string, _ ...any) store.Row {
	r.seen = append(r.seen, "row:"+sql)
	return nil
}

// hookQueryer only needs identity for these tests
type hookQueryer struct{ hookRunner }

func TestWithBeginHooks_OrderAndSameQueryer(t *testing.T) {
	t.Parallel()

	q := &hookQueryer{}
	inner := &hookRunner{q: q}

	var order []string
	record := func(name string) BeginHook {
		return func(_ context.Context, got Queryer) error {
			if got != Queryer(q) {
				t.Fatalf("%s saw a different Queryer", name)
			}
			order = append(order, name)
			return nil
		}
	}

	r := WithBeginHooks(inner, record("tenant"), record("audit"))
	err := r.Tx(context.Background(), func(got Queryer) error {
		if got != Queryer(q) {
			t.Fatal("fn saw a different Queryer")
		}
		order = append(order, "fn")
		return nil
	})
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if want := "tenant,audit,fn"; strings.Join(order, ",") != want {
		t.Fatalf("order = %v, want %s", order, want)
	}
	if inner.txCalls != 1 {
		t.Fatalf("inner Tx called %d times", inner.txCalls)
	}
}

func TestWithBeginHooks_HookFailureAbortsTx(t *testing.T) {
	t.Parallel()

	inner := &hookRunner{q: &hookQueryer{}}
	boom := errors.New("set_config failed")

	r := WithBeginHooks(inner,
		func(context.Context, Queryer) error { return boom },
		func(context.Context, Queryer) error {
			t.Fatal("hook after a failed hook must not run")
			return nil
		},
	)

	ran := false
	err := r.Tx(context.Background(), func(Queryer) error { ran = true; return nil })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if ran {
		t.Fatal("fn ran despite hook failure")
	}
}

func TestWithBeginHooks_NoHooksReturnsInner(t *testing.T) {
	t.Parallel()

	inner := &hookRunner{q: &hookQueryer{}}
	if got := WithBeginHooks(inner); got != TxRunner(inner) {
		t.Fatalf("zero hooks should not wrap, got %T", got)
	}
}

func TestWithBeginHooks_NonTxCallsPassThrough(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &hookRunner{q: &hookQueryer{}}
	r := WithBeginHooks(inner, func(context.Context, Queryer) error { return nil })

	if _, err := r.Exec(ctx, "update issues set status = $1", "Done"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if _, err := r.Query(ctx, "select key from issues"); err != nil {
		t.Fatalf("Query: %v", err)
	}
	_ = r.QueryRow(ctx, "select 1")

	want := []string{
		"exec:update issues set status = $1",
		"query:select key from issues",
		"row:select 1",
	}
	if strings.Join(inner.seen, "|") != strings.Join(want, "|") {
		t.Fatalf("pass-through calls = %v", inner.seen)
	}
}
