package repo

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"aggbridge/internal/core/sprintmap"
	"aggbridge/internal/modkit/repokit"
	"aggbridge/internal/platform/store"
	"aggbridge/internal/services/jiraagg/domain"
)

// recRunner records every statement and transaction begin in order
type recRunner struct {
	seen []string
	txs  int
}

func verb(sql string) string {
	return strings.ToLower(strings.Fields(sql)[0])
}

func (r *recRunner) Exec(_ context.Context, sql string, _ ...any) (repokit.CommandTag, error) {
	r.seen = append(r.seen, "exec:"+verb(sql))
	return recTag{}, nil
}

func (r *recRunner) Query(_ context.Context, sql string, _ ...any) (repokit.Rows, error) {
	r.seen = append(r.seen, "query:"+verb(sql))
	return &emptyRows{}, nil
}

func (r *recRunner) QueryRow(_ context.Context, sql string, _ ...any) repokit.Row {
	r.seen = append(r.seen, "row:"+verb(sql))
	return noRow{}
}

func (r *recRunner) Tx(_ context.Context, fn func(repokit.Queryer) error) error {
	r.txs++
	r.seen = append(r.seen, "begin")
	return fn(r)
}

type recTag struct{}

func (recTag) String() string      { return "OK 0" }
func (recTag) RowsAffected() int64 { return 0 }

type emptyRows struct{}

func (*emptyRows) Next() bool        { return false }
func (*emptyRows) Scan(...any) error { return nil }
func (*emptyRows) Err() error        { return nil }
func (*emptyRows) Close()            {}
func (*emptyRows) Columns() []string { return nil }

type noRow struct{}

func (noRow) Scan(...any) error { return pgx.ErrNoRows }

// tenantGUC mirrors the production begin hook: it reads the tenant off the
// context and issues the set_config statement on the tx queryer
func tenantGUC(t *testing.T) repokit.BeginHook {
	return func(ctx context.Context, q repokit.Queryer) error {
		id, ok := store.TenantID(ctx)
		if !ok {
			t.Fatal("tenant missing from hook context")
		}
		_, err := q.Exec(ctx, `select set_config('app.tenant_id', $1, true)`, id)
		return err
	}
}

func TestWritesRunInTxWithTenantHookFirst(t *testing.T) {
	t.Parallel()

	rec := &recRunner{}
	st := NewPG().Bind(repokit.WithBeginHooks(rec, tenantGUC(t)))
	ctx := store.WithTenant(context.Background(), "acme")

	err := st.ReplaceLinks(ctx, "int-1", "PROJ-1", []domain.IssueLink{
		{FromKey: "PROJ-1", ToKey: "PROJ-2", Relation: "blocks"},
	})
	if err != nil {
		t.Fatalf("replace links: %v", err)
	}

	if rec.txs != 1 {
		t.Fatalf("txs = %d, want 1 (writes must not hit the pool directly)", rec.txs)
	}
	want := []string{"begin", "exec:select", "exec:delete", "exec:insert"}
	if len(rec.seen) != len(want) {
		t.Fatalf("seen = %v, want %v", rec.seen, want)
	}
	for i := range want {
		if rec.seen[i] != want[i] {
			t.Fatalf("step %d = %q, want %q (full: %v)", i, rec.seen[i], want[i], rec.seen)
		}
	}
}

func TestReadsRunInTxWithTenantHookFirst(t *testing.T) {
	t.Parallel()

	rec := &recRunner{}
	st := NewPG().Bind(repokit.WithBeginHooks(rec, tenantGUC(t)))
	ctx := store.WithTenant(context.Background(), "acme")

	_, found, err := st.GetIssue(ctx, "int-1", "PROJ-9", 0)
	if err != nil {
		t.Fatalf("get issue: %v", err)
	}
	if found {
		t.Fatal("no rows must read as not found")
	}
	if rec.txs != 1 {
		t.Fatalf("txs = %d, want 1", rec.txs)
	}
	if rec.seen[0] != "begin" || rec.seen[1] != "exec:select" {
		t.Fatalf("hook must run before the query, got %v", rec.seen)
	}
}

func TestHookFailureAbortsOperation(t *testing.T) {
	t.Parallel()

	rec := &recRunner{}
	deny := func(ctx context.Context, q repokit.Queryer) error {
		if _, ok := store.TenantID(ctx); !ok {
			return context.Canceled
		}
		return nil
	}
	st := NewPG().Bind(repokit.WithBeginHooks(rec, deny))

	// no tenant on the context: the hook fails and no statement runs
	err := st.UpsertMapping(context.Background(), "int-1", "PROJ-1",
		sprintmap.Mapping{SprintID: "s-1"})
	if err == nil {
		t.Fatal("expected hook failure to surface")
	}
	for _, s := range rec.seen {
		if strings.HasPrefix(s, "exec:insert") {
			t.Fatalf("statement ran despite hook failure: %v", rec.seen)
		}
	}
}
