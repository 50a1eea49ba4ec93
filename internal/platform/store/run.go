package store

import "context"

// RunInTenant opens a transaction with the tenant bound to the context so the
// begin hook scopes every statement to that tenant
func RunInTenant(ctx context.Context, tx TxRunner, tenantID string, fn func(ctx context.Context, q RowQuerier) error) error {
	scoped := WithTenant(ctx, tenantID)
	return tx.Tx(scoped, func(q RowQuerier) error { return fn(scoped, q) })
}

// RunAsSuperadmin opens a transaction that bypasses tenant RLS
func RunAsSuperadmin(ctx context.Context, tx TxRunner, fn func(ctx context.Context, q RowQuerier) error) error {
	scoped := WithSuperadmin(ctx)
	return tx.Tx(scoped, func(q RowQuerier) error { return fn(scoped, q) })
}
