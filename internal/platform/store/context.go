package store

import "context"

// Tenant identity travels in the context. The begin hook in cmd turns it into
// the app.tenant_id GUC so RLS policies see it inside each transaction.

type (
	tenantKey     struct{}
	superadminKey struct{}
)

// WithTenant returns a context scoped to the given tenant
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantID returns the tenant on the context, if any. An empty tenant counts
// as absent
func TenantID(ctx context.Context) (string, bool) {
	s, _ := ctx.Value(tenantKey{}).(string)
	return s, s != ""
}

// WithSuperadmin marks the context to bypass tenant RLS
func WithSuperadmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, superadminKey{}, true)
}

// IsSuperadmin reports whether the context bypasses tenant RLS
func IsSuperadmin(ctx context.Context) bool {
	b, _ := ctx.Value(superadminKey{}).(bool)
	return b
}
