package repokit

import "context"

// BeginHook runs inside a transaction before the caller's function, with the
// tx-bound Queryer. Tenant scoping sets its session GUC through one of these.
type BeginHook func(ctx context.Context, q Queryer) error

// WithBeginHooks wraps inner so every Tx runs hooks first, in order.
// With no hooks the inner runner is returned unwrapped.
func WithBeginHooks(inner TxRunner, hooks ...BeginHook) TxRunner {
	if len(hooks) == 0 {
		return inner
	}
	return &hookedRunner{TxRunner: inner, hooks: hooks}
}

// hookedRunner embeds the inner runner so plain Exec/Query/QueryRow pass through
type hookedRunner struct {
	TxRunner
	hooks []BeginHook
}

func (h *hookedRunner) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return h.TxRunner.Tx(ctx, func(q Queryer) error {
		for _, hook := range h.hooks {
			if err := hook(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}
