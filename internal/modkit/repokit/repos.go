// Package repokit holds the shared surface SQL repos are written against
package repokit

import "aggbridge/internal/platform/store"

// Queryer is the read and write surface a bound repo sees. Inside a
// transaction it is the tx, outside it is the pool
type Queryer = store.RowQuerier

type (
	// TxRunner runs functions inside a transaction
	TxRunner = store.TxRunner

	// Rows is a result set
	Rows = store.Rows

	// Row is a single scanned row
	Row = store.Row

	// CommandTag reports rows affected
	CommandTag = store.CommandTag
)

// Binder builds a domain repo bound to a transaction runner. Repos run
// every operation through Tx so begin hooks fire before any statement
type Binder[T any] interface {
	Bind(TxRunner) T
}

// BindFunc adapts a function to Binder
type BindFunc[T any] func(TxRunner) T

func (f BindFunc[T]) Bind(r TxRunner) T { return f(r) }
