// Package store narrows a composite store transaction to the repository
// interface each component declares.
package store

import (
	"context"
	"fmt"
)

// Beginner runs fn inside one transaction of concrete type Tx.
type Beginner[Tx any] interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
}

// View exposes a Beginner as a component Store over interface T.
type View[Tx any, T any] struct {
	base Beginner[Tx]
}

// For builds a View. Tx must implement T; a mismatch surfaces as an error
// on the first transaction.
func For[Tx any, T any](base Beginner[Tx]) View[Tx, T] {
	return View[Tx, T]{base: base}
}

// WithTx opens a transaction on the base store and hands fn the narrowed view.
func (v View[Tx, T]) WithTx(ctx context.Context, fn func(context.Context, T) error) error {
	return v.base.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		view, ok := any(tx).(T)
		if !ok {
			var want *T
			return fmt.Errorf("store: %T does not implement %T", tx, want)
		}
		return fn(ctx, view)
	})
}
