package services

import (
	"context"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
)

// Transactor runs fn atomically. The Postgres implementation binds a pgx
// transaction to the context handed to fn.
type Transactor interface {
	InTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type poolTransactor struct{}

// NewPoolTransactor uses the pool stored in the request context.
func NewPoolTransactor() Transactor {
	return poolTransactor{}
}

func (poolTransactor) InTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return composables.InTx(ctx, fn)
}

func inTx[T any](ctx context.Context, tx Transactor, fn func(txCtx context.Context) (T, error)) (T, error) {
	var out T
	err := tx.InTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}
