package ledger

import (
	"context"
	"time"
)

// Store is the persistence contract used by Service.
//
// Mutating calls happen inside WithTx; the callback runs as a single
// atomic unit with respect to every other store operation. Service
// validates business rules before the first mutation, so a failing
// callback has not touched state unless the store itself rolls back.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	GetAccount(ctx context.Context, customerID string) (Account, error)
	GetOrCreateAccount(ctx context.Context, customerID string, now time.Time) (Account, error)
	CreditAccount(ctx context.Context, customerID string, amount Amount, now time.Time) (Account, error)
	DebitAccount(ctx context.Context, customerID string, amount Amount, now time.Time) (Account, error)
	AppendTransaction(ctx context.Context, input TransactionInput) (Transaction, error)
	ListTransactions(ctx context.Context, customerID string) ([]Transaction, error)
	CreateCustomer(ctx context.Context, input CustomerInput) (Customer, error)
	SumBalances(ctx context.Context) (Amount, error)
	Reset(ctx context.Context) error
}
