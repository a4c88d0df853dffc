// Package memstore implements ledger.Store on plain in-memory state.
// It is the primary store: the service is volatile by design and loses
// state on restart.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nimbusbank/ledger/pkg/ledger"
)

// Store guards all ledger state with a single RWMutex. WithTx holds the
// write lock for the whole callback, which makes every engine mutation a
// critical section: a transfer's debit and credit are never observable
// half-applied, and get-or-create cannot race into duplicate accounts.
type Store struct {
	mu    sync.RWMutex
	state storeState
}

type storeState struct {
	accounts     map[string]ledger.Account
	transactions []ledger.Transaction
	customers    []ledger.Customer
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		state: storeState{accounts: make(map[string]ledger.Account)},
	}
}

// WithTx serializes fn against every other store operation. There is no
// rollback: fn must validate before mutating, which the ledger service
// guarantees for business failures.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	return fn(ctx, &txView{state: &store.state})
}

func (store *Store) GetAccount(ctx context.Context, customerID string) (ledger.Account, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state.getAccount(customerID)
}

func (store *Store) GetOrCreateAccount(ctx context.Context, customerID string, now time.Time) (ledger.Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.state.getOrCreateAccount(customerID, now)
}

func (store *Store) CreditAccount(ctx context.Context, customerID string, amount ledger.Amount, now time.Time) (ledger.Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.state.creditAccount(customerID, amount, now)
}

func (store *Store) DebitAccount(ctx context.Context, customerID string, amount ledger.Amount, now time.Time) (ledger.Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.state.debitAccount(customerID, amount, now)
}

func (store *Store) AppendTransaction(ctx context.Context, input ledger.TransactionInput) (ledger.Transaction, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.state.appendTransaction(input)
}

func (store *Store) ListTransactions(ctx context.Context, customerID string) ([]ledger.Transaction, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state.listTransactions(customerID), nil
}

func (store *Store) CreateCustomer(ctx context.Context, input ledger.CustomerInput) (ledger.Customer, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.state.createCustomer(input)
}

func (store *Store) SumBalances(ctx context.Context) (ledger.Amount, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.state.sumBalances(), nil
}

// Reset clears every account, transaction, and customer. Exposed for
// test isolation.
func (store *Store) Reset(ctx context.Context) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.state = storeState{accounts: make(map[string]ledger.Account)}
	return nil
}

// txView is the view handed to WithTx callbacks. The caller already holds
// the write lock, so it operates on state directly.
type txView struct {
	state *storeState
}

func (view *txView) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	return fn(ctx, view)
}

func (view *txView) GetAccount(ctx context.Context, customerID string) (ledger.Account, error) {
	return view.state.getAccount(customerID)
}

func (view *txView) GetOrCreateAccount(ctx context.Context, customerID string, now time.Time) (ledger.Account, error) {
	return view.state.getOrCreateAccount(customerID, now)
}

func (view *txView) CreditAccount(ctx context.Context, customerID string, amount ledger.Amount, now time.Time) (ledger.Account, error) {
	return view.state.creditAccount(customerID, amount, now)
}

func (view *txView) DebitAccount(ctx context.Context, customerID string, amount ledger.Amount, now time.Time) (ledger.Account, error) {
	return view.state.debitAccount(customerID, amount, now)
}

func (view *txView) AppendTransaction(ctx context.Context, input ledger.TransactionInput) (ledger.Transaction, error) {
	return view.state.appendTransaction(input)
}

func (view *txView) ListTransactions(ctx context.Context, customerID string) ([]ledger.Transaction, error) {
	return view.state.listTransactions(customerID), nil
}

func (view *txView) CreateCustomer(ctx context.Context, input ledger.CustomerInput) (ledger.Customer, error) {
	return view.state.createCustomer(input)
}

func (view *txView) SumBalances(ctx context.Context) (ledger.Amount, error) {
	return view.state.sumBalances(), nil
}

func (view *txView) Reset(ctx context.Context) error {
	*view.state = storeState{accounts: make(map[string]ledger.Account)}
	return nil
}

func (state *storeState) getAccount(customerID string) (ledger.Account, error) {
	account, ok := state.accounts[customerID]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return account, nil
}

func (state *storeState) getOrCreateAccount(customerID string, now time.Time) (ledger.Account, error) {
	if account, ok := state.accounts[customerID]; ok {
		return account, nil
	}
	account := ledger.Account{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Balance:    ledger.ZeroAmount(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	state.accounts[customerID] = account
	return account, nil
}

func (state *storeState) creditAccount(customerID string, amount ledger.Amount, now time.Time) (ledger.Account, error) {
	account, ok := state.accounts[customerID]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	account.Balance = account.Balance.Add(amount)
	account.UpdatedAt = now
	state.accounts[customerID] = account
	return account, nil
}

func (state *storeState) debitAccount(customerID string, amount ledger.Amount, now time.Time) (ledger.Account, error) {
	account, ok := state.accounts[customerID]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	balance, err := account.Balance.Sub(amount)
	if err != nil {
		// Invariant guard only; the service checks sufficiency first.
		return ledger.Account{}, fmt.Errorf("debit %s: %w", customerID, err)
	}
	account.Balance = balance
	account.UpdatedAt = now
	state.accounts[customerID] = account
	return account, nil
}

func (state *storeState) appendTransaction(input ledger.TransactionInput) (ledger.Transaction, error) {
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	transaction := ledger.Transaction{
		ID:           uuid.NewString(),
		CustomerID:   input.CustomerID,
		Type:         input.Type,
		Amount:       input.Amount,
		Description:  input.Description,
		BalanceAfter: input.BalanceAfter,
		CreatedAt:    createdAt,
	}
	state.transactions = append(state.transactions, transaction)
	return transaction, nil
}

func (state *storeState) listTransactions(customerID string) []ledger.Transaction {
	snapshot := make([]ledger.Transaction, 0, len(state.transactions))
	for _, transaction := range state.transactions {
		if customerID != "" && transaction.CustomerID != customerID {
			continue
		}
		snapshot = append(snapshot, transaction)
	}
	return snapshot
}

func (state *storeState) createCustomer(input ledger.CustomerInput) (ledger.Customer, error) {
	customer := ledger.Customer{
		ID:        uuid.NewString(),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Amount:    input.Amount,
		CreatedAt: input.CreatedAt,
	}
	state.customers = append(state.customers, customer)
	return customer, nil
}

func (state *storeState) sumBalances() ledger.Amount {
	total := ledger.ZeroAmount()
	for _, account := range state.accounts {
		total = total.Add(account.Balance)
	}
	return total
}
