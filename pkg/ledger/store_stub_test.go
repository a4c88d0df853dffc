package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// stubStore is a deterministic in-memory Store for service tests.
// Sequential ids and an injectable failure per method keep assertions
// stable without a real store implementation.
type stubStore struct {
	accounts     map[string]Account
	transactions []Transaction
	customers    []Customer
	nextID       int

	withTxError         error
	getAccountError     error
	getOrCreateError    error
	creditError         error
	debitError          error
	appendError         error
	listError           error
	createCustomerError error
	sumError            error
}

func newStubStore() *stubStore {
	return &stubStore{accounts: make(map[string]Account)}
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	if store.withTxError != nil {
		return store.withTxError
	}
	return fn(ctx, store)
}

func (store *stubStore) GetAccount(_ context.Context, customerID string) (Account, error) {
	if store.getAccountError != nil {
		return Account{}, store.getAccountError
	}
	account, ok := store.accounts[customerID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (store *stubStore) GetOrCreateAccount(_ context.Context, customerID string, now time.Time) (Account, error) {
	if store.getOrCreateError != nil {
		return Account{}, store.getOrCreateError
	}
	if account, ok := store.accounts[customerID]; ok {
		return account, nil
	}
	store.nextID++
	account := Account{
		ID:         fmt.Sprintf("acct-%d", store.nextID),
		CustomerID: customerID,
		Balance:    ZeroAmount(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	store.accounts[customerID] = account
	return account, nil
}

func (store *stubStore) CreditAccount(_ context.Context, customerID string, amount Amount, now time.Time) (Account, error) {
	if store.creditError != nil {
		return Account{}, store.creditError
	}
	account, ok := store.accounts[customerID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	account.Balance = account.Balance.Add(amount)
	account.UpdatedAt = now
	store.accounts[customerID] = account
	return account, nil
}

func (store *stubStore) DebitAccount(_ context.Context, customerID string, amount Amount, now time.Time) (Account, error) {
	if store.debitError != nil {
		return Account{}, store.debitError
	}
	account, ok := store.accounts[customerID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	balance, err := account.Balance.Sub(amount)
	if err != nil {
		return Account{}, err
	}
	account.Balance = balance
	account.UpdatedAt = now
	store.accounts[customerID] = account
	return account, nil
}

func (store *stubStore) AppendTransaction(_ context.Context, input TransactionInput) (Transaction, error) {
	if store.appendError != nil {
		return Transaction{}, store.appendError
	}
	store.nextID++
	transaction := Transaction{
		ID:           fmt.Sprintf("txn-%d", store.nextID),
		CustomerID:   input.CustomerID,
		Type:         input.Type,
		Amount:       input.Amount,
		Description:  input.Description,
		BalanceAfter: input.BalanceAfter,
		CreatedAt:    input.CreatedAt,
	}
	store.transactions = append(store.transactions, transaction)
	return transaction, nil
}

func (store *stubStore) ListTransactions(_ context.Context, customerID string) ([]Transaction, error) {
	if store.listError != nil {
		return nil, store.listError
	}
	snapshot := make([]Transaction, 0, len(store.transactions))
	for _, transaction := range store.transactions {
		if customerID != "" && transaction.CustomerID != customerID {
			continue
		}
		snapshot = append(snapshot, transaction)
	}
	return snapshot, nil
}

func (store *stubStore) CreateCustomer(_ context.Context, input CustomerInput) (Customer, error) {
	if store.createCustomerError != nil {
		return Customer{}, store.createCustomerError
	}
	store.nextID++
	customer := Customer{
		ID:        fmt.Sprintf("cust-%d", store.nextID),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Amount:    input.Amount,
		CreatedAt: input.CreatedAt,
	}
	store.customers = append(store.customers, customer)
	return customer, nil
}

func (store *stubStore) SumBalances(_ context.Context) (Amount, error) {
	if store.sumError != nil {
		return Amount{}, store.sumError
	}
	total := ZeroAmount()
	for _, account := range store.accounts {
		total = total.Add(account.Balance)
	}
	return total, nil
}

func (store *stubStore) Reset(_ context.Context) error {
	store.accounts = make(map[string]Account)
	store.transactions = nil
	store.customers = nil
	return nil
}

// stubClock hands out strictly increasing timestamps so date sorting is
// deterministic in tests.
type stubClock struct {
	current time.Time
}

func newStubClock() *stubClock {
	return &stubClock{current: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func (clock *stubClock) Now() time.Time {
	clock.current = clock.current.Add(time.Second)
	return clock.current
}

func mustNewService(test *testing.T, store Store) *Service {
	test.Helper()
	service, err := NewService(store, newStubClock().Now)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func mustCustomerID(test *testing.T, raw string) CustomerID {
	test.Helper()
	customerID, err := NewCustomerID(raw)
	if err != nil {
		test.Fatalf("customer id %q invalid: %v", raw, err)
	}
	return customerID
}

func mustAmount(test *testing.T, raw string) Amount {
	test.Helper()
	amount, err := NewPositiveAmount(decimal.RequireFromString(raw))
	if err != nil {
		test.Fatalf("amount %q invalid: %v", raw, err)
	}
	return amount
}
