package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nimbusbank/ledger/pkg/ledger"
)

func newTestStore(test *testing.T) *Store {
	test.Helper()
	path := filepath.Join(test.TempDir(), "ledger.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		test.Fatalf("migrate: %v", err)
	}
	test.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return New(db)
}

func newTestService(test *testing.T, store *Store) *ledger.Service {
	test.Helper()
	service, err := ledger.NewService(store, func() time.Time { return time.Now().UTC() })
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func testCustomerID(test *testing.T, raw string) ledger.CustomerID {
	test.Helper()
	customerID, err := ledger.NewCustomerID(raw)
	if err != nil {
		test.Fatalf("customer id %q invalid: %v", raw, err)
	}
	return customerID
}

func testAmount(test *testing.T, raw string) ledger.Amount {
	test.Helper()
	amount, err := ledger.NewPositiveAmount(decimal.RequireFromString(raw))
	if err != nil {
		test.Fatalf("amount %q invalid: %v", raw, err)
	}
	return amount
}

func TestServiceFlowsOverSQLite(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := newTestService(test, store)
	alice := testCustomerID(test, "customer-a")
	bob := testCustomerID(test, "customer-b")
	ctx := context.Background()

	if _, err := service.Deposit(ctx, alice, testAmount(test, "1000")); err != nil {
		test.Fatalf("deposit failed: %v", err)
	}
	if _, err := service.Withdraw(ctx, alice, testAmount(test, "250")); err != nil {
		test.Fatalf("withdraw failed: %v", err)
	}
	result, err := service.Transfer(ctx, alice, bob, testAmount(test, "100"))
	if err != nil {
		test.Fatalf("transfer failed: %v", err)
	}
	if !result.FromAccount.Balance.Equal(testAmount(test, "650")) {
		test.Fatalf("expected sender balance 650, got %s", result.FromAccount.Balance)
	}
	if !result.ToAccount.Balance.Equal(testAmount(test, "100")) {
		test.Fatalf("expected recipient balance 100, got %s", result.ToAccount.Balance)
	}

	total, err := service.TotalBalance(ctx)
	if err != nil {
		test.Fatalf("total balance failed: %v", err)
	}
	if !total.Equal(testAmount(test, "750")) {
		test.Fatalf("expected total 750, got %s", total)
	}
}

func TestListTransactionsPreservesAppendOrder(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := newTestService(test, store)
	alice := testCustomerID(test, "customer-a")
	ctx := context.Background()

	for _, raw := range []string{"10", "20", "30"} {
		if _, err := service.Deposit(ctx, alice, testAmount(test, raw)); err != nil {
			test.Fatalf("deposit %s failed: %v", raw, err)
		}
	}
	transactions, err := store.ListTransactions(ctx, "")
	if err != nil {
		test.Fatalf("listing failed: %v", err)
	}
	if len(transactions) != 3 {
		test.Fatalf("expected three transactions, got %d", len(transactions))
	}
	for index, want := range []string{"10", "20", "30"} {
		if transactions[index].Amount.String() != want {
			test.Fatalf("position %d: expected amount %s, got %s", index, want, transactions[index].Amount)
		}
	}
	for _, transaction := range transactions {
		if transaction.ID == "" {
			test.Fatalf("transaction id must be assigned on append")
		}
	}
}

func TestListTransactionsFiltersByCustomer(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := newTestService(test, store)
	ctx := context.Background()

	if _, err := service.Deposit(ctx, testCustomerID(test, "customer-a"), testAmount(test, "10")); err != nil {
		test.Fatalf("deposit failed: %v", err)
	}
	if _, err := service.Deposit(ctx, testCustomerID(test, "customer-b"), testAmount(test, "20")); err != nil {
		test.Fatalf("deposit failed: %v", err)
	}
	transactions, err := store.ListTransactions(ctx, "customer-a")
	if err != nil {
		test.Fatalf("listing failed: %v", err)
	}
	if len(transactions) != 1 || transactions[0].CustomerID != "customer-a" {
		test.Fatalf("expected only customer-a transactions, got %+v", transactions)
	}
}

func TestGetAccountUnknownCustomer(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	if _, err := store.GetAccount(context.Background(), "missing"); !errors.Is(err, ledger.ErrAccountNotFound) {
		test.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestWithTxRollsBackOnError(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ctx := context.Background()
	now := time.Now().UTC()
	failure := errors.New("abort")

	err := store.WithTx(ctx, func(ctx context.Context, txStore ledger.Store) error {
		if _, err := txStore.GetOrCreateAccount(ctx, "customer-a", now); err != nil {
			return err
		}
		if _, err := txStore.CreditAccount(ctx, "customer-a", testAmount(test, "100"), now); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		test.Fatalf("expected the injected failure, got %v", err)
	}
	if _, err := store.GetAccount(ctx, "customer-a"); !errors.Is(err, ledger.ErrAccountNotFound) {
		test.Fatalf("rolled-back account must not exist, got %v", err)
	}
}

func TestBalancePersistsDecimalExactly(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := newTestService(test, store)
	alice := testCustomerID(test, "customer-a")
	ctx := context.Background()

	cent := testAmount(test, "0.01")
	for i := 0; i < 10; i++ {
		if _, err := service.Deposit(ctx, alice, cent); err != nil {
			test.Fatalf("deposit %d failed: %v", i, err)
		}
	}
	balance, err := service.Balance(ctx, alice)
	if err != nil {
		test.Fatalf("balance failed: %v", err)
	}
	if !balance.Equal(testAmount(test, "0.1")) {
		test.Fatalf("expected exact 0.1, got %s", balance)
	}
}

func TestCreateCustomerAssignsIdentity(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	customer, err := store.CreateCustomer(context.Background(), ledger.CustomerInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Amount:    testAmount(test, "5"),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		test.Fatalf("create customer failed: %v", err)
	}
	if customer.ID == "" {
		test.Fatalf("customer id must be assigned on create")
	}
	if customer.FirstName != "Ada" || customer.LastName != "Lovelace" {
		test.Fatalf("unexpected customer record: %+v", customer)
	}
}

func TestResetClearsAllTables(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := newTestService(test, store)
	ctx := context.Background()

	if _, err := service.Deposit(ctx, testCustomerID(test, "customer-a"), testAmount(test, "10")); err != nil {
		test.Fatalf("deposit failed: %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		test.Fatalf("reset failed: %v", err)
	}
	transactions, err := store.ListTransactions(ctx, "")
	if err != nil {
		test.Fatalf("listing failed: %v", err)
	}
	if len(transactions) != 0 {
		test.Fatalf("expected empty log after reset, got %d", len(transactions))
	}
	total, err := store.SumBalances(ctx)
	if err != nil {
		test.Fatalf("sum failed: %v", err)
	}
	if !total.Equal(ledger.ZeroAmount()) {
		test.Fatalf("expected zero total after reset, got %s", total)
	}
}
