// Package gormstore implements ledger.Store on GORM, for deployments
// that want the ledger to outlive the process (sqlite or postgres).
package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nimbusbank/ledger/pkg/ledger"
)

const (
	errorOperationStore     = "store"
	errorSubjectAccount     = "account"
	errorSubjectTransaction = "transaction"
	errorSubjectCustomer    = "customer"
	errorSubjectBalance     = "balance"
	errorCodeGet            = "get"
	errorCodeCreate         = "create"
	errorCodeCredit         = "credit"
	errorCodeDebit          = "debit"
	errorCodeAppend         = "append"
	errorCodeList           = "list"
	errorCodeSum            = "sum"
	errorCodeReset          = "reset"
	errorCodeInvalid        = "invalid"
)

// Store implements ledger.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a database transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore ledger.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) GetAccount(ctx context.Context, customerID string) (ledger.Account, error) {
	var row Account
	err := store.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, ledger.ErrAccountNotFound)
		}
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return mapAccount(row)
}

func (store *Store) GetOrCreateAccount(ctx context.Context, customerID string, now time.Time) (ledger.Account, error) {
	var row Account
	err := store.db.WithContext(ctx).
		Where(Account{CustomerID: customerID}).
		Attrs(Account{
			CustomerID: customerID,
			Balance:    ledger.ZeroAmount().String(),
			CreatedAt:  now,
			UpdatedAt:  now,
		}).
		FirstOrCreate(&row).Error
	if err != nil {
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeCreate, err)
	}
	return mapAccount(row)
}

func (store *Store) CreditAccount(ctx context.Context, customerID string, amount ledger.Amount, now time.Time) (ledger.Account, error) {
	return store.applyBalanceChange(ctx, customerID, now, errorCodeCredit, func(balance ledger.Amount) (ledger.Amount, error) {
		return balance.Add(amount), nil
	})
}

func (store *Store) DebitAccount(ctx context.Context, customerID string, amount ledger.Amount, now time.Time) (ledger.Account, error) {
	return store.applyBalanceChange(ctx, customerID, now, errorCodeDebit, func(balance ledger.Amount) (ledger.Amount, error) {
		return balance.Sub(amount)
	})
}

func (store *Store) applyBalanceChange(ctx context.Context, customerID string, now time.Time, code string, change func(balance ledger.Amount) (ledger.Amount, error)) (ledger.Account, error) {
	var row Account
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Account{}, wrapStoreError(errorSubjectAccount, code, ledger.ErrAccountNotFound)
		}
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, code, err)
	}
	balance, err := ledger.NewAmountFromString(row.Balance)
	if err != nil {
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	updated, err := change(balance)
	if err != nil {
		return ledger.Account{}, wrapStoreError(errorSubjectBalance, code, err)
	}
	row.Balance = updated.String()
	row.UpdatedAt = now
	if err := store.db.WithContext(ctx).Save(&row).Error; err != nil {
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, code, err)
	}
	return mapAccount(row)
}

func (store *Store) AppendTransaction(ctx context.Context, input ledger.TransactionInput) (ledger.Transaction, error) {
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := Transaction{
		CustomerID:   input.CustomerID,
		Type:         input.Type.String(),
		Amount:       input.Amount.String(),
		Description:  input.Description,
		BalanceAfter: input.BalanceAfter.String(),
		CreatedAt:    createdAt,
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return ledger.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeAppend, err)
	}
	return mapTransaction(row)
}

func (store *Store) ListTransactions(ctx context.Context, customerID string) ([]ledger.Transaction, error) {
	query := store.db.WithContext(ctx).Order("sequence ASC")
	if customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	var rows []Transaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}
	transactions := make([]ledger.Transaction, 0, len(rows))
	for _, row := range rows {
		transaction, err := mapTransaction(row)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func (store *Store) CreateCustomer(ctx context.Context, input ledger.CustomerInput) (ledger.Customer, error) {
	row := Customer{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Amount:    input.Amount.String(),
		CreatedAt: input.CreatedAt,
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return ledger.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeCreate, err)
	}
	return mapCustomer(row)
}

// SumBalances reads every balance in one statement so the sum reflects a
// single consistent snapshot.
func (store *Store) SumBalances(ctx context.Context) (ledger.Amount, error) {
	var balances []string
	err := store.db.WithContext(ctx).
		Model(&Account{}).
		Pluck("balance", &balances).Error
	if err != nil {
		return ledger.Amount{}, wrapStoreError(errorSubjectBalance, errorCodeSum, err)
	}
	total := ledger.ZeroAmount()
	for _, raw := range balances {
		balance, err := ledger.NewAmountFromString(raw)
		if err != nil {
			return ledger.Amount{}, wrapStoreError(errorSubjectBalance, errorCodeInvalid, err)
		}
		total = total.Add(balance)
	}
	return total, nil
}

func (store *Store) Reset(ctx context.Context) error {
	session := store.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{&Transaction{}, &Account{}, &Customer{}} {
		if err := session.Delete(model).Error; err != nil {
			return wrapStoreError(errorSubjectTransaction, errorCodeReset, err)
		}
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return ledger.WrapError(errorOperationStore, subject, code, err)
}

func mapAccount(row Account) (ledger.Account, error) {
	balance, err := ledger.NewAmountFromString(row.Balance)
	if err != nil {
		return ledger.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	return ledger.Account{
		ID:         row.AccountID,
		CustomerID: row.CustomerID,
		Balance:    balance,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func mapTransaction(row Transaction) (ledger.Transaction, error) {
	transactionType, err := ledger.ParseTransactionType(row.Type)
	if err != nil {
		return ledger.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
	}
	amount, err := ledger.NewAmountFromString(row.Amount)
	if err != nil {
		return ledger.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
	}
	balanceAfter, err := ledger.NewAmountFromString(row.BalanceAfter)
	if err != nil {
		return ledger.Transaction{}, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
	}
	return ledger.Transaction{
		ID:           row.TransactionID,
		CustomerID:   row.CustomerID,
		Type:         transactionType,
		Amount:       amount,
		Description:  row.Description,
		BalanceAfter: balanceAfter,
		CreatedAt:    row.CreatedAt,
	}, nil
}

func mapCustomer(row Customer) (ledger.Customer, error) {
	amount, err := ledger.NewAmountFromString(row.Amount)
	if err != nil {
		return ledger.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeInvalid, err)
	}
	return ledger.Customer{
		ID:        row.CustomerID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Amount:    amount,
		CreatedAt: row.CreatedAt,
	}, nil
}
