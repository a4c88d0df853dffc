package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerID identifies an account owner.
type CustomerID struct {
	value string
}

// NewCustomerID validates and normalizes a customer id.
func NewCustomerID(raw string) (CustomerID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CustomerID{}, fmt.Errorf("%w: empty value", ErrInvalidCustomerID)
	}
	return CustomerID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id CustomerID) String() string {
	return id.value
}

// Amount is an exact, non-negative decimal monetary value.
type Amount struct {
	value decimal.Decimal
}

// NewAmount validates a non-negative amount.
func NewAmount(raw decimal.Decimal) (Amount, error) {
	if raw.IsNegative() {
		return Amount{}, fmt.Errorf("%w: must not be negative", ErrInvalidAmount)
	}
	return Amount{value: raw}, nil
}

// NewPositiveAmount validates a strictly positive amount.
func NewPositiveAmount(raw decimal.Decimal) (Amount, error) {
	if !raw.IsPositive() {
		return Amount{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return Amount{value: raw}, nil
}

// NewAmountFromString parses a decimal string into a non-negative amount.
func NewAmountFromString(raw string) (Amount, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return NewAmount(value)
}

// ZeroAmount returns the zero monetary value.
func ZeroAmount() Amount {
	return Amount{value: decimal.Zero}
}

// Decimal returns the underlying decimal value.
func (amount Amount) Decimal() decimal.Decimal {
	return amount.value
}

// Add returns the sum of two amounts.
func (amount Amount) Add(other Amount) Amount {
	return Amount{value: amount.value.Add(other.value)}
}

// Sub returns the difference, failing if the result would be negative.
func (amount Amount) Sub(other Amount) (Amount, error) {
	result := amount.value.Sub(other.value)
	if result.IsNegative() {
		return Amount{}, fmt.Errorf("%w: negative result", ErrInvalidBalance)
	}
	return Amount{value: result}, nil
}

// LessThan reports whether amount is strictly below other.
func (amount Amount) LessThan(other Amount) bool {
	return amount.value.LessThan(other.value)
}

// Equal reports numeric equality.
func (amount Amount) Equal(other Amount) bool {
	return amount.value.Equal(other.value)
}

// IsPositive reports whether the amount is strictly above zero.
func (amount Amount) IsPositive() bool {
	return amount.value.IsPositive()
}

// Compare returns -1, 0, or 1 comparing amount against other.
func (amount Amount) Compare(other Amount) int {
	return amount.value.Cmp(other.value)
}

// String returns the canonical decimal representation.
func (amount Amount) String() string {
	return amount.value.String()
}

// TransactionType enumerates the ledger transaction kinds.
type TransactionType string

const (
	TransactionDeposit     TransactionType = "deposit"
	TransactionWithdrawal  TransactionType = "withdrawal"
	TransactionTransferIn  TransactionType = "transfer_in"
	TransactionTransferOut TransactionType = "transfer_out"
)

// ParseTransactionType validates a raw transaction type value.
func ParseTransactionType(raw string) (TransactionType, error) {
	switch TransactionType(raw) {
	case TransactionDeposit, TransactionWithdrawal, TransactionTransferIn, TransactionTransferOut:
		return TransactionType(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, raw)
	}
}

// String returns the wire value of the transaction type.
func (transactionType TransactionType) String() string {
	return string(transactionType)
}

// Account is a customer's balance record.
type Account struct {
	ID         string
	CustomerID string
	Balance    Amount
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// A single immutable line in the transaction log.
type Transaction struct {
	ID           string
	CustomerID   string
	Type         TransactionType
	Amount       Amount
	Description  string
	BalanceAfter Amount
	CreatedAt    time.Time
}

// TransactionInput carries the fields of a transaction before the store
// assigns its identity.
type TransactionInput struct {
	CustomerID   string
	Type         TransactionType
	Amount       Amount
	Description  string
	BalanceAfter Amount
	CreatedAt    time.Time
}

// NewTransactionInput validates a log record prior to appending.
func NewTransactionInput(customerID CustomerID, transactionType TransactionType, amount Amount, description string, balanceAfter Amount, createdAt time.Time) (TransactionInput, error) {
	if customerID.String() == "" {
		return TransactionInput{}, fmt.Errorf("%w: empty value", ErrInvalidCustomerID)
	}
	if _, err := ParseTransactionType(transactionType.String()); err != nil {
		return TransactionInput{}, err
	}
	if !amount.IsPositive() {
		return TransactionInput{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return TransactionInput{
		CustomerID:   customerID.String(),
		Type:         transactionType,
		Amount:       amount,
		Description:  description,
		BalanceAfter: balanceAfter,
		CreatedAt:    createdAt,
	}, nil
}

// Customer is a registered customer profile. Registering a customer does
// not open an account; accounts appear on first deposit or credit.
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Amount    Amount
	CreatedAt time.Time
}

// CustomerInput carries the fields of a customer before the store assigns
// its identity.
type CustomerInput struct {
	FirstName string
	LastName  string
	Amount    Amount
	CreatedAt time.Time
}

// TransferResult returns both sides of a completed transfer.
type TransferResult struct {
	FromAccount Account
	ToAccount   Account
}
