package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account represents the accounts table. Balances persist as decimal
// strings so no precision is lost across backends.
type Account struct {
	AccountID  string    `gorm:"type:uuid;primaryKey"`
	CustomerID string    `gorm:"not null;uniqueIndex:uniq_accounts_customer"`
	Balance    string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

func (account *Account) BeforeCreate(tx *gorm.DB) error {
	if account.AccountID == "" {
		account.AccountID = uuid.NewString()
	}
	return nil
}

// Transaction mirrors the transactions table. The autoincrement sequence
// preserves append order independently of creation timestamps.
type Transaction struct {
	Sequence      uint64    `gorm:"primaryKey;autoIncrement"`
	TransactionID string    `gorm:"type:uuid;not null;uniqueIndex:uniq_transactions_id"`
	CustomerID    string    `gorm:"not null;index:idx_transactions_customer"`
	Type          string    `gorm:"not null"`
	Amount        string    `gorm:"not null"`
	Description   string    `gorm:""`
	BalanceAfter  string    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

func (transaction *Transaction) BeforeCreate(tx *gorm.DB) error {
	if transaction.TransactionID == "" {
		transaction.TransactionID = uuid.NewString()
	}
	return nil
}

// Customer mirrors the customers table.
type Customer struct {
	CustomerID string    `gorm:"type:uuid;primaryKey"`
	FirstName  string    `gorm:"not null"`
	LastName   string    `gorm:"not null"`
	Amount     string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (Customer) TableName() string { return "customers" }

func (customer *Customer) BeforeCreate(tx *gorm.DB) error {
	if customer.CustomerID == "" {
		customer.CustomerID = uuid.NewString()
	}
	return nil
}

// AutoMigrate creates or updates the schema for all store models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{}, &Transaction{}, &Customer{})
}
