package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Service contains the domain logic over a Store.
type Service struct {
	store  Store
	nowFn  func() time.Time
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Deposit credits a customer's account, creating it on first use, and
// appends one deposit transaction carrying the resulting balance.
func (service *Service) Deposit(ctx context.Context, customerID CustomerID, amount Amount) (Account, error) {
	var updated Account
	operationError := service.validateAmount(amount)
	if operationError == nil {
		operationError = service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			now := service.nowFn()
			if _, err := transactionStore.GetOrCreateAccount(ctx, customerID.String(), now); err != nil {
				return err
			}
			account, err := transactionStore.CreditAccount(ctx, customerID.String(), amount, now)
			if err != nil {
				return err
			}
			input, err := NewTransactionInput(customerID, TransactionDeposit, amount, "", account.Balance, now)
			if err != nil {
				return err
			}
			if _, err := transactionStore.AppendTransaction(ctx, input); err != nil {
				return err
			}
			updated = account
			return nil
		})
	}
	service.logOperation(ctx, OperationLog{
		Operation:  operationDeposit,
		CustomerID: customerID,
		Amount:     amount,
		Error:      operationError,
	})
	return updated, operationError
}

// Withdraw debits a customer's account and appends one withdrawal
// transaction. Withdrawing the exact balance is allowed; anything beyond
// it fails with ErrInsufficientFunds and leaves the balance unchanged.
func (service *Service) Withdraw(ctx context.Context, customerID CustomerID, amount Amount) (Account, error) {
	var updated Account
	operationError := service.validateAmount(amount)
	if operationError == nil {
		operationError = service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			account, err := transactionStore.GetAccount(ctx, customerID.String())
			if err != nil {
				return err
			}
			if account.Balance.LessThan(amount) {
				return ErrInsufficientFunds
			}
			now := service.nowFn()
			account, err = transactionStore.DebitAccount(ctx, customerID.String(), amount, now)
			if err != nil {
				return err
			}
			input, err := NewTransactionInput(customerID, TransactionWithdrawal, amount, "", account.Balance, now)
			if err != nil {
				return err
			}
			if _, err := transactionStore.AppendTransaction(ctx, input); err != nil {
				return err
			}
			updated = account
			return nil
		})
	}
	service.logOperation(ctx, OperationLog{
		Operation:  operationWithdraw,
		CustomerID: customerID,
		Amount:     amount,
		Error:      operationError,
	})
	return updated, operationError
}

// Transfer moves funds between two customers as a single atomic unit:
// debit the sender, credit the recipient (created if absent), and append
// exactly two transactions, transfer_out then transfer_in, each carrying
// its side's resulting balance.
func (service *Service) Transfer(ctx context.Context, fromCustomerID CustomerID, toCustomerID CustomerID, amount Amount) (TransferResult, error) {
	var result TransferResult
	operationError := service.validateTransfer(fromCustomerID, toCustomerID, amount)
	if operationError == nil {
		operationError = service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			fromAccount, err := transactionStore.GetAccount(ctx, fromCustomerID.String())
			if err != nil {
				return err
			}
			if fromAccount.Balance.LessThan(amount) {
				return ErrInsufficientFunds
			}
			now := service.nowFn()
			if _, err := transactionStore.GetOrCreateAccount(ctx, toCustomerID.String(), now); err != nil {
				return err
			}
			fromAccount, err = transactionStore.DebitAccount(ctx, fromCustomerID.String(), amount, now)
			if err != nil {
				return err
			}
			toAccount, err := transactionStore.CreditAccount(ctx, toCustomerID.String(), amount, now)
			if err != nil {
				return err
			}
			outInput, err := NewTransactionInput(
				fromCustomerID,
				TransactionTransferOut,
				amount,
				fmt.Sprintf(transferOutDescriptionFormat, toCustomerID.String()),
				fromAccount.Balance,
				now,
			)
			if err != nil {
				return err
			}
			if _, err := transactionStore.AppendTransaction(ctx, outInput); err != nil {
				return err
			}
			inInput, err := NewTransactionInput(
				toCustomerID,
				TransactionTransferIn,
				amount,
				fmt.Sprintf(transferInDescriptionFormat, fromCustomerID.String()),
				toAccount.Balance,
				now,
			)
			if err != nil {
				return err
			}
			if _, err := transactionStore.AppendTransaction(ctx, inInput); err != nil {
				return err
			}
			result = TransferResult{FromAccount: fromAccount, ToAccount: toAccount}
			return nil
		})
	}
	service.logOperation(ctx, OperationLog{
		Operation:    operationTransfer,
		CustomerID:   fromCustomerID,
		ToCustomerID: toCustomerID,
		Amount:       amount,
		Error:        operationError,
	})
	return result, operationError
}

// Balance returns the current balance for a customer's account.
func (service *Service) Balance(ctx context.Context, customerID CustomerID) (Amount, error) {
	account, err := service.store.GetAccount(ctx, customerID.String())
	if err != nil {
		return Amount{}, err
	}
	return account.Balance, nil
}

// TotalBalance returns the sum of every account balance as one consistent
// snapshot.
func (service *Service) TotalBalance(ctx context.Context) (Amount, error) {
	return service.store.SumBalances(ctx)
}

// RegisterCustomer records a customer profile. No account is opened; the
// account appears on the customer's first deposit or incoming transfer.
func (service *Service) RegisterCustomer(ctx context.Context, firstName string, lastName string, amount Amount) (Customer, error) {
	var customer Customer
	operationError := validateCustomerName(firstName, lastName)
	if operationError == nil {
		operationError = service.validateAmount(amount)
	}
	if operationError == nil {
		customer, operationError = service.store.CreateCustomer(ctx, CustomerInput{
			FirstName: strings.TrimSpace(firstName),
			LastName:  strings.TrimSpace(lastName),
			Amount:    amount,
			CreatedAt: service.nowFn(),
		})
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationRegisterCustomer,
		Amount:    amount,
		Error:     operationError,
	})
	return customer, operationError
}

func (service *Service) validateAmount(amount Amount) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return nil
}

// validateTransfer enforces the error precedence of a transfer: amount
// first, then same-account, before any account lookup happens.
func (service *Service) validateTransfer(fromCustomerID CustomerID, toCustomerID CustomerID, amount Amount) error {
	if err := service.validateAmount(amount); err != nil {
		return err
	}
	if fromCustomerID.String() == toCustomerID.String() {
		return ErrSameAccount
	}
	return nil
}

func validateCustomerName(firstName string, lastName string) error {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidCustomerName)
	}
	return nil
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
