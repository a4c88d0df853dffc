package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nimbusbank/ledger/pkg/ledger"
)

// Error strings are part of the client contract and must match verbatim.
const (
	messageMissingDepositFields  = "Missing required fields: customerId and amount are required"
	messageMissingCustomerID     = "Missing required field: customerId is required"
	messageMissingTransferFields = "Missing required fields: fromCustomerId, toCustomerId and amount are required"
	messageMissingCustomerFields = "Missing required fields: firstName, lastName, and amount are required"
	messageInvalidAmount         = "Amount must be a positive number"
	messageInvalidCustomerAmount = "Amount must be greater than or equal to 1 and must be a number"
	messageAccountNotFound       = "Account not found for this customer"
	messageSenderNotFound        = "Sender account not found"
	messageInsufficientFunds     = "Insufficient funds"
	messageSameAccount           = "Cannot transfer to the same account"
	messageCustomerIDRequired    = "Customer ID is required"
	messageInvalidLimit          = "Limit must be between 1 and 100"
	messageInvalidCustomerSortBy = `sortBy must be either "date" or "amount"`
	messageInvalidManagerSortBy  = "sortBy must be one of: date, amount, customerId, type"
	messageInvalidSortOrder      = `sortOrder must be either "asc" or "desc"`
	messageInternalError         = "Internal server error"
)

type depositRequest struct {
	CustomerID string `json:"customerId"`
	Amount     any    `json:"amount"`
}

type balanceRequest struct {
	CustomerID string `json:"customerId"`
}

type transferRequest struct {
	FromCustomerID string `json:"fromCustomerId"`
	ToCustomerID   string `json:"toCustomerId"`
	Amount         any    `json:"amount"`
}

type createCustomerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Amount    any    `json:"amount"`
}

func (handler *httpHandler) handleDeposit(ctx *gin.Context) {
	var request depositRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingDepositFields))
		return
	}
	if strings.TrimSpace(request.CustomerID) == "" || request.Amount == nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingDepositFields))
		return
	}
	amount, ok := parseRequestAmount(request.Amount)
	if !ok {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidAmount))
		return
	}
	customerID, err := ledger.NewCustomerID(request.CustomerID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingDepositFields))
		return
	}
	account, err := handler.service.Deposit(ctx.Request.Context(), customerID, amount)
	if err != nil {
		handler.respondAccountError(ctx, err, messageAccountNotFound)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "account": newAccountPayload(account)})
}

func (handler *httpHandler) handleWithdraw(ctx *gin.Context) {
	var request depositRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingDepositFields))
		return
	}
	if strings.TrimSpace(request.CustomerID) == "" || request.Amount == nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingDepositFields))
		return
	}
	amount, ok := parseRequestAmount(request.Amount)
	if !ok {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidAmount))
		return
	}
	customerID, err := ledger.NewCustomerID(request.CustomerID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingDepositFields))
		return
	}
	account, err := handler.service.Withdraw(ctx.Request.Context(), customerID, amount)
	if err != nil {
		handler.respondAccountError(ctx, err, messageAccountNotFound)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "account": newAccountPayload(account)})
}

func (handler *httpHandler) handleBalance(ctx *gin.Context) {
	var request balanceRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingCustomerID))
		return
	}
	customerID, err := ledger.NewCustomerID(request.CustomerID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingCustomerID))
		return
	}
	balance, err := handler.service.Balance(ctx.Request.Context(), customerID)
	if err != nil {
		handler.respondAccountError(ctx, err, messageAccountNotFound)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "balance": json.Number(balance.String())})
}

func (handler *httpHandler) handleTransfer(ctx *gin.Context) {
	var request transferRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingTransferFields))
		return
	}
	if strings.TrimSpace(request.FromCustomerID) == "" || strings.TrimSpace(request.ToCustomerID) == "" || request.Amount == nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingTransferFields))
		return
	}
	amount, ok := parseRequestAmount(request.Amount)
	if !ok {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidAmount))
		return
	}
	fromCustomerID, err := ledger.NewCustomerID(request.FromCustomerID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingTransferFields))
		return
	}
	toCustomerID, err := ledger.NewCustomerID(request.ToCustomerID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingTransferFields))
		return
	}
	result, err := handler.service.Transfer(ctx.Request.Context(), fromCustomerID, toCustomerID, amount)
	if err != nil {
		handler.respondAccountError(ctx, err, messageSenderNotFound)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":     true,
		"fromAccount": newAccountPayload(result.FromAccount),
		"toAccount":   newAccountPayload(result.ToAccount),
	})
}

func (handler *httpHandler) handleCreateCustomer(ctx *gin.Context) {
	var request createCustomerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingCustomerFields))
		return
	}
	if strings.TrimSpace(request.FirstName) == "" || strings.TrimSpace(request.LastName) == "" || request.Amount == nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageMissingCustomerFields))
		return
	}
	amount, ok := parseRequestAmount(request.Amount)
	if !ok {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidCustomerAmount))
		return
	}
	customer, err := handler.service.RegisterCustomer(ctx.Request.Context(), request.FirstName, request.LastName, amount)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidAmount) {
			ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidCustomerAmount))
			return
		}
		handler.logger.Error("register customer failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse(messageInternalError))
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "customer": newCustomerPayload(customer)})
}

func (handler *httpHandler) handleCustomerTransactions(ctx *gin.Context) {
	rawCustomerID := strings.TrimSpace(ctx.Query("customerId"))
	if rawCustomerID == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageCustomerIDRequired))
		return
	}
	params, err := ledger.ParseQueryParams(
		ctx.Query("limit"),
		ctx.Query("sortBy"),
		ctx.Query("sortOrder"),
		ctx.Query("cursor"),
		ledger.CustomerSortFields()...,
	)
	if err != nil {
		handler.respondQueryError(ctx, err, messageInvalidCustomerSortBy)
		return
	}
	customerID, err := ledger.NewCustomerID(rawCustomerID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(messageCustomerIDRequired))
		return
	}
	page, err := handler.service.ListCustomerTransactions(ctx.Request.Context(), customerID, params)
	if err != nil {
		handler.logger.Error("list customer transactions failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse(messageInternalError))
		return
	}
	ctx.JSON(http.StatusOK, newTransactionsResponse(page))
}

func (handler *httpHandler) handleAllTransactions(ctx *gin.Context) {
	params, err := ledger.ParseQueryParams(
		ctx.Query("limit"),
		ctx.Query("sortBy"),
		ctx.Query("sortOrder"),
		ctx.Query("cursor"),
		ledger.ManagerSortFields()...,
	)
	if err != nil {
		handler.respondQueryError(ctx, err, messageInvalidManagerSortBy)
		return
	}
	page, err := handler.service.ListAllTransactions(ctx.Request.Context(), params)
	if err != nil {
		handler.logger.Error("list all transactions failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse(messageInternalError))
		return
	}
	ctx.JSON(http.StatusOK, newTransactionsResponse(page))
}

func (handler *httpHandler) handleTotalBalance(ctx *gin.Context) {
	total, err := handler.service.TotalBalance(ctx.Request.Context())
	if err != nil {
		handler.logger.Error("total balance failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse(messageInternalError))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "totalBalance": json.Number(total.String())})
}

// respondAccountError maps engine failures onto the contract's statuses
// and wording. notFoundMessage differs between withdraw/balance and
// transfer.
func (handler *httpHandler) respondAccountError(ctx *gin.Context, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidAmount))
	case errors.Is(err, ledger.ErrSameAccount):
		ctx.JSON(http.StatusBadRequest, errorResponse(messageSameAccount))
	case errors.Is(err, ledger.ErrAccountNotFound):
		ctx.JSON(http.StatusNotFound, errorResponse(notFoundMessage))
	case errors.Is(err, ledger.ErrInsufficientFunds):
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInsufficientFunds))
	default:
		handler.logger.Error("ledger operation failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse(messageInternalError))
	}
}

func (handler *httpHandler) respondQueryError(ctx *gin.Context, err error, sortByMessage string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidLimit):
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidLimit))
	case errors.Is(err, ledger.ErrInvalidSortField):
		ctx.JSON(http.StatusBadRequest, errorResponse(sortByMessage))
	case errors.Is(err, ledger.ErrInvalidSortOrder):
		ctx.JSON(http.StatusBadRequest, errorResponse(messageInvalidSortOrder))
	default:
		handler.logger.Error("query validation failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse(messageInternalError))
	}
}

// parseRequestAmount accepts only JSON numbers; any other JSON type is an
// invalid amount, matching the reference contract.
func parseRequestAmount(raw any) (ledger.Amount, bool) {
	number, ok := raw.(float64)
	if !ok {
		return ledger.Amount{}, false
	}
	amount, err := ledger.NewPositiveAmount(decimal.NewFromFloat(number))
	if err != nil {
		return ledger.Amount{}, false
	}
	return amount, true
}

func errorResponse(message string) gin.H {
	return gin.H{
		"success": false,
		"error":   message,
	}
}

type accountPayload struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customerId"`
	Balance    json.Number `json:"balance"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

func newAccountPayload(account ledger.Account) accountPayload {
	return accountPayload{
		ID:         account.ID,
		CustomerID: account.CustomerID,
		Balance:    json.Number(account.Balance.String()),
		CreatedAt:  account.CreatedAt,
		UpdatedAt:  account.UpdatedAt,
	}
}

type transactionPayload struct {
	ID           string      `json:"id"`
	CustomerID   string      `json:"customerId"`
	Type         string      `json:"type"`
	Amount       json.Number `json:"amount"`
	Description  string      `json:"description,omitempty"`
	BalanceAfter json.Number `json:"balanceAfter"`
	CreatedAt    time.Time   `json:"createdAt"`
}

type customerPayload struct {
	ID        string      `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Amount    json.Number `json:"amount"`
	CreatedAt time.Time   `json:"createdAt"`
}

func newCustomerPayload(customer ledger.Customer) customerPayload {
	return customerPayload{
		ID:        customer.ID,
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
		Amount:    json.Number(customer.Amount.String()),
		CreatedAt: customer.CreatedAt,
	}
}

type transactionsResponse struct {
	Success      bool                 `json:"success"`
	Transactions []transactionPayload `json:"transactions"`
	NextCursor   string               `json:"nextCursor,omitempty"`
	HasMore      bool                 `json:"hasMore"`
}

func newTransactionsResponse(page ledger.TransactionPage) transactionsResponse {
	payloads := make([]transactionPayload, 0, len(page.Transactions))
	for _, transaction := range page.Transactions {
		payloads = append(payloads, transactionPayload{
			ID:           transaction.ID,
			CustomerID:   transaction.CustomerID,
			Type:         transaction.Type.String(),
			Amount:       json.Number(transaction.Amount.String()),
			Description:  transaction.Description,
			BalanceAfter: json.Number(transaction.BalanceAfter.String()),
			CreatedAt:    transaction.CreatedAt,
		})
	}
	return transactionsResponse{
		Success:      true,
		Transactions: payloads,
		NextCursor:   page.NextCursor,
		HasMore:      page.HasMore,
	}
}
