package ledger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SortField enumerates the transaction sort keys.
type SortField string

const (
	SortByDate       SortField = "date"
	SortByAmount     SortField = "amount"
	SortByCustomerID SortField = "customerId"
	SortByType       SortField = "type"
)

// SortOrder enumerates the sort directions.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// CustomerSortFields returns the sort keys the per-customer listing accepts.
func CustomerSortFields() []SortField {
	return []SortField{SortByDate, SortByAmount}
}

// ManagerSortFields returns the sort keys the all-customers listing accepts.
func ManagerSortFields() []SortField {
	return []SortField{SortByDate, SortByAmount, SortByCustomerID, SortByType}
}

// QueryParams are validated pagination and sorting parameters.
type QueryParams struct {
	sortBy    SortField
	sortOrder SortOrder
	cursor    string
	limit     int
}

// ParseQueryParams validates raw query values against the allowed sort
// fields. Empty values fall back to the defaults: limit 10, sorted by
// date descending.
func ParseQueryParams(rawLimit string, rawSortBy string, rawSortOrder string, cursor string, allowedSortFields ...SortField) (QueryParams, error) {
	params := QueryParams{
		sortBy:    SortByDate,
		sortOrder: SortDescending,
		cursor:    strings.TrimSpace(cursor),
		limit:     defaultQueryLimit,
	}
	if trimmed := strings.TrimSpace(rawLimit); trimmed != "" {
		limit, err := strconv.Atoi(trimmed)
		if err != nil {
			return QueryParams{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidLimit, trimmed)
		}
		if limit < minQueryLimit || limit > maxQueryLimit {
			return QueryParams{}, fmt.Errorf("%w: %d is out of range", ErrInvalidLimit, limit)
		}
		params.limit = limit
	}
	if trimmed := strings.TrimSpace(rawSortBy); trimmed != "" {
		field := SortField(trimmed)
		if !sortFieldAllowed(field, allowedSortFields) {
			return QueryParams{}, fmt.Errorf("%w: %q", ErrInvalidSortField, trimmed)
		}
		params.sortBy = field
	}
	if trimmed := strings.TrimSpace(rawSortOrder); trimmed != "" {
		switch SortOrder(trimmed) {
		case SortAscending, SortDescending:
			params.sortOrder = SortOrder(trimmed)
		default:
			return QueryParams{}, fmt.Errorf("%w: %q", ErrInvalidSortOrder, trimmed)
		}
	}
	return params, nil
}

// SortBy returns the validated sort key.
func (params QueryParams) SortBy() SortField {
	return params.sortBy
}

// SortOrder returns the validated sort direction.
func (params QueryParams) SortOrder() SortOrder {
	return params.sortOrder
}

// Cursor returns the advisory resume cursor, possibly empty.
func (params QueryParams) Cursor() string {
	return params.cursor
}

// Limit returns the validated page size.
func (params QueryParams) Limit() int {
	return params.limit
}

// TransactionPage is one page of a paginated transaction listing.
type TransactionPage struct {
	Transactions []Transaction
	NextCursor   string
	HasMore      bool
}

// ListCustomerTransactions pages through one customer's transactions.
func (service *Service) ListCustomerTransactions(ctx context.Context, customerID CustomerID, params QueryParams) (TransactionPage, error) {
	transactions, err := service.store.ListTransactions(ctx, customerID.String())
	if err != nil {
		return TransactionPage{}, err
	}
	sortTransactions(transactions, params)
	return paginate(transactions, params), nil
}

// ListAllTransactions pages through the whole transaction log.
func (service *Service) ListAllTransactions(ctx context.Context, params QueryParams) (TransactionPage, error) {
	transactions, err := service.store.ListTransactions(ctx, "")
	if err != nil {
		return TransactionPage{}, err
	}
	sortTransactions(transactions, params)
	return paginate(transactions, params), nil
}

func sortFieldAllowed(field SortField, allowed []SortField) bool {
	for _, candidate := range allowed {
		if candidate == field {
			return true
		}
	}
	return false
}

// sortTransactions orders the snapshot by the requested key. The sort is
// stable so ties keep log order and pagination stays deterministic
// across pages.
func sortTransactions(transactions []Transaction, params QueryParams) {
	ascending := params.sortOrder == SortAscending
	var less func(left, right Transaction) bool
	switch params.sortBy {
	case SortByAmount:
		less = func(left, right Transaction) bool {
			return left.Amount.Compare(right.Amount) < 0
		}
	case SortByCustomerID:
		less = func(left, right Transaction) bool {
			return left.CustomerID < right.CustomerID
		}
	case SortByType:
		less = func(left, right Transaction) bool {
			return left.Type < right.Type
		}
	default:
		less = func(left, right Transaction) bool {
			return left.CreatedAt.Before(right.CreatedAt)
		}
	}
	sort.SliceStable(transactions, func(i, j int) bool {
		if ascending {
			return less(transactions[i], transactions[j])
		}
		return less(transactions[j], transactions[i])
	})
}

// paginate slices one page out of the sorted snapshot. An unknown cursor
// is advisory, not validated: pagination restarts from the beginning.
func paginate(transactions []Transaction, params QueryParams) TransactionPage {
	startIndex := 0
	if params.cursor != "" {
		for index, transaction := range transactions {
			if transaction.ID == params.cursor {
				startIndex = index + 1
				break
			}
		}
	}
	endIndex := startIndex + params.limit
	if endIndex > len(transactions) {
		endIndex = len(transactions)
	}
	page := TransactionPage{
		Transactions: transactions[startIndex:endIndex],
		HasMore:      endIndex < len(transactions),
	}
	if page.HasMore && len(page.Transactions) > 0 {
		page.NextCursor = page.Transactions[len(page.Transactions)-1].ID
	}
	return page
}
