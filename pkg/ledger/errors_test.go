package ledger

import (
	"errors"
	"testing"
)

func TestWrapErrorCarriesSegments(test *testing.T) {
	test.Parallel()
	wrapped := WrapError("store", "account", "lookup_failed", ErrAccountNotFound)

	var operationError OperationError
	if !errors.As(wrapped, &operationError) {
		test.Fatalf("expected an OperationError, got %T", wrapped)
	}
	if operationError.Operation() != "store" {
		test.Fatalf("unexpected operation segment %q", operationError.Operation())
	}
	if operationError.Subject() != "account" {
		test.Fatalf("unexpected subject segment %q", operationError.Subject())
	}
	if operationError.Code() != "lookup_failed" {
		test.Fatalf("unexpected code segment %q", operationError.Code())
	}
	if !errors.Is(wrapped, ErrAccountNotFound) {
		test.Fatalf("wrapped error must match the sentinel, got %v", wrapped)
	}
	expectedMessage := "store.account.lookup_failed: account not found"
	if wrapped.Error() != expectedMessage {
		test.Fatalf("expected %q, got %q", expectedMessage, wrapped.Error())
	}
}

func TestWrapErrorNil(test *testing.T) {
	test.Parallel()
	if wrapped := WrapError("store", "account", "lookup_failed", nil); wrapped != nil {
		test.Fatalf("nil error must stay nil, got %v", wrapped)
	}
}
