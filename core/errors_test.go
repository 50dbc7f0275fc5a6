package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestStoreErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *StoreError
		want string
	}{
		{
			"op and wrapped error",
			&StoreError{Op: "cart.Sync", Err: errors.New("boom")},
			"cart.Sync: boom",
		},
		{
			"op with entity id",
			&StoreError{Op: "catalogue.GetByID", ID: "42", Err: errors.New("boom")},
			"catalogue.GetByID [42]: boom",
		},
		{
			"message only",
			&StoreError{Kind: "session", Message: "token pair incomplete"},
			"token pair incomplete",
		},
		{
			"kind fallback",
			&StoreError{Kind: "gateway"},
			"gateway error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	err := NewStoreError("checkout.Checkout", "checkout", ErrEmptyCart)
	if !errors.Is(err, ErrEmptyCart) {
		t.Error("wrapped sentinel must survive errors.Is")
	}

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatal("errors.As must find the StoreError")
	}
	if storeErr.Op != "checkout.Checkout" {
		t.Errorf("Op = %q", storeErr.Op)
	}
}

func TestErrorClassification(t *testing.T) {
	wrap := func(sentinel error) error {
		return fmt.Errorf("context: %w", sentinel)
	}

	if !IsRetryable(wrap(ErrConnectionFailed)) || !IsRetryable(wrap(ErrTimeout)) || !IsRetryable(wrap(ErrRequestFailed)) {
		t.Error("transport and 5xx failures must be retryable")
	}
	if IsRetryable(wrap(ErrNotFound)) || IsRetryable(wrap(ErrValidation)) {
		t.Error("user errors must not be retryable")
	}

	if !IsNotFound(wrap(ErrNotFound)) {
		t.Error("IsNotFound must see through wrapping")
	}

	if !IsAuthError(wrap(ErrUnauthorized)) || !IsAuthError(wrap(ErrLoginRequired)) || !IsAuthError(wrap(ErrSessionExpired)) {
		t.Error("session errors must classify as auth errors")
	}
	if IsAuthError(wrap(ErrNotFound)) {
		t.Error("not-found must not classify as auth error")
	}

	if !IsValidationError(wrap(ErrValidation)) || !IsValidationError(wrap(ErrOutOfStock)) {
		t.Error("validation and stock rejections must classify as validation errors")
	}

	if !IsConfigurationError(wrap(ErrInvalidConfiguration)) || !IsConfigurationError(wrap(ErrMissingConfiguration)) {
		t.Error("configuration sentinels must classify as configuration errors")
	}
}
