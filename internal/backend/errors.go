package backend

import (
	"errors"
	"fmt"
)

var (
	ErrNetworkFailure     = errors.New("network failure")
	ErrServiceError       = errors.New("service error")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrCheckout           = errors.New("checkout error")
)

// CheckoutReason narrows down why the backend refused to place an order.
type CheckoutReason string

const (
	CheckoutFailed     CheckoutReason = "failed"
	CheckoutCartEmpty  CheckoutReason = "cart_empty"
	CheckoutValidation CheckoutReason = "validation"
)

// Error describes a failed call to the restaurant backend. Kind is one of the
// package sentinels so callers can branch with errors.Is.
type Error struct {
	Op      string
	Kind    error
	Status  int
	Message string
	Reason  CheckoutReason
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the text a shopper should see for this failure.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Kind == ErrCheckout {
		return "Checkout failed"
	}
	return e.Kind.Error()
}

// ReasonOf extracts the checkout reason carried by err, if any.
func ReasonOf(err error) (CheckoutReason, bool) {
	var be *Error
	if errors.As(err, &be) && be.Kind == ErrCheckout {
		return be.Reason, true
	}
	return "", false
}
