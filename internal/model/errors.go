package model

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound   = errors.New("purchase session not found")
	ErrCourseNotFound    = errors.New("course not found")
	ErrIllegalTransition = errors.New("illegal transition of purchase state")
	ErrUnknownCheckout   = errors.New("no open checkout for order")
	ErrPaymentCancelled  = errors.New("payment cancelled")
)

type AuthRequiredError struct{}

func (e *AuthRequiredError) Error() string {
	return "authentication required"
}

func (e *AuthRequiredError) UserMessage() string {
	return "Please log in to purchase this course."
}

type ScriptLoadError struct {
	URL string
	Err error
}

func (e *ScriptLoadError) Error() string {
	return fmt.Sprintf("load checkout script %s: %v", e.URL, e.Err)
}

func (e *ScriptLoadError) Unwrap() error {
	return e.Err
}

func (e *ScriptLoadError) UserMessage() string {
	return "Payment gateway failed to load. Please try again."
}

type OrderCreationError struct {
	Reason string
	Err    error
}

func (e *OrderCreationError) Error() string {
	if e.Err == nil {
		return "create order: " + e.Reason
	}
	return fmt.Sprintf("create order: %s: %v", e.Reason, e.Err)
}

func (e *OrderCreationError) Unwrap() error {
	return e.Err
}

func (e *OrderCreationError) UserMessage() string {
	return "Could not create your order. Please try again."
}

// GatewayFailure is a payment the gateway itself reported as failed.
type GatewayFailure struct {
	Detail PaymentFailureDetail
}

func (e *GatewayFailure) Error() string {
	return fmt.Sprintf("gateway payment failed: code=%s reason=%s: %s", e.Detail.Code, e.Detail.Reason, e.Detail.Description)
}

func (e *GatewayFailure) UserMessage() string {
	if e.Detail.Description != "" {
		return "Payment failed: " + e.Detail.Description
	}
	return "Payment failed. Please try again."
}

// VerificationError is fail-closed: the gateway may have reported success, the purchase still fails.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return "payment verification failed"
	}
	return fmt.Sprintf("payment verification failed: %v", e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

func (e *VerificationError) UserMessage() string {
	return "Payment verification failed."
}

// UserMessage picks the one message shown to the user for err.
func UserMessage(err error) string {
	var um interface{ UserMessage() string }
	switch {
	case err == nil:
		return ""
	case errors.As(err, &um):
		return um.UserMessage()
	case errors.Is(err, ErrPaymentCancelled):
		return "Payment cancelled."
	case errors.Is(err, ErrSessionNotFound):
		return "This purchase has expired. Please start again."
	case errors.Is(err, ErrCourseNotFound):
		return "Course not found."
	case errors.Is(err, ErrIllegalTransition):
		return "This purchase can no longer be changed."
	default:
		return "Something went wrong. Please try again."
	}
}
