package myerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers of the wallet engine.
type Kind string

const (
	KindUnauthorized      Kind = "Unauthorized"
	KindValidation        Kind = "ValidationError"
	KindInsufficientFunds Kind = "InsufficientFunds"
	KindInvalidAmount     Kind = "InvalidAmount"
	KindAccountNotFound   Kind = "AccountNotFound"
	KindReceiverNotFound  Kind = "ReceiverNotFound"
	KindSelfTransfer      Kind = "SelfTransfer"
	KindNotFound          Kind = "NotFound"
	KindInternal          Kind = "Internal"
)

var (
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "invalid request"}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Message: "insufficient funds"}
	ErrInvalidAmount     = &Error{Kind: KindInvalidAmount, Message: "amount must be greater than zero"}
	ErrAccountNotFound   = &Error{Kind: KindAccountNotFound, Message: "wallet not found"}
	ErrReceiverNotFound  = &Error{Kind: KindReceiverNotFound, Message: "receiver wallet not found"}
	ErrSelfTransfer      = &Error{Kind: KindSelfTransfer, Message: "cannot send money to yourself"}
)

// Error is a caller-visible wallet failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so wrapped variants compare equal
// to the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Validation returns a ValidationError carrying msg.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// KindOf returns the kind of err, or KindInternal when err is not a wallet error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
