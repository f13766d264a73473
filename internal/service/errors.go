package service

import (
	"errors"
	"fmt"

	"github.com/blog-realtime-api/internal/validation"
)

// Kind classifies a service failure for the transport layer
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	default:
		return "store"
	}
}

// Error is returned by every service operation. Message is safe to show
// to callers except for KindStore, whose cause is kept in Err for logs.
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

// KindOf reports the kind of err; unknown errors count as store failures
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindStore
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func notFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func forbiddenError(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func storeError(op string, err error) *Error {
	return &Error{Kind: KindStore, Message: op, Err: err}
}

// asStoreError wraps err as a store failure unless it already has a kind
func asStoreError(op string, err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return storeError(op, err)
}

// invalid reports the first field error, or nil when there is none
func invalid(errs []validation.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	return validationError(errs[0].Message)
}
