// Package apperr classifies the error taxonomy the core surfaces to its
// callers (RoundCoordinator, the API dispatch layer, the CLI). Every error
// that crosses a component boundary is wrapped with a Kind so the caller can
// decide whether to retry, treat it as a 4xx, or escalate.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry/HTTP-status decisions per the error
// handling design.
type Kind string

const (
	KindInvalidAddress    Kind = "invalid_address"
	KindInvalidAmount     Kind = "invalid_amount"
	KindDuplicateAddress  Kind = "duplicate_address"
	KindMalformedInput    Kind = "malformed_input"
	KindNotFound          Kind = "not_found"
	KindRoundBusy         Kind = "round_busy"
	KindInvalidProof      Kind = "invalid_proof"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindStorageCorrupt    Kind = "storage_corrupt"
	KindOnChainTransient  Kind = "onchain_transient"
	KindOnChainDefinitive Kind = "onchain_definitive"
	KindExternalInvalid   Kind = "external_invalid"
)

// Error is a classified application error.
type Error struct {
	kind    Kind
	message string
	cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

// KindOf extracts the Kind of err, if any, defaulting to "" when err was not
// produced by this package.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.kind
	}
	return ""
}

// Is reports whether err (or something it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the caller may retry the operation that
// produced err without changing its inputs.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRoundBusy, KindStorageUnavailable, KindOnChainTransient:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound         = New(KindNotFound, "not found")
	ErrRoundBusy        = New(KindRoundBusy, "round is busy")
	ErrDuplicateAddress = New(KindDuplicateAddress, "duplicate address in input")
)
