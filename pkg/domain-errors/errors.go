// Package domainerrors defines the typed error taxonomy shared by services,
// stores, and transports. Services return coded errors; the HTTP layer maps
// codes to status lines without inspecting messages. Import it aliased:
//
//	dErrors "lingkod/pkg/domain-errors"
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for propagation and transport mapping.
type Code string

const (
	// CodeBadRequest marks malformed input (unparseable body, bad enum value).
	CodeBadRequest Code = "bad_request"
	// CodeValidation marks well-formed input that violates a domain rule.
	CodeValidation Code = "validation"
	// CodeNotFound marks a referenced entity that does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a uniqueness or integrity conflict at the storage layer.
	CodeConflict Code = "conflict"
	// CodeInvalidState marks an operation against an entity in a terminal or
	// otherwise incompatible state (e.g. dispensing a finalized prescription).
	CodeInvalidState Code = "invalid_state"
	// CodeEncryption marks a failure while encrypting a sensitive field.
	CodeEncryption Code = "encryption_failed"
	// CodeDecryption marks a failure while decrypting a sensitive field.
	CodeDecryption Code = "decryption_failed"
	// CodeBestEffort marks a non-fatal side-channel failure (email, SMS) that
	// happened after the durable state change committed.
	CodeBestEffort Code = "best_effort_failure"
	// CodeExhausted marks a bounded retry loop that ran out of attempts.
	CodeExhausted Code = "exhausted"
	// CodeUnauthorized marks a missing or invalid credential.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated actor without the required rights.
	CodeForbidden Code = "forbidden"
	// CodeTimeout marks a deadline or cancellation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks storage and other infrastructure failures whose
	// detail must not leak to clients.
	CodeInternal Code = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
// The cause is preserved so operators can tell a duplicate key apart from a
// connectivity outage; clients only ever see the code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with a static message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause remains
// reachable through errors.Is/As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err carries the given code, walking the wrap chain.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// HasCode reports whether any error in the chain is a coded error at all.
func HasCode(err error) bool {
	var de *Error
	return errors.As(err, &de)
}

// CodeOf extracts the code from the first coded error in the chain, or
// CodeInternal when none is present.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps codes onto HTTP status codes for the transport layer.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState, CodeExhausted:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
