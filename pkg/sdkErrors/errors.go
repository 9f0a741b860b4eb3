package sdkErrors

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ConcurrentAuthorisation ErrorType = "ConcurrentAuthorisation"
	ConcurrentDeployment    ErrorType = "ConcurrentDeployment"
	UnsupportedBytecode     ErrorType = "UnsupportedBytecode"
	InvalidAddress          ErrorType = "InvalidAddress"
	MissingConfiguration    ErrorType = "MissingConfiguration"
	TransactionHashNotFound ErrorType = "TransactionHashNotFound"
	MissingMessageHash      ErrorType = "MissingMessageHash"
	TimeoutError            ErrorType = "TimeoutError"
	InvalidEvent            ErrorType = "InvalidEvent"
)

type Category string

const (
	CategoryConflict         Category = "Conflict"
	CategoryValidationFailed Category = "ValidationFailed"
	CategoryNotFound         Category = "NotFound"
	CategoryTimeout          Category = "Timeout"
)

var errorCategories = map[ErrorType]Category{
	ConcurrentAuthorisation: CategoryConflict,
	ConcurrentDeployment:    CategoryConflict,
	UnsupportedBytecode:     CategoryValidationFailed,
	InvalidAddress:          CategoryValidationFailed,
	InvalidEvent:            CategoryValidationFailed,
	MissingConfiguration:    CategoryNotFound,
	TransactionHashNotFound: CategoryNotFound,
	MissingMessageHash:      CategoryNotFound,
	TimeoutError:            CategoryTimeout,
}

// CategoryOf returns the category an error type belongs to.
func CategoryOf(t ErrorType) Category {
	return errorCategories[t]
}

// SDKError is the single error kind raised by the SDK. Type is the discriminant.
type SDKError struct {
	Type    ErrorType
	Message string
}

func (e *SDKError) Error() string {
	return e.Message
}

func (e *SDKError) Category() Category {
	return CategoryOf(e.Type)
}

// Is matches any *SDKError of the same Type, so sentinels below work with errors.Is.
func (e *SDKError) Is(target error) bool {
	var t *SDKError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

func newError(t ErrorType, message string) *SDKError {
	return &SDKError{Type: t, Message: message}
}

// Sentinels for errors.Is comparisons.
var (
	ErrConcurrentAuthorisation = NewConcurrentAuthorisation()
	ErrConcurrentDeployment    = NewConcurrentDeployment()
	ErrUnsupportedBytecode     = NewUnsupportedBytecode()
	ErrInvalidAddress          = newError(InvalidAddress, "invalid address")
	ErrInvalidEvent            = newError(InvalidEvent, "invalid event")
	ErrMissingConfiguration    = NewMissingConfiguration()
	ErrTransactionHashNotFound = NewTransactionHashNotFound()
	ErrMissingMessageHash      = NewMissingMessageHash()
	ErrTimeout                 = NewTimeoutError()
)

func NewConcurrentDeployment() *SDKError {
	return newError(ConcurrentDeployment, "Other wallet waiting for counterfactual deployment. Stop observer to cancel old wallet instantialisation.")
}

func NewConcurrentAuthorisation() *SDKError {
	return newError(ConcurrentAuthorisation, "Another wallet is subscribed.")
}

func NewInvalidAddress(address string) *SDKError {
	return newError(InvalidAddress, fmt.Sprintf("Address %s is not valid.", address))
}

func NewUnsupportedBytecode() *SDKError {
	return newError(UnsupportedBytecode, "Proxy Bytecode is not supported by relayer")
}

func NewInvalidEvent(eventType string) *SDKError {
	return newError(InvalidEvent, fmt.Sprintf("Unknown event type: %s", eventType))
}

func NewMissingConfiguration() *SDKError {
	return newError(MissingConfiguration, "Relayer configuration not yet loaded")
}

func NewTransactionHashNotFound() *SDKError {
	return newError(TransactionHashNotFound, "Transaction hash is not found in Message Status")
}

func NewMissingMessageHash() *SDKError {
	return newError(MissingMessageHash, "Message hash is missing in Message Status")
}

func NewTimeoutError() *SDKError {
	return newError(TimeoutError, "Timeout exceeded")
}

// TypeOf extracts the discriminant from err. ok is false when err is not an SDK error.
func TypeOf(err error) (ErrorType, bool) {
	var sdkErr *SDKError
	if errors.As(err, &sdkErr) {
		return sdkErr.Type, true
	}
	return "", false
}

func IsType(err error, t ErrorType) bool {
	et, ok := TypeOf(err)
	return ok && et == t
}

func IsCategory(err error, c Category) bool {
	et, ok := TypeOf(err)
	return ok && CategoryOf(et) == c
}

// IsRetryable reports whether the caller may re-invoke the failed operation. Only timeouts are.
func IsRetryable(err error) bool {
	return IsCategory(err, CategoryTimeout)
}
