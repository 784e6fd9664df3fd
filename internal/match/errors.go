package match

import (
	"errors"
	"fmt"
)

// Error codes exposed across the request boundary.
const (
	CodeConfiguration    = "CONFIGURATION_ERROR"
	CodeMalformedQuery   = "MALFORMED_QUERY"
	CodeDegradedStrategy = "DEGRADED_STRATEGY"
	CodeCatalogNotReady  = "CATALOG_NOT_READY"
	CodeInternal         = "INTERNAL_ERROR"
)

var (
	// ErrConfiguration is returned when the engine cannot be set up.
	ErrConfiguration = errors.New("configuration error")
	// ErrMalformedQuery is returned when a query fails validation.
	ErrMalformedQuery = errors.New("malformed query")
	// ErrDegradedStrategy marks a strategy that failed for one request.
	ErrDegradedStrategy = errors.New("degraded strategy")
	// ErrCatalogNotReady is returned before the first catalog snapshot is loaded.
	ErrCatalogNotReady = errors.New("catalog not ready")
)

var codeSentinels = map[string]error{
	CodeConfiguration:    ErrConfiguration,
	CodeMalformedQuery:   ErrMalformedQuery,
	CodeDegradedStrategy: ErrDegradedStrategy,
	CodeCatalogNotReady:  ErrCatalogNotReady,
}

// Error is a typed engine error with a machine-readable code.
type Error struct {
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap lets errors.Is match both the code's sentinel and the cause.
func (e *Error) Unwrap() []error {
	var errs []error
	if s, ok := codeSentinels[e.Code]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func malformed(field, message string) *Error {
	return &Error{Code: CodeMalformedQuery, Field: field, Message: message}
}

func degraded(strategy Strategy, err error) *Error {
	return &Error{Code: CodeDegradedStrategy, Message: string(strategy) + " matching skipped", Err: err}
}

// CodeOf returns the machine-readable code for err, INTERNAL_ERROR when untyped.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	for code, sentinel := range codeSentinels {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeInternal
}
