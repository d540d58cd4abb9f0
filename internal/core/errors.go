package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, so a wrapped sentinel still compares equal.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Wrapf wraps a formatted cause under base.
func Wrapf(base *Error, format string, args ...any) *Error {
	return WrapError(base, fmt.Errorf(format, args...))
}

// Predefined errors
var (
	// Data errors
	ErrSymbolNotFound   = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol not found"}
	ErrSymbolExists     = &Error{Code: "SYMBOL_EXISTS", Message: "symbol already tracked"}
	ErrNoData           = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for analysis"}
	ErrMarketData       = &Error{Code: "MARKET_DATA_FAILED", Message: "market data request failed"}
	ErrNewsFailed       = &Error{Code: "NEWS_FAILED", Message: "news request failed"}

	// Analysis errors
	ErrAnalyzerFailed = &Error{Code: "ANALYZER_FAILED", Message: "analyzer failed"}
	ErrCycleFailed    = &Error{Code: "CYCLE_FAILED", Message: "scheduler cycle failed"}

	// Brokerage errors
	ErrBrokerFailed = &Error{Code: "BROKER_FAILED", Message: "brokerage request failed"}
	ErrOrderFailed  = &Error{Code: "ORDER_FAILED", Message: "order failed"}

	// Persistence errors
	ErrStoreFailed   = &Error{Code: "STORE_FAILED", Message: "store operation failed"}
	ErrArchiveFailed = &Error{Code: "ARCHIVE_FAILED", Message: "archive operation failed"}

	// Notifier errors
	ErrNotifierFailed = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// LLM errors
	ErrLLMFailed  = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
	ErrLLMTimeout = &Error{Code: "LLM_TIMEOUT", Message: "LLM request timeout"}
)
