package helpers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"coin-observer/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ObserverError struct {
	Message string
	Cause   error
}

func (e *ObserverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ObserverError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ ObserverError }
type NetworkError struct{ ObserverError }
type DatabaseError struct{ ObserverError }
type ValidationError struct{ ObserverError }

// -----------------------------------------------------------------------------

// FetchError reports a failed call to the market data provider: transport
// failure, timeout, non-2xx status or an undecodable body.
type FetchError struct {
	Op         string
	Symbol     string
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString("fetch ")
	b.WriteString(e.Op)
	if e.Symbol != "" {
		b.WriteString(" [")
		b.WriteString(e.Symbol)
		b.WriteString("]")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewFetchError wraps cause unless it already is a FetchError.
func NewFetchError(op, symbol string, statusCode int, cause error) error {
	var fe *FetchError
	if errors.As(cause, &fe) {
		return cause
	}
	return &FetchError{Op: op, Symbol: symbol, StatusCode: statusCode, Cause: cause}
}

// IsFetchError reports whether err is or wraps a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// -----------------------------------------------------------------------------

// InvalidSymbolError is returned for symbols that fail validation before any
// network call is made.
type InvalidSymbolError struct {
	Symbol string
	Reason string
}

func (e *InvalidSymbolError) Error() string {
	return fmt.Sprintf("invalid symbol %q: %s", e.Symbol, e.Reason)
}

// IsInvalidSymbol reports whether err is or wraps an InvalidSymbolError.
func IsInvalidSymbol(err error) bool {
	var ie *InvalidSymbolError
	return errors.As(err, &ie)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to maxRetries times with exponential backoff.
// It stops early when ctx is done or when fn returns a non-retryable error.
func RetryWithBackoff[T any](ctx context.Context, maxRetries int, baseDelay time.Duration, retryable func(error) bool, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 || (retryable != nil && !retryable(err)) {
			break
		}

		delay := baseDelay * (1 << attempt)
		select {
		case <-ctx.Done():
			return zero, errors.Join(lastErr, ctx.Err())
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler counts consecutive failures of background operations.
type ErrorHandler struct {
	Logger                 *logger.Logger
	MaxErrorsBeforeWarning int
	errorCount             int
	mu                     sync.Mutex
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{
		Logger:                 log,
		MaxErrorsBeforeWarning: 10,
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ErrorCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errorCount
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.mu.Lock()
	e.errorCount = 0
	e.mu.Unlock()
}

// -----------------------------------------------------------------------------

// ExecuteWithRetry runs fn with retries and wraps the final failure in a
// typed error chosen from the operation name.
func (e *ErrorHandler) ExecuteWithRetry(operation string, fn func() error, maxRetries int, baseDelay time.Duration) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			e.mu.Lock()
			if e.errorCount > 0 {
				e.errorCount--
			}
			e.mu.Unlock()
			return nil
		}

		if attempt == maxRetries-1 {
			e.mu.Lock()
			e.errorCount++
			count := e.errorCount
			e.mu.Unlock()

			e.Logger.Error("%s failed (attempt %d/%d): %v", operation, attempt+1, maxRetries, err)
			if count >= e.MaxErrorsBeforeWarning {
				e.Logger.Warning("%d consecutive failures, last in %s", count, operation)
			}

			lowerOp := strings.ToLower(operation)
			base := ObserverError{Message: fmt.Sprintf("%s failed", operation), Cause: err}
			switch {
			case strings.Contains(lowerOp, "network") || strings.Contains(lowerOp, "fetch"):
				return &NetworkError{base}
			case strings.Contains(lowerOp, "database") || strings.Contains(lowerOp, "save"):
				return &DatabaseError{base}
			default:
				return &base
			}
		}

		e.Logger.Warning("%s failed (attempt %d/%d): %v", operation, attempt+1, maxRetries, err)
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}

	return &ObserverError{Message: fmt.Sprintf("%s failed after %d attempts", operation, maxRetries)}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) Handle(err error, context string) {
	if err != nil {
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
