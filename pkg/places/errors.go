package places

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of search failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx HTTP errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx HTTP errors and UNKNOWN_ERROR.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassQuota represents OVER_QUERY_LIMIT.
	ErrorClassQuota ErrorClass = "quota"

	// ErrorClassDenied represents REQUEST_DENIED (bad or unauthorized key).
	ErrorClassDenied ErrorClass = "denied"

	// ErrorClassInvalid represents INVALID_REQUEST on a query request.
	ErrorClassInvalid ErrorClass = "invalid"

	// ErrorClassTokenPending represents INVALID_REQUEST on a pagetoken request.
	// The upstream issues page tokens before they become usable.
	ErrorClassTokenPending ErrorClass = "token_pending"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents an unreadable response body.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError represents a failed Nearby Search call.
type APIError struct {
	// Status is the API status field ("OVER_QUERY_LIMIT", ...), empty for transport errors.
	Status     string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	detail := e.Message
	if e.Status != "" && e.Status != e.Message {
		detail = e.Status + ": " + e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("places %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, detail, e.Err)
	}
	return fmt.Sprintf("places %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, detail)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classOf extracts the ErrorClass of an error, "" if it carries none.
func classOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ""
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassQuota, ErrorClassTokenPending, ErrorClassNetwork:
		return true
	default:
		// client, denied, invalid and decode failures repeat identically
		return false
	}
}

// classifyHTTPStatus categorizes a non-2xx HTTP status code.
func classifyHTTPStatus(code int) ErrorClass {
	switch {
	case code == 429:
		return ErrorClassQuota
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// classifyAPIStatus categorizes a non-OK Nearby Search status.
func classifyAPIStatus(status string, continuation bool) ErrorClass {
	switch status {
	case StatusOverQueryLimit:
		return ErrorClassQuota
	case StatusRequestDenied:
		return ErrorClassDenied
	case StatusInvalidRequest:
		if continuation {
			return ErrorClassTokenPending
		}
		return ErrorClassInvalid
	case StatusUnknownError:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}
