package llm

import (
	"errors"
	"fmt"
)

// ServiceError reports a provider-side failure: transport errors, API error
// payloads, or a stream that ended without a terminal finish_reason. Service
// errors are retryable; GetResult restarts from the baseline messages.
type ServiceError struct {
	Message string
	Status  int
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm service error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("llm service error: %s", e.Message)
}

// FormatError reports malformed model output, such as a response missing the
// regions a node expects. It signals a caller-level retry with a fresh
// conversation, not a transport retry.
type FormatError struct {
	Message string
	Status  int
}

func (e *FormatError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm format error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("llm format error: %s", e.Message)
}

// IsServiceError reports whether err is (or wraps) a ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// IsFormatError reports whether err is (or wraps) a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
