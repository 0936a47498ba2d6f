package tools

import (
	"errors"
	"fmt"
)

// ToolError reports a tool-level failure: a Python exception or
// timeout, a Wolfram error, an unknown tool name, or a missing marker
// in modify_proof. The registry renders it into the tool-result text
// the model sees; it is never fatal for the conversation.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
	}
	return e.Message
}

// IsToolError reports whether err is (or wraps) a ToolError.
func IsToolError(err error) bool {
	var te *ToolError
	return errors.As(err, &te)
}
