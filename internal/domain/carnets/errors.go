package carnets

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeOutOfRange          ErrorCode = "OUT_OF_RANGE"
	CodeMalformedCarnet     ErrorCode = "MALFORMED_CARNET"
	CodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	CodeReversalNotExplicit ErrorCode = "REVERSAL_NOT_EXPLICIT"
	CodeInvalidCommand      ErrorCode = "INVALID_COMMAND"
)

// ValidationError reports a structural problem in the data handed to the ledger.
type ValidationError struct {
	Code    ErrorCode
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func malformed(field, msg string) error {
	return &ValidationError{Code: CodeMalformedCarnet, Field: field, Message: msg}
}
