package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationError  ErrorCode = "VALIDATION_ERROR"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported     ErrorCode = "NOT_SUPPORTED"
	CodeNoSupportedFiles ErrorCode = "NO_SUPPORTED_FILES"
	CodeFileNotFound     ErrorCode = "FILE_NOT_FOUND"
	CodeSymbolNotFound   ErrorCode = "SYMBOL_NOT_FOUND"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeNotReady         ErrorCode = "NOT_READY"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
	// Detail carries a diagnostic payload, e.g. partial statistics of an
	// aborted run. It is not rendered by Error().
	Detail any
}

const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxLanguage  = "language"
	CtxSymbol    = "symbol"
	CtxStage     = "stage"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// WithDetail attaches a diagnostic payload to a domain error.
func WithDetail(err error, detail any) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.Detail = detail
		return de
	}
	return &DomainError{Code: CodeInternal, Message: "wrapped error", Err: err, Detail: detail}
}

// DetailOf returns the payload attached with WithDetail, if any.
func DetailOf(err error) (any, bool) {
	var de *DomainError
	if errors.As(err, &de) && de.Detail != nil {
		return de.Detail, true
	}
	return nil, false
}

// AddContext attaches a key/value pair, wrapping foreign errors as internal.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

func IsNoSupportedFiles(err error) bool { return IsCode(err, CodeNoSupportedFiles) }
func IsFileNotFound(err error) bool     { return IsCode(err, CodeFileNotFound) }
func IsSymbolNotFound(err error) bool   { return IsCode(err, CodeSymbolNotFound) }
func IsTimeout(err error) bool          { return IsCode(err, CodeTimeout) }
