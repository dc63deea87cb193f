package apperr

import (
	"errors"
	"fmt"
)

// Code 错误分类。
type Code string

const (
	CodeNotFound    Code = "NOT_FOUND"
	CodeValidation  Code = "VALIDATION"
	CodePersistence Code = "PERSISTENCE"
	CodeComputation Code = "COMPUTATION"
)

// Error 带分类的业务错误。
type Error struct {
	Code    Code
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound 表示用户、活动等实体不存在。
func NotFound(kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: kind + " not found", Details: id}
}

// Validation 表示请求在写入前被拒绝。
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf 同 Validation，支持格式化。
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// Persistence 包装存储层失败。
func Persistence(op string, err error) *Error {
	return &Error{Code: CodePersistence, Message: op + " failed", Details: errString(err), Err: err}
}

// CodeOf 返回错误分类，非 *Error 返回空串。
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsNotFound(err error) bool   { return CodeOf(err) == CodeNotFound }
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
