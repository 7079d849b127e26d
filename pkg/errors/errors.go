package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind 错误类别，调用方通过类别判断错误，不要匹配错误文本
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindGateway    Kind = "gateway"
	KindTransport  Kind = "transport"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

func NotFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

func Gateway(op, message string, cause error) *Error {
	return &Error{Kind: KindGateway, Op: op, Message: message, Err: cause}
}

func Transport(op, message string, cause error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: message, Err: cause}
}

// KindOf 返回错误类别，非本包错误返回空串
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsGateway(err error) bool    { return KindOf(err) == KindGateway }
func IsTransport(err error) bool  { return KindOf(err) == KindTransport }

// Retryable 判断错误是否值得重投：网关和传输错误可能恢复，
// 校验错误和未找到不会恢复
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindGateway, KindTransport:
		return true
	}
	return false
}
