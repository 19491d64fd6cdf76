package xerr

import (
	"errors"
	"fmt"
)

// 常用错误码定义
const (
	OK                 = 200
	RequestParamsError = 400
	RecordNotFound     = 404
	VersionConflict    = 409
	ServerCommonError  = 500
	DbError            = 501
	PromptError        = 502

	// 业务错误码
	InsufficientFunds = 1001
	InsufficientStock = 1002
)

type CodeError struct {
	Code  int    `json:"code"`
	Msg   string `json:"msg"`
	cause error
}

func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("ErrCode:%d, Msg:%s: %v", e.Code, e.Msg, e.cause)
	}
	return fmt.Sprintf("ErrCode:%d, Msg:%s", e.Code, e.Msg)
}

func (e *CodeError) Unwrap() error { return e.cause }

// Is 同 code 即视为同一类错误，方便 errors.Is(err, xerr.NewErrCode(xerr.RecordNotFound))
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func New(code int, msg string) error {
	return &CodeError{Code: code, Msg: msg}
}

func NewErrCode(code int) error {
	return &CodeError{Code: code, Msg: MapErrMsg(code)}
}

// Wrap 保留底层错误，errors.Is/As 可以继续往下找
func Wrap(err error, code int, msg string) error {
	if err == nil {
		return nil
	}
	return &CodeError{Code: code, Msg: msg, cause: err}
}

// CodeOf 取出错误链上第一个 CodeError 的 code，没有则 ServerCommonError
func CodeOf(err error) int {
	if err == nil {
		return OK
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ServerCommonError
}

func MapErrMsg(code int) string {
	switch code {
	case ServerCommonError:
		return "internal error"
	case RequestParamsError:
		return "bad request"
	case DbError:
		return "database busy"
	case RecordNotFound:
		return "record not found"
	case VersionConflict:
		return "concurrent update, retry"
	case PromptError:
		return "prompt unavailable"
	case InsufficientFunds:
		return "insufficient funds"
	case InsufficientStock:
		return "insufficient stock"
	default:
		return "unknown error"
	}
}
