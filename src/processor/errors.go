package processor

import (
	"errors"
	"fmt"
)

// ErrorKind 错误类别
type ErrorKind string

const (
	KindData        ErrorKind = "DATA_ERROR"        // 字段缺失、格式错误、空输入导致统计量无定义
	KindComputation ErrorKind = "COMPUTATION_ERROR" // NaN / Inf 传播等数值错误
)

// Error 计算错误
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

var (
	// ErrData 用于 errors.Is 判断数据错误
	ErrData = &Error{Kind: KindData}
	// ErrComputation 用于 errors.Is 判断计算错误
	ErrComputation = &Error{Kind: KindComputation}
)

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按类别匹配
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// DataErrorf 创建数据错误
func DataErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindData, Message: fmt.Sprintf(format, args...)}
}

// ComputationErrorf 创建计算错误
func ComputationErrorf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindComputation, Message: fmt.Sprintf(format, args...)}
}

// WrapData 包装底层错误为数据错误
func WrapData(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindData, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf 返回错误类别，非本包错误返回空串
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
